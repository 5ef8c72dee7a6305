package tracing

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/disim/sim"
)

var _ = Describe("Recorder", func() {
	var (
		mockCtrl *gomock.Controller
		backend  *MockDataRecorder
		cfg      sim.Config
		clock    time.Time
		builder  RecorderBuilder
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		backend = NewMockDataRecorder(mockCtrl)
		cfg = sim.MakeConfigBuilder().Build()

		clock = time.Unix(100, 0)
		builder = MakeRecorderBuilder().
			WithDataRecorder(backend).
			WithClock(func() time.Time { return clock })
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should create its table", func() {
		backend.EXPECT().CreateTable(DefaultTableName, Event{})

		r := builder.Build()

		Expect(r.TableName()).To(Equal("circuit_events"))
	})

	It("should use a custom table", func() {
		backend.EXPECT().CreateTable("trial_events", Event{})

		builder.WithTableName("trial_events").Build()
	})

	It("should panic without a data recorder", func() {
		Expect(func() { MakeRecorderBuilder().Build() }).To(Panic())
	})

	It("should record wire notifications", func() {
		backend.EXPECT().CreateTable(DefaultTableName, Event{})
		r := builder.Build()

		wire := sim.NewWire("AStart", cfg)
		wire.AcceptHook(r)
		clock = clock.Add(1500 * time.Millisecond)

		backend.EXPECT().InsertData(DefaultTableName, Event{
			ID:       "1",
			Time:     1.5,
			Element:  "AStart",
			Position: "WireRaised",
		})

		wire.SetActive(true)
	})

	It("should describe items and details", func() {
		backend.EXPECT().CreateTable(DefaultTableName, Event{})
		r := builder.Build()

		c := sim.NewConflictElement("AAndB", cfg)
		wire := sim.NewWire("AMergeOut", cfg)

		backend.EXPECT().InsertData(DefaultTableName, Event{
			ID:       "1",
			Element:  "AAndB",
			Position: "InputConsumed",
			Item:     "AMergeOut",
			Detail:   "I1",
		})
		backend.EXPECT().InsertData(DefaultTableName, Event{
			ID:       "2",
			Element:  "AAndB",
			Position: "StateChange",
			Item:     "FavorLeft",
		})
		backend.EXPECT().InsertData(DefaultTableName, Event{
			ID:       "3",
			Element:  "AAndB",
			Position: "Processing",
			Item:     "true",
		})

		r.Func(sim.HookCtx{
			Domain: c, Pos: sim.HookPosInputConsumed, Item: wire, Detail: sim.I1,
		})
		r.Func(sim.HookCtx{
			Domain: c, Pos: sim.HookPosStateChange, Item: sim.FavorLeft,
		})
		r.Func(sim.HookCtx{
			Domain: c, Pos: sim.HookPosProcessing, Item: true,
		})
	})

	It("should only record the selected positions", func() {
		backend.EXPECT().CreateTable(DefaultTableName, Event{})
		r := builder.WithPositions(sim.HookPosWireLowered).Build()

		wire := sim.NewWire("EndA", cfg)
		wire.AcceptHook(r)

		backend.EXPECT().
			InsertData(DefaultTableName, gomock.Any()).
			Do(func(_ string, entry any) {
				Expect(entry.(Event).Position).To(Equal("WireLowered"))
			})

		wire.SetActive(true)
		wire.SetActive(false)
	})
})
