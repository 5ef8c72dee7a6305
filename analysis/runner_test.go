package analysis

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/disim/sim"
	"github.com/sarchlab/disim/topology"
	"github.com/sarchlab/disim/tracing"
)

func arbiterNetlist() *topology.Netlist {
	return &topology.Netlist{
		Name: "Arbiter",
		Wires: []topology.WireSpec{
			{Name: "AStart", Active: true},
			{Name: "BStart", Active: true},
			{Name: "EndA"}, {Name: "EndB"},
			{Name: "ALost"}, {Name: "BLost"},
		},
		Conflicts: []topology.ConflictSpec{{
			Name: "AAndB",
			Ports: map[string]string{
				"I1": "AStart", "I2": "BStart",
				"O1": "EndA", "O2": "EndB",
				"SBO1": "ALost", "SBO2": "BLost",
			},
		}},
		Outcomes: []topology.Outcome{
			{Name: "A", Wires: []string{"EndA"}},
			{Name: "B", Wires: []string{"EndB"}},
		},
	}
}

// stuckNetlist never reaches its outcome since nothing drives Sink.
func stuckNetlist() *topology.Netlist {
	return &topology.Netlist{
		Name: "Stuck",
		Wires: []topology.WireSpec{
			{Name: "Src", Active: true},
			{Name: "Sink"},
		},
		Outcomes: []topology.Outcome{
			{Name: "Done", Wires: []string{"Sink"}},
		},
	}
}

type fakeTracker struct {
	lock       sync.Mutex
	inProgress uint64
	finished   uint64
}

func (t *fakeTracker) IncrementInProgress(amount uint64) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.inProgress += amount
}

func (t *fakeTracker) MoveInProgressToFinished(amount uint64) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.inProgress -= amount
	t.finished += amount
}

var _ = Describe("Runner", func() {
	var (
		mockCtrl *gomock.Controller
		cfg      sim.Config
		builder  RunnerBuilder
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		cfg = sim.MakeConfigBuilder().
			WithMaxWait(time.Millisecond).
			WithPollInterval(10 * time.Microsecond).
			Build()
		builder = MakeRunnerBuilder().
			WithConfig(cfg).
			WithTimeout(2 * time.Second).
			WithPollInterval(100 * time.Microsecond)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should require a netlist with outcomes", func() {
		_, err := builder.Build()
		Expect(err).To(HaveOccurred())

		n := arbiterNetlist()
		n.Outcomes = nil
		_, err = builder.WithNetlist(n).Build()
		Expect(err).To(HaveOccurred())
	})

	It("should refuse circuits with analysis disabled", func() {
		n, err := topology.Builtin("4e4c")
		Expect(err).NotTo(HaveOccurred())

		_, err = builder.WithNetlist(n).Build()

		Expect(err).To(MatchError(ErrNotAnalyzable))
	})

	It("should reject invalid parameters", func() {
		_, err := builder.WithNetlist(arbiterNetlist()).WithTimeout(0).Build()

		Expect(err).To(HaveOccurred())
	})

	It("should tally the outcomes", func() {
		tracker := &fakeTracker{}
		runner, err := builder.
			WithNetlist(arbiterNetlist()).
			WithTrials(100).
			WithProgressTracker(tracker).
			Build()
		Expect(err).NotTo(HaveOccurred())

		tally, err := runner.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(tally.Topology).To(Equal("Arbiter"))
		Expect(tally.Trials).To(Equal(100))
		Expect(tally.Outcomes).To(Equal([]string{"A", "B", Livelock}))
		Expect(tally.Counts["A"] + tally.Counts["B"]).To(Equal(100))
		Expect(tally.Counts["A"]).To(BeNumerically(">", 0))
		Expect(tally.Counts["B"]).To(BeNumerically(">", 0))
		Expect(tally.Completed()).To(Equal(100))
		Expect(tally.Fraction("A") + tally.Fraction("B")).To(BeNumerically("~", 1.0, 1e-9))
		Expect(tracker.finished).To(Equal(uint64(100)))
		Expect(tracker.inProgress).To(BeZero())
	})

	It("should count trials that never finish as livelock", func() {
		runner, err := builder.
			WithNetlist(stuckNetlist()).
			WithTrials(3).
			WithTimeout(20 * time.Millisecond).
			Build()
		Expect(err).NotTo(HaveOccurred())

		tally, err := runner.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(tally.Counts[Livelock]).To(Equal(3))
		Expect(tally.Fraction(Livelock)).To(Equal(1.0))
		Expect(tally.Completed()).To(BeZero())
	})

	It("should stop when the context is canceled", func() {
		runner, err := builder.
			WithNetlist(stuckNetlist()).
			WithTrials(1000).
			WithTimeout(time.Hour).
			Build()
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		tally, err := runner.Run(ctx)

		Expect(err).To(MatchError(context.DeadlineExceeded))
		Expect(tally.Trials).To(BeZero())
	})

	It("should record every trial", func() {
		recorder := NewMockDataRecorder(mockCtrl)
		recorder.EXPECT().ListTables().Return(nil)
		recorder.EXPECT().CreateTable(TrialTableName, TrialEntry{})

		runner, err := builder.
			WithNetlist(arbiterNetlist()).
			WithTrials(3).
			WithDataRecorder(recorder).
			Build()
		Expect(err).NotTo(HaveOccurred())

		trials := []int{}
		recorder.EXPECT().
			InsertData(TrialTableName, gomock.Any()).
			Do(func(_ string, entry any) {
				e := entry.(TrialEntry)
				Expect(e.Outcome).To(BeElementOf("A", "B"))
				Expect(e.ID).NotTo(BeEmpty())
				Expect(e.Run).NotTo(BeEmpty())
				trials = append(trials, e.Trial)
			}).
			Times(3)

		_, err = runner.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(trials).To(Equal([]int{0, 1, 2}))
	})

	It("should not create the trials table twice", func() {
		recorder := NewMockDataRecorder(mockCtrl)
		recorder.EXPECT().ListTables().Return([]string{"circuit_events", TrialTableName})

		_, err := builder.
			WithNetlist(arbiterNetlist()).
			WithDataRecorder(recorder).
			Build()

		Expect(err).NotTo(HaveOccurred())
	})

	It("should attach hooks to every trial", func() {
		counter := tracing.NewCounter()
		runner, err := builder.
			WithNetlist(arbiterNetlist()).
			WithTrials(5).
			WithHooks(counter).
			Build()
		Expect(err).NotTo(HaveOccurred())

		_, err = runner.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(counter.Total(sim.HookPosStateChange)).To(BeNumerically(">=", 5))
	})
})
