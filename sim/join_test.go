package sim

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Join", func() {
	var (
		cfg           Config
		in1, in2, out *Wire
		join          *Join
		hook          *recordingHook
		done          chan struct{}
	)

	BeforeEach(func() {
		cfg = fastConfig()
		in1 = NewWire("In1", cfg)
		in2 = NewWire("In2", cfg)
		out = NewWire("Out", cfg)

		join = NewJoin("Join", cfg)
		join.In1 = in1
		join.In2 = in2
		join.Out = out

		hook = &recordingHook{}
		out.AcceptHook(hook)
	})

	AfterEach(func() {
		if done != nil {
			stopElement(join, done)
			done = nil
		}
	})

	It("should require all ports", func() {
		join.In1 = nil

		Expect(errors.Is(join.Validate(), ErrPortNotBound)).To(BeTrue())
	})

	It("should not raise the output with a single input", func() {
		forceArrive(in1)
		done = runElement(join)

		Eventually(in1.IsActive).Should(BeFalse())
		Consistently(out.IsActive, 50*time.Millisecond).Should(BeFalse())
	})

	DescribeTable("should raise the output once when both inputs arrive",
		func(first, second func() *Wire) {
			forceArrive(first())
			done = runElement(join)

			Eventually(first().IsActive).Should(BeFalse())
			forceArrive(second())

			Eventually(out.IsActive).Should(BeTrue())
			Expect(second().IsActive()).To(BeFalse())
			Consistently(func() int {
				return hook.count(out, HookPosWireRaised)
			}, 20*time.Millisecond).Should(Equal(1))
		},
		Entry("In1 first", func() *Wire { return in1 }, func() *Wire { return in2 }),
		Entry("In2 first", func() *Wire { return in2 }, func() *Wire { return in1 }),
	)
})
