package sim

import (
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Wire", func() {
	var (
		cfg  Config
		wire *Wire
		hook *recordingHook
	)

	BeforeEach(func() {
		cfg = fastConfig()
		wire = NewWire("Wire", cfg)
		hook = &recordingHook{}
		wire.AcceptHook(hook)
	})

	It("should start inactive and paused", func() {
		Expect(wire.IsActive()).To(BeFalse())
		Expect(wire.HasArrived()).To(BeFalse())
		Expect(wire.Progress()).To(Equal(0))
		Expect(wire.IsPaused()).To(BeTrue())
	})

	It("should reset progress when activated again", func() {
		forceArrive(wire)
		Expect(wire.HasArrived()).To(BeTrue())

		wire.SetActive(true)

		Expect(wire.IsActive()).To(BeTrue())
		Expect(wire.Progress()).To(Equal(0))
		Expect(wire.HasArrived()).To(BeFalse())
	})

	It("should reset progress when lowered", func() {
		forceArrive(wire)

		wire.SetActive(false)

		Expect(wire.IsActive()).To(BeFalse())
		Expect(wire.Progress()).To(Equal(0))
	})

	It("should notify raising and lowering", func() {
		wire.SetActive(true)
		wire.SetActive(false)

		Expect(hook.count(wire, HookPosWireRaised)).To(Equal(1))
		Expect(hook.count(wire, HookPosWireLowered)).To(Equal(1))
	})

	It("should deliver a signal quickly when there is no delay", func() {
		done := runElement(wire)
		defer stopElement(wire, done)

		wire.SetActive(true)

		Eventually(wire.HasArrived, 100*time.Millisecond, time.Millisecond).
			Should(BeTrue())
	})

	It("should advance in ten steps of ten", func() {
		done := runElement(wire)
		defer stopElement(wire, done)

		wire.SetActive(true)

		Eventually(func() []interface{} {
			return hook.items(wire, HookPosWireProgress)
		}).Should(Equal([]interface{}{
			10, 20, 30, 40, 50, 60, 70, 80, 90, 100,
		}))
	})

	It("should never report arrival while inactive", func() {
		done := runElement(wire)
		defer stopElement(wire, done)

		var violations int32
		stop := make(chan struct{})
		observerDone := make(chan struct{})

		go func() {
			defer close(observerDone)

			for {
				select {
				case <-stop:
					return
				default:
				}

				wire.stateLock.Lock()
				full := wire.progress == FullProgress
				active := wire.active
				wire.stateLock.Unlock()

				if full && !active {
					atomic.AddInt32(&violations, 1)
				}
			}
		}()

		for i := 0; i < 20; i++ {
			wire.SetActive(true)
			Eventually(wire.HasArrived).Should(BeTrue())
			wire.SetActive(false)
		}

		close(stop)
		<-observerDone

		Expect(atomic.LoadInt32(&violations)).To(BeZero())
	})

	It("should carry a new signal after the consumer lowers it", func() {
		done := runElement(wire)
		defer stopElement(wire, done)

		wire.SetActive(true)
		Eventually(wire.HasArrived).Should(BeTrue())
		wire.SetActive(false)

		wire.SetActive(true)
		Eventually(wire.HasArrived).Should(BeTrue())
	})

	It("should not advance while paused", func() {
		done := runElement(wire)
		defer stopElement(wire, done)

		wire.Pause()
		wire.SetActive(true)

		Consistently(wire.Progress, 30*time.Millisecond).Should(Equal(0))

		wire.Resume()
		Eventually(wire.HasArrived).Should(BeTrue())
	})

	It("should keep completed steps across a pause", func() {
		cfg = MakeConfigBuilder().
			WithMaxWait(200 * time.Millisecond).
			WithPollInterval(100 * time.Microsecond).
			Build()
		wire = NewWire("SlowWire", cfg)

		done := runElement(wire)
		defer stopElement(wire, done)

		wire.SetActive(true)
		Eventually(wire.Progress, time.Second, time.Millisecond).
			Should(BeNumerically(">=", 10))

		wire.Pause()
		time.Sleep(5 * time.Millisecond)
		frozen := wire.Progress()

		Consistently(wire.Progress, 30*time.Millisecond).Should(Equal(frozen))

		wire.Resume()
		Eventually(wire.HasArrived, 2*time.Second).Should(BeTrue())
	})

	It("should stop when killed, even if paused", func() {
		done := runElement(wire)

		wire.Pause()
		wire.Kill()

		Eventually(done).Should(BeClosed())
		Expect(wire.IsKilled()).To(BeTrue())
	})

	It("should always validate", func() {
		Expect(wire.Validate()).To(Succeed())
	})
})
