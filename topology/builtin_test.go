package topology

import (
	"errors"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/disim/sim"
)

var _ = Describe("Builtin", func() {
	var cfg sim.Config

	BeforeEach(func() {
		cfg = sim.MakeConfigBuilder().
			WithMaxWait(time.Millisecond).
			WithPollInterval(10 * time.Microsecond).
			Build()
	})

	It("should list the built-in circuits", func() {
		Expect(BuiltinNames()).To(Equal([]string{
			"3e2c", "3e2c-alt", "3e2c-alt-sync", "3e2c-sync", "3e3c", "3e3c-sync",
			"4e3c", "4e3c-alt", "4e3c-alt-sync", "4e3c-sync",
			"4e4c", "4e4c-alt", "4e4c-alt-sync", "4e4c-sync", "6e",
		}))
	})

	It("should reject unknown circuits", func() {
		_, err := Builtin("5e")

		Expect(errors.Is(err, ErrUnknownTopology)).To(BeTrue())
	})

	It("should return independent copies", func() {
		a, _ := Builtin("3e2c")
		b, _ := Builtin("3e2c")

		a.Conflicts[0].Ports["I1"] = "Changed"

		Expect(b.Conflicts[0].Ports["I1"]).To(Equal("AMergeOut"))
	})

	DescribeTable("should build valid circuits",
		func(name string, numElements int, synchronized int) {
			n, err := Builtin(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(n.Name).To(Equal(name))
			Expect(n.Check()).To(Succeed())

			elements, err := n.Build(cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(elements).To(HaveLen(numElements))

			numSynchronized := 0
			for _, e := range elements {
				Expect(e.Validate()).To(Succeed())

				if c, ok := e.(*sim.ConflictElement); ok && c.IsSynchronized() {
					numSynchronized++
				}
			}
			Expect(numSynchronized).To(Equal(synchronized))
		},
		Entry("3e2c", "3e2c", 19, 0),
		Entry("3e2c-sync", "3e2c-sync", 20, 2),
		Entry("3e2c-alt", "3e2c-alt", 19, 0),
		Entry("3e2c-alt-sync", "3e2c-alt-sync", 20, 2),
		Entry("3e3c", "3e3c", 24, 0),
		Entry("3e3c-sync", "3e3c-sync", 27, 3),
		Entry("4e3c", "4e3c", 27, 0),
		Entry("4e3c-sync", "4e3c-sync", 29, 3),
		Entry("4e3c-alt", "4e3c-alt", 27, 0),
		Entry("4e3c-alt-sync", "4e3c-alt-sync", 29, 3),
		Entry("4e4c", "4e4c", 32, 0),
		Entry("4e4c-sync", "4e4c-sync", 36, 4),
		Entry("4e4c-alt", "4e4c-alt", 32, 0),
		Entry("4e4c-alt-sync", "4e4c-alt-sync", 36, 4),
		Entry("6e", "6e", 9, 0),
	)

	It("should disable analysis of the circuits prone to livelock", func() {
		notAnalyzable := []string{}
		for _, name := range BuiltinNames() {
			n, _ := Builtin(name)
			if !n.Analyzable() {
				notAnalyzable = append(notAnalyzable, name)
			}
		}

		Expect(notAnalyzable).To(ConsistOf("4e4c", "4e4c-sync", "6e"))
	})

	It("should read the analysis switch from HCL", func() {
		n, err := ParseNetlist([]byte(`
name             = "Relay"
disable_analysis = true

wire "Src" {
  active = true
}
wire "Sink" {}

merge "Relay" {
  in1 = "Src"
  out = "Sink"
}
`), "relay.hcl")

		Expect(err).NotTo(HaveOccurred())
		Expect(n.Analyzable()).To(BeFalse())
	})

	It("should raise the three start wires", func() {
		n, _ := Builtin("3e3c")
		elements, _ := n.Build(cfg)

		active := []string{}
		for _, e := range elements {
			if w, ok := e.(*sim.Wire); ok && w.IsActive() {
				active = append(active, w.Name())
			}
		}

		Expect(active).To(ConsistOf("AStart", "BStart", "CStart"))
	})

	It("should run every event of 6e", func() {
		n, _ := Builtin("6e")
		network := sim.NewNetwork(cfg).
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
		Expect(network.Load(n.Topology(), false)).To(Succeed())
		defer network.Unload()

		network.Resume()

		Eventually(func() bool {
			return n.Outcomes[0].Reached(network)
		}, 5*time.Second).Should(BeTrue())
	})

	It("should reach an outcome of 3e2c", func() {
		n, _ := Builtin("3e2c")
		network := sim.NewNetwork(cfg).
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
		Expect(network.Load(n.Topology(), false)).To(Succeed())
		defer network.Unload()

		network.Resume()

		Eventually(func() bool {
			for _, o := range n.Outcomes {
				if o.Reached(network) {
					return true
				}
			}

			return false
		}, 5*time.Second).Should(BeTrue())
	})
})
