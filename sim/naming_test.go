package sim

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Naming", func() {
	DescribeTable("valid names",
		func(name string) {
			Expect(ValidateName(name)).To(Succeed())
		},
		Entry("simple", "AStart"),
		Entry("hierarchical", "Chain.AAndB"),
		Entry("indexed", "Stage[3]"),
		Entry("multi-dimensional", "Grid[0][1].Cell"),
	)

	DescribeTable("invalid names",
		func(name string) {
			err := ValidateName(name)
			Expect(errors.Is(err, ErrInvalidElementName)).To(BeTrue())
		},
		Entry("empty", ""),
		Entry("underscore", "A_Start"),
		Entry("dash", "A-Start"),
		Entry("lower case", "aStart"),
		Entry("empty token", "Chain..AAndB"),
		Entry("trailing dot", "Chain."),
		Entry("open bracket", "Stage[3"),
		Entry("close bracket", "Stage3]"),
		Entry("non-integer index", "Stage[x]"),
	)
})
