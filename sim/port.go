package sim

import (
	"fmt"
	"strings"
)

// Side identifies one half of a conflict element. The left side owns the ports
// numbered 1 and the right side owns the ports numbered 2.
type Side int

// The two sides of a conflict element.
const (
	Left Side = iota
	Right
)

// Other returns the opposite side.
func (s Side) Other() Side {
	return 1 - s
}

func (s Side) String() string {
	if s == Left {
		return "left"
	}

	return "right"
}

// PortKind is the role of a conflict element port.
type PortKind int

// Port kinds of a conflict element.
const (
	Input PortKind = iota
	Output
	SubsequentBlockIn
	SubsequentBlockOut
	PreviousBlockIn
	PreviousBlockOut

	numPortKinds
)

var portKindPrefixes = [numPortKinds]string{
	Input:              "I",
	Output:             "O",
	SubsequentBlockIn:  "SBI",
	SubsequentBlockOut: "SBO",
	PreviousBlockIn:    "PBI",
	PreviousBlockOut:   "PBO",
}

func (k PortKind) isPreviousBlock() bool {
	return k == PreviousBlockIn || k == PreviousBlockOut
}

// A Port names one of the wires of a conflict element.
type Port struct {
	Kind PortKind
	Side Side
}

// The ports of a conflict element, named as on circuit diagrams.
var (
	I1   = Port{Input, Left}
	I2   = Port{Input, Right}
	O1   = Port{Output, Left}
	O2   = Port{Output, Right}
	SBI1 = Port{SubsequentBlockIn, Left}
	SBI2 = Port{SubsequentBlockIn, Right}
	SBO1 = Port{SubsequentBlockOut, Left}
	SBO2 = Port{SubsequentBlockOut, Right}
	PBI1 = Port{PreviousBlockIn, Left}
	PBI2 = Port{PreviousBlockIn, Right}
	PBO1 = Port{PreviousBlockOut, Left}
	PBO2 = Port{PreviousBlockOut, Right}
)

// AllPorts lists every port of a synchronized conflict element, grouped by
// kind, left side first.
var AllPorts = []Port{I1, I2, O1, O2, SBI1, SBI2, SBO1, SBO2, PBI1, PBI2, PBO1, PBO2}

func (p Port) String() string {
	return fmt.Sprintf("%s%d", portKindPrefixes[p.Kind], int(p.Side)+1)
}

// ParsePort converts a port name such as "SBO2" into a Port. Names are case
// insensitive.
func ParsePort(name string) (Port, error) {
	upper := strings.ToUpper(name)

	for kind := PortKind(0); kind < numPortKinds; kind++ {
		for _, side := range []Side{Left, Right} {
			p := Port{kind, side}
			if p.String() == upper {
				return p, nil
			}
		}
	}

	return Port{}, fmt.Errorf("%q: %w", name, ErrUnknownPort)
}
