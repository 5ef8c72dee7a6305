package topology

import (
	"fmt"
	"sort"
)

// Ports of a conflict element, keyed by port name.
type ports map[string]string

var builtins = map[string]func() *Netlist{
	"3e2c":          func() *Netlist { return threeEventsTwoConflicts(false) },
	"3e2c-sync":     func() *Netlist { return threeEventsTwoConflicts(true) },
	"3e2c-alt":      func() *Netlist { return threeEventsTwoConflictsAlt(false) },
	"3e2c-alt-sync": func() *Netlist { return threeEventsTwoConflictsAlt(true) },
	"3e3c":          func() *Netlist { return threeEventsThreeConflicts(false) },
	"3e3c-sync":     func() *Netlist { return threeEventsThreeConflicts(true) },
	"4e3c":          func() *Netlist { return fourEventsThreeConflicts(false, false) },
	"4e3c-sync":     func() *Netlist { return fourEventsThreeConflicts(true, false) },
	"4e3c-alt":      func() *Netlist { return fourEventsThreeConflicts(false, true) },
	"4e3c-alt-sync": func() *Netlist { return fourEventsThreeConflicts(true, true) },
	"4e4c":          func() *Netlist { return fourEventsFourConflicts(false, false) },
	"4e4c-sync":     func() *Netlist { return fourEventsFourConflicts(true, false) },
	"4e4c-alt":      func() *Netlist { return fourEventsFourConflicts(false, true) },
	"4e4c-alt-sync": func() *Netlist { return fourEventsFourConflicts(true, true) },
	"6e":            sixEvents,
}

// BuiltinNames lists the circuits that Builtin knows, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Builtin returns a fresh copy of a predefined circuit.
func Builtin(name string) (*Netlist, error) {
	build, found := builtins[name]
	if !found {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownTopology)
	}

	return build(), nil
}

func wires(active []string, inactive ...string) []WireSpec {
	specs := make([]WireSpec, 0, len(active)+len(inactive))

	for _, name := range active {
		specs = append(specs, WireSpec{Name: name, Active: true})
	}

	for _, name := range inactive {
		specs = append(specs, WireSpec{Name: name})
	}

	return specs
}

var (
	startWires     = []string{"AStart", "BStart", "CStart"}
	fourStartWires = []string{"AStart", "BStart", "CStart", "DStart"}
)

func fourMerges() []MergeSpec {
	return []MergeSpec{
		{Name: "MergeA", In1: "AMergeIn", In2: "AStart", Out: "AMergeOut"},
		{Name: "MergeB", In1: "BStart", In2: "BMergeIn", Out: "BMergeOut"},
		{Name: "MergeC", In1: "CStart", In2: "CMergeIn", Out: "CMergeOut"},
		{Name: "MergeD", In1: "DStart", In2: "DMergeIn", Out: "DMergeOut"},
	}
}

// threeEventsTwoConflicts wires three events through two chained conflict
// elements. A conflicts with B, and B conflicts with C. B meets A first.
func threeEventsTwoConflicts(synchronized bool) *Netlist {
	n := &Netlist{
		Name: "3e2c",
		Description: "three events, two conflicts: " +
			"A conflicts with B, B conflicts with C",
		Wires: wires(startWires,
			"AMergeIn", "AMergeOut", "BMergeIn", "BMergeOut",
			"CMergeIn", "CMergeOut", "BConnect", "BSubBlocked",
			"EndA", "EndB", "EndC"),
		Merges: []MergeSpec{
			{Name: "MergeA", In1: "AMergeIn", In2: "AStart", Out: "AMergeOut"},
			{Name: "MergeB", In1: "BStart", In2: "BMergeIn", Out: "BMergeOut"},
			{Name: "MergeC", In1: "CStart", In2: "CMergeIn", Out: "CMergeOut"},
		},
		Conflicts: []ConflictSpec{
			{
				Name: "AAndB",
				Ports: ports{
					"I1": "AMergeOut", "I2": "BMergeOut",
					"O1": "EndA", "O2": "BConnect",
					"SBO1": "AMergeIn", "SBO2": "BMergeIn",
					"SBI2": "BSubBlocked",
				},
			},
			{
				Name: "BAndC",
				Ports: ports{
					"I1": "BConnect", "I2": "CMergeOut",
					"O1": "EndB", "O2": "EndC",
					"SBO1": "BSubBlocked", "SBO2": "CMergeIn",
				},
			},
		},
		Outcomes: []Outcome{
			{Name: "AC", Wires: []string{"EndA", "EndC"}},
			{Name: "B", Wires: []string{"EndB"}},
		},
	}

	if synchronized {
		n.Name += "-sync"
		n.Wires = append(n.Wires, WireSpec{Name: "BPrevBlocked"})
		n.synchronize("AAndB", "PBO2", "BPrevBlocked")
		n.synchronize("BAndC", "PBI1", "BPrevBlocked")
	}

	return n
}

// threeEventsTwoConflictsAlt has the same conflicts as threeEventsTwoConflicts,
// but B meets C first.
func threeEventsTwoConflictsAlt(synchronized bool) *Netlist {
	n := &Netlist{
		Name: "3e2c-alt",
		Description: "three events, two conflicts: " +
			"B and C race before the winner meets A",
		Wires: wires(startWires,
			"AMergeIn", "AMergeOut", "BMergeIn", "BMergeOut",
			"CMergeIn", "CMergeOut", "BConnect", "BSubBlocked",
			"EndA", "EndB", "EndC"),
		Merges: []MergeSpec{
			{Name: "MergeA", In1: "AMergeIn", In2: "AStart", Out: "AMergeOut"},
			{Name: "MergeB", In1: "BMergeIn", In2: "BStart", Out: "BMergeOut"},
			{Name: "MergeC", In1: "CStart", In2: "CMergeIn", Out: "CMergeOut"},
		},
		Conflicts: []ConflictSpec{
			{
				Name: "AAndB",
				Ports: ports{
					"I1": "AMergeOut", "I2": "BConnect",
					"O1": "EndA", "O2": "EndB",
					"SBO1": "AMergeIn", "SBO2": "BSubBlocked",
				},
			},
			{
				Name: "BAndC",
				Ports: ports{
					"I1": "BMergeOut", "I2": "CMergeOut",
					"O1": "BConnect", "O2": "EndC",
					"SBO1": "BMergeIn", "SBO2": "CMergeIn",
					"SBI1": "BSubBlocked",
				},
			},
		},
		Outcomes: []Outcome{
			{Name: "AC", Wires: []string{"EndA", "EndC"}},
			{Name: "B", Wires: []string{"EndB"}},
		},
	}

	if synchronized {
		n.Name += "-sync"
		n.Wires = append(n.Wires, WireSpec{Name: "BPrevBlocked"})
		n.synchronize("AAndB", "PBI2", "BPrevBlocked")
		n.synchronize("BAndC", "PBO1", "BPrevBlocked")
	}

	return n
}

// threeEventsThreeConflicts wires three mutually conflicting events through
// three conflict elements. Exactly one event can win.
func threeEventsThreeConflicts(synchronized bool) *Netlist {
	n := &Netlist{
		Name:        "3e3c",
		Description: "three events, three conflicts: every pair of events conflicts",
		Wires: wires(startWires,
			"AMergeIn", "AMergeOut", "BMergeIn", "BMergeOut",
			"CMergeIn", "CMergeOut", "AConnect", "BConnect", "CConnect",
			"ASubBlocked", "BSubBlocked", "CSubBlocked",
			"EndA", "EndB", "EndC"),
		Merges: []MergeSpec{
			{Name: "MergeA", In1: "AMergeIn", In2: "AStart", Out: "AMergeOut"},
			{Name: "MergeB", In1: "BStart", In2: "BMergeIn", Out: "BMergeOut"},
			{Name: "MergeC", In1: "CStart", In2: "CMergeIn", Out: "CMergeOut"},
		},
		Conflicts: []ConflictSpec{
			{
				Name: "AAndB",
				Ports: ports{
					"I1": "AMergeOut", "I2": "BMergeOut",
					"O1": "AConnect", "O2": "BConnect",
					"SBO1": "AMergeIn", "SBO2": "BMergeIn",
					"SBI1": "ASubBlocked", "SBI2": "BSubBlocked",
				},
			},
			{
				Name: "BAndC",
				Ports: ports{
					"I1": "BConnect", "I2": "CMergeOut",
					"O1": "EndB", "O2": "CConnect",
					"SBO1": "BSubBlocked", "SBO2": "CMergeIn",
					"SBI2": "CSubBlocked",
				},
			},
			{
				Name: "AAndC",
				Ports: ports{
					"I1": "AConnect", "I2": "CConnect",
					"O1": "EndA", "O2": "EndC",
					"SBO1": "ASubBlocked", "SBO2": "CSubBlocked",
				},
			},
		},
		Outcomes: []Outcome{
			{Name: "A", Wires: []string{"EndA"}},
			{Name: "B", Wires: []string{"EndB"}},
			{Name: "C", Wires: []string{"EndC"}},
		},
	}

	if synchronized {
		n.Name += "-sync"
		n.Wires = append(n.Wires,
			WireSpec{Name: "APrevBlocked"},
			WireSpec{Name: "BPrevBlocked"},
			WireSpec{Name: "CPrevBlocked"})
		n.synchronize("AAndB", "PBO1", "APrevBlocked")
		n.synchronize("AAndC", "PBI1", "APrevBlocked")
		n.synchronize("AAndB", "PBO2", "BPrevBlocked")
		n.synchronize("BAndC", "PBI1", "BPrevBlocked")
		n.synchronize("BAndC", "PBO2", "CPrevBlocked")
		n.synchronize("AAndC", "PBI2", "CPrevBlocked")
	}

	return n
}

// fourEventsThreeConflicts chains four events through three conflict
// elements: A with B, B with C and C with D. In the alternative layout B meets
// C before the winner meets A.
func fourEventsThreeConflicts(synchronized, alternative bool) *Netlist {
	n := &Netlist{
		Name: "4e3c",
		Description: "four events, three conflicts: " +
			"A conflicts with B, B with C, C with D",
		Wires: wires(fourStartWires,
			"AMergeIn", "AMergeOut", "BMergeIn", "BMergeOut",
			"CMergeIn", "CMergeOut", "DMergeIn", "DMergeOut",
			"BConnect", "CConnect", "BSubBlocked", "CSubBlocked",
			"EndA", "EndB", "EndC", "EndD"),
		Merges: fourMerges(),
		Conflicts: []ConflictSpec{
			{
				Name: "AAndB",
				Ports: ports{
					"I1": "AMergeOut", "O1": "EndA", "SBO1": "AMergeIn",
				},
			},
			{
				Name: "BAndC",
				Ports: ports{
					"I2": "CMergeOut", "O2": "CConnect",
					"SBO2": "CMergeIn", "SBI2": "CSubBlocked",
				},
			},
			{
				Name: "CAndD",
				Ports: ports{
					"I1": "CConnect", "I2": "DMergeOut",
					"O1": "EndC", "O2": "EndD",
					"SBO1": "CSubBlocked", "SBO2": "DMergeIn",
				},
			},
		},
		Outcomes: []Outcome{
			{Name: "AC", Wires: []string{"EndA", "EndC"}},
			{Name: "AD", Wires: []string{"EndA", "EndD"}},
			{Name: "BD", Wires: []string{"EndB", "EndD"}},
		},
	}

	aAndB, bAndC := n.Conflicts[0].Ports, n.Conflicts[1].Ports
	if alternative {
		n.Name += "-alt"
		n.Description = "four events, three conflicts: " +
			"B and C race before meeting A and D"
		aAndB["I2"], aAndB["O2"], aAndB["SBO2"] = "BConnect", "EndB", "BSubBlocked"
		bAndC["I1"], bAndC["O1"] = "BMergeOut", "BConnect"
		bAndC["SBO1"], bAndC["SBI1"] = "BMergeIn", "BSubBlocked"
	} else {
		aAndB["I2"], aAndB["O2"] = "BMergeOut", "BConnect"
		aAndB["SBO2"], aAndB["SBI2"] = "BMergeIn", "BSubBlocked"
		bAndC["I1"], bAndC["O1"], bAndC["SBO1"] = "BConnect", "EndB", "BSubBlocked"
	}

	if synchronized {
		n.Name += "-sync"
		n.Wires = append(n.Wires,
			WireSpec{Name: "BPrevBlocked"},
			WireSpec{Name: "CPrevBlocked"})
		n.synchronizeB(alternative)
		n.synchronize("BAndC", "PBO2", "CPrevBlocked")
		n.synchronize("CAndD", "PBI1", "CPrevBlocked")
	}

	return n
}

// fourEventsFourConflicts closes the chain of fourEventsThreeConflicts into a
// cycle by letting A conflict with D. The layout where B meets A first can
// livelock, so analysis is disabled for it.
func fourEventsFourConflicts(synchronized, alternative bool) *Netlist {
	n := &Netlist{
		Name: "4e4c",
		Description: "four events, four conflicts: " +
			"A, B, C and D conflict with their neighbours on a cycle",
		DisableAnalysis: !alternative,
		Wires: wires(fourStartWires,
			"AMergeIn", "AMergeOut", "BMergeIn", "BMergeOut",
			"CMergeIn", "CMergeOut", "DMergeIn", "DMergeOut",
			"AConnect", "BConnect", "CConnect", "DConnect",
			"ASubBlocked", "BSubBlocked", "CSubBlocked", "DSubBlocked",
			"EndA", "EndB", "EndC", "EndD"),
		Merges: fourMerges(),
		Conflicts: []ConflictSpec{
			{
				Name: "AAndB",
				Ports: ports{
					"I1": "AMergeOut", "O1": "AConnect",
					"SBO1": "AMergeIn", "SBI1": "ASubBlocked",
				},
			},
			{
				Name: "BAndC",
				Ports: ports{
					"I2": "CMergeOut", "O2": "CConnect",
					"SBO2": "CMergeIn", "SBI2": "CSubBlocked",
				},
			},
			{
				Name: "CAndD",
				Ports: ports{
					"I1": "CConnect", "I2": "DMergeOut",
					"O1": "EndC", "O2": "DConnect",
					"SBO1": "CSubBlocked", "SBO2": "DMergeIn",
					"SBI2": "DSubBlocked",
				},
			},
			{
				Name: "AAndD",
				Ports: ports{
					"I1": "AConnect", "I2": "DConnect",
					"O1": "EndA", "O2": "EndD",
					"SBO1": "ASubBlocked", "SBO2": "DSubBlocked",
				},
			},
		},
		Outcomes: []Outcome{
			{Name: "AC", Wires: []string{"EndA", "EndC"}},
			{Name: "BD", Wires: []string{"EndB", "EndD"}},
		},
	}

	aAndB, bAndC := n.Conflicts[0].Ports, n.Conflicts[1].Ports
	if alternative {
		n.Name += "-alt"
		n.Description = "four events, four conflicts: " +
			"B and C race before meeting A and D"
		aAndB["I2"], aAndB["O2"], aAndB["SBO2"] = "BConnect", "EndB", "BSubBlocked"
		bAndC["I1"], bAndC["O1"] = "BMergeOut", "BConnect"
		bAndC["SBO1"], bAndC["SBI1"] = "BMergeIn", "BSubBlocked"
	} else {
		aAndB["I2"], aAndB["O2"] = "BMergeOut", "BConnect"
		aAndB["SBO2"], aAndB["SBI2"] = "BMergeIn", "BSubBlocked"
		bAndC["I1"], bAndC["O1"], bAndC["SBO1"] = "BConnect", "EndB", "BSubBlocked"
	}

	if synchronized {
		n.Name += "-sync"
		n.Wires = append(n.Wires,
			WireSpec{Name: "APrevBlocked"},
			WireSpec{Name: "BPrevBlocked"},
			WireSpec{Name: "CPrevBlocked"},
			WireSpec{Name: "DPrevBlocked"})
		n.synchronize("AAndB", "PBO1", "APrevBlocked")
		n.synchronize("AAndD", "PBI1", "APrevBlocked")
		n.synchronizeB(alternative)
		n.synchronize("BAndC", "PBO2", "CPrevBlocked")
		n.synchronize("CAndD", "PBI1", "CPrevBlocked")
		n.synchronize("CAndD", "PBO2", "DPrevBlocked")
		n.synchronize("AAndD", "PBI2", "DPrevBlocked")
	}

	return n
}

// synchronizeB links the previous-block ports that carry B between AAndB and
// BAndC. The direction follows which element B meets first.
func (n *Netlist) synchronizeB(alternative bool) {
	if alternative {
		n.synchronize("BAndC", "PBO1", "BPrevBlocked")
		n.synchronize("AAndB", "PBI2", "BPrevBlocked")

		return
	}

	n.synchronize("AAndB", "PBO2", "BPrevBlocked")
	n.synchronize("BAndC", "PBI1", "BPrevBlocked")
}

// sixEvents is a conflict-free circuit of six causally ordered events. A
// enables B and C, C enables D and E, and F waits for both D and E.
func sixEvents() *Netlist {
	return &Netlist{
		Name:            "6e",
		Description:     "six events, no conflict: two forks feeding a join",
		DisableAnalysis: true,
		Wires:           wires([]string{"A"}, "B", "C", "D", "E", "F"),
		Forks: []ForkSpec{
			{Name: "ForkA", In: "A", Out1: "B", Out2: "C"},
			{Name: "ForkC", In: "C", Out1: "D", Out2: "E"},
		},
		Joins: []JoinSpec{
			{Name: "JoinF", In1: "D", In2: "E", Out: "F"},
		},
		Outcomes: []Outcome{
			{Name: "BF", Wires: []string{"B", "F"}},
		},
	}
}

// synchronize turns a conflict element into a synchronized one and binds one
// of its previous-block ports.
func (n *Netlist) synchronize(element, port, wire string) {
	for i := range n.Conflicts {
		if n.Conflicts[i].Name == element {
			n.Conflicts[i].Synchronized = true
			n.Conflicts[i].Ports[port] = wire

			return
		}
	}

	panic("no conflict element named " + element)
}
