// Package topology describes circuits and builds them into elements that a
// sim.Network can run.
package topology

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/sarchlab/disim/sim"
)

// Errors reported when checking a netlist.
var (
	ErrUnknownWire       = errors.New("unknown wire")
	ErrDuplicatedName    = errors.New("duplicated name")
	ErrMultipleProducers = errors.New("wire has more than one producer")
	ErrMultipleConsumers = errors.New("wire has more than one consumer")
	ErrUnknownTopology   = errors.New("unknown topology")
)

// A Netlist is a declarative description of a circuit. It can be written in
// HCL:
//
//	name = "Relay"
//
//	wire "Src" {
//	  active = true
//	}
//	wire "Sink" {}
//
//	merge "Relay" {
//	  in1 = "Src"
//	  out = "Sink"
//	}
//
//	outcome "Done" {
//	  wires = ["Sink"]
//	}
//
// Setting disable_analysis marks circuits that cannot be analyzed, such as
// those prone to livelock.
type Netlist struct {
	Name            string         `hcl:"name,optional"`
	Description     string         `hcl:"description,optional"`
	DisableAnalysis bool           `hcl:"disable_analysis,optional"`
	Wires           []WireSpec     `hcl:"wire,block"`
	Merges          []MergeSpec    `hcl:"merge,block"`
	Forks           []ForkSpec     `hcl:"fork,block"`
	Joins           []JoinSpec     `hcl:"join,block"`
	Conflicts       []ConflictSpec `hcl:"conflict,block"`
	Outcomes        []Outcome      `hcl:"outcome,block"`
}

// Analyzable reports whether repeated trials of the circuit may be tallied.
func (n *Netlist) Analyzable() bool {
	return !n.DisableAnalysis
}

// WireSpec declares a wire. Active wires are raised when the circuit is built.
type WireSpec struct {
	Name   string `hcl:"name,label"`
	Active bool   `hcl:"active,optional"`
}

// MergeSpec declares a merge. Either input may be omitted.
type MergeSpec struct {
	Name string `hcl:"name,label"`
	In1  string `hcl:"in1,optional"`
	In2  string `hcl:"in2,optional"`
	Out  string `hcl:"out"`
}

// ForkSpec declares a fork.
type ForkSpec struct {
	Name string `hcl:"name,label"`
	In   string `hcl:"in"`
	Out1 string `hcl:"out1"`
	Out2 string `hcl:"out2"`
}

// JoinSpec declares a join.
type JoinSpec struct {
	Name string `hcl:"name,label"`
	In1  string `hcl:"in1"`
	In2  string `hcl:"in2"`
	Out  string `hcl:"out"`
}

// ConflictSpec declares a conflict element. Ports maps port names, such as
// "SBO2", to wire names.
type ConflictSpec struct {
	Name         string            `hcl:"name,label"`
	Synchronized bool              `hcl:"synchronized,optional"`
	Ports        map[string]string `hcl:"ports"`
}

// An Outcome is a named set of terminal wires. The outcome is reached when a
// signal has arrived on every one of them.
type Outcome struct {
	Name  string   `hcl:"name,label"`
	Wires []string `hcl:"wires"`
}

// Reached checks the outcome against the wires of a loaded network.
func (o Outcome) Reached(network *sim.Network) bool {
	for _, name := range o.Wires {
		w, found := network.WireByName(name)
		if !found || !w.HasArrived() {
			return false
		}
	}

	return len(o.Wires) > 0
}

// LoadNetlist reads a netlist from an HCL file. When the file does not set a
// name, the file name without its extension is used.
func LoadNetlist(path string) (*Netlist, error) {
	parser := hclparse.NewParser()

	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse netlist %s: %w", path, diags)
	}

	return decodeNetlist(file.Body, path)
}

// ParseNetlist reads a netlist from HCL source. The filename is only used in
// error messages and as the default name.
func ParseNetlist(src []byte, filename string) (*Netlist, error) {
	parser := hclparse.NewParser()

	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse netlist %s: %w", filename, diags)
	}

	return decodeNetlist(file.Body, filename)
}

func decodeNetlist(body hcl.Body, filename string) (*Netlist, error) {
	n := &Netlist{}

	diags := gohcl.DecodeBody(body, nil, n)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode netlist %s: %w", filename, diags)
	}

	if n.Name == "" {
		base := filepath.Base(filename)
		n.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	if err := n.Check(); err != nil {
		return nil, fmt.Errorf("netlist %s: %w", filename, err)
	}

	return n, nil
}

// connection records which element drives or reads a wire.
type connection struct {
	element string
	port    string
}

type checker struct {
	names     map[string]bool
	wires     map[string]bool
	producers map[string]connection
	consumers map[string]connection
}

func (c *checker) declare(name string) error {
	if err := sim.ValidateName(name); err != nil {
		return err
	}

	if c.names[name] {
		return fmt.Errorf("%s: %w", name, ErrDuplicatedName)
	}

	c.names[name] = true

	return nil
}

func (c *checker) produce(wire, element, port string) error {
	return c.connect(c.producers, ErrMultipleProducers, wire, element, port)
}

func (c *checker) consume(wire, element, port string) error {
	return c.connect(c.consumers, ErrMultipleConsumers, wire, element, port)
}

func (c *checker) connect(
	ends map[string]connection,
	errDup error,
	wire, element, port string,
) error {
	if wire == "" {
		return nil
	}

	if !c.wires[wire] {
		return fmt.Errorf("element %s, port %s, wire %s: %w",
			element, port, wire, ErrUnknownWire)
	}

	if prev, found := ends[wire]; found {
		return fmt.Errorf("wire %s, used by %s.%s and %s.%s: %w",
			wire, prev.element, prev.port, element, port, errDup)
	}

	ends[wire] = connection{element: element, port: port}

	return nil
}

// Check verifies that names are valid and unique, that every referenced wire
// is declared, and that every wire has at most one producer and at most one
// consumer. It does not check that required ports are bound; the network does
// that when it loads the circuit.
func (n *Netlist) Check() error {
	c := &checker{
		names:     make(map[string]bool),
		wires:     make(map[string]bool),
		producers: make(map[string]connection),
		consumers: make(map[string]connection),
	}

	for _, w := range n.Wires {
		if err := c.declare(w.Name); err != nil {
			return err
		}

		c.wires[w.Name] = true
	}

	checks := []func(*checker) error{
		n.checkMerges,
		n.checkForks,
		n.checkJoins,
		n.checkConflicts,
		n.checkOutcomes,
	}

	for _, check := range checks {
		if err := check(c); err != nil {
			return err
		}
	}

	return nil
}

func (n *Netlist) checkMerges(c *checker) error {
	for _, m := range n.Merges {
		err := firstError(
			c.declare(m.Name),
			c.consume(m.In1, m.Name, "in1"),
			c.consume(m.In2, m.Name, "in2"),
			c.produce(m.Out, m.Name, "out"),
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (n *Netlist) checkForks(c *checker) error {
	for _, f := range n.Forks {
		err := firstError(
			c.declare(f.Name),
			c.consume(f.In, f.Name, "in"),
			c.produce(f.Out1, f.Name, "out1"),
			c.produce(f.Out2, f.Name, "out2"),
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (n *Netlist) checkJoins(c *checker) error {
	for _, j := range n.Joins {
		err := firstError(
			c.declare(j.Name),
			c.consume(j.In1, j.Name, "in1"),
			c.consume(j.In2, j.Name, "in2"),
			c.produce(j.Out, j.Name, "out"),
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (n *Netlist) checkConflicts(c *checker) error {
	for _, spec := range n.Conflicts {
		if err := c.declare(spec.Name); err != nil {
			return err
		}

		for _, portName := range sortedKeys(spec.Ports) {
			p, err := sim.ParsePort(portName)
			if err != nil {
				return fmt.Errorf("element %s: %w", spec.Name, err)
			}

			if isPreviousBlock(p) && !spec.Synchronized {
				return fmt.Errorf("element %s, port %s: %w",
					spec.Name, p, sim.ErrPortNeedsSyncedElem)
			}

			wire := spec.Ports[portName]
			if isConflictInput(p) {
				err = c.consume(wire, spec.Name, p.String())
			} else {
				err = c.produce(wire, spec.Name, p.String())
			}

			if err != nil {
				return err
			}
		}
	}

	return nil
}

func (n *Netlist) checkOutcomes(c *checker) error {
	seen := make(map[string]bool)

	for _, o := range n.Outcomes {
		if seen[o.Name] {
			return fmt.Errorf("outcome %s: %w", o.Name, ErrDuplicatedName)
		}

		seen[o.Name] = true

		for _, w := range o.Wires {
			if !c.wires[w] {
				return fmt.Errorf("outcome %s, wire %s: %w", o.Name, w, ErrUnknownWire)
			}
		}
	}

	return nil
}

func isConflictInput(p sim.Port) bool {
	switch p.Kind {
	case sim.Input, sim.SubsequentBlockIn, sim.PreviousBlockIn:
		return true
	}

	return false
}

func isPreviousBlock(p sim.Port) bool {
	return p.Kind == sim.PreviousBlockIn || p.Kind == sim.PreviousBlockOut
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// NumElements returns how many elements, wires included, Build creates.
func (n *Netlist) NumElements() int {
	return len(n.Wires) + len(n.Merges) + len(n.Forks) + len(n.Joins) +
		len(n.Conflicts)
}

// Build creates fresh elements for the circuit and raises the active wires.
// Wires come first in the returned list, followed by the other elements in
// declaration order.
func (n *Netlist) Build(cfg sim.Config) ([]sim.Element, error) {
	if err := n.Check(); err != nil {
		return nil, err
	}

	elements := make([]sim.Element, 0, n.NumElements())
	wires := make(map[string]*sim.Wire, len(n.Wires))

	for _, spec := range n.Wires {
		w := sim.NewWire(spec.Name, cfg)
		wires[spec.Name] = w
		elements = append(elements, w)
	}

	for _, spec := range n.Merges {
		m := sim.NewMerge(spec.Name, cfg)
		m.In1 = wires[spec.In1]
		m.In2 = wires[spec.In2]
		m.Out = wires[spec.Out]
		elements = append(elements, m)
	}

	for _, spec := range n.Forks {
		f := sim.NewFork(spec.Name, cfg)
		f.In = wires[spec.In]
		f.Out1 = wires[spec.Out1]
		f.Out2 = wires[spec.Out2]
		elements = append(elements, f)
	}

	for _, spec := range n.Joins {
		j := sim.NewJoin(spec.Name, cfg)
		j.In1 = wires[spec.In1]
		j.In2 = wires[spec.In2]
		j.Out = wires[spec.Out]
		elements = append(elements, j)
	}

	for _, spec := range n.Conflicts {
		c, err := buildConflict(spec, cfg, wires)
		if err != nil {
			return nil, err
		}

		elements = append(elements, c)
	}

	for _, spec := range n.Wires {
		if spec.Active {
			wires[spec.Name].SetActive(true)
		}
	}

	return elements, nil
}

func buildConflict(
	spec ConflictSpec,
	cfg sim.Config,
	wires map[string]*sim.Wire,
) (*sim.ConflictElement, error) {
	var c *sim.ConflictElement
	if spec.Synchronized {
		c = sim.NewSynchronizedConflictElement(spec.Name, cfg)
	} else {
		c = sim.NewConflictElement(spec.Name, cfg)
	}

	for _, portName := range sortedKeys(spec.Ports) {
		if err := c.BindByName(portName, wires[spec.Ports[portName]]); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Topology adapts the netlist to the sim.Topology interface. The netlist must
// not be modified while a network uses it.
func (n *Netlist) Topology() sim.Topology {
	return netlistTopology{n}
}

type netlistTopology struct {
	*Netlist
}

func (t netlistTopology) Name() string {
	return t.Netlist.Name
}
