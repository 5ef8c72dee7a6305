package sim

import (
	"fmt"
	"log"
	"sync"
)

// ArbiterState is the dominance state of a conflict element.
type ArbiterState int

// States of a conflict element. An element leaves Idle after its first round
// and never comes back to it.
const (
	Idle ArbiterState = iota
	FavorLeft
	FavorRight
)

func favor(s Side) ArbiterState {
	if s == Left {
		return FavorLeft
	}

	return FavorRight
}

func (s ArbiterState) favored() Side {
	if s == FavorLeft {
		return Left
	}

	return Right
}

func (s ArbiterState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case FavorLeft:
		return "FavorLeft"
	case FavorRight:
		return "FavorRight"
	}

	return fmt.Sprintf("ArbiterState(%d)", int(s))
}

// A ConflictElement resolves the race between the signals of its two inputs.
//
// The first signal to win makes its side dominant. From then on, the dominant
// side keeps getting its main output, while a signal on the other side is
// diverted to that side's subsequent-block output. Only a signal on the
// dominant side's subsequent-block input flips the dominance. Chains of
// conflict elements use these side channels to resolve races among more than
// two competitors.
//
// A synchronized conflict element also has previous-block ports, which let a
// competitor announce itself before any element of the chain has committed to
// a winner. They are only used while the element is idle.
type ConflictElement struct {
	*ElementBase

	synchronized bool
	ports        [numPortKinds][2]*Wire

	stateLock sync.Mutex
	state     ArbiterState
}

// NewConflictElement creates a conflict element without previous-block ports.
func NewConflictElement(name string, cfg Config) *ConflictElement {
	c := &ConflictElement{}
	c.ElementBase = NewElementBase(name, cfg, c)

	return c
}

// NewSynchronizedConflictElement creates a conflict element with
// previous-block ports.
func NewSynchronizedConflictElement(name string, cfg Config) *ConflictElement {
	c := NewConflictElement(name, cfg)
	c.synchronized = true

	return c
}

// IsSynchronized returns true if the element has previous-block ports.
func (c *ConflictElement) IsSynchronized() bool {
	return c.synchronized
}

// Bind connects a wire to a port. Binding a previous-block port of an element
// that is not synchronized is a programming error.
func (c *ConflictElement) Bind(p Port, w *Wire) {
	if p.Kind.isPreviousBlock() && !c.synchronized {
		log.Panicf("element %s: %s: %s", c.Name(), p, ErrPortNeedsSyncedElem)
	}

	c.ports[p.Kind][p.Side] = w
}

// BindByName connects a wire to the port with the given name.
func (c *ConflictElement) BindByName(portName string, w *Wire) error {
	p, err := ParsePort(portName)
	if err != nil {
		return fmt.Errorf("element %s: %w", c.Name(), err)
	}

	if p.Kind.isPreviousBlock() && !c.synchronized {
		return fmt.Errorf("element %s, port %s: %w",
			c.Name(), p, ErrPortNeedsSyncedElem)
	}

	c.Bind(p, w)

	return nil
}

// Wire returns the wire bound to a port, or nil if the port is unbound.
func (c *ConflictElement) Wire(p Port) *Wire {
	return c.ports[p.Kind][p.Side]
}

// State returns the current dominance state.
func (c *ConflictElement) State() ArbiterState {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()

	return c.state
}

func (c *ConflictElement) setState(s ArbiterState) {
	c.stateLock.Lock()
	c.state = s
	c.stateLock.Unlock()

	c.notify(HookPosStateChange, s, nil)
}

// Validate checks that the inputs, the outputs and the subsequent-block
// outputs are bound. All the other ports are optional.
func (c *ConflictElement) Validate() error {
	for _, p := range []Port{I1, I2, O1, O2, SBO1, SBO2} {
		if c.Wire(p) == nil {
			return portNotBound(c, p.String())
		}
	}

	return nil
}

// Run arbitrates until the element is killed.
func (c *ConflictElement) Run() {
	for {
		var ok bool

		switch state := c.State(); {
		case state != Idle:
			ok = c.resolveFavored(state.favored())
		case c.synchronized:
			ok = c.resolveSynchronizedIdle()
		default:
			ok = c.resolveIdle()
		}

		if !ok {
			return
		}

		c.setProcessing(false)
	}
}

// resolveIdle lets the first input to arrive win. If both are there, each
// wins with the same probability.
func (c *ConflictElement) resolveIdle() bool {
	candidates := []Port{I1, I2}
	if !c.waitUntil(c.anyReady(candidates)) {
		return false
	}

	p := c.pick(candidates)
	c.consumePort(p)

	if !c.delay(c.cfg.serviceDelay()) {
		return false
	}

	if !c.raiseAll(c.Wire(Port{Output, p.Side})) {
		return false
	}

	c.setState(favor(p.Side))

	return true
}

// resolveFavored runs one round while side d is dominant.
func (c *ConflictElement) resolveFavored(d Side) bool {
	o := d.Other()
	own := Port{Input, d}
	rival := Port{Input, o}
	unblock := Port{SubsequentBlockIn, d}

	candidates := []Port{own, rival, unblock}
	if !c.waitUntil(c.anyReady(candidates)) {
		return false
	}

	p := c.pick(candidates)
	c.consumePort(p)

	if !c.delay(c.cfg.serviceDelay()) {
		return false
	}

	switch p {
	case own:
		return c.raiseAll(c.Wire(Port{Output, d}))
	case rival:
		return c.raiseAll(c.Wire(Port{SubsequentBlockOut, o}))
	default:
		if !c.raiseAll(c.Wire(Port{SubsequentBlockOut, d})) {
			return false
		}

		c.setState(favor(o))

		return true
	}
}

// resolveSynchronizedIdle runs the first round of a synchronized element. A
// side may be represented either by its input or by its previous-block input.
// The element takes the first candidate, then waits for the opposite side. If
// both sides are represented by their inputs, the winner is drawn at random.
// Otherwise the round is blocked and the side with a genuine input wins.
func (c *ConflictElement) resolveSynchronizedIdle() bool {
	candidates := []Port{I1, I2, PBI1, PBI2}
	if !c.waitUntil(c.anyReady(candidates)) {
		return false
	}

	first := c.pick(candidates)
	c.consumePort(first)

	s := first.Side
	o := s.Other()
	rival := Port{Input, o}
	rivalAnnounce := Port{PreviousBlockIn, o}

	var winner Side
	blocked := false

	if first.Kind == Input {
		if !c.waitUntil(c.anyReady([]Port{rival, rivalAnnounce})) {
			return false
		}

		if c.ready(rival) {
			c.consumePort(rival)
		} else {
			c.consumePort(rivalAnnounce)
			blocked = true
		}

		winner = s
	} else {
		if !c.waitUntil(c.anyReady([]Port{rival})) {
			return false
		}

		c.consumePort(rival)
		blocked = true
		winner = o
	}

	if !c.delay(c.cfg.serviceDelay()) {
		return false
	}

	if !blocked {
		winner = Side(c.cfg.Rand.Intn(2))
	}

	return c.commit(winner, blocked)
}

// commit announces the winner of a synchronized round. The winner's output,
// the loser's subsequent-block output (unless the round was blocked) and the
// loser's previous-block output (if bound) are raised in whatever order they
// become free.
func (c *ConflictElement) commit(winner Side, blocked bool) bool {
	loser := winner.Other()

	outputs := []*Wire{c.Wire(Port{Output, winner})}
	if !blocked {
		outputs = append(outputs, c.Wire(Port{SubsequentBlockOut, loser}))
	}
	outputs = append(outputs, c.Wire(Port{PreviousBlockOut, loser}))

	if !c.raiseAll(outputs...) {
		return false
	}

	c.setState(favor(winner))

	return true
}

func (c *ConflictElement) ready(p Port) bool {
	return c.Wire(p).arrived()
}

func (c *ConflictElement) anyReady(ports []Port) func() bool {
	return func() bool {
		for _, p := range ports {
			if c.ready(p) {
				return true
			}
		}

		return false
	}
}

// pick chooses uniformly among the candidate ports whose signal has arrived.
// Unbound ports are never ready. At least one candidate must be ready.
func (c *ConflictElement) pick(candidates []Port) Port {
	ready := make([]Port, 0, len(candidates))
	for _, p := range candidates {
		if c.ready(p) {
			ready = append(ready, p)
		}
	}

	if len(ready) == 1 {
		return ready[0]
	}

	return ready[c.cfg.Rand.Intn(len(ready))]
}

func (c *ConflictElement) consumePort(p Port) {
	c.consume(c.Wire(p), p)
}
