package sim

// A Merge forwards the signals of two inputs to a single output. When both
// inputs are ready, it picks one of them at random. Either input may be left
// unbound, but not both.
type Merge struct {
	*ElementBase

	In1, In2 *Wire
	Out      *Wire
}

// NewMerge creates a new Merge with unbound ports.
func NewMerge(name string, cfg Config) *Merge {
	m := &Merge{}
	m.ElementBase = NewElementBase(name, cfg, m)

	return m
}

// Validate checks that the output and at least one input are bound.
func (m *Merge) Validate() error {
	if m.In1 == nil && m.In2 == nil {
		return portNotBound(m, "In1|In2")
	}

	if m.Out == nil {
		return portNotBound(m, "Out")
	}

	return nil
}

// Run processes signals until the merge is killed.
func (m *Merge) Run() {
	for m.step() {
	}
}

func (m *Merge) step() bool {
	if !m.waitUntil(anyArrived(m.In1, m.In2)) {
		return false
	}

	m.consume(m.selectInput(), nil)

	if !m.delay(m.cfg.serviceDelay()) {
		return false
	}

	if !m.raiseAll(m.Out) {
		return false
	}

	m.setProcessing(false)

	return true
}

// selectInput picks one of the inputs that have arrived, each with the same
// probability. The input that is not picked is left untouched.
func (m *Merge) selectInput() *Wire {
	ready := make([]*Wire, 0, 2)
	for _, w := range []*Wire{m.In1, m.In2} {
		if w.arrived() {
			ready = append(ready, w)
		}
	}

	if len(ready) == 1 {
		return ready[0]
	}

	return ready[m.cfg.Rand.Intn(len(ready))]
}
