package sim

// A Fork copies the signal of its input to both of its outputs.
type Fork struct {
	*ElementBase

	In         *Wire
	Out1, Out2 *Wire
}

// NewFork creates a new Fork with unbound ports.
func NewFork(name string, cfg Config) *Fork {
	f := &Fork{}
	f.ElementBase = NewElementBase(name, cfg, f)

	return f
}

// Validate checks that all the ports are bound.
func (f *Fork) Validate() error {
	switch {
	case f.In == nil:
		return portNotBound(f, "In")
	case f.Out1 == nil:
		return portNotBound(f, "Out1")
	case f.Out2 == nil:
		return portNotBound(f, "Out2")
	}

	return nil
}

// Run processes signals until the fork is killed.
func (f *Fork) Run() {
	for f.step() {
	}
}

func (f *Fork) step() bool {
	if !f.waitUntil(f.In.HasArrived) {
		return false
	}

	f.consume(f.In, nil)

	if !f.delay(f.cfg.serviceDelay()) {
		return false
	}

	if !f.raiseAll(f.Out1, f.Out2) {
		return false
	}

	f.setProcessing(false)

	return true
}
