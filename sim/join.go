package sim

// A Join waits for a signal on each of its two inputs, in any order, before
// producing one signal on its output.
type Join struct {
	*ElementBase

	In1, In2 *Wire
	Out      *Wire
}

// NewJoin creates a new Join with unbound ports.
func NewJoin(name string, cfg Config) *Join {
	j := &Join{}
	j.ElementBase = NewElementBase(name, cfg, j)

	return j
}

// Validate checks that all the ports are bound.
func (j *Join) Validate() error {
	switch {
	case j.In1 == nil:
		return portNotBound(j, "In1")
	case j.In2 == nil:
		return portNotBound(j, "In2")
	case j.Out == nil:
		return portNotBound(j, "Out")
	}

	return nil
}

// Run processes signals until the join is killed.
func (j *Join) Run() {
	for j.step() {
	}
}

func (j *Join) step() bool {
	if !j.waitUntil(anyArrived(j.In1, j.In2)) {
		return false
	}

	first, second := j.In1, j.In2
	if !first.HasArrived() {
		first, second = second, first
	}

	j.consume(first, nil)

	if !j.waitUntil(second.HasArrived) {
		return false
	}

	j.consume(second, nil)

	if !j.delay(j.cfg.serviceDelay()) {
		return false
	}

	if !j.raiseAll(j.Out) {
		return false
	}

	j.setProcessing(false)

	return true
}
