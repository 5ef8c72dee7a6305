package sim

import "sync"

const (
	wireSteps = 10

	// FullProgress is the transit progress of a signal that has arrived.
	FullProgress = 100
)

// A Wire is a single-slot channel between exactly one producer and one
// consumer. The producer raises the wire when it is inactive and the consumer
// lowers it once the signal has arrived, so the active periods of a wire
// never overlap.
//
// A wire is also an element: its own goroutine moves a raised signal along in
// ten steps of a random length.
type Wire struct {
	*ElementBase

	stateLock sync.Mutex
	active    bool
	progress  int
}

// NewWire creates a new, inactive Wire.
func NewWire(name string, cfg Config) *Wire {
	w := &Wire{}
	w.ElementBase = NewElementBase(name, cfg, w)

	return w
}

// SetActive raises or lowers the wire. Either way, the transit progress goes
// back to zero.
func (w *Wire) SetActive(active bool) {
	w.stateLock.Lock()
	w.active = active
	w.progress = 0
	w.stateLock.Unlock()

	if active {
		w.notify(HookPosWireRaised, nil, nil)
	} else {
		w.notify(HookPosWireLowered, nil, nil)
	}
}

// IsActive returns true if a signal is present on the wire.
func (w *Wire) IsActive() bool {
	w.stateLock.Lock()
	defer w.stateLock.Unlock()

	return w.active
}

// HasArrived returns true if a signal is present and has reached the end of
// the wire.
func (w *Wire) HasArrived() bool {
	w.stateLock.Lock()
	defer w.stateLock.Unlock()

	return w.active && w.progress == FullProgress
}

// Progress returns how far along the wire the signal is, from 0 to 100.
func (w *Wire) Progress() int {
	w.stateLock.Lock()
	defer w.stateLock.Unlock()

	return w.progress
}

// arrived is HasArrived for ports that may be left unbound.
func (w *Wire) arrived() bool {
	return w != nil && w.HasArrived()
}

// Validate always succeeds since wires have no ports.
func (w *Wire) Validate() error {
	return nil
}

// Run moves signals along the wire until the wire is killed.
func (w *Wire) Run() {
	for {
		if !w.waitUntil(w.IsActive) {
			return
		}

		if !w.transmit() {
			return
		}

		if !w.waitUntil(w.isNotArrived) {
			return
		}
	}
}

func (w *Wire) isNotArrived() bool {
	return !w.HasArrived()
}

func (w *Wire) transmit() bool {
	d := w.cfg.wireStepDelay()

	for i := 0; i < wireSteps; i++ {
		if !w.delay(d) {
			return false
		}

		if !w.advance() {
			return true
		}
	}

	return true
}

// advance moves the signal one step forward. It returns false if there is no
// signal in flight anymore.
func (w *Wire) advance() bool {
	w.stateLock.Lock()
	if !w.active || w.progress >= FullProgress {
		w.stateLock.Unlock()
		return false
	}

	w.progress += FullProgress / wireSteps
	progress := w.progress
	w.stateLock.Unlock()

	w.notify(HookPosWireProgress, progress, nil)

	return true
}
