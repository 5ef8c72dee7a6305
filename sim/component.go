// Package sim simulates networks of delay-insensitive circuit elements.
//
// Every element runs in its own goroutine and only communicates with other
// elements through the state of shared wires. An element waits by polling its
// ports until the states it needs line up; there is no clock and no central
// scheduler.
package sim

import (
	"runtime"
	"sync"
	"time"
)

// A Named object is an object that has a name.
type Named interface {
	Name() string
}

// An Element is a circuit element that runs as an independent unit.
type Element interface {
	Named
	Hookable

	// Run executes the element until it is killed. It is meant to be called
	// in its own goroutine.
	Run()

	Pause()
	Resume()
	Kill()
	IsPaused() bool
	IsKilled() bool

	// Validate reports whether all required ports are bound.
	Validate() error
}

// ElementBase provides the lifecycle flags and the waiting primitives that all
// the elements share. Every flag is guarded by a mutex because the flags are
// written by the network controller and read by the element's goroutine.
type ElementBase struct {
	HookableBase

	name   string
	cfg    Config
	domain Hookable

	lock       sync.Mutex
	paused     bool
	killed     bool
	processing bool
}

// NewElementBase creates a new ElementBase. The domain is the element that
// embeds the base and is reported as the domain of every hook invocation.
// Elements start paused.
func NewElementBase(name string, cfg Config, domain Hookable) *ElementBase {
	cfg.mustBeValid()

	return &ElementBase{
		name:   name,
		cfg:    cfg,
		domain: domain,
		paused: true,
	}
}

// Name returns the name of the element.
func (b *ElementBase) Name() string {
	return b.name
}

// Pause stops the element at its next wait point.
func (b *ElementBase) Pause() {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.paused = true
}

// Resume lets a paused element continue.
func (b *ElementBase) Resume() {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.paused = false
}

// Kill requests the element to terminate. The element stops at its next wait
// point, whether it is paused or not.
func (b *ElementBase) Kill() {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.killed = true
}

// IsPaused returns true if the element is paused.
func (b *ElementBase) IsPaused() bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.paused
}

// IsKilled returns true if the element has been asked to terminate.
func (b *ElementBase) IsKilled() bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.killed
}

// IsProcessing returns true between the moment an element consumes an input
// and the moment it has produced the corresponding outputs.
func (b *ElementBase) IsProcessing() bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.processing
}

func (b *ElementBase) setProcessing(processing bool) {
	b.lock.Lock()
	changed := b.processing != processing
	b.processing = processing
	b.lock.Unlock()

	if changed {
		b.notify(HookPosProcessing, processing, nil)
	}
}

func (b *ElementBase) notify(pos *HookPos, item, detail interface{}) {
	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(HookCtx{
		Domain: b.domain,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}

// waitUntil polls cond until it holds while the element is not paused. It
// returns false if the element gets killed first. The kill flag is the last
// thing checked before returning true so that the caller can act right away.
func (b *ElementBase) waitUntil(cond func() bool) bool {
	for {
		if b.IsKilled() {
			return false
		}

		if !b.IsPaused() && cond() {
			return !b.IsKilled()
		}

		b.yield()
	}
}

// delay waits for d of unpaused time. Time spent paused does not count. It
// returns false if the element gets killed first.
func (b *ElementBase) delay(d time.Duration) bool {
	remaining := d
	last := time.Now()

	for {
		if b.IsKilled() {
			return false
		}

		now := time.Now()
		if b.IsPaused() {
			last = now
			b.yield()
			continue
		}

		remaining -= now.Sub(last)
		last = now

		if remaining <= 0 {
			return true
		}

		b.sleep(remaining)
	}
}

func (b *ElementBase) yield() {
	if b.cfg.PollInterval > 0 {
		time.Sleep(b.cfg.PollInterval)
		return
	}

	runtime.Gosched()
}

func (b *ElementBase) sleep(upTo time.Duration) {
	step := b.cfg.PollInterval
	if step <= 0 {
		step = time.Millisecond
	}

	if upTo < step {
		step = upTo
	}

	time.Sleep(step)
}

// consume acknowledges an input that has arrived and marks the element as
// processing.
func (b *ElementBase) consume(w *Wire, detail interface{}) {
	w.SetActive(false)
	b.notify(HookPosInputConsumed, w, detail)
	b.setProcessing(true)
}

// raiseAll raises every given wire. When more than one wire is given, the
// wires are raised in the order they become free: wait for any of the
// remaining wires to be free, raise it, repeat. Unbound (nil) wires are
// skipped. It returns false if the element is killed before all the wires are
// raised.
func (b *ElementBase) raiseAll(wires ...*Wire) bool {
	pending := make([]*Wire, 0, len(wires))
	for _, w := range wires {
		if w != nil {
			pending = append(pending, w)
		}
	}

	for len(pending) > 0 {
		free := -1
		ok := b.waitUntil(func() bool {
			for i, w := range pending {
				if !w.IsActive() {
					free = i
					return true
				}
			}

			return false
		})
		if !ok {
			return false
		}

		pending[free].SetActive(true)
		pending = append(pending[:free], pending[free+1:]...)
	}

	return true
}

// anyArrived returns a condition that holds when any bound wire in the list
// carries a signal that has arrived.
func anyArrived(wires ...*Wire) func() bool {
	return func() bool {
		for _, w := range wires {
			if w.arrived() {
				return true
			}
		}

		return false
	}
}
