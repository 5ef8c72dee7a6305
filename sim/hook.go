package sim

import "sync"

// HookPos defines the enum of possible hooking positions.
type HookPos struct {
	Name string
}

// HookCtx is the context that holds all the information about the site that a
// hook is triggered.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   interface{}
	Detail interface{}
}

// Hookable defines an object that accept Hooks.
type Hookable interface {
	// AcceptHook registers a hook.
	AcceptHook(hook Hook)

	// NumHooks returns the number of hooks registered.
	NumHooks() int

	// Hooks returns all the hooks registered.
	Hooks() []Hook
}

// Hook is a short piece of program that can be invoked by a hookable object.
// Hooks attached to circuit elements are invoked from the element's own
// goroutine, so implementations must be safe for concurrent use.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// HookPosWireRaised triggers after a producer raises a wire. The domain is the
// wire.
var HookPosWireRaised = &HookPos{Name: "WireRaised"}

// HookPosWireLowered triggers after a consumer lowers a wire.
var HookPosWireLowered = &HookPos{Name: "WireLowered"}

// HookPosWireProgress triggers every time a signal advances along a wire. The
// item is the new progress as an int.
var HookPosWireProgress = &HookPos{Name: "WireProgress"}

// HookPosInputConsumed triggers when an element acknowledges one of its
// inputs. The item is the consumed *Wire. For conflict elements, the detail is
// the Port that was consumed.
var HookPosInputConsumed = &HookPos{Name: "InputConsumed"}

// HookPosProcessing triggers when the processing flag of an element changes.
// The item is the new value.
var HookPosProcessing = &HookPos{Name: "Processing"}

// HookPosStateChange triggers when a conflict element changes its dominance
// state. The item is the new ArbiterState.
var HookPosStateChange = &HookPos{Name: "StateChange"}

// A HookableBase provides some utility function for other type that implement
// the Hookable interface.
type HookableBase struct {
	hookLock sync.RWMutex
	hookList []Hook
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	h.hookLock.RLock()
	defer h.hookLock.RUnlock()

	return len(h.hookList)
}

// Hooks returns all the hooks registered.
func (h *HookableBase) Hooks() []Hook {
	h.hookLock.RLock()
	defer h.hookLock.RUnlock()

	hooks := make([]Hook, len(h.hookList))
	copy(hooks, h.hookList)

	return hooks
}

// AcceptHook register a hook.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.hookLock.Lock()
	defer h.hookLock.Unlock()

	h.mustNotHaveDuplicatedHook(hook)
	h.hookList = append(h.hookList, hook)
}

func (h *HookableBase) mustNotHaveDuplicatedHook(hook Hook) {
	for _, h := range h.hookList {
		if h == hook {
			panic("duplicated hook")
		}
	}
}

// InvokeHook triggers the register Hooks.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.Hooks() {
		hook.Func(ctx)
	}
}
