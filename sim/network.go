package sim

import (
	"fmt"
	"log/slog"
	"sync"
)

// A Topology builds the elements of a circuit. Every call to Build must return
// fresh elements, with all the required ports bound and the source wires
// already raised.
type Topology interface {
	Name() string
	Build(cfg Config) ([]Element, error)
}

// A Network runs the elements of a topology, one goroutine per element.
//
// Hooks attached to the network are attached to every element when the
// network is loaded with rendering enabled.
type Network struct {
	HookableBase

	cfg    Config
	logger *slog.Logger

	lock      sync.Mutex
	topology  Topology
	render    bool
	elements  []Element
	nameIndex map[string]Element
	wg        sync.WaitGroup
}

// NewNetwork creates an empty network. The config is passed to the topology
// every time it is built.
func NewNetwork(cfg Config) *Network {
	cfg.mustBeValid()

	return &Network{
		cfg:    cfg,
		logger: slog.Default(),
	}
}

// WithLogger sets the logger used for lifecycle messages.
func (n *Network) WithLogger(logger *slog.Logger) *Network {
	n.logger = logger
	return n
}

// Config returns the config shared by the elements of the network.
func (n *Network) Config() Config {
	return n.cfg
}

// Load builds the topology, validates every element and starts them. The
// elements start paused; call Resume to let them run. When render is true,
// the hooks of the network are attached to every element.
func (n *Network) Load(topology Topology, render bool) error {
	n.lock.Lock()
	defer n.lock.Unlock()

	if n.elements != nil {
		return ErrAlreadyLoaded
	}

	return n.load(topology, render)
}

func (n *Network) load(topology Topology, render bool) error {
	elements, err := topology.Build(n.cfg)
	if err != nil {
		return fmt.Errorf("building topology %s: %w", topology.Name(), err)
	}

	index, err := indexElements(elements)
	if err != nil {
		return fmt.Errorf("topology %s: %w", topology.Name(), err)
	}

	for _, e := range elements {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("topology %s: %w", topology.Name(), err)
		}
	}

	if render {
		for _, e := range elements {
			for _, h := range n.Hooks() {
				e.AcceptHook(h)
			}
		}
	}

	n.topology = topology
	n.render = render
	n.elements = elements
	n.nameIndex = index

	for _, e := range elements {
		n.wg.Add(1)

		go func(e Element) {
			defer n.wg.Done()
			e.Run()
		}(e)
	}

	n.logger.Info("network loaded",
		"topology", topology.Name(),
		"count", len(elements),
		"render", render)

	return nil
}

func indexElements(elements []Element) (map[string]Element, error) {
	index := make(map[string]Element, len(elements))

	for _, e := range elements {
		if err := ValidateName(e.Name()); err != nil {
			return nil, err
		}

		if _, found := index[e.Name()]; found {
			return nil, fmt.Errorf("%s: %w", e.Name(), ErrDuplicatedElement)
		}

		index[e.Name()] = e
	}

	return index, nil
}

// IsLoaded returns true if the network is running a topology.
func (n *Network) IsLoaded() bool {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.elements != nil
}

// Topology returns the loaded topology, or nil.
func (n *Network) Topology() Topology {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.topology
}

// Pause pauses every element. Elements stop at their next wait point.
func (n *Network) Pause() {
	n.lock.Lock()
	defer n.lock.Unlock()

	for _, e := range n.elements {
		e.Pause()
	}

	n.logger.Debug("network paused", "count", len(n.elements))
}

// Resume lets every element run.
func (n *Network) Resume() {
	n.lock.Lock()
	defer n.lock.Unlock()

	for _, e := range n.elements {
		e.Resume()
	}

	n.logger.Debug("network resumed", "count", len(n.elements))
}

// Reset stops every element and loads a fresh instance of the same topology
// with the same rendering option. The new elements start paused.
func (n *Network) Reset() error {
	n.lock.Lock()
	defer n.lock.Unlock()

	if n.elements == nil {
		return ErrNotLoaded
	}

	topology, render := n.topology, n.render
	n.stop()

	n.logger.Info("network reset", "topology", topology.Name())

	return n.load(topology, render)
}

// Unload stops every element and forgets about them. Unloading a network that
// is not loaded does nothing.
func (n *Network) Unload() {
	n.lock.Lock()
	defer n.lock.Unlock()

	if n.elements == nil {
		return
	}

	name := n.topology.Name()
	n.stop()

	n.logger.Info("network unloaded", "topology", name)
}

// stop kills all the elements and waits for their goroutines to return.
func (n *Network) stop() {
	for _, e := range n.elements {
		e.Kill()
		e.Resume()
	}

	n.wg.Wait()

	n.elements = nil
	n.nameIndex = nil
	n.topology = nil
}

// Elements returns the elements of the loaded topology, in the order the
// topology built them.
func (n *Network) Elements() []Element {
	n.lock.Lock()
	defer n.lock.Unlock()

	elements := make([]Element, len(n.elements))
	copy(elements, n.elements)

	return elements
}

// ElementByName finds an element of the loaded topology.
func (n *Network) ElementByName(name string) (Element, bool) {
	n.lock.Lock()
	defer n.lock.Unlock()

	e, found := n.nameIndex[name]

	return e, found
}

// WireByName finds a wire of the loaded topology.
func (n *Network) WireByName(name string) (*Wire, bool) {
	e, found := n.ElementByName(name)
	if !found {
		return nil, false
	}

	w, ok := e.(*Wire)

	return w, ok
}

// Wires returns all the wires of the loaded topology.
func (n *Network) Wires() []*Wire {
	n.lock.Lock()
	defer n.lock.Unlock()

	var wires []*Wire
	for _, e := range n.elements {
		if w, ok := e.(*Wire); ok {
			wires = append(wires, w)
		}
	}

	return wires
}
