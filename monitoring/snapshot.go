package monitoring

import "github.com/sarchlab/disim/sim"

// elementDetails is a copy of the state of an element, taken through the
// element's locked accessors so that it can be serialized while the element
// runs.
type elementDetails struct {
	Name       string
	Kind       string
	Paused     bool
	Killed     bool
	Processing bool
	State      string
	Active     bool
	Arrived    bool
	Progress   int
	Ports      []portBinding
}

type portBinding struct {
	Port string
	Wire string
}

func bind(ports []portBinding, port string, w *sim.Wire) []portBinding {
	if w == nil {
		return ports
	}

	return append(ports, portBinding{Port: port, Wire: w.Name()})
}

func snapshotElement(e sim.Element) elementDetails {
	summary := describeElement(e)

	d := elementDetails{
		Name:       summary.Name,
		Kind:       summary.Kind,
		Paused:     summary.Paused,
		Killed:     e.IsKilled(),
		Processing: summary.Processing,
		State:      summary.State,
		Ports:      []portBinding{},
	}

	switch e := e.(type) {
	case *sim.Wire:
		d.Active = e.IsActive()
		d.Arrived = e.HasArrived()
		d.Progress = e.Progress()
	case *sim.Merge:
		d.Ports = bind(d.Ports, "In1", e.In1)
		d.Ports = bind(d.Ports, "In2", e.In2)
		d.Ports = bind(d.Ports, "Out", e.Out)
	case *sim.Fork:
		d.Ports = bind(d.Ports, "In", e.In)
		d.Ports = bind(d.Ports, "Out1", e.Out1)
		d.Ports = bind(d.Ports, "Out2", e.Out2)
	case *sim.Join:
		d.Ports = bind(d.Ports, "In1", e.In1)
		d.Ports = bind(d.Ports, "In2", e.In2)
		d.Ports = bind(d.Ports, "Out", e.Out)
	case *sim.ConflictElement:
		for _, p := range sim.AllPorts {
			d.Ports = bind(d.Ports, p.String(), e.Wire(p))
		}
	}

	return d
}
