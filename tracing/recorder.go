// Package tracing turns the notifications of circuit elements into records.
package tracing

import (
	"fmt"
	"time"

	"github.com/sarchlab/disim/datarecording"
	"github.com/sarchlab/disim/sim"
)

// DefaultTableName is the table that a Recorder writes into unless told
// otherwise.
const DefaultTableName = "circuit_events"

// An Event is one row of the trace.
type Event struct {
	ID       string
	Time     float64
	Element  string
	Position string
	Item     string
	Detail   string
}

// A Recorder is a hook that writes every notification it receives as an Event.
// Time is measured in seconds since the recorder was built.
type Recorder struct {
	backend   datarecording.DataRecorder
	tableName string
	filter    map[*sim.HookPos]bool
	idGen     sim.IDGenerator
	start     time.Time
	now       func() time.Time
}

// Func records the notification unless it is filtered out.
func (r *Recorder) Func(ctx sim.HookCtx) {
	if r.filter != nil && !r.filter[ctx.Pos] {
		return
	}

	r.backend.InsertData(r.tableName, Event{
		ID:       r.idGen.Generate(),
		Time:     r.now().Sub(r.start).Seconds(),
		Element:  nameOf(ctx.Domain),
		Position: ctx.Pos.Name,
		Item:     describe(ctx.Item),
		Detail:   describe(ctx.Detail),
	})
}

// TableName returns the name of the table the recorder writes into.
func (r *Recorder) TableName() string {
	return r.tableName
}

func nameOf(v any) string {
	if named, ok := v.(sim.Named); ok {
		return named.Name()
	}

	return ""
}

func describe(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case sim.Named:
		return v.Name()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// RecorderBuilder can build Recorders.
type RecorderBuilder struct {
	backend   datarecording.DataRecorder
	tableName string
	positions []*sim.HookPos
	now       func() time.Time
}

// MakeRecorderBuilder creates a RecorderBuilder with default parameters.
func MakeRecorderBuilder() RecorderBuilder {
	return RecorderBuilder{
		tableName: DefaultTableName,
		now:       time.Now,
	}
}

// WithDataRecorder sets the backend that stores the events.
func (b RecorderBuilder) WithDataRecorder(
	backend datarecording.DataRecorder,
) RecorderBuilder {
	b.backend = backend
	return b
}

// WithTableName sets the table to write into.
func (b RecorderBuilder) WithTableName(name string) RecorderBuilder {
	b.tableName = name
	return b
}

// WithPositions limits the recorder to some hook positions. By default, every
// notification is recorded.
func (b RecorderBuilder) WithPositions(positions ...*sim.HookPos) RecorderBuilder {
	b.positions = positions
	return b
}

// WithClock replaces the clock used for timestamps.
func (b RecorderBuilder) WithClock(now func() time.Time) RecorderBuilder {
	b.now = now
	return b
}

// Build creates the recorder and its table.
func (b RecorderBuilder) Build() *Recorder {
	if b.backend == nil {
		panic("recorder requires a data recorder")
	}

	r := &Recorder{
		backend:   b.backend,
		tableName: b.tableName,
		idGen:     sim.NewSequentialIDGenerator(),
		now:       b.now,
		start:     b.now(),
	}

	if len(b.positions) > 0 {
		r.filter = make(map[*sim.HookPos]bool)
		for _, pos := range b.positions {
			r.filter[pos] = true
		}
	}

	b.backend.CreateTable(b.tableName, Event{})

	return r
}
