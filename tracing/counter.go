package tracing

import (
	"sort"
	"sync"

	"github.com/sarchlab/disim/sim"
)

// A Counter is a hook that counts notifications per position and per element.
type Counter struct {
	lock   sync.Mutex
	counts map[string]map[string]int
}

// NewCounter creates a Counter with no counts.
func NewCounter() *Counter {
	return &Counter{counts: make(map[string]map[string]int)}
}

// Func counts the notification.
func (c *Counter) Func(ctx sim.HookCtx) {
	c.lock.Lock()
	defer c.lock.Unlock()

	perElement, found := c.counts[ctx.Pos.Name]
	if !found {
		perElement = make(map[string]int)
		c.counts[ctx.Pos.Name] = perElement
	}

	perElement[nameOf(ctx.Domain)]++
}

// Total returns how many notifications of a position were counted.
func (c *Counter) Total(pos *sim.HookPos) int {
	c.lock.Lock()
	defer c.lock.Unlock()

	total := 0
	for _, n := range c.counts[pos.Name] {
		total += n
	}

	return total
}

// Count returns how many notifications of a position one element sent.
func (c *Counter) Count(element string, pos *sim.HookPos) int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.counts[pos.Name][element]
}

// A CountEntry is one line of a Counter summary.
type CountEntry struct {
	Element  string
	Position string
	Count    int
}

// Summary lists all the counts, sorted by element and then position.
func (c *Counter) Summary() []CountEntry {
	c.lock.Lock()
	defer c.lock.Unlock()

	var entries []CountEntry
	for pos, perElement := range c.counts {
		for element, n := range perElement {
			entries = append(entries, CountEntry{
				Element:  element,
				Position: pos,
				Count:    n,
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Element != entries[j].Element {
			return entries[i].Element < entries[j].Element
		}

		return entries[i].Position < entries[j].Position
	})

	return entries
}

// Reset forgets all the counts.
func (c *Counter) Reset() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.counts = make(map[string]map[string]int)
}
