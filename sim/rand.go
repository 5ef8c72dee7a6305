package sim

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is a pseudo-random generator shared by all the elements of a network.
// Every draw, whether for a delay or for an arbitration coin flip, goes
// through one mutex so that a fixed seed gives a fixed sequence of draws.
type Rand struct {
	lock sync.Mutex
	r    *rand.Rand
}

// NewRand creates a generator seeded with the given seed.
func NewRand(seed int64) *Rand {
	return &Rand{r: rand.New(rand.NewSource(seed))}
}

// Float64 returns a number in [0, 1).
func (r *Rand) Float64() float64 {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.r.Float64()
}

// Intn returns a number in [0, n). It panics if n <= 0.
func (r *Rand) Intn(n int) int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.r.Intn(n)
}

// Duration returns a duration uniformly drawn from [0, max). A non-positive
// max always gives 0.
func (r *Rand) Duration(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}

	return time.Duration(r.Float64() * float64(max))
}
