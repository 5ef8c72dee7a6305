package sim

import (
	"log"
	"time"
)

// Defaults used when a ConfigBuilder is not told otherwise.
const (
	DefaultMaxWait      = 300 * time.Millisecond
	DefaultSeed         = 11111111
	DefaultPollInterval = 100 * time.Microsecond
)

// Config is the immutable set of parameters shared by every element of a
// network. It must be created with a ConfigBuilder.
type Config struct {
	// MaxWait bounds every random delay. Service delays are drawn from
	// [0, MaxWait) and every wire step from [0, MaxWait/10).
	MaxWait time.Duration

	// PollInterval is how long an element sleeps between two checks of a
	// condition. Zero means yielding the processor instead of sleeping.
	PollInterval time.Duration

	// Rand is the generator used for delays and arbitration.
	Rand *Rand
}

func (c Config) mustBeValid() {
	if c.Rand == nil {
		log.Panic("config must be created with a ConfigBuilder")
	}
}

func (c Config) serviceDelay() time.Duration {
	return c.Rand.Duration(c.MaxWait)
}

func (c Config) wireStepDelay() time.Duration {
	return c.Rand.Duration(c.MaxWait / wireSteps)
}

// ConfigBuilder can build Configs.
type ConfigBuilder struct {
	maxWait      time.Duration
	pollInterval time.Duration
	seed         int64
	rand         *Rand
}

// MakeConfigBuilder creates a ConfigBuilder with default parameters.
func MakeConfigBuilder() ConfigBuilder {
	return ConfigBuilder{
		maxWait:      DefaultMaxWait,
		pollInterval: DefaultPollInterval,
		seed:         DefaultSeed,
	}
}

// WithMaxWait sets the upper bound of all random delays.
func (b ConfigBuilder) WithMaxWait(d time.Duration) ConfigBuilder {
	b.maxWait = d
	return b
}

// WithPollInterval sets the sleep between two condition checks.
func (b ConfigBuilder) WithPollInterval(d time.Duration) ConfigBuilder {
	b.pollInterval = d
	return b
}

// WithSeed sets the seed of the generator created by Build.
func (b ConfigBuilder) WithSeed(seed int64) ConfigBuilder {
	b.seed = seed
	return b
}

// WithRand makes the config reuse an existing generator. The seed is ignored
// in this case.
func (b ConfigBuilder) WithRand(r *Rand) ConfigBuilder {
	b.rand = r
	return b
}

// Build creates the Config.
func (b ConfigBuilder) Build() Config {
	if b.maxWait < 0 {
		log.Panicf("max wait cannot be negative, got %s", b.maxWait)
	}

	if b.pollInterval < 0 {
		log.Panicf("poll interval cannot be negative, got %s", b.pollInterval)
	}

	r := b.rand
	if r == nil {
		r = NewRand(b.seed)
	}

	return Config{
		MaxWait:      b.maxWait,
		PollInterval: b.pollInterval,
		Rand:         r,
	}
}
