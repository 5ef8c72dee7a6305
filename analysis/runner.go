// Package analysis runs a circuit many times and tallies which outcome each
// run reaches.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/rs/xid"

	"github.com/sarchlab/disim/datarecording"
	"github.com/sarchlab/disim/sim"
	"github.com/sarchlab/disim/topology"
)

// Livelock is the outcome recorded for trials that reach no outcome in time.
const Livelock = "livelock"

// ErrNotAnalyzable is returned when building a runner for a circuit that has
// analysis disabled.
var ErrNotAnalyzable = errors.New("analysis is disabled for this circuit")

// TrialTableName is the table the trials are recorded in.
const TrialTableName = "trials"

// A ProgressTracker is told when trials start and finish.
type ProgressTracker interface {
	IncrementInProgress(amount uint64)
	MoveInProgressToFinished(amount uint64)
}

// A TrialEntry is the record of one trial.
type TrialEntry struct {
	ID       string
	Run      string
	Trial    int
	Outcome  string
	Duration float64
}

// A Tally summarizes the trials of a run.
type Tally struct {
	Topology string
	Trials   int
	Counts   map[string]int

	// Outcomes lists the possible outcomes in declaration order, followed by
	// Livelock.
	Outcomes []string
}

// Fraction returns the share of the trials that reached an outcome.
func (r Tally) Fraction(outcome string) float64 {
	if r.Trials == 0 {
		return 0
	}

	return float64(r.Counts[outcome]) / float64(r.Trials)
}

// Completed returns how many trials reached an outcome other than Livelock.
func (r Tally) Completed() int {
	return r.Trials - r.Counts[Livelock]
}

// A Runner runs trials of a circuit. Every trial starts from a freshly built
// circuit, runs until one of the outcomes is reached, and stops.
type Runner struct {
	netlist      *topology.Netlist
	cfg          sim.Config
	trials       int
	timeout      time.Duration
	pollInterval time.Duration
	logger       *slog.Logger
	progress     ProgressTracker
	recorder     datarecording.DataRecorder
	hooks        []sim.Hook
	runID        string
}

// Run executes the trials. If the context is canceled, Run stops the current
// trial and returns the tally of the completed trials along with the
// context's error.
func (r *Runner) Run(ctx context.Context) (Tally, error) {
	tally := Tally{
		Topology: r.netlist.Name,
		Counts:   make(map[string]int),
	}

	for _, o := range r.netlist.Outcomes {
		tally.Outcomes = append(tally.Outcomes, o.Name)
	}
	tally.Outcomes = append(tally.Outcomes, Livelock)

	network := sim.NewNetwork(r.cfg).WithLogger(r.logger)
	for _, h := range r.hooks {
		network.AcceptHook(h)
	}

	for i := 0; i < r.trials; i++ {
		start := time.Now()

		outcome, err := r.runTrial(ctx, network)
		if err != nil {
			return tally, err
		}

		tally.Trials++
		tally.Counts[outcome]++

		r.record(i, outcome, time.Since(start))

		r.logger.Debug("trial finished",
			"topology", tally.Topology,
			"trial", i,
			"outcome", outcome)
	}

	r.logger.Info("analysis finished",
		"topology", tally.Topology,
		"trials", tally.Trials,
		"livelock", tally.Counts[Livelock])

	return tally, nil
}

func (r *Runner) runTrial(ctx context.Context, network *sim.Network) (string, error) {
	if r.progress != nil {
		r.progress.IncrementInProgress(1)
		defer r.progress.MoveInProgressToFinished(1)
	}

	if err := network.Load(r.netlist.Topology(), len(r.hooks) > 0); err != nil {
		return "", err
	}
	defer network.Unload()

	network.Resume()

	deadline := time.NewTimer(r.timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		if outcome, found := r.reachedOutcome(network); found {
			return outcome, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return Livelock, nil
		case <-ticker.C:
		}
	}
}

func (r *Runner) reachedOutcome(network *sim.Network) (string, bool) {
	for _, o := range r.netlist.Outcomes {
		if o.Reached(network) {
			return o.Name, true
		}
	}

	return "", false
}

func (r *Runner) record(trial int, outcome string, d time.Duration) {
	if r.recorder == nil {
		return
	}

	r.recorder.InsertData(TrialTableName, TrialEntry{
		ID:       xid.New().String(),
		Run:      r.runID,
		Trial:    trial,
		Outcome:  outcome,
		Duration: d.Seconds(),
	})
}

// RunnerBuilder can build Runners.
type RunnerBuilder struct {
	netlist      *topology.Netlist
	cfg          *sim.Config
	trials       int
	timeout      time.Duration
	pollInterval time.Duration
	logger       *slog.Logger
	progress     ProgressTracker
	recorder     datarecording.DataRecorder
	hooks        []sim.Hook
}

// MakeRunnerBuilder creates a RunnerBuilder with default parameters.
func MakeRunnerBuilder() RunnerBuilder {
	return RunnerBuilder{
		trials:       100,
		timeout:      10 * time.Second,
		pollInterval: time.Millisecond,
	}
}

// WithNetlist sets the circuit to run.
func (b RunnerBuilder) WithNetlist(n *topology.Netlist) RunnerBuilder {
	b.netlist = n
	return b
}

// WithConfig sets the config of the circuit elements.
func (b RunnerBuilder) WithConfig(cfg sim.Config) RunnerBuilder {
	b.cfg = &cfg
	return b
}

// WithTrials sets the number of trials.
func (b RunnerBuilder) WithTrials(n int) RunnerBuilder {
	b.trials = n
	return b
}

// WithTimeout sets how long a trial may run before it counts as a livelock.
func (b RunnerBuilder) WithTimeout(d time.Duration) RunnerBuilder {
	b.timeout = d
	return b
}

// WithPollInterval sets how often the outcomes are checked.
func (b RunnerBuilder) WithPollInterval(d time.Duration) RunnerBuilder {
	b.pollInterval = d
	return b
}

// WithLogger sets the logger. By default, nothing is logged.
func (b RunnerBuilder) WithLogger(logger *slog.Logger) RunnerBuilder {
	b.logger = logger
	return b
}

// WithProgressTracker sets a tracker that follows the trials.
func (b RunnerBuilder) WithProgressTracker(p ProgressTracker) RunnerBuilder {
	b.progress = p
	return b
}

// WithDataRecorder records every trial in the trials table.
func (b RunnerBuilder) WithDataRecorder(
	recorder datarecording.DataRecorder,
) RunnerBuilder {
	b.recorder = recorder
	return b
}

// WithHooks attaches hooks to the elements of every trial.
func (b RunnerBuilder) WithHooks(hooks ...sim.Hook) RunnerBuilder {
	b.hooks = hooks
	return b
}

// Build creates the Runner.
func (b RunnerBuilder) Build() (*Runner, error) {
	if b.netlist == nil {
		return nil, fmt.Errorf("runner requires a netlist")
	}

	if len(b.netlist.Outcomes) == 0 {
		return nil, fmt.Errorf("netlist %s declares no outcome", b.netlist.Name)
	}

	if !b.netlist.Analyzable() {
		return nil, fmt.Errorf("%s: %w", b.netlist.Name, ErrNotAnalyzable)
	}

	if b.trials < 0 || b.timeout <= 0 || b.pollInterval <= 0 {
		return nil, fmt.Errorf(
			"invalid runner parameters: trials %d, timeout %s, poll interval %s",
			b.trials, b.timeout, b.pollInterval)
	}

	if err := b.netlist.Check(); err != nil {
		return nil, err
	}

	cfg := sim.MakeConfigBuilder().Build()
	if b.cfg != nil {
		cfg = *b.cfg
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := &Runner{
		netlist:      b.netlist,
		cfg:          cfg,
		trials:       b.trials,
		timeout:      b.timeout,
		pollInterval: b.pollInterval,
		logger:       logger,
		progress:     b.progress,
		recorder:     b.recorder,
		hooks:        b.hooks,
		runID:        xid.New().String(),
	}

	if r.recorder != nil && !hasTable(r.recorder, TrialTableName) {
		r.recorder.CreateTable(TrialTableName, TrialEntry{})
	}

	return r, nil
}

func hasTable(recorder datarecording.DataRecorder, name string) bool {
	tables := recorder.ListTables()
	i := sort.SearchStrings(tables, name)

	return i < len(tables) && tables[i] == name
}
