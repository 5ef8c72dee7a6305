package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sarchlab/disim/sim"
	"github.com/sarchlab/disim/topology"
)

// Environment variables that provide defaults to the flags.
const (
	envMaxWait     = "DISIM_MAX_WAIT"
	envSeed        = "DISIM_SEED"
	envMonitorPort = "DISIM_MONITOR_PORT"
)

type settings struct {
	maxWait     time.Duration
	seed        int64
	monitorPort int
}

// loadSettings reads the environment, after loading the env file if it
// exists, and lets the flags override it.
func loadSettings(cmd *cobra.Command) (settings, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := godotenv.Load(envFile); err != nil &&
		!errors.Is(err, fs.ErrNotExist) {
		return settings{}, fmt.Errorf("loading %s: %w", envFile, err)
	}

	s, err := settingsFromEnv(os.LookupEnv)
	if err != nil {
		return settings{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("max-wait") {
		s.maxWait, _ = flags.GetDuration("max-wait")
	}

	if flags.Changed("seed") {
		s.seed, _ = flags.GetInt64("seed")
	}

	if f := flags.Lookup("monitor-port"); f != nil && f.Changed {
		s.monitorPort, _ = flags.GetInt("monitor-port")
	}

	return s, nil
}

func settingsFromEnv(lookup func(string) (string, bool)) (settings, error) {
	s := settings{
		maxWait: sim.DefaultMaxWait,
		seed:    time.Now().UnixNano(),
	}

	if v, ok := lookup(envMaxWait); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return s, fmt.Errorf("%s: %w", envMaxWait, err)
		}

		s.maxWait = d
	}

	if v, ok := lookup(envSeed); ok {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return s, fmt.Errorf("%s: %w", envSeed, err)
		}

		s.seed = seed
	}

	if v, ok := lookup(envMonitorPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return s, fmt.Errorf("%s: %w", envMonitorPort, err)
		}

		s.monitorPort = port
	}

	return s, nil
}

func (s settings) simConfig() sim.Config {
	return sim.MakeConfigBuilder().
		WithMaxWait(s.maxWait).
		WithSeed(s.seed).
		Build()
}

// resolveNetlist treats arguments ending with .hcl as netlist files and
// everything else as the name of a builtin circuit.
func resolveNetlist(arg string) (*topology.Netlist, error) {
	if filepath.Ext(arg) == ".hcl" {
		return topology.LoadNetlist(arg)
	}

	return topology.Builtin(arg)
}
