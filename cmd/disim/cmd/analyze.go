package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarchlab/disim/analysis"
	"github.com/sarchlab/disim/datarecording"
	"github.com/sarchlab/disim/sim"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <circuit|netlist.hcl>",
	Short: "Run a circuit many times and report the share of each outcome.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		netlist, err := resolveNetlist(args[0])
		if err != nil {
			return err
		}

		if !netlist.Analyzable() {
			return fmt.Errorf("%s: %w", netlist.Name, analysis.ErrNotAnalyzable)
		}

		flags := cmd.Flags()
		trials, _ := flags.GetInt("trials")
		timeout, _ := flags.GetDuration("timeout")
		recordPath, _ := flags.GetString("record")
		monitor, _ := flags.GetBool("monitor")

		builder := analysis.MakeRunnerBuilder().
			WithNetlist(netlist).
			WithConfig(s.simConfig()).
			WithTrials(trials).
			WithTimeout(timeout).
			WithLogger(slog.Default())

		if recordPath != "" {
			recorder := datarecording.New(recordPath)
			defer recorder.Close()

			builder = builder.WithDataRecorder(recorder)
		}

		if monitor {
			// The runner builds its own networks, so the monitor only
			// shows the progress.
			profile, _ := flags.GetDuration("profile-duration")

			m, err := startMonitor(
				sim.NewNetwork(s.simConfig()), s.monitorPort, profile)
			if err != nil {
				return err
			}
			defer m.StopServer(context.Background())

			bar := m.CreateProgressBar("Trials of "+netlist.Name, uint64(trials))
			defer m.CompleteProgressBar(bar)

			builder = builder.WithProgressTracker(bar)
		}

		runner, err := builder.Build()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		start := time.Now()

		tally, err := runner.Run(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d trials, %d completed, in %s\n",
			tally.Topology, tally.Trials, tally.Completed(),
			time.Since(start).Round(time.Millisecond))

		return writeTally(cmd.OutOrStdout(), tally)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	flags := analyzeCmd.Flags()
	flags.Int("trials", 100, "Number of trials.")
	flags.Duration("timeout", 10*time.Second,
		"Count a trial as a livelock after this time.")
	flags.String("record", "", "Record every trial into this SQLite file.")
	flags.Bool("monitor", false, "Show the progress on the monitoring page.")
	flags.Int("monitor-port", 0,
		"Port of the monitor, random if 0 (env DISIM_MONITOR_PORT).")
	flags.Duration("profile-duration", time.Second,
		"How long the monitor profiles the CPU on request.")
}

func writeTally(out io.Writer, tally analysis.Tally) error {
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)

	fmt.Fprintln(w, "OUTCOME\tCOUNT\tFRACTION")

	for _, o := range tally.Outcomes {
		fmt.Fprintf(w, "%s\t%d\t%.3f\n",
			o, tally.Counts[o], tally.Fraction(o))
	}

	return w.Flush()
}
