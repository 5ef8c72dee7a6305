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

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/disim/analysis"
	"github.com/sarchlab/disim/datarecording"
	"github.com/sarchlab/disim/monitoring"
	"github.com/sarchlab/disim/sim"
	"github.com/sarchlab/disim/topology"
	"github.com/sarchlab/disim/tracing"
)

var runCmd = &cobra.Command{
	Use:   "run <circuit|netlist.hcl>",
	Short: "Run a circuit once and report the outcome it reaches.",
	Long: `Run a circuit once and report the outcome it reaches. With ` +
		`--monitor, the circuit keeps being served after the outcome until ` +
		`the command is interrupted, so it can be paused, resumed and reset ` +
		`from the monitor.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		netlist, err := resolveNetlist(args[0])
		if err != nil {
			return err
		}

		opts, err := runOptionsFromFlags(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		return runCircuit(ctx, cmd.OutOrStdout(), s, netlist, opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()
	flags.Duration("timeout", 10*time.Second,
		"Give up if no outcome is reached in this time.")
	flags.String("trace", "",
		"Record every notification into this SQLite file.")
	flags.Bool("stats", false, "Print how many times each element acted.")
	flags.Bool("monitor", false, "Serve the monitoring web page.")
	flags.Int("monitor-port", 0,
		"Port of the monitor, random if 0 (env DISIM_MONITOR_PORT).")
	flags.Bool("open-monitor", false,
		"Open the monitor in a browser. Implies --monitor.")
	flags.Duration("profile-duration", time.Second,
		"How long the monitor profiles the CPU on request.")
}

type runOptions struct {
	timeout     time.Duration
	tracePath   string
	stats       bool
	monitor     bool
	openMonitor bool
	profile     time.Duration
}

func runOptionsFromFlags(cmd *cobra.Command) (runOptions, error) {
	flags := cmd.Flags()

	var opts runOptions
	opts.timeout, _ = flags.GetDuration("timeout")
	opts.tracePath, _ = flags.GetString("trace")
	opts.stats, _ = flags.GetBool("stats")
	opts.monitor, _ = flags.GetBool("monitor")
	opts.openMonitor, _ = flags.GetBool("open-monitor")
	opts.profile, _ = flags.GetDuration("profile-duration")

	if opts.timeout <= 0 {
		return opts, fmt.Errorf("timeout must be positive, got %s", opts.timeout)
	}

	if opts.openMonitor {
		opts.monitor = true
	}

	return opts, nil
}

func runCircuit(
	ctx context.Context,
	out io.Writer,
	s settings,
	netlist *topology.Netlist,
	opts runOptions,
) error {
	network := sim.NewNetwork(s.simConfig())

	var counter *tracing.Counter
	if opts.stats {
		counter = tracing.NewCounter()
		network.AcceptHook(counter)
	}

	if opts.tracePath != "" {
		recorder := datarecording.New(opts.tracePath)
		defer recorder.Close()

		network.AcceptHook(tracing.MakeRecorderBuilder().
			WithDataRecorder(recorder).
			Build())
	}

	render := len(network.Hooks()) > 0
	if err := network.Load(netlist.Topology(), render); err != nil {
		return err
	}
	defer network.Unload()

	if opts.monitor {
		monitor, err := startMonitor(network, s.monitorPort, opts.profile)
		if err != nil {
			return err
		}
		defer monitor.StopServer(context.Background())

		if opts.openMonitor {
			openBrowser(monitor.URL())
		}
	}

	start := time.Now()
	network.Resume()

	outcome, err := waitForOutcome(ctx, network, netlist, opts.timeout)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: %s after %s\n",
		netlist.Name, outcome, time.Since(start).Round(time.Millisecond))

	if counter != nil {
		network.Pause()
		if err := writeCounts(out, counter); err != nil {
			return err
		}
	}

	if opts.monitor {
		fmt.Fprintln(out, "Monitoring, press Ctrl-C to exit.")
		<-ctx.Done()
	}

	return nil
}

func startMonitor(
	network *sim.Network,
	port int,
	profile time.Duration,
) (*monitoring.Monitor, error) {
	monitor := monitoring.NewMonitor(network)
	if port != 0 {
		monitor.WithPortNumber(port)
	}

	if profile > 0 {
		monitor.WithProfileDuration(profile)
	}

	if _, err := monitor.StartServer(); err != nil {
		return nil, err
	}

	return monitor, nil
}

func openBrowser(url string) {
	if err := browser.OpenURL(url); err != nil {
		slog.Warn("cannot open the browser", "url", url, "error", err)
	}
}

// waitForOutcome polls the outcomes of the netlist in declaration order.
// Reaching the timeout reports a livelock.
func waitForOutcome(
	ctx context.Context,
	network *sim.Network,
	netlist *topology.Netlist,
	timeout time.Duration,
) (string, error) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		for _, o := range netlist.Outcomes {
			if o.Reached(network) {
				return o.Name, nil
			}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return analysis.Livelock, nil
		case <-ticker.C:
		}
	}
}

func writeCounts(out io.Writer, counter *tracing.Counter) error {
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)

	fmt.Fprintln(w, "ELEMENT\tPOSITION\tCOUNT")

	for _, e := range counter.Summary() {
		fmt.Fprintf(w, "%s\t%s\t%d\n", e.Element, e.Position, e.Count)
	}

	return w.Flush()
}
