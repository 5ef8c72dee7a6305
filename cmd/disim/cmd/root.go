// Package cmd provides the command-line interface of disim.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "disim",
	Short: "disim simulates delay-insensitive asynchronous circuits.",
	Long: `disim simulates delay-insensitive asynchronous circuits made of ` +
		`wires, merges, forks, joins and conflict elements. It can run a ` +
		`circuit once, or run it many times and report how often each ` +
		`outcome happens.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setupLogger(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "warn", "Log level: debug, info, warn or error.")
	flags.String("env-file", ".env", "File to load environment variables from.")
	flags.Duration("max-wait", 0,
		"Upper bound of the random delays (env DISIM_MAX_WAIT).")
	flags.Int64("seed", 0, "Seed of the random generator (env DISIM_SEED).")
}

func setupLogger(cmd *cobra.Command) error {
	levelName, _ := cmd.Flags().GetString("log-level")

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(levelName))); err != nil {
		return fmt.Errorf("invalid log level %q", levelName)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))

	return nil
}
