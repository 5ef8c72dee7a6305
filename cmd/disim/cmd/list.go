package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/disim/topology"
)

var listCmd = &cobra.Command{
	Use:   "list [netlist.hcl...]",
	Short: "List the builtin circuits, or describe netlist files.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var netlists []*topology.Netlist

		if len(args) == 0 {
			for _, name := range topology.BuiltinNames() {
				n, err := topology.Builtin(name)
				if err != nil {
					return err
				}

				netlists = append(netlists, n)
			}
		}

		for _, arg := range args {
			n, err := resolveNetlist(arg)
			if err != nil {
				return err
			}

			netlists = append(netlists, n)
		}

		return writeNetlistTable(cmd.OutOrStdout(), netlists)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func writeNetlistTable(out io.Writer, netlists []*topology.Netlist) error {
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)

	fmt.Fprintln(w,
		"NAME\tELEMENTS\tCONFLICTS\tSYNCHRONIZED\tOUTCOMES\tANALYSIS\tDESCRIPTION")

	for _, n := range netlists {
		synchronized := 0
		for _, c := range n.Conflicts {
			if c.Synchronized {
				synchronized++
			}
		}

		outcomes := make([]string, 0, len(n.Outcomes))
		for _, o := range n.Outcomes {
			outcomes = append(outcomes, o.Name)
		}

		analysis := "yes"
		if !n.Analyzable() {
			analysis = "no"
		}

		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
			n.Name,
			n.NumElements(),
			len(n.Conflicts),
			synchronized,
			strings.Join(outcomes, ", "),
			analysis,
			n.Description)
	}

	return w.Flush()
}
