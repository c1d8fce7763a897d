// Command frlayout lays out graphs with the Fruchterman-Reingold algorithm:
// one-shot from a file, as an HTTP service, or streamed between processes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "frlayout",
		Short: "Force-directed graph layout",
		Long: `frlayout positions the nodes of a graph with the Fruchterman-Reingold
force-directed algorithm.

Graphs are read from JSON or YAML files or from a graph store. Layouts can
run once from the command line, behind an HTTP API, or on one process while
another receives the position snapshots over a pub/sub socket.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "YAML configuration file")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newServeCmd(),
		newWatchCmd(),
		newPublishCmd(),
		newSubscribeCmd(),
		newStoreCmd(),
		newTokenCmd(),
		newCertCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "frlayout version %s\n", version)
		},
	}
}
