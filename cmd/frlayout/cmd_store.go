package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-frlayout/pkg/host"
	"github.com/dd0wney/cluso-frlayout/pkg/logging"
)

var errNoStore = errors.New("no store configured: set store.driver and store.dsn")

func newStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage graphs in the configured store",
	}
	cmd.AddCommand(newStoreImportCmd(), newStoreExportCmd(), newStoreListCmd())
	return cmd
}

// withStore opens the configured store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(store host.Store, logger logging.Logger) error) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cmd.Context(), cfg.Store)
	if err != nil {
		return err
	}
	if store == nil {
		return errNoStore
	}
	defer store.Close()
	return fn(store, logger)
}

func newStoreImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import ID FILE",
		Short: "Save a graph file under ID",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(store host.Store, logger logging.Logger) error {
				g, err := host.ReadFile(args[1])
				if err != nil {
					return err
				}
				if err := store.SaveGraph(cmd.Context(), args[0], g); err != nil {
					return err
				}
				logger.Info("graph imported",
					logging.String("graph_id", args[0]),
					logging.Nodes(len(g.Nodes)),
					logging.Edges(len(g.Edges)),
				)
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%d nodes, %d edges)\n", args[0], len(g.Nodes), len(g.Edges))
				return nil
			})
		},
	}
}

func newStoreExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export ID FILE",
		Short: "Write the stored graph ID to FILE",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(store host.Store, _ logging.Logger) error {
				g, err := store.LoadGraph(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return host.WriteFile(args[1], g)
			})
		},
	}
}

func newStoreListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored graph ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(store host.Store, _ logging.Logger) error {
				ids, err := store.ListGraphs(cmd.Context())
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}
}
