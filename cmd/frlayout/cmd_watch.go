package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-frlayout/pkg/host"
	"github.com/dd0wney/cluso-frlayout/pkg/layout"
	"github.com/dd0wney/cluso-frlayout/pkg/logging"
	"github.com/dd0wney/cluso-frlayout/pkg/offload"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch GRAPH",
		Short: "Lay out a graph file with a live terminal view",
		Long: `Watch runs the layout on a worker and shows every delivered snapshot
in the terminal. Quitting stops the run without writing the result.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			lcfg, err := layoutConfig(cmd, cfg)
			if err != nil {
				return err
			}
			g, err := loadGraph(cmd, args[0])
			if err != nil {
				return err
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(sigCtx)
			defer cancel()

			// the terminal belongs to the program while it runs
			engine, err := layout.New(g, lcfg, layout.WithLogger(logging.NewNopLogger()))
			if err != nil {
				return err
			}

			model := newWatchModel(filepath.Base(args[0]), lcfg.Iterations, len(g.Nodes()), cancel)
			p := tea.NewProgram(model,
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			runner := offload.NewRunner(engine, offload.WithSink(offload.SinkFunc(
				func(_ context.Context, s offload.Snapshot) error {
					p.Send(snapshotMsg(s))
					return nil
				})))

			runErr := make(chan error, 1)
			go func() {
				err := runner.Run(ctx)
				runErr <- err
				p.Send(doneMsg{err: err})
			}()

			if _, err := p.Run(); err != nil {
				cancel()
				<-runErr
				return err
			}
			cancel()
			if err := <-runErr; err != nil {
				if errors.Is(err, context.Canceled) {
					fmt.Fprintln(cmd.ErrOrStderr(), "layout interrupted; nothing written")
					return nil
				}
				return err
			}

			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = args[0]
			}
			return host.WriteFile(out, g.File())
		},
	}
	addLayoutFlags(cmd)
	cmd.Flags().StringP("out", "o", "", "output file; the format follows its extension")
	return cmd
}
