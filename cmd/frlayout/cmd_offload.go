package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-frlayout/pkg/host"
	"github.com/dd0wney/cluso-frlayout/pkg/layout"
	"github.com/dd0wney/cluso-frlayout/pkg/logging"
	"github.com/dd0wney/cluso-frlayout/pkg/metrics"
	"github.com/dd0wney/cluso-frlayout/pkg/offload"
)

// transportAddr prefers --addr over transport.address.
func transportAddr(cmd *cobra.Command, configured string) (string, error) {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		return addr, nil
	}
	if configured == "" {
		return "", fmt.Errorf("no transport address: set --addr or transport.address")
	}
	return configured, nil
}

func newPublishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish GRAPH",
		Short: "Lay out a graph file and publish its snapshots",
		Long: `Publish binds a PUB socket, waits --delay for subscribers to connect,
then runs the layout on a worker and broadcasts every delivered snapshot.
Subscribers that connect late miss earlier frames.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			addr, err := transportAddr(cmd, cfg.Transport.Address)
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

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reg := metrics.NewRegistry()
			pub, err := offload.NewPublisher(offload.NewMangosFactory(), offload.PublisherConfig{
				Address: addr,
				Logger:  logger,
				Metrics: reg,
			})
			if err != nil {
				return err
			}
			if err := pub.Start(); err != nil {
				return err
			}
			defer pub.Stop()
			logger.Info("publisher bound", logging.Addr(addr))

			if delay, _ := cmd.Flags().GetDuration("delay"); delay > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
			}

			engine, err := layout.New(g, lcfg, layout.WithLogger(logger))
			if err != nil {
				return err
			}
			runner := offload.NewRunner(engine,
				offload.WithRunnerLogger(logger),
				offload.WithMetrics(reg),
				offload.WithSink(pub),
			)
			if err := runner.Run(ctx); err != nil {
				return err
			}

			if out, _ := cmd.Flags().GetString("out"); out != "" {
				if err := host.WriteFile(out, g.File()); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: published %d nodes to %s\n", engine.RunID(), len(g.Nodes()), addr)
			return nil
		},
	}
	addLayoutFlags(cmd)
	cmd.Flags().String("addr", "", "PUB address, e.g. tcp://127.0.0.1:7440")
	cmd.Flags().Duration("delay", time.Second, "wait this long for subscribers before starting")
	cmd.Flags().StringP("out", "o", "", "also write the positioned graph here")
	return cmd
}

func newSubscribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscribe GRAPH",
		Short: "Apply published snapshots to a graph file",
		Long: `Subscribe connects to a publisher and commits every received snapshot to
GRAPH in memory. When the final snapshot of a run arrives the graph is
written to --out, or back over GRAPH.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			addr, err := transportAddr(cmd, cfg.Transport.Address)
			if err != nil {
				return err
			}
			g, err := loadGraph(cmd, args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			sub, err := offload.NewSubscriber(offload.NewMangosFactory(), offload.SubscriberConfig{
				Address: addr,
				Logger:  logger,
			})
			if err != nil {
				return err
			}
			if err := sub.Start(); err != nil {
				return err
			}
			defer sub.Stop()

			var applied int
			applier := offload.ApplierFunc(func(s offload.Snapshot) error {
				if err := (offload.HostApplier{Host: g}).Apply(s); err != nil {
					return err
				}
				applied++
				return nil
			})
			if err := sub.Run(ctx, applier, true); err != nil {
				return err
			}

			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = args[0]
			}
			if err := host.WriteFile(out, g.File()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d snapshots -> %s\n", applied, out)
			return nil
		},
	}
	cmd.Flags().String("addr", "", "publisher address, e.g. tcp://127.0.0.1:7440")
	cmd.Flags().Duration("timeout", 0, "give up after this long")
	cmd.Flags().String("viewport", "", "viewport as WIDTHxHEIGHT, overriding the graph file")
	cmd.Flags().StringP("out", "o", "", "output file; the format follows its extension")
	return cmd
}
