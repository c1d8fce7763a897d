package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-frlayout/pkg/export"
	"github.com/dd0wney/cluso-frlayout/pkg/host"
	"github.com/dd0wney/cluso-frlayout/pkg/layout"
	"github.com/dd0wney/cluso-frlayout/pkg/logging"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run GRAPH",
		Short: "Lay out a graph file once",
		Long: `Run lays out GRAPH (.json, .yaml or .yml) and writes the positioned
graph to --out, or back over GRAPH when --out is not given. The final
positions are also exported when export is configured.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
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

			var target layout.Host = g
			if fps, _ := cmd.Flags().GetInt("fps"); lcfg.Animate && fps > 0 {
				if target, err = host.NewAnimator(g, lcfg, fps); err != nil {
					return err
				}
			}

			var result layout.Event
			opts := []layout.Option{
				layout.WithLogger(logger),
				layout.WithListener(layout.ListenerFuncs{OnStop: func(ev layout.Event) { result = ev }}),
			}
			exporter, err := openExporter(ctx, cfg.Export)
			if err != nil {
				return err
			}
			var stopExporter *export.StopExporter
			if exporter != nil {
				stopExporter = export.NewStopExporter(ctx, exporter, g, logger)
				opts = append(opts, layout.WithListener(stopExporter))
			}

			engine, err := layout.New(target, lcfg, opts...)
			if err != nil {
				return err
			}
			if err := engine.Run(ctx); err != nil {
				return err
			}
			if stopExporter != nil {
				if err := stopExporter.Err(); err != nil {
					logger.Warn("export failed", logging.RunID(result.RunID), logging.Error(err))
				}
			}

			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = args[0]
			}
			if err := host.WriteFile(out, g.File()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d nodes, %d iterations in %s -> %s\n",
				result.RunID, result.Nodes, result.Iterations, result.Elapsed, out)
			return nil
		},
	}
	addLayoutFlags(cmd)
	cmd.Flags().StringP("out", "o", "", "output file; the format follows its extension")
	cmd.Flags().Int("fps", 0, "with --animate, commit interpolated frames at this rate")
	return cmd
}
