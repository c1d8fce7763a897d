package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-frlayout/pkg/config"
	"github.com/dd0wney/cluso-frlayout/pkg/export"
	"github.com/dd0wney/cluso-frlayout/pkg/host"
	"github.com/dd0wney/cluso-frlayout/pkg/host/pgstore"
	"github.com/dd0wney/cluso-frlayout/pkg/host/sqlitestore"
	"github.com/dd0wney/cluso-frlayout/pkg/layout"
	"github.com/dd0wney/cluso-frlayout/pkg/logging"
)

// loadConfig reads --config and applies --log-level, then installs the
// process logger.
func loadConfig(cmd *cobra.Command) (*config.Config, logging.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	logger := logging.NewJSONLogger(cmd.ErrOrStderr(), logging.ParseLevel(cfg.Log.Level))
	logging.SetDefaultLogger(logger)
	return cfg, logger, nil
}

// openStore opens the configured store, or returns nil when none is set.
func openStore(ctx context.Context, cfg config.StoreConfig) (host.Store, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case config.DriverSQLite:
		return sqlitestore.New(cfg.DSN)
	case config.DriverPostgres:
		return pgstore.New(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// openExporter builds the configured writer. S3 wins over a directory.
func openExporter(ctx context.Context, cfg config.ExportConfig) (export.Writer, error) {
	switch {
	case cfg.S3 != nil:
		s3cfg := *cfg.S3
		if s3cfg.Format == "" {
			s3cfg.Format = cfg.Format
		}
		client, err := export.NewS3Client(ctx, s3cfg)
		if err != nil {
			return nil, err
		}
		return export.NewS3Writer(client, s3cfg)
	case cfg.Dir != "":
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, err
		}
		return export.FileWriter{Dir: cfg.Dir, Format: cfg.Format}, nil
	default:
		return nil, nil
	}
}

// layoutConfig copies the configured defaults and applies the per-command
// overrides.
func layoutConfig(cmd *cobra.Command, cfg *config.Config) (*layout.Config, error) {
	out := *cfg.Layout
	flags := cmd.Flags()
	if flags.Changed("iterations") {
		out.Iterations, _ = flags.GetInt("iterations")
	}
	if flags.Changed("gravity") {
		out.Gravity, _ = flags.GetFloat64("gravity")
	}
	if flags.Changed("speed") {
		out.Speed, _ = flags.GetFloat64("speed")
	}
	if flags.Changed("animate") {
		out.Animate, _ = flags.GetBool("animate")
	}
	if flags.Changed("easing") {
		out.Easing, _ = flags.GetString("easing")
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

func addLayoutFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("iterations", 0, "override the iteration budget")
	f.Float64("gravity", 0, "override gravity")
	f.Float64("speed", 0, "override speed (0, 1]")
	f.Bool("animate", false, "rescale the result and animate the commit")
	f.String("easing", "", "easing for animated commits")
	f.String("viewport", "", "viewport as WIDTHxHEIGHT, overriding the graph file")
	f.String("seed", "", "place non-fixed nodes first: circular or hierarchical")
}

var errViewport = errors.New("viewport must look like 800x600")

// parseViewport parses "WIDTHxHEIGHT".
func parseViewport(s string) (*host.ViewportSize, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return nil, errViewport
	}
	width, err1 := strconv.ParseFloat(strings.TrimSpace(w), 64)
	height, err2 := strconv.ParseFloat(strings.TrimSpace(h), 64)
	if err1 != nil || err2 != nil || width <= 0 || height <= 0 {
		return nil, errViewport
	}
	return &host.ViewportSize{Width: width, Height: height}, nil
}

// loadGraph reads a graph file and applies --viewport, then --seed.
func loadGraph(cmd *cobra.Command, path string) (*host.MemoryGraph, error) {
	g, err := host.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if vp, _ := cmd.Flags().GetString("viewport"); vp != "" {
		size, err := parseViewport(vp)
		if err != nil {
			return nil, err
		}
		g.SetViewport(size.Width, size.Height)
	}
	if seed, _ := cmd.Flags().GetString("seed"); seed != "" {
		if err := g.Seed(host.Seed(seed)); err != nil {
			return nil, err
		}
	}
	return g, nil
}
