package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-frlayout/pkg/api"
	"github.com/dd0wney/cluso-frlayout/pkg/api/middleware"
	"github.com/dd0wney/cluso-frlayout/pkg/auth"
	"github.com/dd0wney/cluso-frlayout/pkg/config"
	"github.com/dd0wney/cluso-frlayout/pkg/health"
	"github.com/dd0wney/cluso-frlayout/pkg/logging"
	"github.com/dd0wney/cluso-frlayout/pkg/metrics"
	"github.com/dd0wney/cluso-frlayout/pkg/offload"
	"github.com/dd0wney/cluso-frlayout/pkg/pubsub"
	"github.com/dd0wney/cluso-frlayout/pkg/server"
	"github.com/dd0wney/cluso-frlayout/pkg/service"
	frtls "github.com/dd0wney/cluso-frlayout/pkg/tls"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve layouts over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Server.Address = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			gs, err := buildServer(ctx, cfg, logger)
			if err != nil {
				return err
			}
			gs.SetReloadFunc(func() error {
				path, _ := cmd.Flags().GetString("config")
				next, err := config.Load(path)
				if err != nil {
					return err
				}
				// only the log level is reloadable; the rest needs a restart
				logger.SetLevel(logging.ParseLevel(next.Log.Level))
				return nil
			})
			return gs.Run(ctx)
		},
	}
	cmd.Flags().String("addr", "", "listen address, overriding server.address")
	return cmd
}

// buildServer wires every configured component behind a GracefulServer.
// Components opened here are closed by the server's shutdown hooks.
func buildServer(ctx context.Context, cfg *config.Config, logger logging.Logger) (*server.GracefulServer, error) {
	reg := metrics.NewRegistry()
	bus := pubsub.NewBus(256)
	hc := health.NewHealthChecker(version)

	var hooks []func(context.Context) error
	cleanup := func() {
		for i := len(hooks) - 1; i >= 0; i-- {
			hooks[i](context.Background())
		}
	}
	hooks = append(hooks, func(context.Context) error { bus.Shutdown(); return nil })

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		cleanup()
		return nil, err
	}
	var ping func(context.Context) error
	if store != nil {
		hooks = append(hooks, func(context.Context) error { return store.Close() })
		if p, ok := store.(pinger); ok {
			ping = p.Ping
		}
	}
	storeName := cfg.Store.Driver
	hc.RegisterReadinessCheck("store", health.StoreCheck(storeName, ping, 2*time.Second))

	exporter, err := openExporter(ctx, cfg.Export)
	if err != nil {
		cleanup()
		return nil, err
	}

	var sinks []offload.Sink
	var publisher *offload.Publisher
	if cfg.Transport.Address != "" {
		publisher, err = offload.NewPublisher(offload.NewMangosFactory(), offload.PublisherConfig{
			Address: cfg.Transport.Address,
			Logger:  logger,
			Metrics: reg,
		})
		if err == nil {
			err = publisher.Start()
		}
		if err != nil {
			cleanup()
			return nil, err
		}
		hooks = append(hooks, func(context.Context) error { return publisher.Stop() })
		sinks = append(sinks, publisher, bus)
	}
	hc.RegisterReadinessCheck("publisher", health.PublisherCheck(publisher != nil, func() bool {
		return publisher.Running()
	}))

	svc, err := service.New(service.Options{
		Defaults: cfg.Layout,
		Timeout:  cfg.Server.RunTimeout,
		Store:    store,
		Exporter: exporter,
		Bus:      bus,
		Sinks:    sinks,
		Metrics:  reg,
		Logger:   logger,
	})
	if err != nil {
		cleanup()
		return nil, err
	}
	hc.RegisterCheck("layout_runs", health.RunsCheck(svc.Active, cfg.Server.MaxActiveRuns))
	hc.RegisterCheck("memory", health.MemoryCheck(nil))
	hc.RegisterLivenessCheck("alive", health.SimpleCheck("alive"))

	apiCfg := api.Config{
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
		MaxQueryDepth: cfg.Server.MaxQueryDepth,
		CORSOrigins:   cfg.Server.CORSOrigins,
	}
	if rl := cfg.Server.RateLimit; rl != nil {
		limit := middleware.DefaultRateLimitConfig()
		limit.RequestsPerSecond = rl.RequestsPerSecond
		limit.BurstSize = rl.Burst
		apiCfg.RateLimit = &limit
	}
	if len(cfg.Server.TrustedProxies) > 0 {
		nets, err := middleware.ParseTrustedProxies(strings.Join(cfg.Server.TrustedProxies, ","))
		if err != nil {
			cleanup()
			return nil, err
		}
		apiCfg.TrustedProxies = nets
	}

	tlsCfg, err := frtls.LoadTLSConfig(cfg.Server.TLS)
	if err != nil {
		cleanup()
		return nil, err
	}
	apiCfg.TLS = tlsCfg != nil

	var validator auth.TokenValidator
	if cfg.AuthEnabled() {
		mgr, err := auth.NewJWTManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TTL)
		if err != nil {
			cleanup()
			return nil, err
		}
		validator = mgr
	} else {
		logger.Warn("authentication disabled; every route is open")
	}

	srv, err := api.New(api.Options{
		Service:   svc,
		Validator: validator,
		Metrics:   reg,
		Health:    hc,
		Logger:    logger,
		Version:   version,
		Config:    apiCfg,
	})
	if err != nil {
		cleanup()
		return nil, err
	}

	started := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			reg.UpdateSystemMetrics(started)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	gs := server.NewGracefulServer(cfg.Server.Address, srv.Handler(), logger)
	gs.SetShutdownTimeout(cfg.Server.ShutdownTimeout)
	gs.SetTLSConfig(tlsCfg)
	for _, hook := range hooks {
		gs.OnShutdown(hook)
	}
	return gs, nil
}
