// Package server runs the layout HTTP server with graceful shutdown and
// SIGHUP-triggered reloads.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-frlayout/pkg/logging"
)

// DefaultShutdownTimeout bounds connection draining.
const DefaultShutdownTimeout = 30 * time.Second

// ReloadFunc is called on SIGHUP.
type ReloadFunc func() error

// GracefulServer wraps an http.Server. Cancelling the context given to Run
// drains connections, then runs the registered shutdown hooks in reverse
// order.
type GracefulServer struct {
	server          *http.Server
	logger          logging.Logger
	shutdownTimeout time.Duration

	mu       sync.Mutex
	addr     net.Addr
	ready    chan struct{}
	closing  chan struct{}
	once     sync.Once
	reloadFn ReloadFunc
	hooks    []func(context.Context) error
	tls      *tls.Config
}

// NewGracefulServer creates a server for addr. There is no write timeout:
// layouts and event streams can outlive any fixed bound.
func NewGracefulServer(addr string, handler http.Handler, logger logging.Logger) *GracefulServer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &GracefulServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       60 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		logger:          logger.With(logging.Component("server")),
		shutdownTimeout: DefaultShutdownTimeout,
		ready:           make(chan struct{}),
		closing:         make(chan struct{}),
	}
}

// SetShutdownTimeout overrides DefaultShutdownTimeout.
func (gs *GracefulServer) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		gs.shutdownTimeout = d
	}
}

// OnShutdown registers a hook run after the listener closes.
func (gs *GracefulServer) OnShutdown(hook func(context.Context) error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.hooks = append(gs.hooks, hook)
}

// SetTLSConfig makes Run serve HTTPS. A nil config serves plain HTTP.
func (gs *GracefulServer) SetTLSConfig(cfg *tls.Config) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.tls = cfg
}

// SetReloadFunc sets the SIGHUP handler.
func (gs *GracefulServer) SetReloadFunc(fn ReloadFunc) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.reloadFn = fn
}

// Run listens and serves until ctx is done, then shuts down gracefully.
func (gs *GracefulServer) Run(ctx context.Context) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	ln, err := net.Listen("tcp", gs.server.Addr)
	gs.mu.Lock()
	if err == nil {
		gs.addr = ln.Addr()
		if gs.tls != nil {
			ln = tls.NewListener(ln, gs.tls)
		}
	}
	gs.mu.Unlock()
	close(gs.ready)
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		gs.logger.Info("listening", logging.Addr(ln.Addr().String()))
		serveErr <- gs.server.Serve(ln)
	}()

	for {
		select {
		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-hup:
			if err := gs.Reload(); err != nil {
				gs.logger.Warn("reload failed", logging.Error(err))
			}
		case <-ctx.Done():
			return gs.Shutdown()
		}
	}
}

// Addr blocks until Run has tried to bind and returns the bound address, or
// nil if binding failed.
func (gs *GracefulServer) Addr() net.Addr {
	<-gs.ready
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.addr
}

// Shutdown drains connections and runs the hooks. Only the first call does
// any work.
func (gs *GracefulServer) Shutdown() error {
	var err error
	gs.once.Do(func() {
		close(gs.closing)
		ctx, cancel := context.WithTimeout(context.Background(), gs.shutdownTimeout)
		defer cancel()

		timer := logging.StartTimer(gs.logger, "shutdown", logging.Duration("timeout", gs.shutdownTimeout))
		errs := []error{gs.server.Shutdown(ctx)}

		gs.mu.Lock()
		hooks := gs.hooks
		gs.mu.Unlock()
		for i := len(hooks) - 1; i >= 0; i-- {
			errs = append(errs, hooks[i](ctx))
		}

		err = errors.Join(errs...)
		if err != nil {
			timer.EndError(err)
		} else {
			timer.End()
		}
	})
	return err
}

// IsShuttingDown reports whether Shutdown has started.
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.closing:
		return true
	default:
		return false
	}
}

// Reload calls the reload function, if any.
func (gs *GracefulServer) Reload() error {
	gs.mu.Lock()
	fn := gs.reloadFn
	gs.mu.Unlock()
	if fn == nil {
		gs.logger.Info("reload requested but nothing to reload")
		return nil
	}
	if err := fn(); err != nil {
		return err
	}
	gs.logger.Info("reload complete")
	return nil
}
