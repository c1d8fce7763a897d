package offload

import (
	"context"
	"fmt"
	"sync"

	"github.com/dd0wney/cluso-frlayout/pkg/logging"
	"github.com/dd0wney/cluso-frlayout/pkg/metrics"
)

// Publisher broadcasts snapshot frames on a PUB socket.
// Subscribers that are not connected simply miss frames.
type Publisher struct {
	socket    ListenSocket
	addr      string
	logger    logging.Logger
	metrics   *metrics.Registry
	running   bool
	runningMu sync.Mutex
}

// PublisherConfig configures the publisher.
type PublisherConfig struct {
	Address string
	Logger  logging.Logger
	Metrics *metrics.Registry
}

// NewPublisher creates a publisher; Start binds it.
func NewPublisher(factory SocketFactory, config PublisherConfig) (*Publisher, error) {
	socket, err := factory.NewPubSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Publisher{
		socket:  socket,
		addr:    config.Address,
		logger:  logger.With(logging.Component("publisher")),
		metrics: config.Metrics,
	}, nil
}

// Start binds the socket.
func (p *Publisher) Start() error {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if p.running {
		return ErrAlreadyRunning
	}
	if err := p.socket.Listen(p.addr); err != nil {
		return fmt.Errorf("failed to bind PUB socket to %s: %w", p.addr, err)
	}
	p.running = true
	if p.metrics != nil {
		p.metrics.OffloadPublishersActive.Inc()
	}
	p.logger.Info("snapshot publisher started", logging.Addr(p.addr))
	return nil
}

// Stop closes the socket.
func (p *Publisher) Stop() error {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if !p.running {
		return nil
	}
	p.running = false
	if p.metrics != nil {
		p.metrics.OffloadPublishersActive.Dec()
	}
	if err := p.socket.Close(); err != nil {
		p.logger.Warn("failed to close PUB socket", logging.Error(err))
	}
	p.logger.Info("snapshot publisher stopped")
	return nil
}

// Running reports whether the socket is bound.
func (p *Publisher) Running() bool {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()
	return p.running
}

// Deliver implements Sink.
func (p *Publisher) Deliver(_ context.Context, s Snapshot) error {
	p.runningMu.Lock()
	running := p.running
	p.runningMu.Unlock()
	if !running {
		return fmt.Errorf("publisher on %s is not running", p.addr)
	}

	msg, err := EncodeFrame(s)
	if err != nil {
		return err
	}
	if err := p.socket.Send(msg); err != nil {
		return fmt.Errorf("failed to publish snapshot %d: %w", s.Seq, err)
	}
	if p.metrics != nil {
		p.metrics.RecordFrame(len(msg))
	}
	return nil
}
