package offload

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dd0wney/cluso-frlayout/pkg/layout"
	"github.com/dd0wney/cluso-frlayout/pkg/logging"
)

// Applier consumes received snapshots.
type Applier interface {
	Apply(s Snapshot) error
}

// ApplierFunc adapts a function to Applier.
type ApplierFunc func(s Snapshot) error

// Apply calls f
func (f ApplierFunc) Apply(s Snapshot) error { return f(s) }

// HostApplier commits received positions to a host.
type HostApplier struct {
	Host layout.Host
}

// Apply implements Applier
func (a HostApplier) Apply(s Snapshot) error {
	return a.Host.Commit(s.Positions)
}

// Subscriber receives snapshot frames from a publisher. Frames land in a
// coalescing mailbox, so a slow applier only ever sees the freshest one.
type Subscriber struct {
	socket      SubscribeSocket
	addr        string
	recvTimeout time.Duration
	logger      logging.Logger
	mailbox     *Mailbox

	stopCh    chan struct{}
	wg        sync.WaitGroup
	running   bool
	runningMu sync.Mutex

	// newest sequence number per open run, to drop reordered frames.
	// Runs leave the map on their final frame and are remembered in
	// finished so late frames of them stay dropped.
	lastSeq  map[string]uint64
	finished [finishedRuns]string
	nextDone int
}

// finishedRuns bounds how many completed run ids a subscriber remembers.
const finishedRuns = 16

// SubscriberConfig configures the subscriber.
type SubscriberConfig struct {
	Address     string
	RecvTimeout time.Duration
	Logger      logging.Logger
}

// NewSubscriber creates a subscriber; Start connects it.
func NewSubscriber(factory SocketFactory, config SubscriberConfig) (*Subscriber, error) {
	socket, err := factory.NewSubSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create SUB socket: %w", err)
	}

	timeout := config.RecvTimeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Subscriber{
		socket:      socket,
		addr:        config.Address,
		recvTimeout: timeout,
		logger:      logger.With(logging.Component("subscriber")),
		mailbox:     NewMailbox(),
		stopCh:      make(chan struct{}),
		lastSeq:     make(map[string]uint64),
	}, nil
}

// Start dials the publisher and begins receiving.
func (s *Subscriber) Start() error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	if err := s.socket.Dial(s.addr); err != nil {
		return fmt.Errorf("failed to dial %s: %w", s.addr, err)
	}
	if err := s.socket.Subscribe([]byte(framePrefix)); err != nil {
		s.socket.Close()
		return err
	}
	if err := s.socket.SetRecvDeadline(s.recvTimeout); err != nil {
		s.socket.Close()
		return err
	}

	s.running = true
	s.wg.Add(1)
	go s.recvLoop()

	s.logger.Info("snapshot subscriber connected", logging.Addr(s.addr))
	return nil
}

// Stop stops receiving and closes the socket. Run returns once the
// mailbox is drained.
func (s *Subscriber) Stop() error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	if !s.running {
		return nil
	}
	close(s.stopCh)
	s.running = false
	s.wg.Wait()
	s.socket.Close()
	s.mailbox.Close()

	s.logger.Info("snapshot subscriber stopped")
	return nil
}

// Run applies received snapshots until ctx is done, the subscriber is
// stopped, or, when untilFinal is set, the final snapshot of a run has been
// applied.
func (s *Subscriber) Run(ctx context.Context, applier Applier, untilFinal bool) error {
	for !s.mailbox.Drained() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.mailbox.Ready():
		}

		snap, ok := s.mailbox.Take()
		if !ok {
			continue
		}
		if err := applier.Apply(snap); err != nil {
			s.logger.Warn("failed to apply snapshot",
				logging.RunID(snap.RunID),
				logging.Int("seq", int(snap.Seq)),
				logging.Error(err),
			)
			continue
		}
		if untilFinal && snap.Final {
			return nil
		}
	}
	return nil
}

func (s *Subscriber) recvLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		msg, err := s.socket.Recv()
		if err != nil {
			continue // timeout
		}

		snap, err := DecodeFrame(msg)
		if err != nil {
			s.logger.Warn("dropping snapshot frame", logging.Error(err))
			continue
		}
		if !s.accept(snap) {
			continue
		}
		if _, err := s.mailbox.Post(snap); err != nil {
			return
		}
	}
}

// accept reports whether snap is newer than anything seen for its run.
// Only the receive loop calls it.
func (s *Subscriber) accept(snap Snapshot) bool {
	for _, id := range s.finished {
		if id != "" && id == snap.RunID {
			return false
		}
	}
	if snap.Seq <= s.lastSeq[snap.RunID] {
		return false
	}
	if !snap.Final {
		s.lastSeq[snap.RunID] = snap.Seq
		return true
	}
	delete(s.lastSeq, snap.RunID)
	s.finished[s.nextDone] = snap.RunID
	s.nextDone = (s.nextDone + 1) % finishedRuns
	return true
}
