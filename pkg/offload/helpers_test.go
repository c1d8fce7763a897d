package offload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dd0wney/cluso-frlayout/pkg/layout"
)

type recordingHost struct {
	mu        sync.Mutex
	nodes     []layout.NodeRecord
	edges     []layout.EdgeRecord
	commits   int
	commitErr error
}

func newRecordingHost(n int) *recordingHost {
	h := &recordingHost{}
	for i := 0; i < n; i++ {
		h.nodes = append(h.nodes, layout.NodeRecord{
			ID:       fmt.Sprintf("n%d", i),
			Position: layout.Position{X: float64(i % 5), Y: float64(i / 5)},
		})
		if i > 0 {
			h.edges = append(h.edges, layout.EdgeRecord{
				Source: fmt.Sprintf("n%d", i-1),
				Target: fmt.Sprintf("n%d", i),
			})
		}
	}
	return h
}

func (h *recordingHost) Nodes() []layout.NodeRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]layout.NodeRecord(nil), h.nodes...)
}

func (h *recordingHost) Edges() []layout.EdgeRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]layout.EdgeRecord(nil), h.edges...)
}

func (h *recordingHost) Commit(updates []layout.PositionUpdate) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.commitErr != nil {
		return h.commitErr
	}
	h.commits++
	for _, u := range updates {
		for i := range h.nodes {
			if h.nodes[i].ID == u.ID {
				h.nodes[i].Position = u.Position
			}
		}
	}
	return nil
}

func (h *recordingHost) commitCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.commits
}

// collectingSink records every delivered snapshot and when it arrived.
type collectingSink struct {
	mu    sync.Mutex
	snaps []Snapshot
	times []time.Time
}

func (s *collectingSink) Deliver(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
	s.times = append(s.times, time.Now())
	return nil
}

func (s *collectingSink) snapshots() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Snapshot(nil), s.snaps...)
}

// chanFactory is an in-memory PUB/SUB transport. Every SUB socket created by
// the factory receives what the PUB socket sends once it has dialed.
type chanFactory struct {
	mu   sync.Mutex
	subs []*chanSocket
}

type chanSocket struct {
	f        *chanFactory
	in       chan []byte
	topic    []byte
	deadline time.Duration
	closed   chan struct{}
	once     sync.Once
}

var errSocketClosed = errors.New("socket closed")

func (f *chanFactory) NewPubSocket() (ListenSocket, error) {
	return &chanSocket{f: f, closed: make(chan struct{})}, nil
}

func (f *chanFactory) NewSubSocket() (SubscribeSocket, error) {
	return &chanSocket{f: f, in: make(chan []byte, 64), closed: make(chan struct{})}, nil
}

func (s *chanSocket) Listen(string) error { return nil }

func (s *chanSocket) Dial(string) error {
	s.f.mu.Lock()
	s.f.subs = append(s.f.subs, s)
	s.f.mu.Unlock()
	return nil
}

func (s *chanSocket) Subscribe(topic []byte) error {
	s.topic = topic
	return nil
}

func (s *chanSocket) SetRecvDeadline(d time.Duration) error {
	s.deadline = d
	return nil
}

func (s *chanSocket) Send(data []byte) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	for _, sub := range s.f.subs {
		if len(data) < len(sub.topic) || string(data[:len(sub.topic)]) != string(sub.topic) {
			continue
		}
		select {
		case sub.in <- append([]byte(nil), data...):
		default:
		}
	}
	return nil
}

func (s *chanSocket) Recv() ([]byte, error) {
	select {
	case msg := <-s.in:
		return msg, nil
	case <-s.closed:
		return nil, errSocketClosed
	case <-time.After(s.deadline):
		return nil, errors.New("recv timeout")
	}
}

func (s *chanSocket) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}
