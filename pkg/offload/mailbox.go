package offload

import (
	"sync"

	"github.com/dd0wney/cluso-frlayout/pkg/layout"
)

// Snapshot is one offloaded position message: the working coordinates of
// every node at an iteration boundary, in host order.
type Snapshot struct {
	RunID     string                  `json:"runId"`
	Seq       uint64                  `json:"seq"`
	Iteration int                     `json:"iteration"`
	Final     bool                    `json:"final,omitempty"`
	Positions []layout.PositionUpdate `json:"positions"`
}

// Mailbox is a single-slot, coalescing hand-off between a producer and one
// consumer. Posting over an unread snapshot replaces it, so the consumer
// always sees the freshest positions and memory stays bounded.
type Mailbox struct {
	mu      sync.Mutex
	slot    *Snapshot
	closed  bool
	ready   chan struct{}
	dropped uint64
}

// NewMailbox creates an empty mailbox
func NewMailbox() *Mailbox {
	return &Mailbox{ready: make(chan struct{}, 1)}
}

// Post stores s, discarding any snapshot the consumer has not taken yet.
// It reports whether a stale snapshot was replaced.
func (m *Mailbox) Post(s Snapshot) (bool, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false, ErrMailboxClosed
	}
	replaced := m.slot != nil
	if replaced {
		m.dropped++
	}
	m.slot = &s
	m.mu.Unlock()

	m.signal()
	return replaced, nil
}

// Take removes and returns the pending snapshot, if any.
func (m *Mailbox) Take() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slot == nil {
		return Snapshot{}, false
	}
	s := *m.slot
	m.slot = nil
	return s, true
}

// Ready is signalled after every Post and on Close. A single signal may
// stand for several posts.
func (m *Mailbox) Ready() <-chan struct{} {
	return m.ready
}

// Close stops further posts. A pending snapshot can still be taken.
func (m *Mailbox) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()
	m.signal()
}

// Drained reports whether the mailbox is closed and empty.
func (m *Mailbox) Drained() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed && m.slot == nil
}

// Dropped returns how many snapshots were discarded unread.
func (m *Mailbox) Dropped() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

func (m *Mailbox) signal() {
	select {
	case m.ready <- struct{}{}:
	default:
	}
}
