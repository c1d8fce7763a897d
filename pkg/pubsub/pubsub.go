package pubsub

import (
	"context"
	"errors"
	"sync"

	"github.com/dd0wney/cluso-frlayout/pkg/layout"
	"github.com/dd0wney/cluso-frlayout/pkg/offload"
)

// AllRuns is the topic that receives messages for every run.
const AllRuns = "*"

// ErrShutdown is returned when subscribing to a bus that was shut down.
var ErrShutdown = errors.New("pubsub: bus shut down")

// Message is one item on the bus: either a lifecycle event or a position
// snapshot from an offloaded run.
type Message struct {
	RunID    string
	Event    *layout.Event
	Snapshot *offload.Snapshot
}

// Bus fans layout events and snapshots out to in-process subscribers.
// Topics are run ids; AllRuns sees everything.
//
// Bus implements both layout.Listener and offload.Sink, so one value can be
// registered on an engine and on its runner.
type Bus struct {
	subscribers map[string]map[*Subscription]bool
	mu          sync.RWMutex
	shutdown    chan struct{}
	shutdownMu  sync.Mutex
	isShutdown  bool
	bufferSize  int
}

// Subscription represents a subscription to a topic
type Subscription struct {
	topic     string
	channel   chan Message
	bus       *Bus
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewBus creates a bus whose subscriptions buffer bufferSize messages.
// Messages to a full subscription are dropped.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &Bus{
		subscribers: make(map[string]map[*Subscription]bool),
		shutdown:    make(chan struct{}),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a new subscription to a topic
func (b *Bus) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return nil, ErrShutdown
	}
	b.shutdownMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		topic:   topic,
		channel: make(chan Message, b.bufferSize),
		bus:     b,
		ctx:     subCtx,
		cancel:  cancel,
	}

	b.mu.Lock()
	if b.subscribers[topic] == nil {
		b.subscribers[topic] = make(map[*Subscription]bool)
	}
	b.subscribers[topic][sub] = true
	b.mu.Unlock()

	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-b.shutdown:
			// Shutdown closes every channel itself.
		}
	}()

	return sub, nil
}

// Publish sends msg to the subscribers of msg.RunID and of AllRuns.
// Sends never block; a full subscription misses the message. Channels are
// only closed under the write lock, so sending under the read lock is safe.
func (b *Bus) Publish(msg Message) {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return
	}
	b.shutdownMu.Unlock()

	b.mu.RLock()
	defer b.mu.RUnlock()

	topics := []string{msg.RunID, AllRuns}
	if msg.RunID == AllRuns {
		topics = topics[:1]
	}
	for _, topic := range topics {
		for sub := range b.subscribers[topic] {
			select {
			case sub.channel <- msg:
			default:
			}
		}
	}
}

// HandleEvent implements layout.Listener
func (b *Bus) HandleEvent(ev layout.Event) {
	b.Publish(Message{RunID: ev.RunID, Event: &ev})
}

// Deliver implements offload.Sink
func (b *Bus) Deliver(_ context.Context, s offload.Snapshot) error {
	b.Publish(Message{RunID: s.RunID, Snapshot: &s})
	return nil
}

// SubscriberCount returns the number of subscribers for a topic
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}

// Shutdown closes all subscriptions and shuts down the bus
func (b *Bus) Shutdown() {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return
	}
	b.isShutdown = true
	b.shutdownMu.Unlock()

	close(b.shutdown)

	b.mu.Lock()
	for topic := range b.subscribers {
		for sub := range b.subscribers[topic] {
			sub.close()
		}
		delete(b.subscribers, topic)
	}
	b.mu.Unlock()
}

// Channel returns the subscription's message channel
func (s *Subscription) Channel() <-chan Message {
	return s.channel
}

// Unsubscribe removes the subscription
func (s *Subscription) Unsubscribe() {
	s.cancel()

	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if s.bus.subscribers[s.topic] != nil {
		delete(s.bus.subscribers[s.topic], s)
		if len(s.bus.subscribers[s.topic]) == 0 {
			delete(s.bus.subscribers, s.topic)
		}
	}

	s.close()
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.channel)
	})
}

var (
	_ layout.Listener = (*Bus)(nil)
	_ offload.Sink    = (*Bus)(nil)
)
