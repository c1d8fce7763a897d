package layout

import "time"

// EventType names a lifecycle notification.
type EventType string

const (
	EventStart       EventType = "layoutstart"
	EventReady       EventType = "layoutready"
	EventInterpolate EventType = "interpolate"
	EventStop        EventType = "layoutstop"
)

// Event is delivered to listeners at lifecycle transitions.
type Event struct {
	Type       EventType     `json:"type"`
	RunID      string        `json:"runId"`
	Nodes      int           `json:"nodes"`
	Edges      int           `json:"edges"`
	Iterations int           `json:"iterations"` // completed so far
	Remaining  int           `json:"remaining"`
	Elapsed    time.Duration `json:"elapsed"`
	Time       time.Time     `json:"time"`
}

// Listener receives lifecycle events. Events are delivered synchronously on
// the goroutine that caused the transition, after the engine lock is released.
type Listener interface {
	HandleEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) HandleEvent(ev Event) { f(ev) }

// ListenerFuncs is a callback set; nil callbacks are skipped.
type ListenerFuncs struct {
	OnStart       func(Event)
	OnReady       func(Event)
	OnInterpolate func(Event)
	OnStop        func(Event)
}

func (l ListenerFuncs) HandleEvent(ev Event) {
	var fn func(Event)
	switch ev.Type {
	case EventStart:
		fn = l.OnStart
	case EventReady:
		fn = l.OnReady
	case EventInterpolate:
		fn = l.OnInterpolate
	case EventStop:
		fn = l.OnStop
	}
	if fn != nil {
		fn(ev)
	}
}
