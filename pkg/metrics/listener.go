package metrics

import (
	"github.com/dd0wney/cluso-frlayout/pkg/layout"
)

// LayoutListener feeds engine lifecycle events into a Registry.
type LayoutListener struct {
	r *Registry
}

// NewLayoutListener returns a listener bound to r
func NewLayoutListener(r *Registry) *LayoutListener {
	return &LayoutListener{r: r}
}

// HandleEvent implements layout.Listener
func (l *LayoutListener) HandleEvent(ev layout.Event) {
	switch ev.Type {
	case layout.EventStart:
		l.r.LayoutActiveRuns.Inc()
		l.r.LayoutGraphNodes.Observe(float64(ev.Nodes))
		l.r.LayoutGraphEdges.Observe(float64(ev.Edges))
	case layout.EventStop:
		// A stop from idle never had a matching start.
		if ev.RunID == "" {
			return
		}
		l.r.LayoutActiveRuns.Dec()
		l.r.RecordLayoutRun(ev.Iterations, ev.Remaining, ev.Elapsed)
	}
}
