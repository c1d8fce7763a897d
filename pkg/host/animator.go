package host

import (
	"math"
	"time"

	"github.com/dd0wney/cluso-frlayout/pkg/layout"
)

// DefaultFPS is the frame rate used when none is configured.
const DefaultFPS = 60

// Animator wraps a host so that each commit is played back as a sequence of
// eased frames from the current positions to the committed ones. The last
// frame is always the exact target.
type Animator struct {
	inner    layout.Host
	ease     layout.EasingFunc
	duration time.Duration
	frame    time.Duration
	sleep    func(time.Duration)
}

// NewAnimator builds an animator from the layout's easing and duration.
func NewAnimator(inner layout.Host, cfg *layout.Config, fps int) (*Animator, error) {
	ease, err := cfg.EasingFunc()
	if err != nil {
		return nil, err
	}
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Animator{
		inner:    inner,
		ease:     ease,
		duration: cfg.AnimationDuration(),
		frame:    time.Second / time.Duration(fps),
		sleep:    time.Sleep,
	}, nil
}

// Nodes implements layout.Host
func (a *Animator) Nodes() []layout.NodeRecord { return a.inner.Nodes() }

// Edges implements layout.Host
func (a *Animator) Edges() []layout.EdgeRecord { return a.inner.Edges() }

// Viewport forwards to the wrapped host when it has one.
func (a *Animator) Viewport() (float64, float64, bool) {
	if vp, ok := a.inner.(layout.Viewport); ok {
		return vp.Viewport()
	}
	return 0, 0, false
}

// Commit plays the transition and blocks until the last frame is committed.
func (a *Animator) Commit(updates []layout.PositionUpdate) error {
	frames := int(math.Ceil(float64(a.duration) / float64(a.frame)))
	if frames <= 1 {
		return a.inner.Commit(updates)
	}

	from := make(map[string]layout.Position, len(updates))
	for _, n := range a.inner.Nodes() {
		from[n.ID] = n.Position
	}

	for i := 1; i < frames; i++ {
		t := a.ease(float64(i) / float64(frames))
		if err := a.inner.Commit(Interpolate(from, updates, t)); err != nil {
			return err
		}
		a.sleep(a.frame)
	}
	return a.inner.Commit(updates)
}

// Interpolate returns the positions a fraction t of the way from `from` to
// each update's target. Nodes missing from `from` jump straight to the target.
func Interpolate(from map[string]layout.Position, to []layout.PositionUpdate, t float64) []layout.PositionUpdate {
	out := make([]layout.PositionUpdate, len(to))
	for i, u := range to {
		start, ok := from[u.ID]
		if !ok {
			out[i] = u
			continue
		}
		out[i] = layout.PositionUpdate{
			ID: u.ID,
			Position: layout.Position{
				X: start.X + (u.Position.X-start.X)*t,
				Y: start.Y + (u.Position.Y-start.Y)*t,
			},
		}
	}
	return out
}

var (
	_ layout.Host     = (*Animator)(nil)
	_ layout.Viewport = (*Animator)(nil)
)
