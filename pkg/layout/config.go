package layout

import (
	"fmt"
	"time"

	"github.com/dd0wney/cluso-frlayout/pkg/validation"
)

// Config holds every recognized layout option.
type Config struct {
	// AutoArea derives the area from the node count (n²) on every iteration.
	AutoArea bool    `json:"autoArea" yaml:"auto_area"`
	Area     float64 `json:"area" yaml:"area" validate:"gt=0"`
	// Gravity pulls nodes toward the center so components don't drift apart.
	Gravity float64 `json:"gravity" yaml:"gravity" validate:"gte=0"`
	// Speed damps accumulated forces; higher converges faster but less precisely.
	Speed      float64 `json:"speed" yaml:"speed" validate:"gt=0,lte=1"`
	Iterations int     `json:"iterations" yaml:"iterations" validate:"gt=0"`

	RefreshIntervalMS     int `json:"refreshInterval" yaml:"refresh_interval" validate:"gte=0"`
	RefreshIterationBatch int `json:"refreshIterationBatch" yaml:"refresh_iteration_batch" validate:"gte=1"`

	Fit                 bool    `json:"fit" yaml:"fit"`
	Padding             float64 `json:"padding" yaml:"padding" validate:"gte=0"`
	Animate             bool    `json:"animate" yaml:"animate"`
	AnimationDurationMS int     `json:"animationDuration" yaml:"animation_duration" validate:"gte=0"`
	Easing              string  `json:"easing,omitempty" yaml:"easing,omitempty"`
	DurationMS          int     `json:"duration" yaml:"duration" validate:"gte=0"`

	RepulsionScale  float64 `json:"repulsionScale" yaml:"repulsion_scale" validate:"gt=0"`
	AttractionScale float64 `json:"attractionScale" yaml:"attraction_scale" validate:"gt=0"`

	// MinSpacing and MaxSpread bound the rescaled output when animating.
	MinSpacing float64 `json:"minSpacing" yaml:"min_spacing" validate:"gt=0"`
	MaxSpread  float64 `json:"maxSpread" yaml:"max_spread" validate:"gt=0"`

	// CenterOnViewport makes gravity pull toward the viewport center
	// instead of the origin when the host reports a viewport.
	CenterOnViewport bool `json:"centerOnViewport" yaml:"center_on_viewport"`
}

// DefaultConfig returns the classic defaults.
func DefaultConfig() *Config {
	return &Config{
		AutoArea:              true,
		Area:                  1,
		Gravity:               10,
		Speed:                 0.1,
		Iterations:            1000,
		RefreshIntervalMS:     16,
		RefreshIterationBatch: 10,
		Fit:                   true,
		Padding:               30,
		AnimationDurationMS:   500,
		Easing:                DefaultEasing,
		DurationMS:            500,
		RepulsionScale:        1,
		AttractionScale:       1,
		MinSpacing:            128,
		MaxSpread:             200,
	}
}

// Validate checks every option and reports all problems at once.
func (c *Config) Validate() error {
	if c == nil {
		return ErrMissingConfig
	}
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cv := validation.NewConfigValidator("layout").
		Finite("Area", c.Area).
		Finite("Gravity", c.Gravity).
		Finite("RepulsionScale", c.RepulsionScale).
		Finite("AttractionScale", c.AttractionScale).
		Finite("Padding", c.Padding).
		When(c.Easing != "", func(cv *validation.ConfigValidator) {
			cv.OneOf("Easing", c.Easing, EasingNames())
		}).
		Custom("MaxSpread", func() error {
			if c.MaxSpread < c.MinSpacing {
				return fmt.Errorf("max spread %g is below min spacing %g", c.MaxSpread, c.MinSpacing)
			}
			return nil
		})
	if err := cv.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// RefreshInterval is the offloaded snapshot cadence.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMS) * time.Millisecond
}

// AnimationDuration prefers animationDuration and falls back to duration.
func (c *Config) AnimationDuration() time.Duration {
	if c.AnimationDurationMS > 0 {
		return time.Duration(c.AnimationDurationMS) * time.Millisecond
	}
	return time.Duration(c.DurationMS) * time.Millisecond
}

// EasingFunc resolves the configured easing.
func (c *Config) EasingFunc() (EasingFunc, error) {
	return Easing(c.Easing)
}

func (c *Config) area(n int) float64 {
	if c.AutoArea {
		return float64(n * n)
	}
	return c.Area
}
