package layout

import (
	"fmt"
	"sort"
)

// EasingFunc maps linear progress t in [0,1] to eased progress.
type EasingFunc func(t float64) float64

// DefaultEasing is used when Config.Easing is empty.
const DefaultEasing = "quadraticInOut"

var easings = map[string]EasingFunc{
	"linear": func(t float64) float64 { return t },
	"quadraticIn": func(t float64) float64 {
		return t * t
	},
	"quadraticOut": func(t float64) float64 {
		return t * (2 - t)
	},
	"quadraticInOut": func(t float64) float64 {
		t *= 2
		if t < 1 {
			return 0.5 * t * t
		}
		t--
		return -0.5 * (t*(t-2) - 1)
	},
	"cubicIn": func(t float64) float64 {
		return t * t * t
	},
	"cubicOut": func(t float64) float64 {
		t--
		return t*t*t + 1
	},
	"cubicInOut": func(t float64) float64 {
		t *= 2
		if t < 1 {
			return 0.5 * t * t * t
		}
		t -= 2
		return 0.5 * (t*t*t + 2)
	},
}

// Easing looks up a named easing. The empty name resolves to DefaultEasing.
func Easing(name string) (EasingFunc, error) {
	if name == "" {
		name = DefaultEasing
	}
	fn, ok := easings[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEasing, name)
	}
	return fn, nil
}

// EasingNames lists the registered easing names in sorted order.
func EasingNames() []string {
	names := make([]string, 0, len(easings))
	for name := range easings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
