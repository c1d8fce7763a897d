package validation

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// ConfigValidator checks cross-field rules that struct tags cannot express.
// Calls chain; every failure is kept and Validate joins them.
//
//	err := validation.NewConfigValidator("layout").
//		Finite("Gravity", c.Gravity).
//		When(c.Easing != "", func(v *validation.ConfigValidator) {
//			v.OneOf("Easing", c.Easing, names)
//		}).
//		Validate()
type ConfigValidator struct {
	scope string
	errs  []error
}

// NewConfigValidator prefixes every message with scope.
func NewConfigValidator(scope string) *ConfigValidator {
	return &ConfigValidator{scope: scope}
}

func (v *ConfigValidator) fail(field string, err error) *ConfigValidator {
	v.errs = append(v.errs, fmt.Errorf("%s.%s: %w", v.scope, field, err))
	return v
}

// Required rejects an empty string.
func (v *ConfigValidator) Required(field, value string) *ConfigValidator {
	if value != "" {
		return v
	}
	return v.fail(field, errors.New("required field is empty"))
}

// Finite rejects NaN and ±Inf, which validator's numeric tags let through.
func (v *ConfigValidator) Finite(field string, value float64) *ConfigValidator {
	if !math.IsNaN(value) && !math.IsInf(value, 0) {
		return v
	}
	return v.fail(field, fmt.Errorf("value %v must be finite", value))
}

// OneOf accepts only the listed values.
func (v *ConfigValidator) OneOf(field, value string, allowed []string) *ConfigValidator {
	if slices.Contains(allowed, value) {
		return v
	}
	return v.fail(field, fmt.Errorf("value %q must be one of %v", value, allowed))
}

// Custom records fn's error, if any, wrapped so errors.Is still matches it.
func (v *ConfigValidator) Custom(field string, fn func() error) *ConfigValidator {
	if err := fn(); err != nil {
		v.fail(field, err)
	}
	return v
}

// When runs checks only if cond holds.
func (v *ConfigValidator) When(cond bool, checks func(*ConfigValidator)) *ConfigValidator {
	if cond {
		checks(v)
	}
	return v
}

func (v *ConfigValidator) HasErrors() bool { return len(v.errs) > 0 }

func (v *ConfigValidator) Errors() []error { return v.errs }

// Validate returns the joined failures, or nil.
func (v *ConfigValidator) Validate() error {
	return errors.Join(v.errs...)
}
