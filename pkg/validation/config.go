package validation

import (
	"fmt"
	"strings"
	"time"
)

// ConfigValidator accumulates field-level problems for one named config
// struct and reports them as a single error. Methods chain; the zero
// problem count means the config is acceptable.
type ConfigValidator struct {
	name     string
	problems []string
}

// NewConfigValidator starts validation for the named configuration
func NewConfigValidator(name string) *ConfigValidator {
	return &ConfigValidator{name: name}
}

func (v *ConfigValidator) addf(field, format string, args ...any) {
	v.problems = append(v.problems, field+" "+fmt.Sprintf(format, args...))
}

// Required rejects an empty string field
func (v *ConfigValidator) Required(field, value string) *ConfigValidator {
	if strings.TrimSpace(value) == "" {
		v.addf(field, "is required")
	}
	return v
}

// RequiredInt rejects a zero int field
func (v *ConfigValidator) RequiredInt(field string, value int) *ConfigValidator {
	if value == 0 {
		v.addf(field, "is required")
	}
	return v
}

// RequiredDuration rejects a zero duration field
func (v *ConfigValidator) RequiredDuration(field string, value time.Duration) *ConfigValidator {
	if value == 0 {
		v.addf(field, "is required")
	}
	return v
}

// MinInt rejects values below min
func (v *ConfigValidator) MinInt(field string, value, min int) *ConfigValidator {
	if value < min {
		v.addf(field, "must be at least %d, got %d", min, value)
	}
	return v
}

// MaxInt rejects values above max
func (v *ConfigValidator) MaxInt(field string, value, max int) *ConfigValidator {
	if value > max {
		v.addf(field, "must be at most %d, got %d", max, value)
	}
	return v
}

// RangeInt rejects values outside [min, max]
func (v *ConfigValidator) RangeInt(field string, value, min, max int) *ConfigValidator {
	if value < min || value > max {
		v.addf(field, "must be between %d and %d, got %d", min, max, value)
	}
	return v
}

// Positive rejects values that are not strictly positive
func (v *ConfigValidator) Positive(field string, value int) *ConfigValidator {
	if value <= 0 {
		v.addf(field, "must be positive, got %d", value)
	}
	return v
}

// NonNegative rejects negative values
func (v *ConfigValidator) NonNegative(field string, value int) *ConfigValidator {
	if value < 0 {
		v.addf(field, "must not be negative, got %d", value)
	}
	return v
}

// PositiveFloat rejects values that are not strictly positive
func (v *ConfigValidator) PositiveFloat(field string, value float64) *ConfigValidator {
	if value <= 0 {
		v.addf(field, "must be positive, got %g", value)
	}
	return v
}

// MinDuration rejects durations below min
func (v *ConfigValidator) MinDuration(field string, value, min time.Duration) *ConfigValidator {
	if value < min {
		v.addf(field, "must be at least %s, got %s", min, value)
	}
	return v
}

// OneOf rejects values outside the allowed set
func (v *ConfigValidator) OneOf(field, value string, allowed []string) *ConfigValidator {
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.addf(field, "must be one of [%s], got %q", strings.Join(allowed, ", "), value)
	return v
}

// Custom runs an arbitrary check and records its error under field
func (v *ConfigValidator) Custom(field string, fn func() error) *ConfigValidator {
	if err := fn(); err != nil {
		v.addf(field, "%v", err)
	}
	return v
}

// When applies fn only if cond holds, for checks that depend on a feature
// toggle
func (v *ConfigValidator) When(cond bool, fn func(*ConfigValidator)) *ConfigValidator {
	if cond {
		fn(v)
	}
	return v
}

// HasErrors reports whether any check failed
func (v *ConfigValidator) HasErrors() bool {
	return len(v.problems) > 0
}

// Errors returns the individual problem messages
func (v *ConfigValidator) Errors() []string {
	return v.problems
}

// Error collapses all recorded problems into one error, or nil
func (v *ConfigValidator) Error() error {
	if len(v.problems) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %s", v.name, strings.Join(v.problems, "; "))
}

// Validate is an alias for Error, reading better at the end of a chain
func (v *ConfigValidator) Validate() error {
	return v.Error()
}
