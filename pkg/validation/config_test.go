package validation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestConfigValidatorPasses(t *testing.T) {
	err := NewConfigValidator("test.Config").
		Required("name", "worker").
		RequiredInt("replicas", 3).
		RequiredDuration("timeout", time.Second).
		MinInt("pool", 4, 1).
		MaxInt("pool", 4, 16).
		RangeInt("port", 8080, 1, 65535).
		Positive("batch", 100).
		NonNegative("retries", 0).
		PositiveFloat("rate", 0.5).
		MinDuration("interval", time.Minute, time.Second).
		OneOf("mode", "fast", []string{"fast", "safe"}).
		Validate()
	if err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestConfigValidatorChecks(t *testing.T) {
	cases := []struct {
		name  string
		build func(v *ConfigValidator)
		want  string
	}{
		{"required empty", func(v *ConfigValidator) { v.Required("addr", "  ") }, "addr is required"},
		{"required int zero", func(v *ConfigValidator) { v.RequiredInt("port", 0) }, "port is required"},
		{"required duration zero", func(v *ConfigValidator) { v.RequiredDuration("ttl", 0) }, "ttl is required"},
		{"min int", func(v *ConfigValidator) { v.MinInt("pool", 0, 1) }, "must be at least 1"},
		{"max int", func(v *ConfigValidator) { v.MaxInt("pool", 99, 16) }, "must be at most 16"},
		{"range int low", func(v *ConfigValidator) { v.RangeInt("port", 0, 1, 65535) }, "between 1 and 65535"},
		{"range int high", func(v *ConfigValidator) { v.RangeInt("port", 70000, 1, 65535) }, "between 1 and 65535"},
		{"positive zero", func(v *ConfigValidator) { v.Positive("batch", 0) }, "must be positive"},
		{"non-negative", func(v *ConfigValidator) { v.NonNegative("retries", -1) }, "must not be negative"},
		{"positive float", func(v *ConfigValidator) { v.PositiveFloat("rate", 0) }, "must be positive"},
		{"min duration", func(v *ConfigValidator) { v.MinDuration("interval", time.Millisecond, time.Second) }, "must be at least 1s"},
		{"one of", func(v *ConfigValidator) { v.OneOf("mode", "turbo", []string{"fast", "safe"}) }, "must be one of [fast, safe]"},
		{"custom", func(v *ConfigValidator) { v.Custom("secret", func() error { return errors.New("too short") }) }, "secret too short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := NewConfigValidator("test.Config")
			tc.build(v)
			err := v.Error()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestConfigValidatorAccumulates(t *testing.T) {
	v := NewConfigValidator("svc.Config").
		Required("addr", "").
		Positive("workers", -2)
	if !v.HasErrors() {
		t.Fatal("expected recorded problems")
	}
	if got := len(v.Errors()); got != 2 {
		t.Fatalf("expected 2 problems, got %d", got)
	}
	msg := v.Error().Error()
	if !strings.HasPrefix(msg, "svc.Config: ") {
		t.Fatalf("error %q missing config name prefix", msg)
	}
	if !strings.Contains(msg, "; ") {
		t.Fatalf("error %q should join problems with semicolons", msg)
	}
}

func TestConfigValidatorWhen(t *testing.T) {
	err := NewConfigValidator("feature.Config").
		When(false, func(v *ConfigValidator) { v.Required("key", "") }).
		Validate()
	if err != nil {
		t.Fatalf("disabled branch should not run checks, got %v", err)
	}

	err = NewConfigValidator("feature.Config").
		When(true, func(v *ConfigValidator) { v.Required("key", "") }).
		Validate()
	if err == nil {
		t.Fatal("enabled branch should run checks")
	}
}
