package api

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-community/pkg/export"
	"github.com/dd0wney/cluso-community/pkg/optimiser"
	"github.com/dd0wney/cluso-community/pkg/validation"
)

// AuthConfig configures request authentication
type AuthConfig struct {
	Enabled    bool          `yaml:"enabled"`
	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

// RateLimitSettings configures per-client request throttling
type RateLimitSettings struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Config is the service configuration loaded from yaml
type Config struct {
	Port         int               `yaml:"port"`
	LogLevel     string            `yaml:"log_level"`
	MaxBodyBytes int64             `yaml:"max_body_bytes"`
	SnapshotDir  string            `yaml:"snapshot_dir"`
	DatabaseURL  string            `yaml:"database_url,omitempty"`
	Auth         AuthConfig        `yaml:"auth"`
	RateLimit    RateLimitSettings `yaml:"rate_limit"`
	Export       *export.Config    `yaml:"export,omitempty"`
	Optimiser    optimiser.Config  `yaml:"optimiser"`
}

// DefaultConfig returns the configuration used when fields are omitted
func DefaultConfig() Config {
	return Config{
		Port:         8080,
		LogLevel:     "info",
		MaxBodyBytes: 32 << 20, // 32MB; membership payloads are large
		SnapshotDir:  "data/snapshots",
		Auth: AuthConfig{
			TokenTTL:   15 * time.Minute,
			RefreshTTL: 24 * time.Hour,
		},
		RateLimit: RateLimitSettings{
			RequestsPerSecond: 100,
			Burst:             200,
		},
		Optimiser: optimiser.DefaultConfig(),
	}
}

// LoadConfig reads and validates a yaml configuration file
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects malformed configuration
func (c Config) Validate() error {
	err := validation.NewConfigValidator("api.Config").
		RangeInt("port", c.Port, 1, 65535).
		OneOf("log_level", c.LogLevel, []string{"debug", "info", "warn", "error"}).
		Positive("max_body_bytes", int(c.MaxBodyBytes)).
		Required("snapshot_dir", c.SnapshotDir).
		When(c.Auth.Enabled, func(cv *validation.ConfigValidator) {
			cv.Custom("auth.jwt_secret", func() error {
				if len(c.Auth.JWTSecret) < 32 {
					return fmt.Errorf("must be at least 32 characters")
				}
				return nil
			})
			cv.RequiredDuration("auth.token_ttl", c.Auth.TokenTTL)
			cv.RequiredDuration("auth.refresh_ttl", c.Auth.RefreshTTL)
		}).
		When(c.RateLimit.Enabled, func(cv *validation.ConfigValidator) {
			cv.PositiveFloat("rate_limit.requests_per_second", c.RateLimit.RequestsPerSecond)
			cv.Positive("rate_limit.burst", c.RateLimit.Burst)
		}).
		Validate()
	if err != nil {
		return err
	}

	if err := c.Optimiser.Validate(); err != nil {
		return err
	}
	if c.Export != nil {
		if err := c.Export.Validate(); err != nil {
			return err
		}
	}
	return nil
}
