package config

import (
	"time"

	"github.com/bench-hub/bench-hub/internal/tracing"
)

type ServiceConfig struct {
	Version         string `mapstructure:"version,omitempty"`
	Build           string `mapstructure:"build,omitempty"`
	BuildDate       string `mapstructure:"build_date,omitempty"`
	Port            int    `mapstructure:"port,omitempty"`
	ReadyFile       string `mapstructure:"ready_file"`
	TerminationFile string `mapstructure:"termination_file"`
	LocalMode       bool   `mapstructure:"local_mode,omitempty"`
}

// EngineConfig tunes the benchmark executor. Zero values fall back to the
// defaults below.
type EngineConfig struct {
	// ProviderTimeout bounds a single generate call. Exceeding it counts
	// as a retryable timeout, not a crash.
	ProviderTimeout time.Duration `mapstructure:"provider_timeout,omitempty"`
	// RetryAttempts is the per-question attempt ceiling for rate-limited
	// and timed-out provider calls.
	RetryAttempts int `mapstructure:"retry_attempts,omitempty"`
	// RetryBackoff is the first backoff delay; it doubles per attempt.
	RetryBackoff time.Duration `mapstructure:"retry_backoff,omitempty"`
}

const (
	DefaultProviderTimeout = 120 * time.Second
	DefaultRetryAttempts   = 3
	DefaultRetryBackoff    = 500 * time.Millisecond
)

func (e *EngineConfig) GetProviderTimeout() time.Duration {
	if e == nil || e.ProviderTimeout <= 0 {
		return DefaultProviderTimeout
	}
	return e.ProviderTimeout
}

func (e *EngineConfig) GetRetryAttempts() int {
	if e == nil || e.RetryAttempts <= 0 {
		return DefaultRetryAttempts
	}
	return e.RetryAttempts
}

func (e *EngineConfig) GetRetryBackoff() time.Duration {
	if e == nil || e.RetryBackoff <= 0 {
		return DefaultRetryBackoff
	}
	return e.RetryBackoff
}

type Config struct {
	Service  *ServiceConfig  `mapstructure:"service"`
	Database *map[string]any `mapstructure:"database"`
	Engine   *EngineConfig   `mapstructure:"engine,omitempty"`
	Tracing  *tracing.Config `mapstructure:"tracing,omitempty"`
}
