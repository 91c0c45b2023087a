// Package retry implements the exponential-backoff executor wrapping
// fallible operations. It consults the circuit breaker registry before
// attempting and feeds outcomes back into it.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/ledgerdesk/aegis/internal/core/fault"
	"github.com/ledgerdesk/aegis/internal/resilience/metrics"
)

// Operation is a fallible call executed under retry.
type Operation func(ctx context.Context) (any, error)

// Breaker is the circuit gate the engine consults. Implemented by
// breaker.Registry.
type Breaker interface {
	IsOpen(key string) bool
	RecordSuccess(key string)
	RecordFailure(key string)
}

// Config defines retry behavior.
type Config struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   30 * time.Second,
}

// Engine executes operations under the retry policy.
type Engine struct {
	cfg     Config
	breaker Breaker
}

// NewEngine creates an engine, falling back to defaults for unset config
// fields.
func NewEngine(cfg Config, b Breaker) *Engine {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig.MaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultConfig.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultConfig.MaxDelay
	}
	return &Engine{cfg: cfg, breaker: b}
}

// Do executes op under the engine's default config.
func (e *Engine) Do(ctx context.Context, key string, op Operation) (any, error) {
	return e.DoWithConfig(ctx, key, op, e.cfg)
}

// DoWithConfig executes op with per-call overrides. The operation is
// attempted up to MaxRetries+1 times; only faults whose classification
// marks them retryable are attempted again, after an exponential backoff
// of BaseDelay * 2^attempt capped at MaxDelay. An open circuit rejects
// the call before the first attempt with a synthetic circuit-open fault.
// On any success the circuit records a success; a terminal failure
// records exactly one failure regardless of class.
func (e *Engine) DoWithConfig(
	ctx context.Context,
	key string,
	op Operation,
	cfg Config,
) (any, error) {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = e.cfg.MaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = e.cfg.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = e.cfg.MaxDelay
	}

	if e.breaker.IsOpen(key) {
		metrics.CircuitRejectionsTotal.WithLabelValues(key).Inc()
		return nil, fault.CircuitOpen(key)
	}

	var last *fault.Fault
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		metrics.RetryAttemptsTotal.WithLabelValues(key).Inc()

		result, err := op(ctx)
		if err == nil {
			e.breaker.RecordSuccess(key)
			return result, nil
		}

		rec := fault.Classify(err)
		if rec.EndpointKey == "" {
			rec.EndpointKey = key
		}
		last = rec

		if !rec.Retryable || attempt == cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			e.breaker.RecordFailure(key)
			return nil, ctx.Err()
		case <-time.After(backoff(attempt, cfg)):
		}
	}

	e.breaker.RecordFailure(key)
	return nil, last
}

func backoff(attempt int, cfg Config) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}
