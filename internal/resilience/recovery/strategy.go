package recovery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ledgerdesk/aegis/internal/core/fault"
	"github.com/ledgerdesk/aegis/internal/infra/fallback"
)

// Strategy is a single remediation tactic for a classified fault.
type Strategy interface {
	// Name identifies the strategy in logs and metrics.
	Name() string

	// CanHandle reports whether this strategy applies to the fault.
	CanHandle(f *fault.Fault) bool

	// Execute attempts remediation. A nil return means the fault is
	// resolved.
	Execute(ctx context.Context, f *fault.Fault) error
}

// ReplayFunc re-executes the operation that produced a fault.
type ReplayFunc func(ctx context.Context, f *fault.Fault) error

// RetryStrategy resolves transient faults by replaying the original
// operation through the resilience pipeline.
type RetryStrategy struct {
	replay ReplayFunc
}

// NewRetryStrategy creates a retry strategy backed by replay.
func NewRetryStrategy(replay ReplayFunc) *RetryStrategy {
	return &RetryStrategy{replay: replay}
}

func (s *RetryStrategy) Name() string { return "retry" }

func (s *RetryStrategy) CanHandle(f *fault.Fault) bool {
	return s.replay != nil && f.Retryable
}

func (s *RetryStrategy) Execute(ctx context.Context, f *fault.Fault) error {
	return s.replay(ctx, f)
}

// CachedFallbackStrategy resolves a fault by confirming a last-known-good
// snapshot exists for the endpoint, letting the caller render stale data
// instead of an error.
type CachedFallbackStrategy struct {
	store fallback.Store
}

// NewCachedFallbackStrategy creates a fallback strategy backed by store.
func NewCachedFallbackStrategy(store fallback.Store) *CachedFallbackStrategy {
	return &CachedFallbackStrategy{store: store}
}

func (s *CachedFallbackStrategy) Name() string { return "cached_fallback" }

func (s *CachedFallbackStrategy) CanHandle(f *fault.Fault) bool {
	return s.store != nil && f.EndpointKey != ""
}

func (s *CachedFallbackStrategy) Execute(ctx context.Context, f *fault.Fault) error {
	if _, ok := s.store.Get(ctx, f.EndpointKey); !ok {
		return fmt.Errorf("no cached snapshot for %s", f.EndpointKey)
	}
	slog.Info("Serving cached snapshot", "endpoint", f.EndpointKey)
	return nil
}

// ResetFunc restores a corrupted piece of client state to a known-good
// baseline.
type ResetFunc func(ctx context.Context, f *fault.Fault) error

// ResetStateStrategy resolves state faults by invoking the host
// application's reset hook.
type ResetStateStrategy struct {
	reset ResetFunc
}

// NewResetStateStrategy creates a reset strategy backed by reset.
func NewResetStateStrategy(reset ResetFunc) *ResetStateStrategy {
	return &ResetStateStrategy{reset: reset}
}

func (s *ResetStateStrategy) Name() string { return "reset_state" }

func (s *ResetStateStrategy) CanHandle(f *fault.Fault) bool {
	return s.reset != nil && f.Class == fault.ClassState
}

func (s *ResetStateStrategy) Execute(ctx context.Context, f *fault.Fault) error {
	if err := s.reset(ctx, f); err != nil {
		return fmt.Errorf("state reset failed: %w", err)
	}
	slog.Info("Reset client state", "key", f.Key())
	return nil
}
