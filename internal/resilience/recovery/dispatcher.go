// Package recovery routes classified faults through ordered remediation
// strategies and escalates the ones nothing can fix.
package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ledgerdesk/aegis/internal/core/fault"
	"github.com/ledgerdesk/aegis/internal/resilience/metrics"
)

// Config holds recovery dispatcher configuration.
type Config struct {
	// MaxAttempts caps recovery attempts per fault key. Once reached,
	// further occurrences escalate without trying any strategy.
	MaxAttempts int `yaml:"max_attempts"`
	// Retention bounds how long exhausted attempt records are kept. A
	// fault recurring after this long counts as a new incident with a
	// fresh attempt budget.
	Retention time.Duration `yaml:"retention"`
}

// DefaultConfig provides default recovery configuration.
var DefaultConfig = Config{
	MaxAttempts: 3,
	Retention:   24 * time.Hour,
}

// Notifier receives user-facing recovery outcome messages.
type Notifier interface {
	Notify(message string, severity fault.Severity)
	NotifyPersistent(message string, severity fault.Severity)
}

// Escalator forwards unrecoverable faults to an external collaborator.
type Escalator interface {
	Escalate(ctx context.Context, f *fault.Fault)
}

// StrategyTable maps each fault class to its ordered candidate
// strategies.
type StrategyTable map[fault.Class][]Strategy

// DefaultTable builds the standard remediation table. Transient classes
// replay the operation and fall back to cached data, state faults get a
// state reset, unknown faults only get the cached fallback. Validation
// and client faults are user-actionable and have no table entry.
func DefaultTable(retry, cached, reset Strategy) StrategyTable {
	return StrategyTable{
		fault.ClassNetwork:     {retry, cached},
		fault.ClassTimeout:     {retry, cached},
		fault.ClassServer:      {retry, cached},
		fault.ClassRateLimited: {retry, cached},
		fault.ClassState:       {reset},
		fault.ClassUnknown:     {cached},
	}
}

type attemptRecord struct {
	count    int
	lastSeen time.Time
}

// Dispatcher tries remediation strategies per fault class and tracks
// per-key attempt counts so a recurring fault cannot loop forever.
type Dispatcher struct {
	mu        sync.Mutex
	cfg       Config
	table     StrategyTable
	attempts  map[string]*attemptRecord
	notifier  Notifier
	escalator Escalator
}

// NewDispatcher creates a dispatcher from cfg and table. Notifier and
// escalator may be nil.
func NewDispatcher(cfg Config, table StrategyTable, notifier Notifier, escalator Escalator) *Dispatcher {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultConfig.MaxAttempts
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultConfig.Retention
	}
	return &Dispatcher{
		cfg:       cfg,
		table:     table,
		attempts:  make(map[string]*attemptRecord),
		notifier:  notifier,
		escalator: escalator,
	}
}

// Dispatch routes a classified fault through its candidate strategies in
// order, stopping at the first success. It reports whether the fault was
// resolved. A fault key that has already consumed MaxAttempts escalates
// immediately without attempting any strategy.
func (d *Dispatcher) Dispatch(ctx context.Context, f *fault.Fault) bool {
	key := f.Key()

	d.mu.Lock()
	rec := d.attempts[key]
	if rec == nil {
		rec = &attemptRecord{}
		d.attempts[key] = rec
	}
	rec.lastSeen = time.Now()
	if rec.count >= d.cfg.MaxAttempts {
		count := rec.count
		d.mu.Unlock()
		slog.Warn("Recovery attempts exhausted, escalating immediately",
			"key", key,
			"attempts", count)
		d.escalate(ctx, f)
		return false
	}
	rec.count++
	d.mu.Unlock()

	for _, s := range d.table[f.Class] {
		if !s.CanHandle(f) {
			continue
		}
		if err := s.Execute(ctx, f); err != nil {
			metrics.RecoveriesTotal.WithLabelValues(s.Name(), "failure").Inc()
			slog.Debug("Recovery strategy failed",
				"strategy", s.Name(),
				"key", key,
				"error", err)
			continue
		}
		metrics.RecoveriesTotal.WithLabelValues(s.Name(), "success").Inc()

		d.mu.Lock()
		delete(d.attempts, key)
		d.mu.Unlock()

		slog.Info("Recovered from fault", "strategy", s.Name(), "key", key)
		if d.notifier != nil {
			d.notifier.Notify(fmt.Sprintf("Recovered from a %s issue", f.Class), fault.SeverityInfo)
		}
		return true
	}

	slog.Warn("All recovery strategies failed", "key", key, "class", f.Class)
	d.escalate(ctx, f)
	return false
}

// Attempts returns the recorded attempt count for a fault key.
func (d *Dispatcher) Attempts(key string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if rec := d.attempts[key]; rec != nil {
		return rec.count
	}
	return 0
}

// PruneStale drops attempt records not touched within the configured
// retention and returns how many were removed.
func (d *Dispatcher) PruneStale() int {
	cutoff := time.Now().Add(-d.cfg.Retention)

	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for key, rec := range d.attempts {
		if rec.lastSeen.Before(cutoff) {
			delete(d.attempts, key)
			removed++
		}
	}
	return removed
}

func (d *Dispatcher) escalate(ctx context.Context, f *fault.Fault) {
	metrics.EscalationsTotal.Inc()
	if d.notifier != nil {
		d.notifier.NotifyPersistent(
			fmt.Sprintf("A problem could not be resolved automatically: %s. It has been reported.", f.Message),
			fault.SeverityError)
	}
	if d.escalator != nil {
		d.escalator.Escalate(ctx, f)
	}
}
