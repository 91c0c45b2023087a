// Package breaker implements the per-endpoint circuit breaker registry.
//
// A circuit opens once an endpoint accumulates Threshold failures and
// stays open until Cooldown elapses after the last failure. A single
// success deletes the endpoint's record entirely rather than
// decrementing the count.
package breaker

import (
	"log/slog"
	"sync"
	"time"
)

// Config defines circuit breaker behavior.
type Config struct {
	Threshold int           `yaml:"threshold"`
	Cooldown  time.Duration `yaml:"cooldown"`
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	Threshold: 5,
	Cooldown:  30 * time.Second,
}

// State is a point-in-time view of one endpoint's circuit.
type State struct {
	EndpointKey string    `json:"endpoint_key"`
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"last_failure"`
	IsOpen      bool      `json:"is_open"`
}

type circuit struct {
	failures    int
	lastFailure time.Time
}

// Registry tracks failure counts per endpoint key and gates calls once
// an endpoint crosses the failure threshold.
type Registry struct {
	mu       sync.RWMutex
	cfg      Config
	circuits map[string]*circuit
}

// NewRegistry creates a registry, falling back to defaults for unset
// config fields.
func NewRegistry(cfg Config) *Registry {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultConfig.Threshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultConfig.Cooldown
	}
	return &Registry{
		cfg:      cfg,
		circuits: make(map[string]*circuit),
	}
}

// RecordFailure increments the failure count for key and stamps the
// failure time.
func (r *Registry) RecordFailure(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.circuits[key]
	if !ok {
		c = &circuit{}
		r.circuits[key] = c
	}
	c.failures++
	c.lastFailure = time.Now()

	if c.failures == r.cfg.Threshold {
		slog.Warn("Circuit opened", "endpoint", key, "failures", c.failures)
	}
}

// RecordSuccess deletes the endpoint's record (full reset).
func (r *Registry) RecordSuccess(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.circuits, key)
}

// IsOpen reports whether calls for key should fail fast. A circuit is
// open while the failure count has reached the threshold and the last
// failure is younger than the cooldown. Once the cooldown elapses the
// next call is allowed through as a probe; the stale count remains until
// the probe's own outcome updates the record.
func (r *Registry) IsOpen(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.circuits[key]
	if !ok {
		return false
	}
	return r.isOpen(c)
}

// Status returns a snapshot of every tracked circuit.
func (r *Registry) Status() map[string]State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]State, len(r.circuits))
	for key, c := range r.circuits {
		out[key] = State{
			EndpointKey: key,
			Failures:    c.failures,
			LastFailure: c.lastFailure,
			IsOpen:      r.isOpen(c),
		}
	}
	return out
}

// OpenCount returns how many circuits are currently open.
func (r *Registry) OpenCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, c := range r.circuits {
		if r.isOpen(c) {
			n++
		}
	}
	return n
}

func (r *Registry) isOpen(c *circuit) bool {
	return c.failures >= r.cfg.Threshold && time.Since(c.lastFailure) < r.cfg.Cooldown
}
