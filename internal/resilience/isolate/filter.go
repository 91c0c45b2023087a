package isolate

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/ledgerdesk/aegis/internal/resilience/metrics"
)

// Config holds isolation filter configuration.
type Config struct {
	// DenyOrigins lists substrings matched against fault origins.
	// Faults from matching origins are contained instead of recovered.
	DenyOrigins []string `yaml:"deny_origins"`
	// MaxLogged caps how many contained faults are logged before the
	// filter goes silent.
	MaxLogged int `yaml:"max_logged"`
}

// DefaultConfig provides default isolation filter configuration.
var DefaultConfig = Config{
	MaxLogged: 10,
}

// Filter contains faults raised by deny-listed third-party origins so
// they never reach recovery or the application's error budget.
type Filter struct {
	mu        sync.Mutex
	cfg       Config
	patterns  []string
	contained int
}

// NewFilter creates a filter from cfg.
func NewFilter(cfg Config) *Filter {
	if cfg.MaxLogged == 0 {
		cfg.MaxLogged = DefaultConfig.MaxLogged
	}
	patterns := make([]string, 0, len(cfg.DenyOrigins))
	for _, p := range cfg.DenyOrigins {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			patterns = append(patterns, p)
		}
	}
	return &Filter{cfg: cfg, patterns: patterns}
}

// Contain reports whether the fault belongs to a deny-listed origin.
// Contained faults are logged at reduced severity until MaxLogged is
// reached, then dropped silently. The caller must not propagate a
// contained fault further.
func (f *Filter) Contain(origin string, err error) bool {
	pattern, ok := f.match(origin)
	if !ok {
		return false
	}
	metrics.ThirdPartyFaultsTotal.WithLabelValues(pattern).Inc()

	f.mu.Lock()
	f.contained++
	logged := f.contained <= f.cfg.MaxLogged
	last := f.contained == f.cfg.MaxLogged
	f.mu.Unlock()

	if logged {
		slog.Debug("Contained third-party fault",
			"origin", origin,
			"pattern", pattern,
			"error", err)
		if last {
			slog.Debug("Third-party fault log cap reached, further matches dropped silently",
				"cap", f.cfg.MaxLogged)
		}
	}
	return true
}

// ContainedCount returns how many faults have been contained so far.
func (f *Filter) ContainedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contained
}

func (f *Filter) match(origin string) (string, bool) {
	if origin == "" {
		return "", false
	}
	origin = strings.ToLower(origin)
	for _, p := range f.patterns {
		if strings.Contains(origin, p) {
			return p, true
		}
	}
	return "", false
}
