package health

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ledgerdesk/aegis/internal/core/fault"
	"github.com/ledgerdesk/aegis/internal/resilience/metrics"
)

// Status thresholds. Crossing either degrades the client.
const (
	errorRateWarning = 0.10
	memoryWarning    = 0.80
)

// CircuitCounter reports how many circuits are currently open.
type CircuitCounter interface {
	OpenCount() int
}

// Config holds health monitor configuration.
type Config struct {
	// Interval is the sweep period.
	Interval time.Duration `yaml:"interval"`
	// Window bounds the rolling error-rate history.
	Window time.Duration `yaml:"window"`
	// MemorySoftMB is the heap size treated as 100% memory pressure.
	MemorySoftMB int `yaml:"memory_soft_mb"`
}

// DefaultConfig provides default health monitor configuration.
var DefaultConfig = Config{
	Interval:     30 * time.Second,
	Window:       60 * time.Second,
	MemorySoftMB: 512,
}

// Monitor aggregates the error rate, circuit states and memory pressure
// into a health snapshot on a fixed period.
type Monitor struct {
	mu       sync.RWMutex
	cfg      Config
	circuits CircuitCounter
	tracker  *tracker
	snapshot Snapshot

	stop    chan struct{}
	stopped bool
}

// NewMonitor creates a health monitor. circuits may be nil.
func NewMonitor(cfg Config, circuits CircuitCounter) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig.Interval
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig.Window
	}
	if cfg.MemorySoftMB <= 0 {
		cfg.MemorySoftMB = DefaultConfig.MemorySoftMB
	}
	return &Monitor{
		cfg:      cfg,
		circuits: circuits,
		tracker:  newTracker(cfg.Window),
		snapshot: Snapshot{Status: StatusHealthy},
		stop:     make(chan struct{}),
	}
}

// Record feeds an operation outcome into the rolling error rate.
func (m *Monitor) Record(failure bool) {
	m.tracker.Record(failure)
}

// Snapshot returns the result of the most recent sweep.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Start runs the monitoring loop until ctx is cancelled or Stop is
// called. The first sweep runs immediately.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.Sweep()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Stop terminates the monitoring loop.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.stopped = true
	close(m.stop)
}

// Sweep recomputes the health snapshot immediately and runs corrective
// actions when the client is not healthy.
func (m *Monitor) Sweep() Snapshot {
	rate := m.tracker.Rate()
	open := 0
	if m.circuits != nil {
		open = m.circuits.OpenCount()
	}
	pressure := memoryPressure(m.cfg.MemorySoftMB)

	var issues []Issue
	if open > 0 {
		issues = append(issues, Issue{
			Severity: fault.SeverityError,
			Message:  fmt.Sprintf("%d circuit(s) open", open),
		})
	}
	if rate > errorRateWarning {
		issues = append(issues, Issue{
			Severity: fault.SeverityWarning,
			Message:  fmt.Sprintf("error rate %.0f%% over the last %s", rate*100, m.cfg.Window),
		})
	}
	if pressure > memoryWarning {
		issues = append(issues, Issue{
			Severity: fault.SeverityWarning,
			Message:  fmt.Sprintf("memory pressure %.0f%%", pressure*100),
		})
	}

	status := StatusHealthy
	for _, issue := range issues {
		if issue.Severity == fault.SeverityError || issue.Severity == fault.SeverityCritical {
			status = StatusUnhealthy
			break
		}
		status = StatusDegraded
	}

	var actions []string
	if status != StatusHealthy {
		actions = m.correct(status, rate, open, pressure)
	}

	snap := Snapshot{
		Status:          status,
		Issues:          issues,
		RecoveryActions: actions,
		ErrorRate:       rate,
		OpenCircuits:    open,
		MemoryPressure:  pressure,
		LastCheck:       time.Now(),
	}

	metrics.HealthStatus.Set(statusValue(status))
	metrics.ErrorRate.Set(rate)
	metrics.CircuitsOpen.Set(float64(open))

	m.mu.Lock()
	m.snapshot = snap
	m.mu.Unlock()
	return snap
}

// correct runs bounded, best-effort corrective actions. It is called
// from the sweep goroutine and never blocks callers.
func (m *Monitor) correct(status Status, rate float64, open int, pressure float64) []string {
	var actions []string

	if pressure > memoryWarning {
		debug.FreeOSMemory()
		actions = append(actions, "requested memory reclaim")
	}

	slog.Warn("Client health degraded",
		"status", status,
		"error_rate", fmt.Sprintf("%.2f", rate),
		"open_circuits", open,
		"memory_pressure", fmt.Sprintf("%.2f", pressure))
	actions = append(actions, "logged degraded status")

	return actions
}

func memoryPressure(softMB int) float64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return float64(ms.HeapAlloc) / float64(uint64(softMB)<<20)
}

func statusValue(s Status) float64 {
	switch s {
	case StatusDegraded:
		return 1
	case StatusUnhealthy:
		return 2
	default:
		return 0
	}
}
