// Package control wires the resilience components together and manages
// their lifecycle.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ledgerdesk/aegis/internal/core/config"
	"github.com/ledgerdesk/aegis/internal/core/fault"
	"github.com/ledgerdesk/aegis/internal/core/worker"
	"github.com/ledgerdesk/aegis/internal/infra/fallback"
	"github.com/ledgerdesk/aegis/internal/infra/probe"
	redisclient "github.com/ledgerdesk/aegis/internal/infra/redis"
	"github.com/ledgerdesk/aegis/internal/infra/report"
	"github.com/ledgerdesk/aegis/internal/resilience/breaker"
	"github.com/ledgerdesk/aegis/internal/resilience/guard"
	"github.com/ledgerdesk/aegis/internal/resilience/health"
	"github.com/ledgerdesk/aegis/internal/resilience/isolate"
	"github.com/ledgerdesk/aegis/internal/resilience/metrics"
	"github.com/ledgerdesk/aegis/internal/resilience/notify"
	"github.com/ledgerdesk/aegis/internal/resilience/recovery"
	"github.com/ledgerdesk/aegis/internal/resilience/retry"
)

// Options carries the host application hooks the service cannot invent:
// how to show notifications, confirm disruptive actions, restart the
// client and reset corrupted state. All fields may be nil.
type Options struct {
	Display notify.Display
	Confirm guard.ConfirmFunc
	Restart guard.RestartFunc
	Reset   recovery.ResetFunc
}

// Service is the resilience layer of the client: every upstream call
// routed through it gets classification, retries, circuit breaking,
// recovery and health accounting.
type Service struct {
	cfg config.AppConfig
	log *slog.Logger

	circuits     *breaker.Registry
	engine       *retry.Engine
	filter       *isolate.Filter
	dispatcher   *recovery.Dispatcher
	healthMon    *health.Monitor
	healthServer *health.Server
	queue        *notify.Queue
	protect      *guard.Guard
	store        fallback.Store
	reporter     report.Reporter
	probers      []probe.Prober
	pruner       *worker.Pruner

	reportSrc *isolate.ReportSource
	panicSrc  *isolate.PanicSource

	mu      sync.RWMutex
	ops     map[string]retry.Operation
	cancel  context.CancelFunc
	stop    chan struct{}
	stopped bool
	wg      sync.WaitGroup
}

// NewService creates a service with all components initialized.
func NewService(cfg config.AppConfig, opts Options) (*Service, error) {
	if cfg.Recovery.Retention <= 0 {
		cfg.Recovery.Retention = recovery.DefaultConfig.Retention
	}

	circuits := breaker.NewRegistry(cfg.Breaker)

	store, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	var reporter report.Reporter = report.LogReporter{}
	if cfg.Report.URL != "" {
		reporter = report.Multi{report.LogReporter{}, report.NewHTTPReporter(cfg.Report)}
	}

	probers, err := probe.Build(cfg.Probes)
	if err != nil {
		store.Close()
		return nil, err
	}

	s := &Service{
		cfg:       cfg,
		log:       slog.Default(),
		circuits:  circuits,
		engine:    retry.NewEngine(cfg.Retry, circuits),
		filter:    isolate.NewFilter(cfg.Isolation),
		healthMon: health.NewMonitor(cfg.Health, circuits),
		queue:     notify.NewQueue(cfg.Notify, opts.Display),
		protect:   guard.New(opts.Confirm, opts.Restart),
		store:     store,
		reporter:  reporter,
		probers:   probers,
		reportSrc: isolate.NewReportSource(64),
		panicSrc:  isolate.NewPanicSource(16),
		ops:       make(map[string]retry.Operation),
		stop:      make(chan struct{}),
	}

	table := recovery.DefaultTable(
		recovery.NewRetryStrategy(s.replay),
		recovery.NewCachedFallbackStrategy(store),
		recovery.NewResetStateStrategy(opts.Reset),
	)
	s.dispatcher = recovery.NewDispatcher(cfg.Recovery, table, s.queue, s)
	s.pruner = worker.NewPruner(cfg.Recovery.Retention, s.dispatcher)
	s.healthServer = health.NewServer(s.healthMon, circuits, cfg.Server.Port)

	for _, p := range probers {
		s.Register(p.Key(), p.Check)
	}

	return s, nil
}

func buildStore(cfg config.AppConfig) (fallback.Store, error) {
	if cfg.Fallback.Backend == "redis" && cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, using memory fallback store", "error", err)
		} else {
			slog.Info("Using Redis fallback store")
			return fallback.NewRedisStore(client, cfg.Fallback), nil
		}
	}

	store, err := fallback.NewMemoryStore(cfg.Fallback)
	if err != nil {
		return nil, fmt.Errorf("failed to init fallback store: %w", err)
	}
	return store, nil
}

// Start starts the service and all its components.
func (s *Service) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		if err := s.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Health server failed", "error", err)
		}
	}()

	go s.healthMon.Start(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.faultLoop(ctx)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.pruner.Start(ctx)
	}()

	if len(s.probers) > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.probeLoop(ctx)
		}()
	}

	s.log.Info("Resilience service started",
		"probes", len(s.probers),
		"port", s.cfg.Server.Port)
	return nil
}

// Stop stops the service.
func (s *Service) Stop(ctx context.Context) error {
	s.log.Info("Stopping resilience service...")

	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.stop)
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.healthMon.Stop()
	s.queue.Stop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("Timed out waiting for workers to stop")
	}

	for _, p := range s.probers {
		if err := p.Close(); err != nil {
			s.log.Warn("Failed to close prober", "key", p.Key(), "error", err)
		}
	}
	if err := s.reporter.Close(); err != nil {
		s.log.Warn("Failed to close reporter", "error", err)
	}
	if err := s.store.Close(); err != nil {
		s.log.Warn("Failed to close fallback store", "error", err)
	}

	return s.healthServer.Stop(ctx)
}

// Register makes a named operation invokable by key and replayable by
// the retry recovery strategy.
func (s *Service) Register(key string, op retry.Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops[key] = op
}

// Invoke runs op through the full resilience pipeline: circuit check,
// classified retries, fault handling and snapshot caching. The
// operation is remembered under key so the retry recovery strategy can
// replay it later. The returned error is always a *fault.Fault on
// failure.
func (s *Service) Invoke(ctx context.Context, key string, op retry.Operation) (any, error) {
	s.Register(key, op)
	value, err := s.engine.Do(ctx, key, op)
	if err != nil {
		f := fault.Classify(err)
		if f.EndpointKey == "" {
			f.EndpointKey = key
		}
		s.handleFault(ctx, f)
		return nil, f
	}

	s.healthMon.Record(false)
	s.cacheResult(ctx, key, value)
	return value, nil
}

// InvokeRegistered runs the operation previously registered under key.
func (s *Service) InvokeRegistered(ctx context.Context, key string) (any, error) {
	op := s.operation(key)
	if op == nil {
		return nil, fmt.Errorf("no operation registered for %s", key)
	}
	return s.Invoke(ctx, key, op)
}

// Go runs fn on a goroutine whose panics are contained and routed
// through fault handling instead of crashing the client.
func (s *Service) Go(origin string, fn func()) {
	s.panicSrc.Go(origin, fn)
}

// ReportError submits an error from a background operation into fault
// handling. It never blocks.
func (s *Service) ReportError(origin string, err error) {
	s.reportSrc.Report(origin, err)
}

// Notify enqueues a user-facing message.
func (s *Service) Notify(message string, severity fault.Severity) {
	s.queue.Notify(message, severity)
}

// Health returns the latest health snapshot.
func (s *Service) Health() health.Snapshot {
	return s.healthMon.Snapshot()
}

// CircuitStatus returns the current per-endpoint circuit states.
func (s *Service) CircuitStatus() map[string]breaker.State {
	return s.circuits.Status()
}

// Cached returns the last-known-good snapshot for an endpoint.
func (s *Service) Cached(ctx context.Context, key string) (any, bool) {
	return s.store.Get(ctx, key)
}

// Guard returns the reload guard protecting submissions and unsaved
// input.
func (s *Service) Guard() *guard.Guard {
	return s.protect
}

// Escalate forwards an unrecoverable fault to the configured collector
// together with the current health snapshot.
func (s *Service) Escalate(ctx context.Context, f *fault.Fault) {
	s.reporter.Report(ctx, report.Report{
		Fault: f,
		Context: map[string]any{
			"endpoint": f.EndpointKey,
			"origin":   f.Origin,
		},
		Health:    s.healthMon.Snapshot(),
		Timestamp: time.Now(),
	})
}

// handleFault is the single funnel for every classified fault:
// third-party containment, metrics, error-rate accounting and routing
// by class. Contained faults never reach the error rate; they are not
// failures of our own backend.
func (s *Service) handleFault(ctx context.Context, f *fault.Fault) {
	if s.filter.Contain(f.Origin, f) {
		return
	}

	metrics.FaultsTotal.WithLabelValues(string(f.Class)).Inc()
	s.healthMon.Record(true)

	switch f.Class {
	case fault.ClassCircuitOpen:
		// Fail-fast outcome surfaced to the caller. The open
		// transition was already logged and health reflects it.
		s.log.Debug("Call rejected by open circuit", "endpoint", f.EndpointKey)
	case fault.ClassValidation, fault.ClassClient:
		s.queue.Notify(userMessage(f), f.Severity)
	default:
		s.dispatcher.Dispatch(ctx, f)
	}
}

func (s *Service) faultLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case ev := <-s.reportSrc.Events():
			s.handleEvent(ctx, ev)
		case ev := <-s.panicSrc.Events():
			s.handleEvent(ctx, ev)
		}
	}
}

func (s *Service) handleEvent(ctx context.Context, ev isolate.Event) {
	f := fault.Classify(ev.Err)
	if f.Origin == "" {
		f.Origin = ev.Origin
	}
	s.log.Debug("Handling reported fault", "origin", ev.Origin, "kind", ev.Kind)
	s.handleFault(ctx, f)
}

func (s *Service) probeLoop(ctx context.Context) {
	interval := s.cfg.Probes.Interval
	if interval <= 0 {
		interval = probe.DefaultConfig.Interval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.probeRound(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.probeRound(ctx)
		}
	}
}

func (s *Service) probeRound(ctx context.Context) {
	for _, p := range s.probers {
		if _, err := s.Invoke(ctx, p.Key(), p.Check); err != nil {
			s.log.Debug("Probe failed", "endpoint", p.Key(), "error", err)
		}
	}
}

// replay re-executes the operation behind a fault, feeding the retry
// recovery strategy.
func (s *Service) replay(ctx context.Context, f *fault.Fault) error {
	op := s.operation(f.EndpointKey)
	if op == nil {
		return fmt.Errorf("no operation registered for %s", f.EndpointKey)
	}

	value, err := s.engine.Do(ctx, f.EndpointKey, op)
	if err != nil {
		return err
	}
	s.cacheResult(ctx, f.EndpointKey, value)
	return nil
}

func (s *Service) operation(key string) retry.Operation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ops[key]
}

func (s *Service) cacheResult(ctx context.Context, key string, value any) {
	if value == nil {
		return
	}
	if err := s.store.Put(ctx, key, value); err != nil {
		s.log.Debug("Failed to cache snapshot", "endpoint", key, "error", err)
	}
}

func userMessage(f *fault.Fault) string {
	if f.Class == fault.ClassValidation && len(f.Fields) > 0 {
		fields := make([]string, 0, len(f.Fields))
		for name := range f.Fields {
			fields = append(fields, name)
		}
		sort.Strings(fields)
		return fmt.Sprintf("Please correct the following fields: %s", strings.Join(fields, ", "))
	}
	return f.Message
}
