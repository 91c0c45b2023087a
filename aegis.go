// Package aegis keeps a desktop client responsive when its backend
// misbehaves.
//
// This package offers a self-healing layer for outbound API calls with:
//   - Fault classification (network, timeout, server, validation, ...)
//   - Retries with exponential backoff and per-endpoint circuit breakers
//   - Ordered recovery strategies with cached-snapshot fallback
//   - Continuous health monitoring with corrective actions
//   - Third-party fault isolation and panic containment
//   - User notifications and escalation reporting for unrecoverable faults
//
// # Quick Start
//
//	import "github.com/ledgerdesk/aegis"
//
//	// Setup
//	cfg, err := aegis.LoadConfig("config.yaml")
//	svc, err := aegis.New(cfg, aegis.Options{Display: myTray})
//	svc.Start(ctx)
//	defer svc.Stop(ctx)
//
//	// Route API calls through the resilience layer
//	invoices, err := svc.Invoke(ctx, "invoices.list", func(ctx context.Context) (any, error) {
//	    return api.ListInvoices(ctx)
//	})
//
//	// On failure, fall back to the last good snapshot
//	if err != nil {
//	    invoices, _ = svc.Cached(ctx, "invoices.list")
//	}
//
// # Background Faults
//
// Errors that happen outside a request path (sync workers, plugins) are
// reported instead of invoked, and panics in spawned goroutines are
// contained:
//
//	svc.ReportError("sync/export", err)
//	svc.Go("plugin/render", func() { plugin.Render() })
//
// # Package Structure
//
// The implementation is organized into sub-packages:
//
//   - internal/core/fault        - taxonomy and classifier
//   - internal/resilience/       - breaker, retry, recovery, health, notify, isolate, guard
//   - internal/infra/            - fallback stores, probes, escalation reporting
//   - internal/control/          - the Service that wires everything together
//
// The types needed to embed the layer are re-exported here.
package aegis

import (
	"github.com/ledgerdesk/aegis/internal/control"
	"github.com/ledgerdesk/aegis/internal/core/config"
	"github.com/ledgerdesk/aegis/internal/core/fault"
	"github.com/ledgerdesk/aegis/internal/resilience/breaker"
	"github.com/ledgerdesk/aegis/internal/resilience/guard"
	"github.com/ledgerdesk/aegis/internal/resilience/health"
	"github.com/ledgerdesk/aegis/internal/resilience/notify"
	"github.com/ledgerdesk/aegis/internal/resilience/retry"
)

// =============================================================================
// Service
// =============================================================================

// Service is the resilience layer. All backend calls of the host
// application should flow through it.
type Service = control.Service

// Options carries the host-application hooks wired into the Service.
type Options = control.Options

// Operation is a unit of work invoked through the resilience layer.
type Operation = retry.Operation

// New creates a Service from configuration.
func New(cfg Config, opts Options) (*Service, error) {
	return control.NewService(cfg, opts)
}

// =============================================================================
// Configuration
// =============================================================================

// Config is the top-level application configuration.
type Config = config.AppConfig

// LoadConfig reads configuration from a YAML file with environment
// variable substitution and AEGIS_* overrides.
func LoadConfig(path string) (Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return Config{}, err
	}
	return *cfg, nil
}

// =============================================================================
// Faults
// =============================================================================

// Fault is a classified error.
type Fault = fault.Fault

// StatusError is an error produced by an upstream HTTP response.
type StatusError = fault.StatusError

// Class tags a fault with its taxonomy category.
type Class = fault.Class

// Severity indicates how a fault should be surfaced.
type Severity = fault.Severity

// Fault class constants
const (
	ClassNetwork     = fault.ClassNetwork
	ClassTimeout     = fault.ClassTimeout
	ClassServer      = fault.ClassServer
	ClassClient      = fault.ClassClient
	ClassValidation  = fault.ClassValidation
	ClassRateLimited = fault.ClassRateLimited
	ClassCircuitOpen = fault.ClassCircuitOpen
	ClassState       = fault.ClassState
	ClassUnknown     = fault.ClassUnknown
)

// Severity constants
const (
	SeverityInfo     = fault.SeverityInfo
	SeverityWarning  = fault.SeverityWarning
	SeverityError    = fault.SeverityError
	SeverityCritical = fault.SeverityCritical
)

// Classify maps an error onto the fault taxonomy.
var Classify = fault.Classify

// =============================================================================
// Surfacing
// =============================================================================

// Item is a single user-facing notification.
type Item = notify.Item

// Display renders one notification at a time.
type Display = notify.Display

// HealthSnapshot is the most recent health check result.
type HealthSnapshot = health.Snapshot

// CircuitState describes one endpoint's circuit breaker.
type CircuitState = breaker.State

// Guard owns in-flight submissions and gates exit and restart.
type Guard = guard.Guard

// ConfirmFunc asks the user to confirm leaving while work is pending.
type ConfirmFunc = guard.ConfirmFunc
