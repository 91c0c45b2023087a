// Package health provides periodic client health monitoring and status
// reporting.
package health

import (
	"time"

	"github.com/ledgerdesk/aegis/internal/core/fault"
)

// Status represents the overall health state of the client.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Issue is a single problem found by a monitoring sweep. Error severity
// makes the client unhealthy, warning severity makes it degraded.
type Issue struct {
	Severity fault.Severity `json:"severity"`
	Message  string         `json:"message"`
}

// Snapshot is a point-in-time summary of client health, overwritten on
// every monitoring sweep.
type Snapshot struct {
	Status          Status    `json:"status"`
	Issues          []Issue   `json:"issues"`
	RecoveryActions []string  `json:"recovery_actions"`
	ErrorRate       float64   `json:"error_rate"`
	OpenCircuits    int       `json:"open_circuits"`
	MemoryPressure  float64   `json:"memory_pressure"`
	LastCheck       time.Time `json:"last_check"`
}
