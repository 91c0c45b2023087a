// Package report forwards escalated faults to external error
// collectors.
package report

import (
	"context"
	"time"

	"github.com/ledgerdesk/aegis/internal/core/fault"
	"github.com/ledgerdesk/aegis/internal/resilience/health"
)

// Report is the escalation payload sent to a collector.
type Report struct {
	Fault     *fault.Fault    `json:"fault"`
	Context   map[string]any  `json:"context,omitempty"`
	Health    health.Snapshot `json:"health"`
	Timestamp time.Time       `json:"timestamp"`
}

// Reporter delivers escalation reports. Delivery is fire-and-forget:
// implementations must not block the caller beyond enqueueing.
type Reporter interface {
	Report(ctx context.Context, r Report)
	Close() error
}
