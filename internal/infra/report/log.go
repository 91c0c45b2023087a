package report

import (
	"context"
	"log/slog"
)

// LogReporter writes escalations to the structured log. It is the
// default collector when no webhook is configured.
type LogReporter struct{}

func (LogReporter) Report(ctx context.Context, r Report) {
	slog.Error("Escalated fault",
		"key", r.Fault.Key(),
		"class", r.Fault.Class,
		"message", r.Fault.Message,
		"health", r.Health.Status,
		"context", r.Context)
}

func (LogReporter) Close() error { return nil }
