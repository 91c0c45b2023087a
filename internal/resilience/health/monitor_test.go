package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ledgerdesk/aegis/internal/core/fault"
	"github.com/ledgerdesk/aegis/internal/resilience/breaker"
)

type stubCircuits struct{ open int }

func (s *stubCircuits) OpenCount() int { return s.open }

// =============================================================================
// Tracker Tests
// =============================================================================

func TestTracker_Rate(t *testing.T) {
	tr := newTracker(time.Minute)

	if got := tr.Rate(); got != 0 {
		t.Errorf("Rate() with no samples = %v, want 0", got)
	}

	tr.Record(true)
	tr.Record(false)
	tr.Record(false)
	tr.Record(false)

	if got := tr.Rate(); got != 0.25 {
		t.Errorf("Rate() = %v, want 0.25", got)
	}
}

func TestTracker_WindowExpiry(t *testing.T) {
	tr := newTracker(30 * time.Millisecond)

	tr.Record(true)
	tr.Record(true)
	time.Sleep(60 * time.Millisecond)

	if got := tr.Rate(); got != 0 {
		t.Errorf("Rate() after window expiry = %v, want 0", got)
	}

	tr.Record(false)
	if got := tr.Rate(); got != 0 {
		t.Errorf("Rate() = %v, want 0", got)
	}
}

// =============================================================================
// Monitor Tests
// =============================================================================

func TestMonitor_HealthyByDefault(t *testing.T) {
	m := NewMonitor(Config{}, nil)

	snap := m.Sweep()
	if snap.Status != StatusHealthy {
		t.Errorf("Status = %q, want %q", snap.Status, StatusHealthy)
	}
	if len(snap.Issues) != 0 {
		t.Errorf("Issues = %v, want none", snap.Issues)
	}
	if len(snap.RecoveryActions) != 0 {
		t.Errorf("RecoveryActions = %v, want none", snap.RecoveryActions)
	}
}

func TestMonitor_UnhealthyOnOpenCircuit(t *testing.T) {
	m := NewMonitor(Config{}, &stubCircuits{open: 2})

	snap := m.Sweep()
	if snap.Status != StatusUnhealthy {
		t.Errorf("Status = %q, want %q", snap.Status, StatusUnhealthy)
	}
	if len(snap.Issues) != 1 || snap.Issues[0].Severity != fault.SeverityError {
		t.Errorf("Issues = %v, want one error-severity issue", snap.Issues)
	}
	if snap.OpenCircuits != 2 {
		t.Errorf("OpenCircuits = %d, want 2", snap.OpenCircuits)
	}
}

func TestMonitor_DegradedOnErrorRate(t *testing.T) {
	m := NewMonitor(Config{}, nil)

	m.Record(true)
	m.Record(true)
	m.Record(false)

	snap := m.Sweep()
	if snap.Status != StatusDegraded {
		t.Errorf("Status = %q, want %q", snap.Status, StatusDegraded)
	}
	if len(snap.Issues) != 1 || snap.Issues[0].Severity != fault.SeverityWarning {
		t.Errorf("Issues = %v, want one warning-severity issue", snap.Issues)
	}
	if len(snap.RecoveryActions) == 0 {
		t.Error("expected corrective actions on degraded status")
	}
}

func TestMonitor_OpenCircuitOutweighsWarnings(t *testing.T) {
	m := NewMonitor(Config{}, &stubCircuits{open: 1})
	m.Record(true)
	m.Record(true)

	snap := m.Sweep()
	if snap.Status != StatusUnhealthy {
		t.Errorf("Status = %q, want %q", snap.Status, StatusUnhealthy)
	}
	if len(snap.Issues) != 2 {
		t.Errorf("Issues = %d, want 2", len(snap.Issues))
	}
}

func TestMonitor_RecoversAfterWindow(t *testing.T) {
	m := NewMonitor(Config{Window: 30 * time.Millisecond}, nil)

	m.Record(true)
	if snap := m.Sweep(); snap.Status != StatusDegraded {
		t.Fatalf("Status = %q, want %q", snap.Status, StatusDegraded)
	}

	time.Sleep(60 * time.Millisecond)
	if snap := m.Sweep(); snap.Status != StatusHealthy {
		t.Errorf("Status after window = %q, want %q", snap.Status, StatusHealthy)
	}
}

func TestMonitor_StartStop(t *testing.T) {
	m := NewMonitor(Config{Interval: 10 * time.Millisecond}, nil)

	done := make(chan struct{})
	go func() {
		m.Start(context.Background())
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for m.Snapshot().LastCheck.IsZero() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for first sweep")
		}
		time.Sleep(2 * time.Millisecond)
	}

	m.Stop()
	m.Stop() // idempotent

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor loop did not stop")
	}
}

// =============================================================================
// Server Tests
// =============================================================================

func TestServer_Health(t *testing.T) {
	circuits := &stubCircuits{}
	m := NewMonitor(Config{}, circuits)
	s := NewServer(m, nil, 0)
	m.Sweep()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if body["status"] != string(StatusHealthy) {
		t.Errorf("status = %q, want %q", body["status"], StatusHealthy)
	}

	// An open circuit flips the endpoint to 503.
	circuits.open = 1
	m.Sweep()

	rec = httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestServer_Detailed(t *testing.T) {
	registry := breaker.NewRegistry(breaker.Config{Threshold: 2, Cooldown: time.Minute})
	registry.RecordFailure("invoices.list")
	registry.RecordFailure("invoices.list")

	m := NewMonitor(Config{}, registry)
	s := NewServer(m, registry, 0)
	m.Sweep()

	req := httptest.NewRequest(http.MethodGet, "/health/detailed", nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Status   string                   `json:"status"`
		Circuits map[string]breaker.State `json:"circuits"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if body.Status != string(StatusUnhealthy) {
		t.Errorf("status = %q, want %q", body.Status, StatusUnhealthy)
	}
	state, ok := body.Circuits["invoices.list"]
	if !ok {
		t.Fatal("expected circuit state for invoices.list")
	}
	if !state.IsOpen || state.Failures != 2 {
		t.Errorf("circuit state = %+v, want open with 2 failures", state)
	}
}
