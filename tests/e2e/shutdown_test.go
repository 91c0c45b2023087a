package e2e

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ledgerdesk/aegis/internal/control"
	"github.com/ledgerdesk/aegis/internal/core/config"
	"github.com/ledgerdesk/aegis/internal/infra/fallback"
	"github.com/ledgerdesk/aegis/internal/resilience/breaker"
	"github.com/ledgerdesk/aegis/internal/resilience/health"
	"github.com/ledgerdesk/aegis/internal/resilience/notify"
	"github.com/ledgerdesk/aegis/internal/resilience/retry"
)

func TestGracefulShutdown(t *testing.T) {
	// Simple config with no real backend but enough to start components
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"total": 12}`))
	}))
	defer upstream.Close()

	cfg := config.AppConfig{
		Server:   config.ServerConfig{Port: 0},
		Breaker:  breaker.Config{Threshold: 3, Cooldown: time.Minute},
		Retry:    retry.Config{MaxRetries: 1, BaseDelay: 5 * time.Millisecond},
		Health:   health.Config{Interval: 50 * time.Millisecond},
		Notify:   notify.Config{Delay: 5 * time.Millisecond},
		Fallback: fallback.Config{Backend: "memory"},
	}

	svc, err := control.NewService(cfg, control.Options{})
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Failed to start service: %v", err)
	}

	// Push some traffic through every path
	client := upstream.Client()
	for i := 0; i < 3; i++ {
		_, err := svc.Invoke(ctx, "invoices.list", func(ctx context.Context) (any, error) {
			resp, err := client.Get(upstream.URL)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			return map[string]any{"status": resp.StatusCode}, nil
		})
		if err != nil {
			t.Errorf("Invoke %d failed: %v", i, err)
		}
	}
	svc.ReportError("sync/export", errors.New("connection reset by peer"))
	svc.Go("plugin/render", func() { panic("render failed") })

	// Let the background loops pick the events up
	time.Sleep(200 * time.Millisecond)

	if _, ok := svc.Cached(ctx, "invoices.list"); !ok {
		t.Error("expected a cached snapshot after successful invokes")
	}

	// Trigger shutdown
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()

	if err := svc.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}
