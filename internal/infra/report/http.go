package report

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// Config holds escalation reporting configuration.
type Config struct {
	// URL is the collector webhook. Empty disables HTTP delivery.
	URL string `yaml:"url"`
	// Timeout bounds a single delivery attempt.
	Timeout time.Duration `yaml:"timeout"`
	// MaxInFlight caps concurrent deliveries. Reports beyond the cap
	// are dropped.
	MaxInFlight int `yaml:"max_in_flight"`
}

// DefaultConfig provides default reporting configuration.
var DefaultConfig = Config{
	Timeout:     5 * time.Second,
	MaxInFlight: 4,
}

// HTTPReporter posts escalations to a collector webhook. Deliveries run
// in the background with a bounded in-flight count.
type HTTPReporter struct {
	client *resty.Client
	url    string
	sem    chan struct{}
	wg     sync.WaitGroup
}

// NewHTTPReporter creates a reporter from cfg, falling back to defaults
// for unset fields.
func NewHTTPReporter(cfg Config) *HTTPReporter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig.Timeout
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = DefaultConfig.MaxInFlight
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "aegis-report/1.0")

	return &HTTPReporter{
		client: client,
		url:    cfg.URL,
		sem:    make(chan struct{}, cfg.MaxInFlight),
	}
}

// Report posts r to the collector without blocking the caller. The
// delivery is detached from ctx cancellation and bounded by the
// configured timeout instead.
func (h *HTTPReporter) Report(ctx context.Context, r Report) {
	select {
	case h.sem <- struct{}{}:
	default:
		slog.Debug("Escalation report dropped, delivery queue full", "key", r.Fault.Key())
		return
	}

	h.wg.Add(1)
	go func() {
		defer func() {
			<-h.sem
			h.wg.Done()
		}()

		resp, err := h.client.R().
			SetContext(context.WithoutCancel(ctx)).
			SetBody(r).
			Post(h.url)
		if err != nil {
			slog.Debug("Escalation report delivery failed", "error", err)
			return
		}
		if resp.IsError() {
			slog.Debug("Escalation report rejected", "status", resp.StatusCode())
		}
	}()
}

// Close waits for in-flight deliveries to settle.
func (h *HTTPReporter) Close() error {
	h.wg.Wait()
	return nil
}
