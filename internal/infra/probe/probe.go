// Package probe implements upstream endpoint checks. Probes are plain
// operations; the caller drives them through the resilience pipeline so
// their failures exercise classification, retry and circuit breaking.
package probe

import (
	"context"
	"fmt"
	"time"
)

// Endpoint describes one upstream check.
type Endpoint struct {
	// Key identifies the endpoint in circuit and fault records.
	Key string `yaml:"key"`
	// URL is the http(s) address or gRPC target.
	URL string `yaml:"url"`
	// Protocol selects the prober: "http" (default) or "grpc".
	Protocol string `yaml:"protocol"`
	// Service is the gRPC health service name, empty for overall health.
	Service string `yaml:"service"`
	// Timeout overrides the shared probe timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// Config holds probe configuration.
type Config struct {
	// Interval is the pause between probe rounds.
	Interval time.Duration `yaml:"interval"`
	// Timeout bounds a single probe attempt.
	Timeout   time.Duration `yaml:"timeout"`
	Endpoints []Endpoint    `yaml:"endpoints"`
}

// DefaultConfig provides default probe configuration.
var DefaultConfig = Config{
	Interval: 60 * time.Second,
	Timeout:  10 * time.Second,
}

// Prober checks one upstream endpoint.
type Prober interface {
	// Key identifies the probed endpoint.
	Key() string

	// Check performs one probe. The returned payload becomes the
	// endpoint's last-known-good snapshot.
	Check(ctx context.Context) (any, error)

	// Close releases the prober's connections.
	Close() error
}

// Build constructs probers for all configured endpoints.
func Build(cfg Config) ([]Prober, error) {
	sharedTimeout := cfg.Timeout
	if sharedTimeout <= 0 {
		sharedTimeout = DefaultConfig.Timeout
	}

	probers := make([]Prober, 0, len(cfg.Endpoints))
	for _, ep := range cfg.Endpoints {
		timeout := ep.Timeout
		if timeout <= 0 {
			timeout = sharedTimeout
		}

		switch ep.Protocol {
		case "", "http":
			probers = append(probers, NewHTTPProber(ep.Key, ep.URL, timeout))
		case "grpc":
			p, err := NewGRPCProber(ep.Key, ep.URL, ep.Service)
			if err != nil {
				closeAll(probers)
				return nil, fmt.Errorf("build probe %s: %w", ep.Key, err)
			}
			probers = append(probers, p)
		default:
			closeAll(probers)
			return nil, fmt.Errorf("unknown probe protocol %q for %s", ep.Protocol, ep.Key)
		}
	}
	return probers, nil
}

func closeAll(probers []Prober) {
	for _, p := range probers {
		p.Close()
	}
}
