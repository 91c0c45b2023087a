package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ledgerdesk/aegis/internal/resilience/breaker"
)

// CircuitLister exposes per-endpoint circuit state for the detailed
// view.
type CircuitLister interface {
	Status() map[string]breaker.State
}

// Server provides HTTP endpoints for health monitoring.
type Server struct {
	monitor  *Monitor
	circuits CircuitLister
	server   *http.Server
}

// NewServer creates a new health server. circuits may be nil.
func NewServer(monitor *Monitor, circuits CircuitLister, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		monitor:  monitor,
		circuits: circuits,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.monitor.Snapshot()

	response := map[string]string{"status": string(snap.Status)}
	w.Header().Set("Content-Type", "application/json")

	if snap.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	type detailed struct {
		Snapshot
		Circuits map[string]breaker.State `json:"circuits"`
	}

	response := detailed{Snapshot: s.monitor.Snapshot()}
	if s.circuits != nil {
		response.Circuits = s.circuits.Status()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
