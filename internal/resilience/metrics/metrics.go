package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FaultsTotal tracks classified faults per class
	FaultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_faults_total",
			Help: "Total number of classified faults",
		},
		[]string{"class"},
	)

	// RetryAttemptsTotal tracks operation attempts per endpoint
	RetryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_retry_attempts_total",
			Help: "Total number of operation attempts made by the retry engine",
		},
		[]string{"endpoint"},
	)

	// CircuitRejectionsTotal tracks calls rejected by an open circuit
	CircuitRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_circuit_rejections_total",
			Help: "Total number of calls rejected without attempting because the circuit was open",
		},
		[]string{"endpoint"},
	)

	// CircuitsOpen tracks how many circuits are currently open
	CircuitsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aegis_circuits_open",
			Help: "Number of currently open circuits",
		},
	)

	// RecoveriesTotal tracks recovery strategy outcomes
	RecoveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_recoveries_total",
			Help: "Total number of recovery strategy executions",
		},
		[]string{"strategy", "outcome"},
	)

	// EscalationsTotal tracks faults escalated to the external reporter
	EscalationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aegis_escalations_total",
			Help: "Total number of faults escalated to the external reporter",
		},
	)

	// NotificationsTotal tracks displayed user notifications per severity
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_notifications_total",
			Help: "Total number of user notifications displayed",
		},
		[]string{"severity"},
	)

	// ThirdPartyFaultsTotal tracks faults contained by the isolation filter
	ThirdPartyFaultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_third_party_faults_total",
			Help: "Total number of third-party faults contained at the boundary",
		},
		[]string{"origin"},
	)

	// HealthStatus reports the current health state (0 healthy, 1 degraded, 2 unhealthy)
	HealthStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aegis_health_status",
			Help: "Current health status (0 healthy, 1 degraded, 2 unhealthy)",
		},
	)

	// ErrorRate reports the rolling error rate observed by the health monitor
	ErrorRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aegis_error_rate",
			Help: "Rolling share of failed operations observed by the health monitor",
		},
	)
)
