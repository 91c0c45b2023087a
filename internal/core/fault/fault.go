// Package fault defines the fault taxonomy and the classifier that maps
// raised errors onto it. Classification drives retry policy, recovery
// strategy selection, and user notification severity.
package fault

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Class tags a fault with its taxonomy category.
type Class string

const (
	ClassNetwork     Class = "network"
	ClassTimeout     Class = "timeout"
	ClassServer      Class = "server"
	ClassClient      Class = "client"
	ClassValidation  Class = "validation"
	ClassRateLimited Class = "rate_limited"
	ClassCircuitOpen Class = "circuit_open"
	ClassState       Class = "state"
	ClassUnknown     Class = "unknown"
)

// Severity indicates how a fault should be surfaced.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Fault is a classified error. It wraps the original cause and carries
// the classification outcome plus the policy flags derived from it.
// Faults are process-local records; they are never persisted.
type Fault struct {
	ID          string              `json:"id"`
	EndpointKey string              `json:"endpoint_key,omitempty"`
	Class       Class               `json:"class"`
	Severity    Severity            `json:"severity"`
	StatusCode  int                 `json:"status_code,omitempty"`
	Message     string              `json:"message"`
	Origin      string              `json:"origin,omitempty"`
	Fields      map[string][]string `json:"fields,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
	Recoverable bool                `json:"recoverable"`
	Retryable   bool                `json:"retryable"`

	Cause error `json:"-"`
}

func (f *Fault) Error() string {
	if f.EndpointKey != "" {
		return fmt.Sprintf("%s fault on %s: %s", f.Class, f.EndpointKey, f.Message)
	}
	return fmt.Sprintf("%s fault: %s", f.Class, f.Message)
}

func (f *Fault) Unwrap() error {
	return f.Cause
}

// Key identifies a fault for recovery-attempt bookkeeping. Faults with
// the same endpoint and message count against the same attempt budget.
func (f *Fault) Key() string {
	if f.EndpointKey != "" {
		return f.EndpointKey + ":" + f.Message
	}
	if f.Origin != "" {
		return f.Origin + ":" + f.Message
	}
	return string(f.Class) + ":" + f.Message
}

// New builds a fault of an explicit class, for callers that already know
// the category (state corruption reported by the application itself).
func New(class Class, message string) *Fault {
	return apply(&Fault{
		ID:        uuid.New().String(),
		Class:     class,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// ErrCircuitOpen is the cause carried by synthetic circuit-open faults.
var ErrCircuitOpen = errors.New("circuit open")

// CircuitOpen builds the synthetic fault raised when a call is rejected
// without attempting because the endpoint's circuit is open. It is never
// retryable.
func CircuitOpen(key string) *Fault {
	return &Fault{
		ID:          uuid.New().String(),
		EndpointKey: key,
		Class:       ClassCircuitOpen,
		Severity:    SeverityWarning,
		Message:     fmt.Sprintf("service unavailable: circuit open for %s", key),
		Timestamp:   time.Now(),
		Cause:       ErrCircuitOpen,
	}
}

// StatusError is an error produced by an upstream HTTP response. Fields
// holds structured field-level validation errors when the response
// payload carried them.
type StatusError struct {
	Code   int
	Status string
	Fields map[string][]string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("upstream returned %d %s", e.Code, e.Status)
	}
	return fmt.Sprintf("upstream returned %d", e.Code)
}

// apply derives severity and the retry/recovery policy flags from the
// class. Policy lives here, not in the retry engine.
func apply(f *Fault) *Fault {
	switch f.Class {
	case ClassNetwork, ClassTimeout, ClassRateLimited:
		f.Severity = SeverityError
		f.Retryable = true
		f.Recoverable = true
	case ClassServer:
		f.Severity = SeverityError
		f.Retryable = f.StatusCode != http.StatusNotImplemented
		f.Recoverable = true
	case ClassValidation, ClassClient:
		f.Severity = SeverityWarning
	case ClassCircuitOpen:
		f.Severity = SeverityWarning
	case ClassState:
		f.Severity = SeverityError
		f.Recoverable = true
	default:
		f.Severity = SeverityError
		f.Recoverable = true
	}
	return f
}
