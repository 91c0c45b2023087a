// Package isolate separates faults raised by the application's own code
// from faults raised by embedded third-party integrations, and feeds the
// surviving ones into recovery.
package isolate

import (
	"fmt"
	"log/slog"
)

// Kind distinguishes the two host fault channels.
type Kind string

const (
	// KindSync marks uncaught synchronous faults (recovered panics).
	KindSync Kind = "sync"
	// KindAsync marks errors reported by background operations.
	KindAsync Kind = "async"
)

// Event is an unhandled fault surfaced by a source, before
// classification. Origin identifies the code that raised it.
type Event struct {
	Err    error
	Origin string
	Kind   Kind
}

// Source emits unhandled fault events. Synthetic events can be injected
// in tests through ReportSource without platform-global hooks.
type Source interface {
	Events() <-chan Event
}

// ReportSource collects errors reported by background operations, the
// async fault channel of the host application.
type ReportSource struct {
	ch chan Event
}

// NewReportSource creates a source with the given buffer. Reports beyond
// the buffer are dropped rather than blocking the reporting goroutine.
func NewReportSource(buffer int) *ReportSource {
	if buffer <= 0 {
		buffer = 64
	}
	return &ReportSource{ch: make(chan Event, buffer)}
}

// Report submits an unhandled error. It never blocks.
func (s *ReportSource) Report(origin string, err error) {
	if err == nil {
		return
	}
	select {
	case s.ch <- Event{Err: err, Origin: origin, Kind: KindAsync}:
	default:
		slog.Debug("Fault source buffer full, dropping", "origin", origin, "error", err)
	}
}

func (s *ReportSource) Events() <-chan Event {
	return s.ch
}

// PanicSource turns recovered goroutine panics into events, the sync
// fault channel of the host application.
type PanicSource struct {
	ch chan Event
}

// NewPanicSource creates a source with the given buffer.
func NewPanicSource(buffer int) *PanicSource {
	if buffer <= 0 {
		buffer = 16
	}
	return &PanicSource{ch: make(chan Event, buffer)}
}

// Go runs fn in a goroutine, converting a panic into an event instead of
// crashing the process.
func (s *PanicSource) Go(origin string, fn func()) {
	go func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", r)
			}
			select {
			case s.ch <- Event{Err: err, Origin: origin, Kind: KindSync}:
			default:
				slog.Debug("Fault source buffer full, dropping", "origin", origin, "error", err)
			}
		}()
		fn()
	}()
}

func (s *PanicSource) Events() <-chan Event {
	return s.ch
}
