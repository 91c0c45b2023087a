// Package guard protects in-flight submissions and unsaved input from
// accidental restarts and exits, and gates full client restarts behind
// a critical-fault check.
package guard

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/ledgerdesk/aegis/internal/core/fault"
)

// ConfirmFunc asks the user to confirm a disruptive action. Returning
// true approves it.
type ConfirmFunc func(reason string) bool

// RestartFunc performs the actual restart of the host application.
type RestartFunc func()

// Guard tracks submissions and unsaved input, and decides whether exit
// and restart requests may proceed.
type Guard struct {
	mu       sync.Mutex
	inflight map[string]int
	dirty    map[string]struct{}
	confirm  ConfirmFunc
	restart  RestartFunc
}

// New creates a guard. confirm and restart may be nil; without a confirm
// hook, exits are refused while work is in flight.
func New(confirm ConfirmFunc, restart RestartFunc) *Guard {
	return &Guard{
		inflight: make(map[string]int),
		dirty:    make(map[string]struct{}),
		confirm:  confirm,
		restart:  restart,
	}
}

// Submit claims ownership of a named submission: the handler runs in
// place of any environment default, and the submission counts as in
// flight until the handler returns.
func (g *Guard) Submit(ctx context.Context, name string, handler func(context.Context) error) error {
	if handler == nil {
		return fmt.Errorf("no handler registered for submission %s", name)
	}
	release := g.Begin(name)
	defer release()
	return handler(ctx)
}

// Begin marks a named submission as in flight. The returned release
// function settles it and is safe to call more than once.
func (g *Guard) Begin(name string) func() {
	g.mu.Lock()
	g.inflight[name]++
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			g.inflight[name]--
			if g.inflight[name] <= 0 {
				delete(g.inflight, name)
			}
		})
	}
}

// InFlight returns the number of active submissions.
func (g *Guard) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	total := 0
	for _, n := range g.inflight {
		total += n
	}
	return total
}

// MarkDirty records unsaved input for an editor id.
func (g *Guard) MarkDirty(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dirty[id] = struct{}{}
}

// MarkClean clears the unsaved flag for an editor id.
func (g *Guard) MarkClean(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.dirty, id)
}

// Dirty reports whether any unsaved input remains.
func (g *Guard) Dirty() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.dirty) > 0
}

// AllowExit decides whether the client may terminate now. With work in
// flight or unsaved input it defers to the confirm hook; without a hook
// the exit is refused.
func (g *Guard) AllowExit() bool {
	reason := g.busyReason()
	if reason == "" {
		return true
	}
	if g.confirm == nil {
		slog.Warn("Exit refused", "reason", reason)
		return false
	}
	return g.confirm(reason)
}

// RequestRestart asks for a full client restart on behalf of a fault.
// Only critical faults pass; anything else is suppressed and logged.
// force bypasses both the fault check and the exit confirmation.
func (g *Guard) RequestRestart(f *fault.Fault, force bool) bool {
	if !force {
		if !critical(f) {
			slog.Warn("Restart suppressed", "fault", faultKey(f))
			return false
		}
		if !g.AllowExit() {
			slog.Warn("Restart deferred by confirmation", "fault", f.Key())
			return false
		}
	}

	slog.Info("Restarting client", "forced", force, "fault", faultKey(f))
	if g.restart != nil {
		g.restart()
	}
	return true
}

// critical reports whether the fault justifies a restart: a critical
// severity, or an upgrade-required response meaning the running client
// is stale.
func critical(f *fault.Fault) bool {
	if f == nil {
		return false
	}
	return f.Severity == fault.SeverityCritical || f.StatusCode == http.StatusUpgradeRequired
}

func (g *Guard) busyReason() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var parts []string
	total := 0
	for _, n := range g.inflight {
		total += n
	}
	if total > 0 {
		parts = append(parts, fmt.Sprintf("%d submission(s) in flight", total))
	}
	if len(g.dirty) > 0 {
		parts = append(parts, "unsaved changes")
	}
	return strings.Join(parts, ", ")
}

func faultKey(f *fault.Fault) string {
	if f == nil {
		return "none"
	}
	return f.Key()
}
