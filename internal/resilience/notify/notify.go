// Package notify serializes user-facing fault and recovery messages.
// The queue displays exactly one item at a time, oldest first, with a
// fixed delay between items.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdesk/aegis/internal/core/fault"
	"github.com/ledgerdesk/aegis/internal/resilience/metrics"
)

// Item is a single user-facing message. Persistent items are not
// auto-dismissed by the display.
type Item struct {
	ID         string         `json:"id"`
	Message    string         `json:"message"`
	Severity   fault.Severity `json:"severity"`
	Persistent bool           `json:"persistent"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Display renders one notification. Show blocks for the duration of the
// item's active window.
type Display interface {
	Show(item Item)
}

// Config holds notification queue configuration.
type Config struct {
	Delay time.Duration `yaml:"delay"`
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	Delay: 1 * time.Second,
}

// Queue is a FIFO of notifications drained by a single goroutine. A
// processing flag ensures only one drain loop runs; it is started on
// demand by the first push into an idle queue.
type Queue struct {
	mu         sync.Mutex
	cfg        Config
	display    Display
	items      []Item
	processing bool
	stopped    bool
	stop       chan struct{}
}

// NewQueue creates a queue draining into display. A nil display falls
// back to the slog-backed one.
func NewQueue(cfg Config, display Display) *Queue {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultConfig.Delay
	}
	if display == nil {
		display = LogDisplay{}
	}
	return &Queue{
		cfg:     cfg,
		display: display,
		stop:    make(chan struct{}),
	}
}

// Notify enqueues a plain message.
func (q *Queue) Notify(message string, severity fault.Severity) {
	q.Push(Item{Message: message, Severity: severity})
}

// NotifyPersistent enqueues a message the display must not auto-dismiss.
func (q *Queue) NotifyPersistent(message string, severity fault.Severity) {
	q.Push(Item{Message: message, Severity: severity, Persistent: true})
}

// Push enqueues item, backfilling its ID and timestamp, and starts the
// drain loop if the queue is idle.
func (q *Queue) Push(item Item) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return
	}

	q.items = append(q.items, item)
	if !q.processing {
		q.processing = true
		go q.drain()
	}
}

// Len returns the number of queued, not yet displayed items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Stop halts the drain loop. Queued items are dropped.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return
	}
	q.stopped = true
	close(q.stop)
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if q.stopped || len(q.items) == 0 {
			q.processing = false
			q.mu.Unlock()
			return
		}
		item := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		q.display.Show(item)
		metrics.NotificationsTotal.WithLabelValues(string(item.Severity)).Inc()

		select {
		case <-q.stop:
		case <-time.After(q.cfg.Delay):
		}
	}
}

// LogDisplay renders notifications into the structured log. It stands in
// for a real UI surface.
type LogDisplay struct{}

func (LogDisplay) Show(item Item) {
	switch item.Severity {
	case fault.SeverityError, fault.SeverityCritical:
		slog.Error("[Notice] "+item.Message, "id", item.ID, "persistent", item.Persistent)
	case fault.SeverityWarning:
		slog.Warn("[Notice] "+item.Message, "id", item.ID, "persistent", item.Persistent)
	default:
		slog.Info("[Notice] "+item.Message, "id", item.ID, "persistent", item.Persistent)
	}
}
