package health

import (
	"sync"
	"time"
)

type sample struct {
	at      time.Time
	failure bool
}

// tracker keeps a sliding window of operation outcomes for the rolling
// error rate.
type tracker struct {
	mu      sync.Mutex
	window  time.Duration
	samples []sample
}

func newTracker(window time.Duration) *tracker {
	return &tracker{window: window}
}

// Record appends an operation outcome.
func (t *tracker) Record(failure bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(time.Now())
	t.samples = append(t.samples, sample{at: time.Now(), failure: failure})
}

// Rate returns the failure ratio over the window, 0 with no samples.
func (t *tracker) Rate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(time.Now())

	if len(t.samples) == 0 {
		return 0
	}
	failures := 0
	for _, s := range t.samples {
		if s.failure {
			failures++
		}
	}
	return float64(failures) / float64(len(t.samples))
}

// prune drops samples older than the window. Samples are appended in
// time order, so the first kept index bounds the rest.
func (t *tracker) prune(now time.Time) {
	cutoff := now.Add(-t.window)
	keep := 0
	for keep < len(t.samples) && t.samples[keep].at.Before(cutoff) {
		keep++
	}
	if keep > 0 {
		t.samples = append(t.samples[:0], t.samples[keep:]...)
	}
}
