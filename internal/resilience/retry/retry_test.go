package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ledgerdesk/aegis/internal/core/fault"
)

// =============================================================================
// Mock Breaker
// =============================================================================

type mockBreaker struct {
	mu        sync.Mutex
	open      bool
	successes int
	failures  int
}

func (m *mockBreaker) IsOpen(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

func (m *mockBreaker) RecordSuccess(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.successes++
}

func (m *mockBreaker) RecordFailure(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func testEngine(b Breaker) *Engine {
	return NewEngine(Config{
		MaxRetries: 3,
		BaseDelay:  5 * time.Millisecond,
		MaxDelay:   100 * time.Millisecond,
	}, b)
}

// =============================================================================
// Backoff Tests
// =============================================================================

func TestBackoff_Delay(t *testing.T) {
	cfg := Config{BaseDelay: 1 * time.Second, MaxDelay: 10 * time.Second}

	// Attempt 0: 1*2^0 = 1s
	if d := backoff(0, cfg); d != 1*time.Second {
		t.Errorf("expected 1s, got %v", d)
	}

	// Attempt 1: 1*2^1 = 2s
	if d := backoff(1, cfg); d != 2*time.Second {
		t.Errorf("expected 2s, got %v", d)
	}

	// Attempt 2: 1*2^2 = 4s
	if d := backoff(2, cfg); d != 4*time.Second {
		t.Errorf("expected 4s, got %v", d)
	}

	// Attempt 10: cap at MaxDelay (10s)
	if d := backoff(10, cfg); d != 10*time.Second {
		t.Errorf("expected 10s, got %v", d)
	}
}

// =============================================================================
// Engine Tests
// =============================================================================

func TestEngine_SuccessFirstTry(t *testing.T) {
	b := &mockBreaker{}
	e := testEngine(b)

	result, err := e.Do(context.Background(), "GET /customers", func(ctx context.Context) (any, error) {
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if result != "ok" {
		t.Errorf("result = %v, want ok", result)
	}
	if b.successes != 1 {
		t.Errorf("successes = %d, want 1", b.successes)
	}
	if b.failures != 0 {
		t.Errorf("failures = %d, want 0", b.failures)
	}
}

func TestEngine_NonRetryableSingleAttempt(t *testing.T) {
	b := &mockBreaker{}
	e := testEngine(b)

	attempts := 0
	_, err := e.Do(context.Background(), "POST /invoices", func(ctx context.Context) (any, error) {
		attempts++
		return nil, &fault.StatusError{Code: 404, Status: "Not Found"}
	})

	if err == nil {
		t.Fatal("expected an error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want exactly 1 for a 4xx", attempts)
	}
	if b.failures != 1 {
		t.Errorf("failures = %d, want 1", b.failures)
	}

	var f *fault.Fault
	if !errors.As(err, &f) {
		t.Fatal("expected a classified fault")
	}
	if f.Class != fault.ClassClient {
		t.Errorf("class = %v, want %v", f.Class, fault.ClassClient)
	}
	if f.EndpointKey != "POST /invoices" {
		t.Errorf("endpoint key = %q", f.EndpointKey)
	}
}

func TestEngine_ValidationSingleAttempt(t *testing.T) {
	b := &mockBreaker{}
	e := testEngine(b)

	attempts := 0
	_, err := e.Do(context.Background(), "POST /products", func(ctx context.Context) (any, error) {
		attempts++
		return nil, &fault.StatusError{
			Code:   422,
			Fields: map[string][]string{"price": {"must be positive"}},
		}
	})

	if err == nil {
		t.Fatal("expected an error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want exactly 1 for validation", attempts)
	}
}

func TestEngine_RetriesUntilSuccess(t *testing.T) {
	b := &mockBreaker{}
	e := testEngine(b)

	attempts := 0
	result, err := e.Do(context.Background(), "GET /sales", func(ctx context.Context) (any, error) {
		attempts++
		if attempts < 3 {
			return nil, &fault.StatusError{Code: 503}
		}
		return 42, nil
	})

	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if result != 42 {
		t.Errorf("result = %v, want 42", result)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if b.successes != 1 {
		t.Errorf("successes = %d, want 1", b.successes)
	}
	if b.failures != 0 {
		t.Errorf("failures = %d, want 0 (success clears the sequence)", b.failures)
	}
}

func TestEngine_RateLimitedThenSuccess(t *testing.T) {
	b := &mockBreaker{}
	e := testEngine(b)

	attempts := 0
	result, err := e.Do(context.Background(), "GET /reports", func(ctx context.Context) (any, error) {
		attempts++
		if attempts == 1 {
			return nil, &fault.StatusError{Code: 429, Status: "Too Many Requests"}
		}
		return "report", nil
	})

	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if result != "report" {
		t.Errorf("result = %v, want report", result)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if b.successes != 1 {
		t.Errorf("successes = %d, want 1", b.successes)
	}
}

func TestEngine_ExhaustionRecordsOneFailure(t *testing.T) {
	b := &mockBreaker{}
	e := testEngine(b)

	attempts := 0
	_, err := e.Do(context.Background(), "GET /customers", func(ctx context.Context) (any, error) {
		attempts++
		return nil, errors.New("connection refused")
	})

	if err == nil {
		t.Fatal("expected an error")
	}
	// MaxRetries=3 means up to 4 attempts total.
	if attempts != 4 {
		t.Errorf("attempts = %d, want 4", attempts)
	}
	if b.failures != 1 {
		t.Errorf("failures = %d, want exactly 1 after exhaustion", b.failures)
	}

	var f *fault.Fault
	if !errors.As(err, &f) {
		t.Fatal("expected a classified fault")
	}
	if f.Class != fault.ClassNetwork {
		t.Errorf("class = %v, want %v", f.Class, fault.ClassNetwork)
	}
}

func TestEngine_NotImplementedNotRetried(t *testing.T) {
	b := &mockBreaker{}
	e := testEngine(b)

	attempts := 0
	_, err := e.Do(context.Background(), "POST /sync", func(ctx context.Context) (any, error) {
		attempts++
		return nil, &fault.StatusError{Code: 501}
	})

	if err == nil {
		t.Fatal("expected an error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (501 is not retryable)", attempts)
	}
}

func TestEngine_OpenCircuitFailsFast(t *testing.T) {
	b := &mockBreaker{open: true}
	e := testEngine(b)

	attempts := 0
	_, err := e.Do(context.Background(), "GET /customers", func(ctx context.Context) (any, error) {
		attempts++
		return "ok", nil
	})

	if attempts != 0 {
		t.Errorf("attempts = %d, want 0 while circuit is open", attempts)
	}

	var f *fault.Fault
	if !errors.As(err, &f) {
		t.Fatal("expected a classified fault")
	}
	if f.Class != fault.ClassCircuitOpen {
		t.Errorf("class = %v, want %v", f.Class, fault.ClassCircuitOpen)
	}
	if f.Retryable {
		t.Error("circuit-open fault must carry Retryable=false")
	}
	if b.failures != 0 {
		t.Errorf("failures = %d, want 0 (rejection is not a failure)", b.failures)
	}
}

func TestEngine_BackoffProgression(t *testing.T) {
	b := &mockBreaker{}
	e := NewEngine(Config{
		MaxRetries: 2,
		BaseDelay:  20 * time.Millisecond,
		MaxDelay:   1 * time.Second,
	}, b)

	var stamps []time.Time
	_, _ = e.Do(context.Background(), "GET /sales", func(ctx context.Context) (any, error) {
		stamps = append(stamps, time.Now())
		return nil, errors.New("connection refused")
	})

	if len(stamps) != 3 {
		t.Fatalf("attempts = %d, want 3", len(stamps))
	}

	first := stamps[1].Sub(stamps[0])
	second := stamps[2].Sub(stamps[1])

	// Sleeps guarantee at-least semantics; allow generous upper slack.
	if first < 20*time.Millisecond {
		t.Errorf("first delay = %v, want >= 20ms", first)
	}
	if second < 40*time.Millisecond {
		t.Errorf("second delay = %v, want >= 40ms", second)
	}
	if second < first {
		t.Errorf("backoff should grow: first %v, second %v", first, second)
	}
}

func TestEngine_CancelDuringBackoff(t *testing.T) {
	b := &mockBreaker{}
	e := NewEngine(Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   10 * time.Second,
	}, b)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := e.Do(ctx, "GET /customers", func(ctx context.Context) (any, error) {
			return nil, errors.New("connection refused")
		})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("cancellation did not interrupt the backoff wait")
	}

	if b.failures != 1 {
		t.Errorf("failures = %d, want 1 (abandoned sequence still failed)", b.failures)
	}
}

func TestEngine_PerCallOverride(t *testing.T) {
	b := &mockBreaker{}
	e := testEngine(b)

	attempts := 0
	_, err := e.DoWithConfig(context.Background(), "GET /reports", func(ctx context.Context) (any, error) {
		attempts++
		return nil, &fault.StatusError{Code: 500}
	}, Config{MaxRetries: 1, BaseDelay: time.Millisecond})

	if err == nil {
		t.Fatal("expected an error")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2 with MaxRetries=1", attempts)
	}
}
