package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_BasicTransitions(t *testing.T) {
	b := NewCircuitBreaker(2, 5*time.Second, 1)

	now := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	if err := b.Allow(); err != nil {
		t.Fatalf("expected allow in closed state: %v", err)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after first failure, got %s", state)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected open after threshold failures, got %s", state)
	}

	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit open error, got %v", err)
	}

	now = now.Add(6 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected half-open probe to pass, got %v", err)
	}
	if state := b.State(); state != CircuitStateHalfOpen {
		t.Fatalf("expected half-open state, got %s", state)
	}

	b.RecordSuccess()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after successful half-open probe, got %s", state)
	}
}

func TestCircuitBreaker_ExecuteCountsOnlyCountableErrors(t *testing.T) {
	b := NewCircuitBreakerFromConfig(CircuitBreakerConfig{Enabled: true, FailureThreshold: 1, OpenTimeout: time.Minute})
	errTransient := errors.New("upstream 503")
	errPermanent := errors.New("upstream 404")
	countable := func(err error) bool { return errors.Is(err, errTransient) }

	if err := b.Execute(func() error { return errPermanent }, countable); !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error to pass through, got %v", err)
	}
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("permanent error should not open the breaker, got %s", state)
	}

	if err := b.Execute(func() error { return errTransient }, countable); !errors.Is(err, errTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if err := b.Execute(func() error { return nil }, countable); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected open breaker to reject, got %v", err)
	}
}

func TestCircuitBreaker_DisabledConfigAdmitsEverything(t *testing.T) {
	b := NewCircuitBreakerFromConfig(CircuitBreakerConfig{Enabled: false})
	if b != nil {
		t.Fatalf("disabled config should yield a nil breaker")
	}
	for i := 0; i < 10; i++ {
		b.RecordFailure()
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("nil breaker must admit calls: %v", err)
	}
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("nil breaker should report closed, got %s", state)
	}
}

func TestCircuitBreakerConfig_WithDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   CircuitBreakerConfig
		want CircuitBreakerConfig
	}{
		{
			name: "zero value",
			in:   CircuitBreakerConfig{Enabled: true},
			want: CircuitBreakerConfig{Enabled: true, FailureThreshold: 5, OpenTimeout: 30 * time.Second, HalfOpenMaxReq: 1},
		},
		{
			name: "negative fields",
			in:   CircuitBreakerConfig{FailureThreshold: -1, OpenTimeout: -time.Second, HalfOpenMaxReq: -3},
			want: CircuitBreakerConfig{FailureThreshold: 5, OpenTimeout: 30 * time.Second, HalfOpenMaxReq: 1},
		},
		{
			name: "set fields kept",
			in:   CircuitBreakerConfig{Enabled: true, FailureThreshold: 2, OpenTimeout: time.Second, HalfOpenMaxReq: 3},
			want: CircuitBreakerConfig{Enabled: true, FailureThreshold: 2, OpenTimeout: time.Second, HalfOpenMaxReq: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.WithDefaults(); got != tt.want {
				t.Fatalf("WithDefaults()=%+v want=%+v", got, tt.want)
			}
		})
	}
}

func TestCircuitBreaker_ListenerSeesTransitions(t *testing.T) {
	b := NewCircuitBreaker(1, time.Second, 2)
	now := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	var moves []string
	b.OnStateChange(func(from, to CircuitState) {
		moves = append(moves, string(from)+">"+string(to))
		_ = b.State() // listeners run outside the lock
	})

	b.RecordFailure()
	now = now.Add(time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("first probe: %v", err)
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("second probe: %v", err)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("third probe should be rejected, got %v", err)
	}
	b.RecordSuccess()
	if state := b.State(); state != CircuitStateHalfOpen {
		t.Fatalf("one probe in flight keeps it half-open, got %s", state)
	}
	b.RecordSuccess()

	want := []string{"closed>open", "open>half_open", "half_open>closed"}
	if len(moves) != len(want) {
		t.Fatalf("moves=%v want=%v", moves, want)
	}
	for i := range want {
		if moves[i] != want[i] {
			t.Fatalf("moves=%v want=%v", moves, want)
		}
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	b := NewCircuitBreaker(1, time.Second, 1)
	now := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	now = now.Add(time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("probe: %v", err)
	}
	b.RecordFailure()
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("failed probe should reopen, got %s", state)
	}

	now = now.Add(500 * time.Millisecond)
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open timeout restarts on reopen, got %v", err)
	}
}
