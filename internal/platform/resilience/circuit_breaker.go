package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// StateListener observes breaker transitions. It runs after the breaker lock
// is released and may call back into the breaker.
type StateListener func(from, to CircuitState)

// CircuitBreaker trips after consecutive failures, rejects calls until the
// open timeout passes, then admits a bounded number of probes. Every probe
// must succeed to close it again. A nil breaker admits every call.
type CircuitBreaker struct {
	failureThreshold int
	openTimeout      time.Duration
	halfOpenMaxReq   int
	now              func() time.Time

	mu        sync.Mutex
	state     CircuitState
	failures  int
	inFlight  int
	passed    int
	reopensAt time.Time
	listener  StateListener
}

// NewCircuitBreakerFromConfig returns nil for a disabled config.
func NewCircuitBreakerFromConfig(cfg CircuitBreakerConfig) *CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}
	cfg = cfg.WithDefaults()
	return NewCircuitBreaker(cfg.FailureThreshold, cfg.OpenTimeout, cfg.HalfOpenMaxReq)
}

func NewCircuitBreaker(failureThreshold int, openTimeout time.Duration, halfOpenMaxReq int) *CircuitBreaker {
	cfg := CircuitBreakerConfig{
		FailureThreshold: failureThreshold,
		OpenTimeout:      openTimeout,
		HalfOpenMaxReq:   halfOpenMaxReq,
	}.WithDefaults()

	return &CircuitBreaker{
		failureThreshold: cfg.FailureThreshold,
		openTimeout:      cfg.OpenTimeout,
		halfOpenMaxReq:   cfg.HalfOpenMaxReq,
		now:              time.Now,
		state:            CircuitStateClosed,
	}
}

// OnStateChange replaces the transition listener.
func (b *CircuitBreaker) OnStateChange(fn StateListener) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.listener = fn
	b.mu.Unlock()
}

// Allow reserves a slot for one call. Each admitted call must be followed by
// RecordSuccess or RecordFailure.
func (b *CircuitBreaker) Allow() error {
	if b == nil {
		return nil
	}
	var err error
	b.update(func() []CircuitState {
		moved := b.expire()
		switch b.state {
		case CircuitStateOpen:
			err = ErrCircuitOpen
		case CircuitStateHalfOpen:
			if b.inFlight >= b.halfOpenMaxReq {
				err = ErrCircuitOpen
				break
			}
			b.inFlight++
		}
		return moved
	})
	return err
}

func (b *CircuitBreaker) RecordSuccess() {
	if b == nil {
		return
	}
	b.update(func() []CircuitState {
		switch b.state {
		case CircuitStateClosed:
			b.failures = 0
		case CircuitStateHalfOpen:
			b.inFlight = max(b.inFlight-1, 0)
			b.passed++
			if b.passed >= b.halfOpenMaxReq && b.inFlight == 0 {
				return b.moveTo(CircuitStateClosed)
			}
		}
		return nil
	})
}

func (b *CircuitBreaker) RecordFailure() {
	if b == nil {
		return
	}
	b.update(func() []CircuitState {
		switch b.state {
		case CircuitStateClosed:
			b.failures++
			if b.failures >= b.failureThreshold {
				return b.moveTo(CircuitStateOpen)
			}
		case CircuitStateHalfOpen:
			return b.moveTo(CircuitStateOpen)
		case CircuitStateOpen:
			b.reopensAt = b.now().Add(b.openTimeout)
		}
		return nil
	})
}

// State reports the current state. An open breaker whose timeout has passed
// reports half-open.
func (b *CircuitBreaker) State() CircuitState {
	if b == nil {
		return CircuitStateClosed
	}
	var state CircuitState
	b.update(func() []CircuitState {
		moved := b.expire()
		state = b.state
		return moved
	})
	return state
}

// Execute runs fn behind the breaker. Only errors for which countable returns
// true move the breaker toward open; the rest count as a healthy call.
func (b *CircuitBreaker) Execute(fn func() error, countable func(error) bool) error {
	if err := b.Allow(); err != nil {
		return err
	}
	err := fn()
	if err != nil && (countable == nil || countable(err)) {
		b.RecordFailure()
	} else {
		b.RecordSuccess()
	}
	return err
}

// update runs fn under the lock and notifies the listener of the transition
// fn reports, as a [from, to] pair.
func (b *CircuitBreaker) update(fn func() []CircuitState) {
	b.mu.Lock()
	moved := fn()
	listener := b.listener
	b.mu.Unlock()

	if listener != nil && len(moved) == 2 {
		listener(moved[0], moved[1])
	}
}

func (b *CircuitBreaker) expire() []CircuitState {
	if b.state == CircuitStateOpen && !b.now().Before(b.reopensAt) {
		return b.moveTo(CircuitStateHalfOpen)
	}
	return nil
}

func (b *CircuitBreaker) moveTo(to CircuitState) []CircuitState {
	from := b.state
	b.state = to
	b.failures, b.inFlight, b.passed = 0, 0, 0
	b.reopensAt = time.Time{}
	if to == CircuitStateOpen {
		b.reopensAt = b.now().Add(b.openTimeout)
	}
	return []CircuitState{from, to}
}
