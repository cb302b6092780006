package retry

import (
	"errors"
	"sync"
	"time"
)

// CircuitBreakerState is one of Closed/Open/HalfOpen.
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// ErrCircuitBreakerOpen is returned by CircuitBreaker.Call while the
// breaker is open and resetTimeout has not yet elapsed.
var ErrCircuitBreakerOpen = errors.New("retry: circuit breaker is open")

// CircuitBreaker gates calls to a persistently-failing operation: once
// maxFailures consecutive failures are seen it opens and short-circuits
// every call with ErrCircuitBreakerOpen until resetTimeout has elapsed,
// then allows one half-open probe before closing again on success.
//
// It is a Closed/Open/HalfOpen state machine of the kind often put in
// front of database calls; here it guards a per-action-id Retrier
// instead, since the same pattern fits an
// executor that starts failing on every event just as well as a database
// that starts failing on every query.
type CircuitBreaker struct {
	mu sync.Mutex

	state        CircuitBreakerState
	failureCount int
	maxFailures  int
	resetTimeout time.Duration
	lastFailure  time.Time
}

// NewCircuitBreaker constructs a closed CircuitBreaker that opens after
// maxFailures consecutive failures and probes again after resetTimeout.
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:        StateClosed,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
	}
}

// Call runs operation through the breaker, short-circuiting with
// ErrCircuitBreakerOpen while open.
func (cb *CircuitBreaker) Call(operation func() error) error {
	cb.mu.Lock()
	if cb.state == StateOpen {
		if time.Since(cb.lastFailure) > cb.resetTimeout {
			cb.state = StateHalfOpen
		} else {
			cb.mu.Unlock()
			return ErrCircuitBreakerOpen
		}
	}
	cb.mu.Unlock()

	err := operation()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.failureCount++
		cb.lastFailure = time.Now()
		if cb.failureCount >= cb.maxFailures {
			cb.state = StateOpen
		}
		return err
	}

	cb.failureCount = 0
	cb.state = StateClosed
	return nil
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker back to Closed, discarding its failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failureCount = 0
	cb.lastFailure = time.Time{}
}
