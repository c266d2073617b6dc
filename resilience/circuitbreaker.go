// Package resilience provides stdlib-only building blocks — circuit
// breaking, retry, rate limiting, hedged requests — for calling flaky
// external services such as LLM providers.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is a circuit breaker's current state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// ErrCircuitOpen is returned by Execute when the circuit is open and the
// reset timeout has not yet elapsed.
var ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

const (
	defaultFailureThreshold = 5
	defaultResetTimeout     = 30 * time.Second
)

// CircuitBreaker trips to open after consecutive failures, rejecting calls
// for resetTimeout before allowing a single half-open probe.
type CircuitBreaker struct {
	failureThreshold int
	resetTimeout     time.Duration

	mu          sync.Mutex
	state       State
	failures    int
	openedAt    time.Time
}

// NewCircuitBreaker constructs a CircuitBreaker. failureThreshold <= 0
// defaults to 5; resetTimeout <= 0 defaults to 30s.
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = defaultFailureThreshold
	}
	if resetTimeout <= 0 {
		resetTimeout = defaultResetTimeout
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		state:            StateClosed,
	}
}

// State reports the breaker's current state, transitioning open → half-open
// as a side effect once resetTimeout has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

func (cb *CircuitBreaker) stateLocked() State {
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.resetTimeout {
		cb.state = StateHalfOpen
	}
	return cb.state
}

// Execute runs fn if the circuit allows it. A closed circuit always runs
// fn; an open circuit rejects immediately with ErrCircuitOpen until the
// reset timeout elapses, then allows exactly one half-open probe. A
// successful call closes the circuit and resets the failure count; a
// failure in the closed state increments the count (tripping to open at
// threshold), and a failure in the half-open state reopens immediately.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	cb.mu.Lock()
	state := cb.stateLocked()
	if state == StateOpen {
		cb.mu.Unlock()
		return nil, ErrCircuitOpen
	}
	cb.mu.Unlock()

	result, err := fn(ctx)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		if cb.state == StateHalfOpen {
			cb.state = StateOpen
			cb.openedAt = time.Now()
			cb.failures = 0
			return result, err
		}
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.state = StateOpen
			cb.openedAt = time.Now()
		}
		return result, err
	}

	cb.state = StateClosed
	cb.failures = 0
	return result, nil
}

// Reset forces the circuit back to closed, clearing the failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
}
