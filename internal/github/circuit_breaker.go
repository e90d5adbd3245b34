// SPDX-License-Identifier: MIT

package github

import (
	"errors"
	"sync"
	"time"

	"github.com/kerryghan-relot/github-language-analysis/internal/metrics"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // Normal operation, requests allowed
	StateOpen                  // Circuit open, requests blocked
	StateHalfOpen              // One trial request allowed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// ErrCircuitOpen is returned without contacting GitHub while the breaker is open.
var ErrCircuitOpen = errors.New("github: circuit breaker is open")

const breakerComponent = "github"

// CircuitBreaker stops hammering GitHub after consecutive upstream failures.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            State
	failures         int
	failureThreshold int
	resetTimeout     time.Duration
	openedAt         time.Time
	probing          bool
	now              func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(threshold int, resetTimeout time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	cb := &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: threshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
	}
	metrics.SetCircuitBreakerState(breakerComponent, cb.state.String())
	return cb
}

// Execute runs fn if the circuit allows it. An error returned by fn counts as a failure.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allowRequest() {
		return ErrCircuitOpen
	}

	if err := fn(); err != nil {
		cb.recordFailure()
		return err
	}

	cb.recordSuccess()
	return nil
}

func (cb *CircuitBreaker) allowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.resetTimeout {
			return false
		}
		cb.setState(StateHalfOpen)
		cb.probing = true
		return true
	default:
		// Half-open: a single trial request at a time.
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.probing = false

	if cb.state == StateHalfOpen || cb.failures >= cb.failureThreshold {
		cb.openedAt = cb.now()
		cb.setState(StateOpen)
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.probing = false
	cb.setState(StateClosed)
}

// setState must be called with mu held.
func (cb *CircuitBreaker) setState(s State) {
	if cb.state == s {
		return
	}
	cb.state = s
	metrics.SetCircuitBreakerState(breakerComponent, s.String())
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
