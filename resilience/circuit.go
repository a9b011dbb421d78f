package resilience

import (
	"context"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means calls flow normally.
	StateClosed State = iota
	// StateOpen means calls are rejected with ErrCircuitOpen.
	StateOpen
	// StateHalfOpen means a limited number of probe calls are allowed.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before probing.
	// Default: 1 minute
	ResetTimeout time.Duration

	// HalfOpenMaxRequests is the max probe calls allowed while half-open.
	// Default: 1
	HalfOpenMaxRequests int

	// OnStateChange is called after every transition, outside the breaker lock.
	OnStateChange func(from, to State)

	// IsFailure decides whether an error counts toward MaxFailures.
	// Default: all non-nil errors are failures.
	IsFailure func(err error) bool

	// Now supplies the current time. Default: time.Now.
	Now func() time.Time
}

// CircuitBreaker implements the circuit breaker pattern.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu            sync.Mutex
	state         State
	failures      int
	openedAt      time.Time
	lastFailure   time.Time
	halfOpenCount int
	rejected      int64
}

type transition struct {
	from, to State
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = time.Minute
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Execute runs the operation through the circuit breaker.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := op(ctx)
	cb.afterRequest(err)
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	state, moved := cb.refreshLocked()
	cb.mu.Unlock()
	cb.notify(moved)
	return state
}

// Reset forces the circuit closed and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	moved := cb.moveLocked(StateClosed)
	cb.failures = 0
	cb.halfOpenCount = 0
	cb.mu.Unlock()
	cb.notify(moved)
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	state, moved := cb.refreshLocked()

	var err error
	switch state {
	case StateOpen:
		err = ErrCircuitOpen
	case StateHalfOpen:
		if cb.halfOpenCount >= cb.config.HalfOpenMaxRequests {
			err = ErrCircuitOpen
		} else {
			cb.halfOpenCount++
		}
	}
	if err != nil {
		cb.rejected++
	}
	cb.mu.Unlock()

	cb.notify(moved)
	return err
}

func (cb *CircuitBreaker) afterRequest(err error) {
	failed := cb.config.IsFailure(err)

	cb.mu.Lock()
	now := cb.config.Now()
	var moved []transition

	switch cb.state {
	case StateClosed:
		if failed {
			cb.failures++
			cb.lastFailure = now
			if cb.failures >= cb.config.MaxFailures {
				cb.openedAt = now
				moved = cb.moveLocked(StateOpen)
			}
		} else {
			cb.failures = 0
		}

	case StateHalfOpen:
		if failed {
			cb.lastFailure = now
			cb.openedAt = now
			moved = cb.moveLocked(StateOpen)
		} else {
			cb.failures = 0
			moved = cb.moveLocked(StateClosed)
		}
	}
	cb.mu.Unlock()

	cb.notify(moved)
}

// refreshLocked moves an open circuit to half-open once ResetTimeout has passed.
func (cb *CircuitBreaker) refreshLocked() (State, []transition) {
	if cb.state == StateOpen && cb.config.Now().Sub(cb.openedAt) >= cb.config.ResetTimeout {
		moved := cb.moveLocked(StateHalfOpen)
		cb.halfOpenCount = 0
		return cb.state, moved
	}
	return cb.state, nil
}

func (cb *CircuitBreaker) moveLocked(to State) []transition {
	from := cb.state
	if from == to {
		return nil
	}
	cb.state = to
	return []transition{{from: from, to: to}}
}

func (cb *CircuitBreaker) notify(moved []transition) {
	if cb.config.OnStateChange == nil {
		return
	}
	for _, t := range moved {
		cb.config.OnStateChange(t.from, t.to)
	}
}

// Metrics returns current circuit breaker metrics.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	state, moved := cb.refreshLocked()
	m := CircuitBreakerMetrics{
		State:       state,
		Failures:    cb.failures,
		Rejected:    cb.rejected,
		LastFailure: cb.lastFailure,
	}
	cb.mu.Unlock()
	cb.notify(moved)
	return m
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State       State
	Failures    int
	Rejected    int64
	LastFailure time.Time
}
