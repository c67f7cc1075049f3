package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

type State int

const (
	StateClosed   State = iota // normal, requests pass through
	StateOpen                  // tripped, requests rejected immediately
	StateHalfOpen              // probing, a few requests allowed through
)

type Config struct {
	// FailureThreshold opens the breaker after this many consecutive failures.
	FailureThreshold int
	// SuccessThreshold closes a half-open breaker after this many successes.
	SuccessThreshold int
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// HalfOpenMaxRequests caps concurrent probes while half-open.
	HalfOpenMaxRequests int
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 3,
	}
}

// CircuitBreaker keeps a flapping downstream from being hammered. Delivery
// workers treat an open breaker as a transient failure, so the queue backs
// off through redelivery instead of burning attempts on a dead provider.
type CircuitBreaker struct {
	config Config

	state         State
	failureCount  int
	successCount  int
	halfOpenCount int
	lastFailTime  time.Time
	lastStateTime time.Time

	mu sync.RWMutex
}

func NewCircuitBreaker(config Config) *CircuitBreaker {
	return &CircuitBreaker{
		config:        config,
		state:         StateClosed,
		lastStateTime: time.Now(),
	}
}

// Execute runs fn under breaker protection.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()

	cb.checkStateTransition()

	state := cb.state
	switch state {
	case StateOpen:
		cb.mu.Unlock()
		return ErrCircuitBreakerOpen
	case StateHalfOpen:
		if cb.halfOpenCount >= cb.config.HalfOpenMaxRequests {
			cb.mu.Unlock()
			return ErrCircuitBreakerOpen
		}
		cb.halfOpenCount++
	}

	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}

	return err
}

func (cb *CircuitBreaker) checkStateTransition() {
	now := time.Now()

	switch cb.state {
	case StateOpen:
		// open → half-open once the timeout elapses
		if now.Sub(cb.lastStateTime) >= cb.config.Timeout {
			cb.state = StateHalfOpen
			cb.halfOpenCount = 0
			cb.successCount = 0
			cb.lastStateTime = now
		}
	case StateHalfOpen:
		// half-open → closed after enough successful probes
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.state = StateClosed
			cb.failureCount = 0
			cb.lastStateTime = now
		}
	case StateClosed:
		// closed → open after enough consecutive failures
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.state = StateOpen
			cb.lastFailTime = now
			cb.lastStateTime = now
		}
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.failureCount++
	cb.lastFailTime = time.Now()

	if cb.state == StateHalfOpen {
		// a failed probe reopens immediately
		cb.state = StateOpen
		cb.halfOpenCount = 0
		cb.lastStateTime = time.Now()
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.failureCount = 0

	if cb.state == StateHalfOpen {
		cb.successCount++
		cb.halfOpenCount--
	}
}

// GetState returns the current state.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Reset forces the breaker closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0
	cb.halfOpenCount = 0
	cb.lastStateTime = time.Now()
}

var (
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)
