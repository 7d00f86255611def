package graphql

import (
	"sync"
	"time"
)

// Backoff bounds for subscription reconnects.
const (
	minReconnectDelay = 500 * time.Millisecond
	maxReconnectDelay = 30 * time.Second
)

// CircuitBreaker stops reconnecting a subscription socket after consecutive
// failures and spaces out the attempts before that.
type CircuitBreaker struct {
	mu                  sync.Mutex
	ConsecutiveFailures int
	Threshold           int
	Open                bool
	BaseDelay           time.Duration
}

// NewCircuitBreaker creates a circuit breaker with the given threshold and
// first backoff delay.
func NewCircuitBreaker(threshold int, baseDelay time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5 // default
	}
	if baseDelay <= 0 {
		baseDelay = minReconnectDelay
	}
	return &CircuitBreaker{
		Threshold: threshold,
		BaseDelay: baseDelay,
	}
}

// RecordFailure increments the failure counter and returns how long to wait
// before the next attempt.
func (cb *CircuitBreaker) RecordFailure() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.ConsecutiveFailures++
	if cb.ConsecutiveFailures >= cb.Threshold {
		cb.Open = true
	}
	return backoff(cb.BaseDelay, cb.ConsecutiveFailures)
}

// RecordSuccess resets the failure counter.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.ConsecutiveFailures = 0
	cb.Open = false
}

// ShouldStop returns true once the threshold is reached.
func (cb *CircuitBreaker) ShouldStop() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.Open
}

// Failures returns the current failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.ConsecutiveFailures
}

// backoff doubles from base per failure, capped at maxReconnectDelay.
func backoff(base time.Duration, failures int) time.Duration {
	d := base
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= maxReconnectDelay {
			return maxReconnectDelay
		}
	}
	return d
}
