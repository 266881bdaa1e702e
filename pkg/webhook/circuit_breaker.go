package webhook

import (
	"sync"
	"time"
)

// Circuit states, persisted verbatim on ConsumerEndpoint.CircuitState.
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half_open"
)

// CircuitBreakerConfig tunes when a consumer is cut off and when it is
// probed again.
type CircuitBreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxAttempts int
}

// CircuitBreaker fronts a single consumer endpoint. A streak of failed
// deliveries opens it, the reset timeout half-opens it for probe deliveries,
// and enough probe successes close it again.
type CircuitBreaker struct {
	mu sync.Mutex

	cfg      CircuitBreakerConfig
	state    string
	streak   int       // consecutive failures
	probes   int       // successes while half-open
	openedAt time.Time // last transition into (or refresh of) open
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.HalfOpenMaxAttempts <= 0 {
		cfg.HalfOpenMaxAttempts = 1
	}
	return &CircuitBreaker{cfg: cfg, state: StateClosed}
}

// AllowRequest reports whether a delivery may be attempted now. An open
// breaker past its reset timeout moves to half-open and lets the probe
// through.
func (cb *CircuitBreaker) AllowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.openedAt) <= cb.cfg.ResetTimeout {
			return false
		}
		cb.state = StateHalfOpen
		cb.probes = 0
	}
	return true
}

// RecordSuccess notes a delivered event. It ends any failure streak and, in
// half-open, counts toward closing the breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.streak = 0
	if cb.state != StateHalfOpen {
		cb.state = StateClosed
		return
	}
	cb.probes++
	if cb.probes >= cb.cfg.HalfOpenMaxAttempts {
		cb.state = StateClosed
	}
}

// RecordFailure notes a failed delivery. A half-open failure reopens
// immediately; a closed breaker opens once the streak reaches the threshold.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.streak++
	if cb.state == StateHalfOpen || cb.streak >= cb.cfg.FailureThreshold {
		cb.state = StateOpen
		cb.openedAt = time.Now()
	}
}

// State returns the current state string.
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
