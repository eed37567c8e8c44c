package infra

import (
	"errors"
	"sync"
	"time"
)

// ── Circuit Breaker ───────────────────────────────────────────────────────────
// Guards the SMTP relay. After Failures consecutive errors every call fails
// fast for Cooldown; then one probe is let through. Probes that succeed
// Recoveries times in a row close the breaker again.

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var ErrBreakerOpen = errors.New("circuit breaker is open")

type BreakerConfig struct {
	Failures   int
	Recoveries int
	Cooldown   time.Duration
	Now        func() time.Time // nil = time.Now
}

// MailBreakerConfig is used for the receipt mailer.
func MailBreakerConfig() BreakerConfig {
	return BreakerConfig{Failures: 5, Recoveries: 2, Cooldown: time.Minute}
}

type CircuitBreaker struct {
	cfg BreakerConfig

	mu        sync.Mutex
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time
}

func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.Failures <= 0 {
		cfg.Failures = 5
	}
	if cfg.Recoveries <= 0 {
		cfg.Recoveries = 2
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CircuitBreaker{cfg: cfg, state: BreakerClosed}
}

func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.current()
}

// current moves Open to HalfOpen once the cooldown elapsed. Caller holds mu.
func (cb *CircuitBreaker) current() BreakerState {
	if cb.state == BreakerOpen && cb.cfg.Now().Sub(cb.openedAt) >= cb.cfg.Cooldown {
		cb.state = BreakerHalfOpen
		cb.successes = 0
	}
	return cb.state
}

// Execute runs fn unless the breaker is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	if cb.current() == BreakerOpen {
		cb.mu.Unlock()
		return ErrBreakerOpen
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.failures++
		if cb.state == BreakerHalfOpen || cb.failures >= cb.cfg.Failures {
			cb.state = BreakerOpen
			cb.openedAt = cb.cfg.Now()
			cb.failures = 0
			cb.successes = 0
		}
		return err
	}

	cb.failures = 0
	if cb.state == BreakerHalfOpen {
		cb.successes++
		if cb.successes >= cb.cfg.Recoveries {
			cb.state = BreakerClosed
			cb.successes = 0
		}
	}
	return nil
}
