// Package resilience protects the translation pipeline from a misbehaving
// generative backend.
//
// [CircuitBreaker] stops calling a backend after repeated failures and tries
// it again after a cool-down. [FallbackGroup] chains several backends, each
// behind its own breaker, and [LLMFallback] exposes such a chain as a single
// llm.Provider.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] while the breaker
// rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects calls until the reset timeout has elapsed.
	StateOpen

	// StateHalfOpen lets a limited number of trial calls through. Enough
	// successes close the breaker; any failure opens it again.
	StateHalfOpen
)

// String returns the human-readable name of the state.
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

// CircuitBreakerConfig holds tuning knobs for a [CircuitBreaker].
type CircuitBreakerConfig struct {
	// Name labels the breaker in logs and state-change callbacks.
	Name string

	// MaxFailures is the number of consecutive failures that opens a closed
	// breaker. Default: 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before probing.
	// Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is the number of successful trial calls needed to close the
	// breaker again. Default: 3.
	HalfOpenMax int

	// OnStateChange, if set, is called after every transition with the
	// breaker lock released.
	OnStateChange func(name string, from, to State)
}

// CircuitBreaker implements the three-state circuit breaker pattern.
type CircuitBreaker struct {
	name          string
	maxFailures   int
	resetTimeout  time.Duration
	halfOpenMax   int
	onStateChange func(name string, from, to State)
	now           func() time.Time

	mu              sync.Mutex
	state           State
	consecutiveFail int
	openedAt        time.Time
	trialsInFlight  int
	trialSuccesses  int
}

// NewCircuitBreaker creates a [CircuitBreaker]. Zero-value config fields are
// replaced with defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	return &CircuitBreaker{
		name:          cfg.Name,
		maxFailures:   cfg.MaxFailures,
		resetTimeout:  cfg.ResetTimeout,
		halfOpenMax:   cfg.HalfOpenMax,
		onStateChange: cfg.OnStateChange,
		now:           time.Now,
		state:         StateClosed,
	}
}

// Name returns the configured name.
func (cb *CircuitBreaker) Name() string { return cb.name }

// Execute runs fn if the breaker allows it and records the outcome.
//
// A cancelled or expired context is the caller giving up, not the backend
// failing, so such errors are returned without counting as failures.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	trial, transition, err := cb.admit()
	cb.notify(transition)
	if err != nil {
		return err
	}

	err = fn()

	cb.mu.Lock()
	switch {
	case err == nil:
		transition = cb.recordSuccess(trial)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		if trial {
			cb.endTrial()
		}
		transition = nil
	default:
		transition = cb.recordFailure(trial)
	}
	cb.mu.Unlock()
	cb.notify(transition)
	return err
}

type stateChange struct{ from, to State }

// admit decides whether a call may proceed. It reports whether the call is a
// half-open trial call.
func (cb *CircuitBreaker) admit() (trial bool, tr *stateChange, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.resetTimeout {
			return false, nil, ErrCircuitOpen
		}
		tr = cb.setState(StateHalfOpen)
		cb.trialsInFlight = 0
		cb.trialSuccesses = 0
	}
	if cb.state == StateHalfOpen {
		if cb.trialsInFlight+cb.trialSuccesses >= cb.halfOpenMax {
			return false, tr, ErrCircuitOpen
		}
		cb.trialsInFlight++
		return true, tr, nil
	}
	return false, tr, nil
}

// recordFailure must be called with cb.mu held.
func (cb *CircuitBreaker) recordFailure(trial bool) *stateChange {
	if trial {
		cb.endTrial()
		cb.consecutiveFail = cb.maxFailures
		cb.openedAt = cb.now()
		return cb.setState(StateOpen)
	}
	if cb.state != StateClosed {
		return nil
	}
	cb.consecutiveFail++
	if cb.consecutiveFail >= cb.maxFailures {
		cb.openedAt = cb.now()
		return cb.setState(StateOpen)
	}
	return nil
}

// recordSuccess must be called with cb.mu held.
func (cb *CircuitBreaker) recordSuccess(trial bool) *stateChange {
	if !trial {
		cb.consecutiveFail = 0
		return nil
	}
	cb.endTrial()
	if cb.state != StateHalfOpen {
		return nil
	}
	cb.trialSuccesses++
	if cb.trialSuccesses >= cb.halfOpenMax {
		cb.consecutiveFail = 0
		return cb.setState(StateClosed)
	}
	return nil
}

// endTrial must be called with cb.mu held. The counter is reset whenever the
// breaker re-enters half-open, so late trial calls from an earlier round must not
// drive it negative.
func (cb *CircuitBreaker) endTrial() {
	if cb.trialsInFlight > 0 {
		cb.trialsInFlight--
	}
}

// setState must be called with cb.mu held.
func (cb *CircuitBreaker) setState(s State) *stateChange {
	if cb.state == s {
		return nil
	}
	tr := &stateChange{from: cb.state, to: s}
	cb.state = s
	return tr
}

func (cb *CircuitBreaker) notify(tr *stateChange) {
	if tr == nil {
		return
	}
	level := slog.LevelInfo
	if tr.to == StateOpen {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "circuit breaker state change",
		"name", cb.name, "from", tr.from.String(), "to", tr.to.String())
	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, tr.from, tr.to)
	}
}

// State returns the current state. An open breaker whose reset timeout has
// elapsed reports [StateHalfOpen]; the transition itself happens on the next
// [CircuitBreaker.Execute].
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to [StateClosed].
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	tr := cb.setState(StateClosed)
	cb.consecutiveFail = 0
	cb.trialsInFlight = 0
	cb.trialSuccesses = 0
	cb.mu.Unlock()
	cb.notify(tr)
}
