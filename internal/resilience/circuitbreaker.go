// Package resilience provides circuit breaking and provider failover for the
// assistant's external backends.
//
// [CircuitBreaker] is a three-state breaker (closed, open, half-open) that
// stops hammering a backend once it fails repeatedly. [FallbackGroup] chains
// several providers of one kind behind per-entry breakers, so a dead chat or
// TTS backend is bypassed in favour of the next configured one. [ChatFallback]
// and [TTSFallback] wrap a group in the provider interfaces the session
// consumes directly.
//
// All types are safe for concurrent use once assembled.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] when the breaker
// rejects the call because the guarded backend is considered down.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the current operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards all calls and counts consecutive failures.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrCircuitOpen] until the reset timeout
	// has elapsed.
	StateOpen

	// StateHalfOpen admits a limited number of probe calls. Enough successes
	// close the breaker again; a single failure re-opens it.
	StateHalfOpen
)

// String returns the lowercase name of the state.
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

// CircuitBreakerConfig holds the tuning knobs for a [CircuitBreaker].
type CircuitBreakerConfig struct {
	// Name labels the breaker in log lines, usually the provider name.
	Name string

	// MaxFailures is how many consecutive failures trip the breaker open.
	// Zero means 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before admitting
	// probe calls. Zero means 30 seconds.
	ResetTimeout time.Duration

	// HalfOpenMax is how many probe calls the half-open state admits before
	// the breaker decides to close or re-open. Zero means 3.
	HalfOpenMax int
}

// CircuitBreaker guards a single backend with the classic three-state
// breaker pattern. Safe for concurrent use.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	probeMax     int

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	probes      int
	probeFails  int
}

// NewCircuitBreaker creates a breaker from cfg, substituting defaults for
// zero-value fields.
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
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		probeMax:     cfg.HalfOpenMax,
		state:        StateClosed,
	}
}

// Execute runs fn if the breaker allows it and records the outcome. While
// open it returns [ErrCircuitOpen] without calling fn; once the reset
// timeout has elapsed a limited number of probe calls get through.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailure) < cb.resetTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probes = 0
		cb.probeFails = 0
		slog.Info("circuit breaker entering half-open", "name", cb.name)

	case StateHalfOpen:
		if cb.probes >= cb.probeMax {
			// Probe budget spent, wait for the verdict of the probes
			// already in flight.
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
	}

	probing := cb.state == StateHalfOpen
	if probing {
		cb.probes++
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.recordFailure(probing)
	} else {
		cb.recordSuccess(probing)
	}
	return err
}

// recordFailure updates failure accounting. Caller holds cb.mu.
func (cb *CircuitBreaker) recordFailure(probing bool) {
	cb.lastFailure = time.Now()

	if probing {
		cb.probeFails++
		// One failed probe is enough to re-open.
		cb.state = StateOpen
		cb.failures = cb.maxFailures
		slog.Warn("circuit breaker re-opened by failed probe", "name", cb.name)
		return
	}

	cb.failures++
	if cb.failures >= cb.maxFailures {
		cb.state = StateOpen
		slog.Warn("circuit breaker opened",
			"name", cb.name,
			"failures", cb.failures)
	}
}

// recordSuccess updates success accounting. Caller holds cb.mu.
func (cb *CircuitBreaker) recordSuccess(probing bool) {
	if probing {
		if cb.probes-cb.probeFails >= cb.probeMax {
			cb.state = StateClosed
			cb.failures = 0
			cb.probes = 0
			cb.probeFails = 0
			slog.Info("circuit breaker closed", "name", cb.name)
		}
		return
	}

	// A success in the closed state wipes the failure streak.
	cb.failures = 0
}

// State returns the breaker's current [State]. An open breaker whose reset
// timeout has elapsed reports [StateHalfOpen]; the stored state changes on
// the next [CircuitBreaker.Execute].
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.lastFailure) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to [StateClosed] and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.probes = 0
	cb.probeFails = 0
	slog.Info("circuit breaker reset", "name", cb.name)
}
