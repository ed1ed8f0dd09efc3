package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bkaraca/dinle/internal/observe"
)

// ErrAllFailed is returned when every entry in a [FallbackGroup] fails or
// sits behind an open circuit breaker.
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig configures a [FallbackGroup].
type FallbackConfig struct {
	// CircuitBreaker is the template for the per-entry breakers. The Name
	// field is overwritten with each entry's name.
	CircuitBreaker CircuitBreakerConfig

	// OnAttempt, if set, observes every call actually made through the
	// group: once per entry that ran, with err nil on success. Entries
	// skipped because their breaker is open are not reported. The typed
	// wrappers default this to a metrics recorder.
	OnAttempt func(ctx context.Context, name string, err error)
}

// ProviderAttemptRecorder returns an OnAttempt hook that counts provider
// requests and errors under the given kind ("chat", "tts"). The entry name
// becomes the provider attribute. A nil m records through
// [observe.DefaultMetrics].
func ProviderAttemptRecorder(kind string, m *observe.Metrics) func(context.Context, string, error) {
	return func(ctx context.Context, name string, err error) {
		rec := m
		if rec == nil {
			rec = observe.DefaultMetrics()
		}
		status := "ok"
		if err != nil {
			status = "error"
			rec.RecordProviderError(ctx, name, kind)
		}
		rec.RecordProviderRequest(ctx, name, kind, status)
	}
}

// fallbackEntry pairs a provider value with its dedicated circuit breaker.
type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup chains a primary and zero or more fallback instances of one
// provider type. A call runs against each entry in registration order until
// one succeeds; entries with an open breaker are skipped without counting as
// an attempt.
//
// Register every entry before handing the group to other goroutines.
// Execution is then safe for concurrent use.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
	cfg     FallbackConfig
}

// NewFallbackGroup creates a group with primary as its first entry. Further
// entries are added with [FallbackGroup.AddFallback].
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg}
	fg.AddFallback(primaryName, primary)
	return fg
}

// AddFallback appends an entry tried after all earlier ones. Not safe to
// call concurrently with execution.
func (fg *FallbackGroup[T]) AddFallback(name string, value T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		value:   value,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Execute tries fn against each entry in order until one succeeds. A
// cancelled ctx stops the chain immediately and returns ctx.Err() unwrapped,
// so callers can distinguish their own cancellation from provider failure.
// When every entry fails, the last error is wrapped in [ErrAllFailed].
func (fg *FallbackGroup[T]) Execute(ctx context.Context, fn func(T) error) error {
	var lastErr error
	for i := range fg.entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry := &fg.entries[i]
		err := entry.breaker.Execute(func() error {
			return fn(entry.value)
		})
		if err == nil {
			fg.attempted(ctx, entry.name, nil)
			return nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping provider, circuit open", "provider", entry.name)
			continue
		}
		fg.attempted(ctx, entry.name, err)
		slog.Warn("provider failed, trying next", "provider", entry.name, "err", err)
	}
	return fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}

// ExecuteWithResult is [FallbackGroup.Execute] for calls that produce a
// value. It is a package-level function because Go does not support
// method-level type parameters.
func ExecuteWithResult[T any, R any](fg *FallbackGroup[T], ctx context.Context, fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range fg.entries {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		entry := &fg.entries[i]
		var result R
		err := entry.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(entry.value)
			return innerErr
		})
		if err == nil {
			fg.attempted(ctx, entry.name, nil)
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping provider, circuit open", "provider", entry.name)
			continue
		}
		fg.attempted(ctx, entry.name, err)
		slog.Warn("provider failed, trying next", "provider", entry.name, "err", err)
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}

// attempted reports one real attempt to the OnAttempt hook, if any.
func (fg *FallbackGroup[T]) attempted(ctx context.Context, name string, err error) {
	if fg.cfg.OnAttempt != nil {
		fg.cfg.OnAttempt(ctx, name, err)
	}
}

// Values returns the registered provider values in registration order.
func (fg *FallbackGroup[T]) Values() []T {
	vals := make([]T, len(fg.entries))
	for i := range fg.entries {
		vals[i] = fg.entries[i].value
	}
	return vals
}

// States reports the breaker state of every entry, keyed by entry name.
func (fg *FallbackGroup[T]) States() map[string]State {
	states := make(map[string]State, len(fg.entries))
	for i := range fg.entries {
		states[fg.entries[i].name] = fg.entries[i].breaker.State()
	}
	return states
}
