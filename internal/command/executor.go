package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/bkaraca/dinle/internal/observe"
)

const (
	// defaultConcurrency bounds how many synchronous handlers may run at
	// once across all executions.
	defaultConcurrency = 4

	// defaultTimeout caps a single handler execution when the caller's
	// context carries no deadline of its own.
	defaultTimeout = 30 * time.Second
)

// Executor runs resolved commands with panic recovery, bounded concurrency,
// and per-command metrics. Errors never escape: every failure is folded into
// the Turkish apology line so the session always has something to speak.
type Executor struct {
	reg     *Registry
	sem     *semaphore.Weighted
	timeout time.Duration
	metrics *observe.Metrics
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithConcurrency sets how many synchronous handlers may run concurrently.
func WithConcurrency(n int64) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.sem = semaphore.NewWeighted(n)
		}
	}
}

// WithTimeout sets the per-execution deadline applied when the incoming
// context has none.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithMetrics sets the metrics sink. Defaults to observe.DefaultMetrics.
func WithMetrics(m *observe.Metrics) ExecutorOption {
	return func(e *Executor) {
		if m != nil {
			e.metrics = m
		}
	}
}

// NewExecutor returns an executor over reg.
func NewExecutor(reg *Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{
		reg:     reg,
		sem:     semaphore.NewWeighted(defaultConcurrency),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	return e
}

// Execute runs the matched command for utterance and returns the spoken
// response. It never panics and never returns an error: handler errors,
// panics, and timeouts all produce the apology line. When ctx has no
// deadline, the configured execution timeout is applied.
func (e *Executor) Execute(ctx context.Context, m Match, utterance string) string {
	start := time.Now()

	spec, ok := e.reg.spec(m.Name)
	if !ok {
		err := fmt.Errorf("unknown command %q", m.Name)
		e.record(ctx, m.Name, start, err)
		return apology(err)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	text := lowerTurkish(strings.TrimSpace(utterance))
	req := Request{
		Utterance: text,
		Command:   spec.Name,
		Args:      without(text, lowerTurkish(m.Keyword)),
	}

	var (
		resp string
		err  error
	)
	if spec.Handler.async {
		resp, err = safeCall(ctx, spec.Handler.fn, req)
	} else {
		resp, err = e.pooled(ctx, spec.Handler.fn, req)
	}

	e.record(ctx, spec.Name, start, err)
	if err != nil {
		slog.Error("command failed", "command", spec.Name, "err", err)
		return apology(err)
	}
	return resp
}

// pooled runs fn on the bounded pool and waits for it. If ctx expires first,
// the handler keeps running until it observes the cancellation, but the
// caller gets the timeout error immediately.
func (e *Executor) pooled(ctx context.Context, fn HandlerFunc, req Request) (string, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}

	type result struct {
		resp string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer e.sem.Release(1)
		resp, err := safeCall(ctx, fn, req)
		done <- result{resp: resp, err: err}
	}()

	select {
	case res := <-done:
		return res.resp, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// safeCall invokes fn, converting a panic into an error.
func safeCall(ctx context.Context, fn HandlerFunc, req Request) (resp string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return fn(ctx, req)
}

// apology wraps a handler failure in the line the assistant speaks.
func apology(err error) string {
	return "Komut çalıştırılırken bir hata oluştu: " + err.Error()
}

// record emits the per-command outcome and latency instruments.
func (e *Executor) record(ctx context.Context, name string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	e.metrics.RecordUtterance(ctx, name, status)
	e.metrics.RecordCommandLatency(ctx, name, time.Since(start).Seconds()*1000)
}
