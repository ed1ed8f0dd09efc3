package resilience

import (
	"context"

	"github.com/bkaraca/dinle/pkg/provider/chat"
)

// ChatFallback implements [chat.Provider] with automatic failover across
// multiple chat backends. Each backend sits behind its own circuit breaker.
type ChatFallback struct {
	group *FallbackGroup[chat.Provider]
}

// Compile-time interface assertion.
var _ chat.Provider = (*ChatFallback)(nil)

// NewChatFallback creates a [ChatFallback] with primary as the preferred
// backend. A nil cfg.OnAttempt is replaced with a metrics recorder for the
// "chat" provider kind.
func NewChatFallback(primary chat.Provider, primaryName string, cfg FallbackConfig) *ChatFallback {
	if cfg.OnAttempt == nil {
		cfg.OnAttempt = ProviderAttemptRecorder("chat", nil)
	}
	return &ChatFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional chat backend, tried after all earlier
// ones. Register backends during startup, before the session runs.
func (f *ChatFallback) AddFallback(name string, provider chat.Provider) {
	f.group.AddFallback(name, provider)
}

// Respond forwards to the first healthy backend.
func (f *ChatFallback) Respond(ctx context.Context, history []chat.Message, utterance string) (string, error) {
	return ExecuteWithResult(f.group, ctx, func(p chat.Provider) (string, error) {
		return p.Respond(ctx, history, utterance)
	})
}

// Classify forwards to the first healthy backend.
func (f *ChatFallback) Classify(ctx context.Context, utterance string, candidates []string) (string, error) {
	return ExecuteWithResult(f.group, ctx, func(p chat.Provider) (string, error) {
		return p.Classify(ctx, utterance, candidates)
	})
}

// States reports the breaker state of every backend, keyed by name.
func (f *ChatFallback) States() map[string]State {
	return f.group.States()
}
