package resilience

import (
	"context"
	"errors"

	"github.com/bkaraca/dinle/pkg/audio"
	"github.com/bkaraca/dinle/pkg/provider/tts"
)

// TTSFallback implements [tts.Speaker] with automatic failover across
// multiple synthesis backends. Each backend sits behind its own circuit
// breaker.
type TTSFallback struct {
	group *FallbackGroup[tts.Speaker]
}

// Compile-time interface assertion.
var _ tts.Speaker = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred
// backend. A nil cfg.OnAttempt is replaced with a metrics recorder for the
// "tts" provider kind.
func NewTTSFallback(primary tts.Speaker, primaryName string, cfg FallbackConfig) *TTSFallback {
	if cfg.OnAttempt == nil {
		cfg.OnAttempt = ProviderAttemptRecorder("tts", nil)
	}
	return &TTSFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional synthesis backend, tried after all
// earlier ones. Register backends during startup, before the session runs.
func (f *TTSFallback) AddFallback(name string, speaker tts.Speaker) {
	f.group.AddFallback(name, speaker)
}

// Synthesize renders text through the first healthy backend.
func (f *TTSFallback) Synthesize(ctx context.Context, text string) (audio.Clip, error) {
	return ExecuteWithResult(f.group, ctx, func(s tts.Speaker) (audio.Clip, error) {
		return s.Synthesize(ctx, text)
	})
}

// Close closes every registered backend and joins their errors. Backends
// guarantee idempotent Close, so calling this more than once is fine.
func (f *TTSFallback) Close() error {
	var errs []error
	for _, s := range f.group.Values() {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// States reports the breaker state of every backend, keyed by name.
func (f *TTSFallback) States() map[string]State {
	return f.group.States()
}
