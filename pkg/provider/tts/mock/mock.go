// Package mock provides a test double for the tts.Speaker interface.
//
// Use Speaker to return a fixed clip to consumers and to verify which text
// was sent for synthesis.
//
// Example:
//
//	sp := &mock.Speaker{
//	    SynthesizeResult: audio.Clip{Encoding: audio.EncodingPCM, Data: pcm, SampleRate: 16000, Channels: 1},
//	}
//	clip, _ := sp.Synthesize(ctx, "Merhaba")
package mock

import (
	"context"
	"sync"

	"github.com/bkaraca/dinle/pkg/audio"
	"github.com/bkaraca/dinle/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Speaker.Synthesize.
type SynthesizeCall struct {
	// Ctx is the context passed to Synthesize.
	Ctx context.Context
	// Text is the text passed to Synthesize.
	Text string
}

// Speaker is a mock implementation of tts.Speaker.
type Speaker struct {
	mu sync.Mutex

	// SynthesizeFunc, if set, handles every Synthesize call and ignores the
	// result fields below. Calls are still recorded.
	SynthesizeFunc func(ctx context.Context, text string) (audio.Clip, error)

	// SynthesizeResult is the clip returned by Synthesize.
	SynthesizeResult audio.Clip

	// SynthesizeErr, if non-nil, is returned as the error from Synthesize.
	SynthesizeErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// --- Call records ---

	// SynthesizeCalls records every call to Synthesize in order.
	SynthesizeCalls []SynthesizeCall

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// Synthesize records the call and returns SynthesizeResult, SynthesizeErr.
func (s *Speaker) Synthesize(ctx context.Context, text string) (audio.Clip, error) {
	s.mu.Lock()
	s.SynthesizeCalls = append(s.SynthesizeCalls, SynthesizeCall{Ctx: ctx, Text: text})
	fn := s.SynthesizeFunc
	result, err := s.SynthesizeResult, s.SynthesizeErr
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}
	if err != nil {
		return audio.Clip{}, err
	}
	return result, nil
}

// Close records the call and returns CloseErr.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	return s.CloseErr
}

// Reset clears all recorded calls. Thread-safe.
func (s *Speaker) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SynthesizeCalls = nil
	s.CloseCallCount = 0
}

// Ensure Speaker implements tts.Speaker at compile time.
var _ tts.Speaker = (*Speaker)(nil)
