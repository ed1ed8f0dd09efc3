// Package tts defines the Speaker interface for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., ElevenLabs or a local
// Coqui server) and turns a complete utterance into a playable audio clip. The
// assistant speaks in short conversational responses, so synthesis is a batch
// operation: one call per utterance, returning the whole clip. Playback and
// interruption are the caller's concern via the audio.Player abstraction.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"

	"github.com/bkaraca/dinle/pkg/audio"
)

// Speaker is the abstraction over any TTS backend.
//
// Implementations must be safe for concurrent use. Multiple Synthesize calls
// may run in parallel, though the assistant serializes playback itself.
type Speaker interface {
	// Synthesize converts text into an audio clip. The returned clip carries
	// its encoding and, where the container or configuration provides them,
	// the sample rate and channel count.
	//
	// Empty or whitespace-only text is an error; callers are expected to
	// filter silent responses before asking for synthesis. Errors from the
	// underlying service are returned wrapped, with ctx cancellation passed
	// through unchanged.
	Synthesize(ctx context.Context, text string) (audio.Clip, error)

	// Close releases any resources held by the backend. After Close,
	// Synthesize returns an error. Close is idempotent.
	Close() error
}
