// Package stt defines the Recognizer interface for speech-to-text backends.
//
// A recognizer wraps a transcription engine (e.g., a local whisper.cpp model)
// and exposes a pull interface: each Listen call blocks until one utterance
// has been captured and transcribed, the listen window expires, or the
// backend fails. The three outcomes are distinguished through the error
// value so that the caller's retry policy can treat them differently:
//
//   - (text, nil): a complete utterance was recognised.
//   - ("", ErrNoSpeech): nothing usable was heard; retry silently.
//   - ("", *ServiceError): the backend failed; abort the attempt.
//
// Implementations must be safe for concurrent use, though callers normally
// issue Listen calls from a single recognition loop.
package stt

import "context"

// Recognizer is the abstraction over any speech-to-text backend.
type Recognizer interface {
	// Listen blocks until one utterance has been captured and transcribed.
	// The listen window is bounded by ctx: a deadline expiring before speech
	// was heard yields [ErrNoSpeech], while cancellation is returned as
	// ctx.Err() so that shutdown is not mistaken for silence. Backend
	// failures are returned as a [*ServiceError].
	Listen(ctx context.Context) (string, error)

	// Close releases the recognition engine. After Close, Listen returns a
	// ServiceError. Calling Close more than once is safe and returns nil.
	Close() error
}
