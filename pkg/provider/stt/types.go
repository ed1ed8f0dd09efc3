package stt

import (
	"errors"
	"fmt"
)

// ErrNoSpeech is returned by [Recognizer.Listen] when the listen window
// elapses without a usable utterance. It marks a transient miss: callers
// should retry silently rather than surface it to the user.
var ErrNoSpeech = errors.New("stt: no speech detected")

// ServiceError wraps a recognition backend failure (model inference error,
// capture stream loss, transport failure). Unlike [ErrNoSpeech] it must not
// be retried blindly; the caller should abort the current listen attempt and
// report the failure.
type ServiceError struct {
	// Provider names the backend that failed (e.g., "whisper").
	Provider string

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("stt: %s service failure: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error for errors.Is / errors.As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// IsServiceError reports whether err is (or wraps) a [ServiceError].
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}
