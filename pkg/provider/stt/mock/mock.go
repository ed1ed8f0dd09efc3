// Package mock provides test doubles for the stt package interfaces.
//
// Use Recognizer to script a sequence of utterances and errors for a
// consumer that pulls with Listen. Once the script is exhausted, Listen
// blocks until the caller's context is done, which mirrors a microphone
// that hears nothing further.
//
// Example:
//
//	rec := &mock.Recognizer{
//	    Script: []mock.ListenResult{
//	        {Text: "saat kaç"},
//	        {Err: stt.ErrNoSpeech},
//	    },
//	}
package mock

import (
	"context"
	"sync"

	"github.com/bkaraca/dinle/pkg/provider/stt"
)

// ListenResult is one scripted outcome for Recognizer.Listen.
type ListenResult struct {
	// Text is the recognized utterance to return.
	Text string
	// Err, if non-nil, is returned instead of Text.
	Err error
}

// Recognizer is a mock implementation of stt.Recognizer.
type Recognizer struct {
	mu sync.Mutex

	// ListenFunc, if set, handles every Listen call and ignores Script.
	ListenFunc func(ctx context.Context) (string, error)

	// Script is consumed front to back, one entry per Listen call.
	Script []ListenResult

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// --- Call records ---

	// ListenCallCount is the number of times Listen was called.
	ListenCallCount int

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// Listen returns the next scripted result. When ListenFunc is set it is
// invoked instead. With no script left, Listen blocks until ctx is done
// and returns ctx.Err().
func (r *Recognizer) Listen(ctx context.Context) (string, error) {
	r.mu.Lock()
	r.ListenCallCount++
	fn := r.ListenFunc
	var (
		res ListenResult
		ok  bool
	)
	if fn == nil && len(r.Script) > 0 {
		res, ok = r.Script[0], true
		r.Script = r.Script[1:]
	}
	r.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	if ok {
		if res.Err != nil {
			return "", res.Err
		}
		return res.Text, nil
	}
	<-ctx.Done()
	return "", ctx.Err()
}

// Close records the call and returns CloseErr.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CloseCallCount++
	return r.CloseErr
}

// Reset clears the script and all recorded calls. Thread-safe.
func (r *Recognizer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Script = nil
	r.ListenCallCount = 0
	r.CloseCallCount = 0
}

// Ensure Recognizer implements stt.Recognizer at compile time.
var _ stt.Recognizer = (*Recognizer)(nil)
