// Package whisper implements [stt.Recognizer] backed by the whisper.cpp CGO
// bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
//
// The model is loaded once at startup and shared across all Listen calls;
// each inference creates its own whisper context because contexts are not
// safe for concurrent use while the model is.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/bkaraca/dinle/pkg/audio"
	"github.com/bkaraca/dinle/pkg/provider/stt"
)

// Compile-time assertion that Recognizer satisfies stt.Recognizer.
var _ stt.Recognizer = (*Recognizer)(nil)

const (
	// bitsPerSample is fixed at 16 for the signed little-endian PCM this
	// recognizer consumes.
	bitsPerSample = 16

	// defaultRMSThreshold is the root-mean-square energy level (in 16-bit
	// PCM sample units) below which a frame counts as silence.
	defaultRMSThreshold = 300.0

	defaultLanguage           = "tr"
	defaultSampleRate         = 16000
	defaultSilenceThresholdMs = 500
	defaultMaxUtteranceMs     = 10_000
)

// Option is a functional option for configuring a [Recognizer].
type Option func(*Recognizer)

// WithLanguage sets the ISO-639-1 language code for transcription (e.g.,
// "tr", "en", "de"). Defaults to "tr".
func WithLanguage(lang string) Option {
	return func(r *Recognizer) {
		if lang != "" {
			r.language = lang
		}
	}
}

// WithSampleRate sets the sample rate (Hz) expected by the model. Captured
// frames are converted to this rate before buffering. Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(r *Recognizer) {
		if rate > 0 {
			r.sampleRate = rate
		}
	}
}

// WithSilenceThresholdMs sets the consecutive-silence duration (ms) that ends
// an utterance. Defaults to 500 ms.
func WithSilenceThresholdMs(ms int) Option {
	return func(r *Recognizer) {
		if ms > 0 {
			r.silenceThresholdMs = ms
		}
	}
}

// WithMaxUtteranceMs sets the maximum buffered utterance duration (ms) before
// a forced transcription. Defaults to 10 000 ms.
func WithMaxUtteranceMs(ms int) Option {
	return func(r *Recognizer) {
		if ms > 0 {
			r.maxUtteranceMs = ms
		}
	}
}

// WithRMSThreshold overrides the silence energy threshold. Raise it in noisy
// rooms, lower it for quiet speakers.
func WithRMSThreshold(threshold float64) Option {
	return func(r *Recognizer) {
		if threshold > 0 {
			r.rmsThreshold = threshold
		}
	}
}

// Recognizer implements stt.Recognizer using a local whisper.cpp model fed
// from an [audio.Source].
type Recognizer struct {
	model  whisperlib.Model
	source audio.Source

	language           string
	sampleRate         int
	silenceThresholdMs int
	maxUtteranceMs     int
	rmsThreshold       float64

	mu     sync.Mutex
	closed bool
}

// New creates a Recognizer that loads the whisper.cpp model from modelPath
// and captures audio from source. A missing or unreadable model is a fatal
// initialisation error; there is no degraded mode without a recognizer.
func New(modelPath string, source audio.Source, opts ...Option) (*Recognizer, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	if source == nil {
		return nil, errors.New("whisper: audio source must not be nil")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	r := &Recognizer{
		model:              model,
		source:             source,
		language:           defaultLanguage,
		sampleRate:         defaultSampleRate,
		silenceThresholdMs: defaultSilenceThresholdMs,
		maxUtteranceMs:     defaultMaxUtteranceMs,
		rmsThreshold:       defaultRMSThreshold,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Listen blocks until one utterance has been captured and transcribed.
//
// Frames from the source are converted to the model's format and gated by
// RMS energy: buffering begins at the first speech frame and the utterance
// ends after the configured run of silence (or at the maximum utterance
// length). A deadline expiring before any speech was heard yields
// [stt.ErrNoSpeech]; expiring mid-utterance transcribes what was buffered.
func (r *Recognizer) Listen(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", &stt.ServiceError{Provider: "whisper", Err: errors.New("recognizer is closed")}
	}
	r.mu.Unlock()

	conv := audio.FormatConverter{Target: audio.Format{SampleRate: r.sampleRate, Channels: 1}}
	col := newCollector(r.sampleRate, 1, r.silenceThresholdMs, r.maxUtteranceMs, r.rmsThreshold)

	for {
		select {
		case <-ctx.Done():
			if pcm := col.take(); len(pcm) > 0 {
				return r.transcribe(pcm)
			}
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", stt.ErrNoSpeech
			}
			return "", ctx.Err()

		case frame, ok := <-r.source.Frames():
			if !ok {
				return "", &stt.ServiceError{Provider: "whisper", Err: errors.New("capture stream closed")}
			}
			converted := conv.Convert(frame)
			if len(converted.PCM) == 0 {
				continue
			}
			if col.feed(converted.PCM) {
				return r.transcribe(col.take())
			}
		}
	}
}

// Close releases the whisper model. The audio source is owned by the caller
// and stays open.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.model != nil {
		return r.model.Close()
	}
	return nil
}

// transcribe converts the buffered PCM to float32, runs whisper.cpp inference
// with a fresh context, and returns the concatenated segment text. An empty
// transcription (breathing, background noise) is reported as ErrNoSpeech so
// the caller retries instead of dispatching an empty utterance.
func (r *Recognizer) transcribe(pcm []byte) (string, error) {
	samples := pcmToFloat32Mono(pcm, 1)

	wctx, err := r.model.NewContext()
	if err != nil {
		return "", &stt.ServiceError{Provider: "whisper", Err: fmt.Errorf("create context: %w", err)}
	}

	if err := wctx.SetLanguage(r.language); err != nil {
		slog.Warn("whisper: failed to set language, using model default",
			"language", r.language, "error", err)
	}

	return r.processSegments(wctx, samples)
}

// processSegments runs inference and joins the resulting segments.
func (r *Recognizer) processSegments(wctx whisperlib.Context, samples []float32) (string, error) {
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", &stt.ServiceError{Provider: "whisper", Err: fmt.Errorf("process audio: %w", err)}
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", &stt.ServiceError{Provider: "whisper", Err: fmt.Errorf("read segment: %w", err)}
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	text := strings.Join(parts, " ")
	if text == "" {
		return "", stt.ErrNoSpeech
	}
	return text, nil
}
