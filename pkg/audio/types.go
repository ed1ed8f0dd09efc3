// Package audio defines the audio primitives shared between microphone
// capture, speech recognition, and playback: PCM frames from the capture
// device, encoded clips from speech synthesis, and the [Source] and [Player]
// interfaces their implementations satisfy.
//
// Implementations live in subpackages (audio/portaudio for capture,
// audio/beep for playback) so that CGO and platform dependencies stay out of
// the core types. This package lives under pkg/ because provider
// implementations outside this module are expected to produce and consume
// these types.
package audio

import (
	"context"
	"time"
)

// Frame represents a single frame of microphone audio flowing through the
// capture pipeline. Frames are the atomic unit of transport between a
// [Source] and the speech recognizer.
type Frame struct {
	// PCM holds 16-bit signed little-endian samples.
	PCM []byte

	// SampleRate in Hz (e.g., 16000 for speech recognition input).
	SampleRate int

	// Channels: 1 for mono microphone input, 2 for stereo devices.
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Format describes the sample rate and channel count of an audio stream.
type Format struct {
	SampleRate int
	Channels   int
}

// Encoding identifies the container or codec of a [Clip].
type Encoding int

const (
	// EncodingPCM is raw 16-bit signed little-endian PCM with no container.
	EncodingPCM Encoding = iota

	// EncodingWAV is a RIFF/WAVE container holding 16-bit PCM.
	EncodingWAV

	// EncodingMP3 is MPEG-1 Layer III audio.
	EncodingMP3

	// EncodingOGG is an Ogg container holding Vorbis audio.
	EncodingOGG
)

// String returns the lowercase name of the encoding.
func (e Encoding) String() string {
	switch e {
	case EncodingPCM:
		return "pcm"
	case EncodingWAV:
		return "wav"
	case EncodingMP3:
		return "mp3"
	case EncodingOGG:
		return "ogg"
	default:
		return "unknown"
	}
}

// Clip is a complete synthesised (or loaded) utterance ready for playback.
type Clip struct {
	// Encoding identifies how Data is encoded.
	Encoding Encoding

	// Data is the encoded audio.
	Data []byte

	// SampleRate in Hz. Required for EncodingPCM; informational for
	// container formats that carry their own rate.
	SampleRate int

	// Channels is the channel count. Required for EncodingPCM.
	Channels int
}

// Empty reports whether the clip contains no audio data.
func (c Clip) Empty() bool { return len(c.Data) == 0 }

// Source captures microphone audio and delivers it as a stream of [Frame]
// values.
//
// Frames returns the same channel on every call. The channel is closed when
// the source is closed or fails irrecoverably; a recognizer reading from it
// must treat closure as a backend failure, not as silence. Start must be
// called before frames are produced.
type Source interface {
	// Start opens the capture device and begins producing frames. Calling
	// Start on an already-started source is an error.
	Start(ctx context.Context) error

	// Frames returns the capture stream.
	Frames() <-chan Frame

	// Close stops capture, closes the frame channel, and releases the device.
	Close() error
}

// Player plays clips through the default output device.
//
// Play blocks until the clip finishes, ctx is cancelled, or Stop is called
// from another goroutine. Implementations serialise playback internally; a
// second Play waits for the first to finish.
type Player interface {
	Play(ctx context.Context, clip Clip) error

	// Stop interrupts the clip currently playing, if any. It does not block
	// on the interrupted Play call returning.
	Stop() error

	// Close stops playback and releases the output device.
	Close() error
}
