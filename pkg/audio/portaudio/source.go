// Package portaudio implements [audio.Source] on top of the PortAudio
// bindings, capturing 16-bit PCM from the default input device.
//
// PortAudio is initialised when the source starts and terminated when it
// closes, so constructing a Source in tests does not require a sound card.
package portaudio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	palib "github.com/gordonklaus/portaudio"

	"github.com/bkaraca/dinle/pkg/audio"
)

// Compile-time interface assertion.
var _ audio.Source = (*Source)(nil)

const (
	// defaultSampleRate matches the rate the speech recognizer expects.
	defaultSampleRate = 16000

	// defaultFrameLen is the duration of each captured frame. 20 ms frames
	// keep silence detection responsive without burning CPU on tiny reads.
	defaultFrameLen = 20 * time.Millisecond

	// frameChanBuf is the buffer depth of the frame channel. When the
	// consumer stalls (e.g. while a command executes) newer frames are
	// dropped rather than blocking the capture device.
	frameChanBuf = 256

	// maxConsecutiveReadErrors is how many failed device reads in a row are
	// tolerated before the source gives up and closes its frame channel.
	maxConsecutiveReadErrors = 5
)

// Option is a functional option for configuring a [Source].
type Option func(*Source)

// WithSampleRate sets the capture sample rate in Hz. Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(s *Source) {
		if rate > 0 {
			s.sampleRate = rate
		}
	}
}

// WithChannels sets the capture channel count (1 or 2). Defaults to mono.
func WithChannels(channels int) Option {
	return func(s *Source) {
		if channels == 1 || channels == 2 {
			s.channels = channels
		}
	}
}

// WithFrameLen sets the duration of each captured frame. Defaults to 20 ms.
func WithFrameLen(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.frameLen = d
		}
	}
}

// WithLogger sets the logger used for capture warnings. Defaults to
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Source captures microphone audio from the default PortAudio input device
// and publishes it as [audio.Frame] values.
type Source struct {
	sampleRate int
	channels   int
	frameLen   time.Duration
	logger     *slog.Logger

	frames   chan audio.Frame
	done     chan struct{}
	started  atomic.Bool
	once     sync.Once
	chanOnce sync.Once
	wg       sync.WaitGroup
}

// closeFrames closes the frame channel exactly once, whether the capture
// goroutine ran or not.
func (s *Source) closeFrames() {
	s.chanOnce.Do(func() { close(s.frames) })
}

// New creates a Source. Call [Source.Start] to open the device and begin
// capturing.
func New(opts ...Option) *Source {
	s := &Source{
		sampleRate: defaultSampleRate,
		channels:   1,
		frameLen:   defaultFrameLen,
		logger:     slog.Default(),
		frames:     make(chan audio.Frame, frameChanBuf),
		done:       make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start initialises PortAudio, opens the default input stream, and launches
// the capture goroutine. It returns an error if the source was already
// started or if the device cannot be opened; device-open failures are fatal
// because an assistant without a microphone cannot operate.
func (s *Source) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("portaudio: source already started")
	}

	if err := palib.Initialize(); err != nil {
		return fmt.Errorf("portaudio: initialize: %w", err)
	}

	framesPerBuffer := int(float64(s.sampleRate) * s.frameLen.Seconds())
	if framesPerBuffer <= 0 {
		framesPerBuffer = 320
	}
	buf := make([]int16, framesPerBuffer*s.channels)

	stream, err := palib.OpenDefaultStream(s.channels, 0, float64(s.sampleRate), framesPerBuffer, buf)
	if err != nil {
		palib.Terminate()
		return fmt.Errorf("portaudio: open default input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		palib.Terminate()
		return fmt.Errorf("portaudio: start capture stream: %w", err)
	}

	s.wg.Add(1)
	go s.captureLoop(ctx, stream, buf)
	return nil
}

// Frames returns the capture stream. The channel is closed when the source is
// closed or after repeated device read failures.
func (s *Source) Frames() <-chan audio.Frame {
	return s.frames
}

// Close stops the capture goroutine, closes the frame channel, and releases
// the device. Safe to call multiple times and before Start.
func (s *Source) Close() error {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
	if !s.started.Load() {
		// Never started: the capture goroutine is not around to close the
		// channel, so close it here for readers.
		s.closeFrames()
	}
	return nil
}

// captureLoop reads fixed-size frames from the device until the source is
// closed or the context is cancelled.
func (s *Source) captureLoop(ctx context.Context, stream *palib.Stream, buf []int16) {
	defer s.wg.Done()
	defer s.closeFrames()
	defer func() {
		if err := stream.Stop(); err != nil {
			s.logger.Warn("portaudio: stop stream", "error", err)
		}
		if err := stream.Close(); err != nil {
			s.logger.Warn("portaudio: close stream", "error", err)
		}
		if err := palib.Terminate(); err != nil {
			s.logger.Warn("portaudio: terminate", "error", err)
		}
	}()

	start := time.Now()
	readErrors := 0

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := stream.Read(); err != nil {
			readErrors++
			if readErrors >= maxConsecutiveReadErrors {
				s.logger.Error("portaudio: giving up after repeated read failures", "error", err)
				return
			}
			s.logger.Warn("portaudio: device read failed", "error", err, "attempt", readErrors)
			continue
		}
		readErrors = 0

		pcm := make([]byte, len(buf)*2)
		for i, sample := range buf {
			binary.LittleEndian.PutUint16(pcm[i*2:], uint16(sample))
		}

		frame := audio.Frame{
			PCM:        pcm,
			SampleRate: s.sampleRate,
			Channels:   s.channels,
			Timestamp:  time.Since(start),
		}

		select {
		case s.frames <- frame:
		default:
			// Consumer stalled; drop the frame rather than block capture.
		}
	}
}
