// Package beep implements [audio.Player] on top of the faiface/beep speaker.
//
// The beep speaker is a process-wide singleton: the first player constructed
// initialises it at the configured mixer rate and every clip is resampled to
// that rate before playback. Multiple Player instances may coexist (the
// speaker mixes their streams); each instance interrupts only its own clip,
// so stopping a spoken response does not cut off unrelated playback such as
// background music.
package beep

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	beeplib "github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"

	"github.com/bkaraca/dinle/pkg/audio"
)

// Compile-time interface assertion.
var _ audio.Player = (*Player)(nil)

const (
	// defaultMixerRate is the speaker sample rate used when no option
	// overrides it. 44100 Hz covers both MP3 synthesis output and WAV
	// clips without audible resampling artefacts.
	defaultMixerRate = 44100

	// speakerBufferLen is the duration of the speaker's internal buffer.
	// Shorter buffers reduce the latency of Stop at the cost of underrun risk.
	speakerBufferLen = time.Second / 10

	// resampleQuality is the beep.Resample quality factor (1..64).
	resampleQuality = 4
)

var (
	initMu      sync.Mutex
	speakerRate beeplib.SampleRate // zero until the speaker is initialised
)

// ensureSpeaker initialises the global beep speaker on first use and returns
// the mixer rate every clip must be resampled to.
func ensureSpeaker(rate beeplib.SampleRate) (beeplib.SampleRate, error) {
	initMu.Lock()
	defer initMu.Unlock()
	if speakerRate != 0 {
		return speakerRate, nil
	}
	if err := speaker.Init(rate, rate.N(speakerBufferLen)); err != nil {
		return 0, err
	}
	speakerRate = rate
	return rate, nil
}

// Terminate closes the global speaker and releases the output device. Call it
// once during process shutdown, after all players are closed. Safe to call
// when the speaker was never initialised.
func Terminate() {
	initMu.Lock()
	defer initMu.Unlock()
	if speakerRate != 0 {
		speaker.Close()
		speakerRate = 0
	}
}

// Option is a functional option for configuring a [Player].
type Option func(*Player)

// WithMixerRate sets the speaker sample rate used when this player is the
// first to initialise the speaker. Defaults to 44100 Hz. Once the speaker is
// initialised its rate is fixed; later players inherit it.
func WithMixerRate(rate int) Option {
	return func(p *Player) {
		if rate > 0 {
			p.mixerRate = beeplib.SampleRate(rate)
		}
	}
}

// Player plays [audio.Clip] values through the beep speaker. It decodes MP3,
// WAV, and Ogg Vorbis containers and streams raw PCM directly. Safe for
// concurrent use; Play calls on the same player are serialised.
type Player struct {
	mixerRate beeplib.SampleRate

	playMu  sync.Mutex
	current atomic.Pointer[interruptible]
	closed  atomic.Bool
}

// NewPlayer creates a Player. The speaker itself is initialised lazily on the
// first Play call so that constructing a player in tests does not require an
// output device.
func NewPlayer(opts ...Option) *Player {
	p := &Player{mixerRate: defaultMixerRate}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Play decodes clip and plays it to completion. It blocks until the clip
// finishes, ctx is cancelled, or [Player.Stop] is called. An interrupted clip
// is not an error; Play returns nil in that case. Cancellation via ctx
// returns ctx.Err().
func (p *Player) Play(ctx context.Context, clip audio.Clip) error {
	if clip.Empty() {
		return errors.New("beep: refusing to play empty clip")
	}

	p.playMu.Lock()
	defer p.playMu.Unlock()

	if p.closed.Load() {
		return errors.New("beep: player is closed")
	}

	streamer, closeStreamer, format, err := decode(clip)
	if err != nil {
		return err
	}
	defer closeStreamer()

	rate, err := ensureSpeaker(p.mixerRate)
	if err != nil {
		return fmt.Errorf("beep: init speaker: %w", err)
	}

	var s beeplib.Streamer = streamer
	if format.SampleRate != rate {
		s = beeplib.Resample(resampleQuality, format.SampleRate, rate, streamer)
	}

	intr := &interruptible{inner: s}
	p.current.Store(intr)
	defer p.current.Store(nil)

	done := make(chan struct{})
	speaker.Play(beeplib.Seq(intr, beeplib.Callback(func() { close(done) })))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		intr.stop()
		// The mixer ends the streamer on its next tick, which fires the
		// completion callback. Wait for it so the decoder is not closed
		// while the speaker still reads from it.
		<-done
		return ctx.Err()
	}
}

// Stop interrupts the clip this player is currently playing, if any. The
// blocked Play call returns nil shortly after. Clips played by other Player
// instances are unaffected.
func (p *Player) Stop() error {
	if intr := p.current.Load(); intr != nil {
		intr.stop()
	}
	return nil
}

// Close stops the current clip and rejects future Play calls. The global
// speaker stays open for other players; use [Terminate] at process shutdown.
func (p *Player) Close() error {
	p.closed.Store(true)
	return p.Stop()
}

// ─── decoding ─────────────────────────────────────────────────────────────────

// decode turns a clip into a beep streamer plus a cleanup function. The
// cleanup function must not be called before the streamer is drained.
func decode(clip audio.Clip) (beeplib.Streamer, func() error, beeplib.Format, error) {
	switch clip.Encoding {
	case audio.EncodingMP3:
		s, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(clip.Data)))
		if err != nil {
			return nil, nil, beeplib.Format{}, fmt.Errorf("beep: decode mp3 clip: %w", err)
		}
		return s, s.Close, format, nil

	case audio.EncodingWAV:
		s, format, err := wav.Decode(bytes.NewReader(clip.Data))
		if err != nil {
			return nil, nil, beeplib.Format{}, fmt.Errorf("beep: decode wav clip: %w", err)
		}
		return s, s.Close, format, nil

	case audio.EncodingOGG:
		s, format, err := vorbis.Decode(io.NopCloser(bytes.NewReader(clip.Data)))
		if err != nil {
			return nil, nil, beeplib.Format{}, fmt.Errorf("beep: decode ogg clip: %w", err)
		}
		return s, s.Close, format, nil

	case audio.EncodingPCM:
		if clip.SampleRate <= 0 || clip.Channels < 1 || clip.Channels > 2 {
			return nil, nil, beeplib.Format{}, errors.New("beep: PCM clip missing sample rate or channel count")
		}
		s := &pcmStreamer{data: clip.Data, channels: clip.Channels}
		format := beeplib.Format{
			SampleRate:  beeplib.SampleRate(clip.SampleRate),
			NumChannels: clip.Channels,
			Precision:   2,
		}
		return s, func() error { return nil }, format, nil

	default:
		return nil, nil, beeplib.Format{}, fmt.Errorf("beep: unsupported clip encoding %v", clip.Encoding)
	}
}

// pcmStreamer streams raw 16-bit little-endian PCM as beep samples.
type pcmStreamer struct {
	data     []byte
	channels int
	pos      int
}

// Stream implements beep.Streamer.
func (s *pcmStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	bytesPerFrame := 2 * s.channels
	for n < len(samples) && s.pos+bytesPerFrame <= len(s.data) {
		left := float64(int16(binary.LittleEndian.Uint16(s.data[s.pos:]))) / 32768
		right := left
		if s.channels == 2 {
			right = float64(int16(binary.LittleEndian.Uint16(s.data[s.pos+2:]))) / 32768
		}
		samples[n][0], samples[n][1] = left, right
		s.pos += bytesPerFrame
		n++
	}
	return n, n > 0
}

// Err implements beep.Streamer. PCM streaming cannot fail mid-stream.
func (s *pcmStreamer) Err() error { return nil }

// interruptible wraps a streamer so a concurrent stop() ends it on the next
// mixer tick without touching other streamers playing on the shared speaker.
type interruptible struct {
	inner   beeplib.Streamer
	stopped atomic.Bool
}

func (i *interruptible) stop() { i.stopped.Store(true) }

// Stream implements beep.Streamer.
func (i *interruptible) Stream(samples [][2]float64) (n int, ok bool) {
	if i.stopped.Load() {
		return 0, false
	}
	return i.inner.Stream(samples)
}

// Err implements beep.Streamer by delegating to the wrapped streamer.
func (i *interruptible) Err() error { return i.inner.Err() }
