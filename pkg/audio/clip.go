package audio

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	mp3lib "github.com/hajimehoshi/go-mp3"
)

// Duration computes the playback duration of a clip.
//
// PCM and WAV durations are derived from sample math; MP3 durations require
// decoding the frame headers, which is delegated to the go-mp3 decoder. An
// error is returned when the clip lacks the metadata needed for the
// computation or when the encoded data is malformed.
func Duration(c Clip) (time.Duration, error) {
	switch c.Encoding {
	case EncodingPCM:
		if c.SampleRate <= 0 || c.Channels <= 0 {
			return 0, errors.New("audio: PCM clip missing sample rate or channel count")
		}
		samples := len(c.Data) / (2 * c.Channels)
		return time.Duration(samples) * time.Second / time.Duration(c.SampleRate), nil

	case EncodingWAV:
		info, err := ParseWAV(c.Data)
		if err != nil {
			return 0, err
		}
		if info.SampleRate <= 0 || info.Channels <= 0 {
			return 0, errors.New("audio: WAV clip has invalid format chunk")
		}
		samples := info.DataSize / (2 * info.Channels)
		return time.Duration(samples) * time.Second / time.Duration(info.SampleRate), nil

	case EncodingMP3:
		dec, err := mp3lib.NewDecoder(bytes.NewReader(c.Data))
		if err != nil {
			return 0, fmt.Errorf("audio: decode MP3 clip: %w", err)
		}
		// go-mp3 always emits 16-bit stereo, so 4 bytes per output sample.
		samples := dec.Length() / 4
		return time.Duration(samples) * time.Second / time.Duration(dec.SampleRate()), nil

	case EncodingOGG:
		// Ogg duration would need a full Vorbis decode pass. No caller needs
		// it: speech synthesis never produces Ogg, and music playback does not
		// report durations.
		return 0, errors.New("audio: duration not supported for OGG clips")

	default:
		return 0, fmt.Errorf("audio: unsupported encoding %v", c.Encoding)
	}
}
