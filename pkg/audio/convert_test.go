package audio_test

import (
	"encoding/binary"
	"testing"

	"github.com/bkaraca/dinle/pkg/audio"
)

// samplesToBytes converts a slice of int16 samples to little-endian byte representation.
func samplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// bytesToSamples converts a little-endian byte slice to int16 samples.
func bytesToSamples(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return samples
}

func TestMonoToStereo(t *testing.T) {
	mono := samplesToBytes([]int16{100, 200, 300})
	stereo := audio.MonoToStereo(mono)
	got := bytesToSamples(stereo)
	want := []int16{100, 100, 200, 200, 300, 300}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestStereoToMono(t *testing.T) {
	// Two stereo frames: L=100,R=200 and L=-100,R=-200
	stereo := samplesToBytes([]int16{100, 200, -100, -200})
	mono := audio.StereoToMono(stereo)
	got := bytesToSamples(mono)
	want := []int16{150, -150}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestStereoToMono_Clamping(t *testing.T) {
	// Two max-positive samples should clamp to 32767 (not overflow).
	stereo := samplesToBytes([]int16{32767, 32767})
	mono := audio.StereoToMono(stereo)
	got := bytesToSamples(mono)
	want := []int16{32767}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	if got[0] != want[0] {
		t.Errorf("got %d, want %d", got[0], want[0])
	}
}

func TestResampleMono16_SameRate(t *testing.T) {
	pcm := samplesToBytes([]int16{100, 200, 300})
	out := audio.ResampleMono16(pcm, 16000, 16000)
	if len(out) != len(pcm) {
		t.Fatalf("length mismatch: got %d, want %d", len(out), len(pcm))
	}
}

func TestResampleMono16_Downsample(t *testing.T) {
	// 6 samples at 48kHz → 2 samples at 16kHz (1/3x), the capture-to-recognizer path.
	pcm := samplesToBytes([]int16{100, 200, 300, 400, 500, 600})
	out := audio.ResampleMono16(pcm, 48000, 16000)
	got := bytesToSamples(out)
	if len(got) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(got))
	}
}

func TestResampleMono16_Upsample(t *testing.T) {
	// 2 samples at 16kHz → 6 samples at 48kHz (3x)
	pcm := samplesToBytes([]int16{1000, 2000})
	out := audio.ResampleMono16(pcm, 16000, 48000)
	got := bytesToSamples(out)
	if len(got) != 6 {
		t.Fatalf("expected 6 samples, got %d", len(got))
	}
	// First output sample should equal first source sample.
	if got[0] != 1000 {
		t.Errorf("first sample: got %d, want 1000", got[0])
	}
	// Last output sample should be close to last source sample.
	last := got[len(got)-1]
	if last < 1800 || last > 2200 {
		t.Errorf("last sample: got %d, want close to 2000", last)
	}
}

func TestResampleStereo16(t *testing.T) {
	// 2 stereo frames at 16kHz → 6 stereo frames (12 samples) at 48kHz
	pcm := samplesToBytes([]int16{100, 200, 300, 400})
	out := audio.ResampleStereo16(pcm, 16000, 48000)
	got := bytesToSamples(out)
	if len(got) != 12 {
		t.Fatalf("expected 12 samples, got %d", len(got))
	}
}

func TestFormatConverter_NoOp(t *testing.T) {
	conv := audio.FormatConverter{
		Target: audio.Format{SampleRate: 16000, Channels: 1},
	}
	frame := audio.Frame{
		PCM:        samplesToBytes([]int16{100, 200}),
		SampleRate: 16000,
		Channels:   1,
	}
	result := conv.Convert(frame)
	// Same slice, checked by pointer equality.
	if &result.PCM[0] != &frame.PCM[0] {
		t.Error("expected same slice (zero allocation) for matching format")
	}
}

func TestFormatConverter_StereoCaptureToMono(t *testing.T) {
	conv := audio.FormatConverter{
		Target: audio.Format{SampleRate: 16000, Channels: 1},
	}
	frame := audio.Frame{
		PCM:        samplesToBytes([]int16{100, 200, 300, 400}),
		SampleRate: 16000,
		Channels:   2,
	}
	result := conv.Convert(frame)
	got := bytesToSamples(result.PCM)
	want := []int16{150, 350}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
	if result.SampleRate != 16000 || result.Channels != 1 {
		t.Errorf("unexpected format: %dHz %dch", result.SampleRate, result.Channels)
	}
}

func TestFormatConverter_FullConversion(t *testing.T) {
	// 44100 Hz stereo capture → 16000 Hz mono recognizer input.
	conv := audio.FormatConverter{
		Target: audio.Format{SampleRate: 16000, Channels: 1},
	}
	frame := audio.Frame{
		PCM:        samplesToBytes([]int16{1000, 1000, 2000, 2000, 3000, 3000, 4000, 4000}),
		SampleRate: 44100,
		Channels:   2,
	}
	result := conv.Convert(frame)
	if result.SampleRate != 16000 {
		t.Errorf("expected 16000Hz, got %d", result.SampleRate)
	}
	if result.Channels != 1 {
		t.Errorf("expected 1 channel, got %d", result.Channels)
	}
	if len(result.PCM) == 0 {
		t.Error("expected non-empty output")
	}
	if len(result.PCM)%2 != 0 {
		t.Errorf("mono output should be int16-aligned, got %d bytes", len(result.PCM))
	}
}

func TestFormatConverter_OddByteCount(t *testing.T) {
	conv := audio.FormatConverter{
		Target: audio.Format{SampleRate: 16000, Channels: 1},
	}
	frame := audio.Frame{
		PCM:        []byte{1, 2, 3}, // 3 bytes, odd, invalid for int16 PCM
		SampleRate: 44100,
		Channels:   1,
	}
	result := conv.Convert(frame)
	if len(result.PCM) != 0 {
		t.Errorf("expected empty data for odd byte count, got %d bytes", len(result.PCM))
	}
	// Dropped frame should carry target format, not source format.
	if result.SampleRate != 16000 {
		t.Errorf("expected target sample rate 16000, got %d", result.SampleRate)
	}
	if result.Channels != 1 {
		t.Errorf("expected target channels 1, got %d", result.Channels)
	}
}

func TestMonoToStereo_OddLengthInput(t *testing.T) {
	// Odd-length input should not produce trailing zero bytes.
	// 5 bytes = 2 complete samples + 1 trailing byte.
	pcm := []byte{0x64, 0x00, 0xC8, 0x00, 0xFF} // 100, 200, then junk byte
	stereo := audio.MonoToStereo(pcm)
	if len(stereo) != 8 {
		t.Fatalf("expected 8 bytes for 2 complete mono samples, got %d", len(stereo))
	}
	got := bytesToSamples(stereo)
	want := []int16{100, 100, 200, 200}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestResampleMono16_ZeroRate(t *testing.T) {
	pcm := samplesToBytes([]int16{100, 200})
	// Zero srcRate should return input unchanged.
	out := audio.ResampleMono16(pcm, 0, 16000)
	if len(out) != len(pcm) {
		t.Errorf("expected unchanged output for zero srcRate, got len %d", len(out))
	}
	// Zero dstRate should return input unchanged.
	out = audio.ResampleMono16(pcm, 16000, 0)
	if len(out) != len(pcm) {
		t.Errorf("expected unchanged output for zero dstRate, got len %d", len(out))
	}
	// Negative rates should return input unchanged.
	out = audio.ResampleMono16(pcm, -1, 16000)
	if len(out) != len(pcm) {
		t.Errorf("expected unchanged output for negative srcRate, got len %d", len(out))
	}
}

func TestConvertStream(t *testing.T) {
	in := make(chan audio.Frame, 3)
	target := audio.Format{SampleRate: 16000, Channels: 1}
	out := audio.ConvertStream(in, target)

	in <- audio.Frame{PCM: samplesToBytes([]int16{100, 200}), SampleRate: 16000, Channels: 2}
	in <- audio.Frame{PCM: []byte{1, 2, 3}, SampleRate: 16000, Channels: 1} // dropped: odd bytes
	in <- audio.Frame{PCM: samplesToBytes([]int16{300}), SampleRate: 16000, Channels: 1}
	close(in)

	var frames []audio.Frame
	for f := range out {
		frames = append(frames, f)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames (corrupt frame dropped), got %d", len(frames))
	}
	for _, f := range frames {
		if f.SampleRate != 16000 || f.Channels != 1 {
			t.Errorf("frame not converted to target: %dHz %dch", f.SampleRate, f.Channels)
		}
	}
}
