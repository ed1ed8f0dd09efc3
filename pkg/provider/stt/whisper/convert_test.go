package whisper

import (
	"encoding/binary"
	"math"
	"testing"
)

func pcmFromSamples(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func TestPCMToFloat32(t *testing.T) {
	pcm := pcmFromSamples([]int16{0, 16384, -16384, 32767, -32768})
	got := pcmToFloat32(pcm)

	want := []float32{0, 0.5, -0.5, 32767.0 / 32768.0, -1.0}
	if len(got) != len(want) {
		t.Fatalf("sample count = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPCMToFloat32_OddTrailingByte(t *testing.T) {
	pcm := append(pcmFromSamples([]int16{100}), 0xFF)
	got := pcmToFloat32(pcm)
	if len(got) != 1 {
		t.Errorf("sample count = %d, want 1 (trailing byte ignored)", len(got))
	}
}

func TestPCMToFloat32Mono_Stereo(t *testing.T) {
	// Two stereo frames: (16384, 0) and (-16384, -16384).
	pcm := pcmFromSamples([]int16{16384, 0, -16384, -16384})
	got := pcmToFloat32Mono(pcm, 2)

	want := []float32{0.25, -0.5}
	if len(got) != len(want) {
		t.Fatalf("sample count = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestComputeRMS(t *testing.T) {
	// Constant amplitude: RMS equals the amplitude.
	pcm := pcmFromSamples([]int16{1000, -1000, 1000, -1000})
	got := computeRMS(pcm)
	if math.Abs(got-1000) > 0.001 {
		t.Errorf("computeRMS() = %v, want 1000", got)
	}
}

func TestComputeRMS_Silence(t *testing.T) {
	pcm := pcmFromSamples(make([]int16, 320))
	if got := computeRMS(pcm); got != 0 {
		t.Errorf("computeRMS(silence) = %v, want 0", got)
	}
}

func TestComputeRMS_Empty(t *testing.T) {
	if got := computeRMS(nil); got != 0 {
		t.Errorf("computeRMS(nil) = %v, want 0", got)
	}
}
