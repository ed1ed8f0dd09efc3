package audio

import (
	"encoding/binary"
	"errors"
)

// WAVInfo holds the format metadata extracted from a RIFF/WAVE header.
type WAVInfo struct {
	DataOffset int // byte offset of the first PCM sample
	DataSize   int // byte length of the data chunk
	SampleRate int // samples per second (e.g., 22050, 44100, 48000)
	Channels   int // 1 = mono, 2 = stereo
}

// ParseWAV scans the RIFF/WAVE container in wav and returns the data offset
// and audio format from the "fmt " sub-chunk. Walking the chunk list is more
// robust than hardcoding a fixed 44-byte offset because the fmt chunk size
// may vary between encoders.
//
// Returns an error if wav is not a valid RIFF/WAVE container or if the data
// chunk cannot be located.
func ParseWAV(wav []byte) (WAVInfo, error) {
	if len(wav) < 12 {
		return WAVInfo{}, errors.New("audio: WAV data too short to be a valid RIFF file")
	}
	if string(wav[0:4]) != "RIFF" {
		return WAVInfo{}, errors.New("audio: WAV data missing RIFF header")
	}
	if string(wav[8:12]) != "WAVE" {
		return WAVInfo{}, errors.New("audio: WAV data missing WAVE identifier")
	}

	var info WAVInfo
	foundFmt := false

	// Walk RIFF chunks starting immediately after the 12-byte RIFF/WAVE header.
	offset := 12
	for offset+8 <= len(wav) {
		chunkID := string(wav[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[offset+4 : offset+8]))

		switch chunkID {
		case "fmt ":
			if chunkSize >= 16 && offset+8+16 <= len(wav) {
				fmtData := wav[offset+8:]
				info.Channels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
				info.SampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
				foundFmt = true
			}
		case "data":
			info.DataOffset = offset + 8
			info.DataSize = chunkSize
			if info.DataOffset+info.DataSize > len(wav) {
				info.DataSize = len(wav) - info.DataOffset
			}
			if !foundFmt {
				// fmt should appear before data; fall back to the common
				// speech-synthesis format rather than failing the clip.
				info.SampleRate = 22050
				info.Channels = 1
			}
			return info, nil
		}

		// Advance past this chunk (chunks are word-aligned: pad by 1 if odd size).
		offset += 8 + chunkSize
		if chunkSize%2 != 0 {
			offset++
		}
	}
	return WAVInfo{}, errors.New("audio: WAV data missing data chunk")
}
