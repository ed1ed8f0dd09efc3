package whisper

// collector accumulates speech-gated PCM for a single utterance. Frames
// below the RMS threshold before any speech are discarded; once speech is
// heard, everything (including trailing silence) is buffered so whisper sees
// natural word boundaries. Not safe for concurrent use; each Listen call
// creates its own collector.
type collector struct {
	bytesPerMs   int
	silenceLimit int // ms of trailing silence that end the utterance
	maxBytes     int
	rmsThreshold float64

	buffer    []byte
	hadSpeech bool
	silenceMs int
}

func newCollector(sampleRate, channels, silenceThresholdMs, maxUtteranceMs int, rmsThreshold float64) *collector {
	bytesPerMs := sampleRate * channels * (bitsPerSample / 8) / 1000
	if bytesPerMs <= 0 {
		bytesPerMs = 32
	}
	return &collector{
		bytesPerMs:   bytesPerMs,
		silenceLimit: silenceThresholdMs,
		maxBytes:     maxUtteranceMs * bytesPerMs,
		rmsThreshold: rmsThreshold,
	}
}

// feed adds one frame of PCM. It returns true when the utterance is
// complete: speech was heard and the configured run of silence followed, or
// the buffer reached its maximum length.
func (c *collector) feed(pcm []byte) bool {
	if len(pcm) == 0 {
		return false
	}

	rms := computeRMS(pcm)
	frameMs := len(pcm) / c.bytesPerMs

	if rms < c.rmsThreshold {
		if !c.hadSpeech {
			return false
		}
		c.silenceMs += frameMs
		c.buffer = append(c.buffer, pcm...)
		return c.silenceMs >= c.silenceLimit
	}

	c.hadSpeech = true
	c.silenceMs = 0
	c.buffer = append(c.buffer, pcm...)
	return c.maxBytes > 0 && len(c.buffer) >= c.maxBytes
}

// take returns the buffered utterance (nil when no speech was heard) and
// resets the collector for the next one.
func (c *collector) take() []byte {
	pcm := c.buffer
	spoke := c.hadSpeech
	c.buffer = nil
	c.hadSpeech = false
	c.silenceMs = 0
	if !spoke {
		return nil
	}
	return pcm
}
