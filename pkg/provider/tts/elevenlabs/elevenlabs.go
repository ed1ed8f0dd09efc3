// Package elevenlabs provides an ElevenLabs-backed TTS speaker using the
// ElevenLabs streaming WebSocket API. It implements the tts.Speaker interface.
//
// Each Synthesize call opens a stream-input WebSocket for the configured
// voice, sends the utterance followed by a flush, and collects the audio
// chunks into a single clip. The default output format is MP3, which the
// audio player decodes at playback time.
package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bkaraca/dinle/pkg/audio"
	"github.com/bkaraca/dinle/pkg/provider/tts"
	"github.com/coder/websocket"
)

const (
	defaultBaseURL   = "https://api.elevenlabs.io"
	streamPathFmt    = "/v1/text-to-speech/%s/stream-input?model_id=%s"
	voicesPath       = "/v1/voices"
	defaultModel     = "eleven_flash_v2_5"
	defaultOutputFmt = "mp3_44100_128"

	// Audio frames routinely exceed the default 32 KiB WebSocket read limit.
	wsReadLimit = 16 << 20
)

// Option is a functional option for configuring the ElevenLabs Speaker.
type Option func(*Speaker)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_flash_v2_5").
func WithModel(model string) Option {
	return func(s *Speaker) {
		s.model = model
	}
}

// WithOutputFormat sets the audio output format. Formats beginning with
// "mp3_" produce MP3 clips; formats beginning with "pcm_" produce raw mono
// 16-bit PCM clips at the rate encoded in the format name (e.g., "pcm_16000").
func WithOutputFormat(format string) Option {
	return func(s *Speaker) {
		s.outputFormat = format
	}
}

// WithBaseURL points the client at a different API endpoint, e.g. a
// self-hosted gateway.
func WithBaseURL(baseURL string) Option {
	return func(s *Speaker) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// Speaker implements tts.Speaker backed by the ElevenLabs streaming API.
type Speaker struct {
	apiKey       string
	voiceID      string
	model        string
	outputFormat string
	baseURL      string
	httpClient   *http.Client
}

// New creates a new ElevenLabs Speaker for the given voice. apiKey and
// voiceID must be non-empty.
func New(apiKey, voiceID string, opts ...Option) (*Speaker, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	if voiceID == "" {
		return nil, errors.New("elevenlabs: voiceID must not be empty")
	}
	s := &Speaker{
		apiKey:       apiKey,
		voiceID:      voiceID,
		model:        defaultModel,
		outputFormat: defaultOutputFmt,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{},
	}
	for _, o := range opts {
		o(s)
	}
	if _, _, err := clipFormat(s.outputFormat); err != nil {
		return nil, err
	}
	return s, nil
}

// ---- WebSocket message types ----

// textMessage is the JSON payload sent to ElevenLabs for each text fragment.
// An empty Text value flushes the stream and ends input.
type textMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

// voiceSettings mirrors the ElevenLabs voice_settings object.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// audioResponse is the JSON message received from ElevenLabs over the WebSocket.
type audioResponse struct {
	Audio   string `json:"audio"` // base64-encoded audio chunk
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message,omitempty"` // error or info
}

// boiMessage is used for the initial "begin of input" handshake.
type boiMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	XiAPIKey      string         `json:"xi_api_key"`
	OutputFormat  string         `json:"output_format,omitempty"`
}

// ---- Synthesize ----

// Synthesize opens a WebSocket to ElevenLabs, sends text followed by a flush
// command, and collects the returned audio chunks into one clip.
func (s *Speaker) Synthesize(ctx context.Context, text string) (audio.Clip, error) {
	if strings.TrimSpace(text) == "" {
		return audio.Clip{}, errors.New("elevenlabs: text must not be empty")
	}

	wsURL := s.baseURL + fmt.Sprintf(streamPathFmt, s.voiceID, s.model)
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPClient: s.httpClient})
	if err != nil {
		return audio.Clip{}, fmt.Errorf("elevenlabs: dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")
	conn.SetReadLimit(wsReadLimit)

	// Send the initial BOI message to authenticate and configure the stream.
	boi := boiMessage{
		Text: " ", // ElevenLabs requires a non-empty first text value
		VoiceSettings: &voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
		XiAPIKey:     s.apiKey,
		OutputFormat: s.outputFormat,
	}
	boiBytes, _ := json.Marshal(boi)
	if err := conn.Write(ctx, websocket.MessageText, boiBytes); err != nil {
		return audio.Clip{}, fmt.Errorf("elevenlabs: send BOI: %w", err)
	}

	msgBytes, _ := json.Marshal(textMessage{Text: text})
	if err := conn.Write(ctx, websocket.MessageText, msgBytes); err != nil {
		return audio.Clip{}, fmt.Errorf("elevenlabs: send text: %w", err)
	}

	// Empty text flushes the stream so the server synthesises everything sent.
	flushBytes, _ := json.Marshal(textMessage{Text: ""})
	if err := conn.Write(ctx, websocket.MessageText, flushBytes); err != nil {
		return audio.Clip{}, fmt.Errorf("elevenlabs: send flush: %w", err)
	}

	var (
		data        []byte
		lastMessage string
	)
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			// A close after audio has arrived means the server is done.
			if len(data) > 0 {
				break
			}
			if ctx.Err() != nil {
				return audio.Clip{}, ctx.Err()
			}
			return audio.Clip{}, fmt.Errorf("elevenlabs: read audio: %w", err)
		}
		var resp audioResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			continue
		}
		if resp.Message != "" {
			lastMessage = resp.Message
		}
		if resp.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(resp.Audio)
			if err == nil {
				data = append(data, chunk...)
			}
		}
		if resp.IsFinal {
			break
		}
	}

	if len(data) == 0 {
		if lastMessage != "" {
			return audio.Clip{}, fmt.Errorf("elevenlabs: no audio in response: %s", lastMessage)
		}
		return audio.Clip{}, errors.New("elevenlabs: no audio in response")
	}

	encoding, rate, err := clipFormat(s.outputFormat)
	if err != nil {
		return audio.Clip{}, err
	}
	clip := audio.Clip{Encoding: encoding, Data: data}
	if encoding == audio.EncodingPCM {
		clip.SampleRate = rate
		clip.Channels = 1
	}
	return clip, nil
}

// Close releases idle HTTP connections. Each Synthesize call owns its own
// WebSocket, so there is nothing else to tear down.
func (s *Speaker) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

// ---- ListVoices ----

// voicesResponse is the top-level response from GET /v1/voices.
type voicesResponse struct {
	Voices []elevenLabsVoice `json:"voices"`
}

// elevenLabsVoice is a single voice entry from the ElevenLabs API.
type elevenLabsVoice struct {
	VoiceID  string            `json:"voice_id"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Labels   map[string]string `json:"labels"`
}

// ListVoices returns all voices available from ElevenLabs for the configured API key.
func (s *Speaker) ListVoices(ctx context.Context) ([]tts.VoiceProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+voicesPath, nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices: %w", err)
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs: list voices: unexpected status %d", resp.StatusCode)
	}

	var vr voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices decode: %w", err)
	}
	return voiceProfiles(vr), nil
}

// ---- helpers ----

// clipFormat maps an ElevenLabs output format name to a clip encoding and,
// for PCM formats, the sample rate encoded in the name.
func clipFormat(format string) (audio.Encoding, int, error) {
	switch {
	case strings.HasPrefix(format, "mp3_"):
		return audio.EncodingMP3, 0, nil
	case strings.HasPrefix(format, "pcm_"):
		rate, err := strconv.Atoi(strings.TrimPrefix(format, "pcm_"))
		if err != nil || rate <= 0 {
			return 0, 0, fmt.Errorf("elevenlabs: invalid PCM output format %q", format)
		}
		return audio.EncodingPCM, rate, nil
	default:
		return 0, 0, fmt.Errorf("elevenlabs: unsupported output format %q", format)
	}
}

// voiceProfiles maps a voices API response onto VoiceProfile values.
func voiceProfiles(vr voicesResponse) []tts.VoiceProfile {
	profiles := make([]tts.VoiceProfile, 0, len(vr.Voices))
	for _, v := range vr.Voices {
		meta := make(map[string]string, len(v.Labels)+1)
		for k, val := range v.Labels {
			meta[k] = val
		}
		if v.Category != "" {
			meta["category"] = v.Category
		}
		profiles = append(profiles, tts.VoiceProfile{
			ID:       v.VoiceID,
			Name:     v.Name,
			Provider: "elevenlabs",
			Metadata: meta,
		})
	}
	return profiles
}

// Ensure Speaker implements tts.Speaker at compile time.
var _ tts.Speaker = (*Speaker)(nil)
