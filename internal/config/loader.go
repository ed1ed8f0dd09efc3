package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":     {"whisper"},
	"tts":     {"elevenlabs", "coqui"},
	"chat":    {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"weather": {"openweather"},
	"news":    {"newsapi"},
	"apps":    {"local"},
}

// Load reads the YAML configuration file at path, overlays the environment
// via [ApplyEnv], and returns a validated [Config].
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	cfg, err := loadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result. The
// environment is not consulted, which keeps configs built from string
// literals in tests deterministic.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg, err := decode(r)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadBytes is the decode → ApplyEnv → Validate pipeline shared by [Load]
// and the watcher's reload path.
func loadBytes(data []byte) (*Config, error) {
	cfg, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			// An empty file is an empty config.
			return cfg, nil
		}
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto cfg.
//
// DINLE_-prefixed variables override the file unconditionally:
//
//	DINLE_LOG_LEVEL        log.level
//	DINLE_CONTROL_ADDR     control.addr
//	DINLE_LANGUAGE         session.language
//	DINLE_DEFAULT_CITY     session.default_city
//	DINLE_STT_API_KEY      stt.api_key
//	DINLE_TTS_API_KEY      tts.api_key
//	DINLE_CHAT_API_KEY     chat.api_key
//	DINLE_WEATHER_API_KEY  weather.api_key
//	DINLE_NEWS_API_KEY     news.api_key
//
// The key names earlier releases read from .env files fill provider API keys
// only when the file left them empty: OPENAI_API_KEY (chat),
// ELEVENLABS_API_KEY (tts), WEATHER_API_KEY (weather), NEWS_API_KEY (news).
func ApplyEnv(cfg *Config) {
	override := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	fill := func(key string, dst *string) {
		if *dst == "" {
			override(key, dst)
		}
	}

	if v := os.Getenv("DINLE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = LogLevel(v)
	}
	override("DINLE_CONTROL_ADDR", &cfg.Control.Addr)
	override("DINLE_LANGUAGE", &cfg.Session.Language)
	override("DINLE_DEFAULT_CITY", &cfg.Session.DefaultCity)
	override("DINLE_STT_API_KEY", &cfg.STT.APIKey)
	override("DINLE_TTS_API_KEY", &cfg.TTS.APIKey)
	override("DINLE_CHAT_API_KEY", &cfg.Chat.APIKey)
	override("DINLE_WEATHER_API_KEY", &cfg.Weather.APIKey)
	override("DINLE_NEWS_API_KEY", &cfg.News.APIKey)

	fill("OPENAI_API_KEY", &cfg.Chat.APIKey)
	fill("ELEVENLABS_API_KEY", &cfg.TTS.APIKey)
	fill("WEATHER_API_KEY", &cfg.Weather.APIKey)
	fill("NEWS_API_KEY", &cfg.News.APIKey)
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Log
	if cfg.Log.Level != "" && !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}
	if cfg.Log.Format != "" && !cfg.Log.Format.IsValid() {
		errs = append(errs, fmt.Errorf("log.format %q is invalid; valid values: text, json", cfg.Log.Format))
	}

	// Session
	if cfg.Session.ListenTimeout < 0 {
		errs = append(errs, fmt.Errorf("session.listen_timeout %s is negative", cfg.Session.ListenTimeout))
	}
	if cfg.Session.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("session.retry_delay %s is negative", cfg.Session.RetryDelay))
	}
	if cfg.Session.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("session.max_retries %d is negative", cfg.Session.MaxRetries))
	}
	if cfg.Session.HistoryLimit < 0 {
		errs = append(errs, fmt.Errorf("session.history_limit %d is negative", cfg.Session.HistoryLimit))
	}
	for phrase, target := range cfg.Session.Aliases {
		if strings.TrimSpace(phrase) == "" {
			errs = append(errs, errors.New("session.aliases contains an empty phrase"))
		}
		if strings.TrimSpace(target) == "" {
			errs = append(errs, fmt.Errorf("session.aliases[%q] has an empty command target", phrase))
		}
	}

	// Unknown provider names warn rather than error.
	validateProviderName("stt", cfg.STT.Name)
	validateProviderName("tts", cfg.TTS.Name)
	validateProviderName("chat", cfg.Chat.Name)
	validateProviderName("weather", cfg.Weather.Name)
	validateProviderName("news", cfg.News.Name)
	validateProviderName("apps", cfg.Apps.Name)

	// Fallback chains exist for the chat and tts kinds only.
	for i, fb := range cfg.Chat.Fallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("chat.fallbacks[%d] has no name", i))
			continue
		}
		validateProviderName("chat", fb.Name)
	}
	for i, fb := range cfg.TTS.Fallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("tts.fallbacks[%d] has no name", i))
			continue
		}
		validateProviderName("tts", fb.Name)
	}
	for _, kind := range []struct {
		name  string
		entry ProviderEntry
	}{
		{"stt", cfg.STT}, {"weather", cfg.Weather}, {"news", cfg.News}, {"apps", cfg.Apps},
	} {
		if len(kind.entry.Fallbacks) > 0 {
			slog.Warn("fallbacks are ignored for this provider kind", "kind", kind.name)
		}
	}

	// Provider availability warnings. A missing provider is not an error so
	// a partial config still validates; application wiring reports the gap.
	if cfg.STT.Name == "" {
		slog.Warn("no stt provider configured; the assistant will not hear anything")
	}
	if cfg.TTS.Name == "" {
		slog.Warn("no tts provider configured; responses will not be spoken")
	}
	if cfg.Chat.Name == "" {
		slog.Warn("no chat provider configured; unmatched utterances will not get answers")
	}
	if cfg.Weather.Name != "" && cfg.Weather.APIKey == "" {
		slog.Warn("weather provider has no api key; weather commands will fail", "name", cfg.Weather.Name)
	}
	if cfg.News.Name != "" && cfg.News.APIKey == "" {
		slog.Warn("news provider has no api key; news commands will fail", "name", cfg.News.Name)
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
