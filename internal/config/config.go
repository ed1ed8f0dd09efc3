// Package config provides the configuration schema, loader, and provider
// registry for the Dinle voice assistant.
package config

import (
	"log/slog"
	"time"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level maps l onto the slog level it selects. Unknown and empty values map
// to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat selects the slog handler for the process logger.
type LogFormat string

const (
	LogText LogFormat = "text"
	LogJSON LogFormat = "json"
)

// IsValid reports whether f is a recognised log format.
func (f LogFormat) IsValid() bool {
	return f == LogText || f == LogJSON
}

// Config is the root configuration structure for Dinle.
// It is typically loaded from a YAML file using [Load].
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Session SessionConfig `yaml:"session"`
	STT     ProviderEntry `yaml:"stt"`
	TTS     ProviderEntry `yaml:"tts"`
	Chat    ProviderEntry `yaml:"chat"`
	Weather ProviderEntry `yaml:"weather"`
	News    ProviderEntry `yaml:"news"`
	Apps    ProviderEntry `yaml:"apps"`
	Control ControlConfig `yaml:"control"`
	Music   MusicConfig   `yaml:"music"`
}

// LogConfig holds logging settings for the assistant process.
type LogConfig struct {
	// Level controls verbosity. Defaults to info.
	Level LogLevel `yaml:"level"`

	// Format selects text or json output. Defaults to text.
	Format LogFormat `yaml:"format"`
}

// SessionConfig tunes the interaction loop. Zero values take the session
// package defaults.
type SessionConfig struct {
	// Language is the BCP-47 recognition language tag (e.g., "tr-TR").
	Language string `yaml:"language"`

	// ListenTimeout bounds a single recognition window.
	ListenTimeout time.Duration `yaml:"listen_timeout"`

	// MaxRetries is the number of recognition attempts per loop iteration.
	MaxRetries int `yaml:"max_retries"`

	// RetryDelay is the pause between recognition attempts.
	RetryDelay time.Duration `yaml:"retry_delay"`

	// DefaultCity seeds the weather command when an utterance names no city.
	DefaultCity string `yaml:"default_city"`

	// HistoryLimit bounds the conversation history length.
	HistoryLimit int `yaml:"history_limit"`

	// Welcome gates the spoken welcome line on startup. Unset means enabled.
	Welcome *bool `yaml:"welcome"`

	// Aliases maps extra spoken phrases to canonical command names. The map
	// is applied on top of the built-in aliases and is hot-reloadable.
	Aliases map[string]string `yaml:"aliases"`
}

// WelcomeEnabled reports whether the startup welcome line should be spoken.
func (s SessionConfig) WelcomeEnabled() bool {
	return s.Welcome == nil || *s.Welcome
}

// ProviderEntry is the common configuration block shared by all provider
// kinds. The Name field selects the constructor registered in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation
	// (e.g., "whisper", "elevenlabs", "openweather").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a model within the provider (e.g., "gpt-4o-mini") or,
	// for the whisper recognizer, the path to the ggml model file.
	Model string `yaml:"model"`

	// Voice is the provider-specific voice identifier for speech synthesis.
	Voice string `yaml:"voice"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above. Values may be strings, numbers, booleans,
	// or nested maps.
	Options map[string]any `yaml:"options"`

	// Fallbacks lists providers tried in order when this one fails. Only the
	// chat and tts kinds honour fallbacks; nested fallbacks are ignored.
	Fallbacks []ProviderEntry `yaml:"fallbacks"`
}

// ControlConfig holds settings for the HTTP control surface.
type ControlConfig struct {
	// Addr is the TCP address the control server listens on.
	// Defaults to ":8844".
	Addr string `yaml:"addr"`

	// Disabled turns the control surface off entirely.
	Disabled bool `yaml:"disabled"`
}

// MusicConfig holds settings for local music playback.
type MusicConfig struct {
	// Dirs lists the directories searched for music files.
	Dirs []string `yaml:"dirs"`
}
