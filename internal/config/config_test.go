package config_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bkaraca/dinle/internal/config"
	"github.com/bkaraca/dinle/pkg/provider/chat"
	chatmock "github.com/bkaraca/dinle/pkg/provider/chat/mock"
	"github.com/bkaraca/dinle/pkg/provider/stt"
	sttmock "github.com/bkaraca/dinle/pkg/provider/stt/mock"
	"github.com/bkaraca/dinle/pkg/provider/tts"
	ttsmock "github.com/bkaraca/dinle/pkg/provider/tts/mock"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const sampleYAML = `
log:
  level: info
  format: text

session:
  language: tr-TR
  listen_timeout: 7s
  max_retries: 2
  retry_delay: 500ms
  default_city: Ankara
  history_limit: 30
  welcome: false
  aliases:
    "bilgisayarı kapat": "kapat"
    "radyo aç": "müzik çal"

stt:
  name: whisper
  model: /opt/models/ggml-small.bin
  options:
    language: tr

tts:
  name: elevenlabs
  api_key: el-test
  voice: kerem-v1
  model: eleven_multilingual_v2

chat:
  name: openai
  api_key: sk-test
  model: gpt-4o-mini

weather:
  name: openweather
  api_key: ow-test

news:
  name: newsapi
  api_key: na-test

apps:
  name: local

control:
  addr: ":8844"

music:
  dirs:
    - /home/user/Music
    - /srv/music
`

// ── YAML loading ──────────────────────────────────────────────────────────────

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Log.Level != config.LogInfo {
		t.Errorf("log.level: got %q, want %q", cfg.Log.Level, config.LogInfo)
	}
	if cfg.Log.Format != config.LogText {
		t.Errorf("log.format: got %q, want %q", cfg.Log.Format, config.LogText)
	}
	if cfg.Session.Language != "tr-TR" {
		t.Errorf("session.language: got %q, want %q", cfg.Session.Language, "tr-TR")
	}
	if cfg.Session.ListenTimeout != 7*time.Second {
		t.Errorf("session.listen_timeout: got %s, want 7s", cfg.Session.ListenTimeout)
	}
	if cfg.Session.RetryDelay != 500*time.Millisecond {
		t.Errorf("session.retry_delay: got %s, want 500ms", cfg.Session.RetryDelay)
	}
	if cfg.Session.DefaultCity != "Ankara" {
		t.Errorf("session.default_city: got %q", cfg.Session.DefaultCity)
	}
	if cfg.Session.WelcomeEnabled() {
		t.Error("welcome: false should disable the welcome line")
	}
	if got := cfg.Session.Aliases["bilgisayarı kapat"]; got != "kapat" {
		t.Errorf("aliases: got %q, want %q", got, "kapat")
	}
	if cfg.STT.Name != "whisper" {
		t.Errorf("stt.name: got %q, want %q", cfg.STT.Name, "whisper")
	}
	if cfg.STT.Model != "/opt/models/ggml-small.bin" {
		t.Errorf("stt.model: got %q", cfg.STT.Model)
	}
	if cfg.TTS.Voice != "kerem-v1" {
		t.Errorf("tts.voice: got %q", cfg.TTS.Voice)
	}
	if cfg.Control.Addr != ":8844" {
		t.Errorf("control.addr: got %q", cfg.Control.Addr)
	}
	if len(cfg.Music.Dirs) != 2 || cfg.Music.Dirs[0] != "/home/user/Music" {
		t.Errorf("music.dirs: got %v", cfg.Music.Dirs)
	}
}

func TestLoadFromReader_EmptyIsValid(t *testing.T) {
	for _, doc := range []string{"", "{}"} {
		cfg, err := config.LoadFromReader(strings.NewReader(doc))
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", doc, err)
		}
		if cfg == nil {
			t.Fatalf("LoadFromReader(%q) returned nil config", doc)
		}
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	yaml := `
session:
  langauge: tr-TR
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load("/nonexistent/dinle.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist in chain, got: %v", err)
	}
}

// ── Validation ────────────────────────────────────────────────────────────────

func TestValidate_InvalidLogLevel(t *testing.T) {
	yaml := `
log:
  level: verbose
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log.level") {
		t.Errorf("error should mention log.level, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	yaml := `
log:
  format: xml
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log format, got nil")
	}
	if !strings.Contains(err.Error(), "log.format") {
		t.Errorf("error should mention log.format, got: %v", err)
	}
}

func TestValidate_NegativeTimeout(t *testing.T) {
	yaml := `
session:
  listen_timeout: -5s
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for negative listen_timeout, got nil")
	}
	if !strings.Contains(err.Error(), "listen_timeout") {
		t.Errorf("error should mention listen_timeout, got: %v", err)
	}
}

func TestValidate_EmptyAliasTarget(t *testing.T) {
	yaml := `
session:
  aliases:
    "bir şey söyle": ""
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for empty alias target, got nil")
	}
	if !strings.Contains(err.Error(), "aliases") {
		t.Errorf("error should mention aliases, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	yaml := `
log:
  level: loud
session:
  max_retries: -1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "log.level") {
		t.Errorf("error should mention log.level, got: %v", err)
	}
	if !strings.Contains(errStr, "max_retries") {
		t.Errorf("error should mention max_retries, got: %v", err)
	}
}

func TestLoadFromReader_FallbackChains(t *testing.T) {
	yaml := `
chat:
  name: openai
  api_key: sk-test
  model: gpt-4o-mini
  fallbacks:
    - name: ollama
      model: llama3
      base_url: http://localhost:11434
    - name: groq
      api_key: gq-test
      model: llama-3.1-8b-instant

tts:
  name: elevenlabs
  api_key: el-test
  voice: kerem-v1
  fallbacks:
    - name: coqui
      base_url: http://localhost:5002
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Chat.Fallbacks) != 2 {
		t.Fatalf("chat.fallbacks: got %d entries, want 2", len(cfg.Chat.Fallbacks))
	}
	if cfg.Chat.Fallbacks[0].Name != "ollama" || cfg.Chat.Fallbacks[0].Model != "llama3" {
		t.Errorf("chat.fallbacks[0] = %+v", cfg.Chat.Fallbacks[0])
	}
	if cfg.Chat.Fallbacks[1].Name != "groq" || cfg.Chat.Fallbacks[1].APIKey != "gq-test" {
		t.Errorf("chat.fallbacks[1] = %+v", cfg.Chat.Fallbacks[1])
	}
	if len(cfg.TTS.Fallbacks) != 1 || cfg.TTS.Fallbacks[0].Name != "coqui" {
		t.Errorf("tts.fallbacks = %+v", cfg.TTS.Fallbacks)
	}
}

func TestValidate_FallbackWithoutName(t *testing.T) {
	yaml := `
chat:
  name: openai
  api_key: sk-test
  fallbacks:
    - model: llama3
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unnamed fallback, got nil")
	}
	if !strings.Contains(err.Error(), "chat.fallbacks[0]") {
		t.Errorf("error should name the fallback entry, got: %v", err)
	}
}

// ── Schema helpers ────────────────────────────────────────────────────────────

func TestLogLevel_Level(t *testing.T) {
	cases := []struct {
		in   config.LogLevel
		want slog.Level
	}{
		{config.LogDebug, slog.LevelDebug},
		{config.LogInfo, slog.LevelInfo},
		{config.LogWarn, slog.LevelWarn},
		{config.LogError, slog.LevelError},
		{config.LogLevel(""), slog.LevelInfo},
		{config.LogLevel("loud"), slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := tc.in.Level(); got != tc.want {
			t.Errorf("LogLevel(%q).Level() = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestWelcomeEnabled(t *testing.T) {
	var s config.SessionConfig
	if !s.WelcomeEnabled() {
		t.Error("unset welcome should be enabled")
	}
	off := false
	s.Welcome = &off
	if s.WelcomeEnabled() {
		t.Error("welcome=false should be disabled")
	}
	on := true
	s.Welcome = &on
	if !s.WelcomeEnabled() {
		t.Error("welcome=true should be enabled")
	}
}

// ── Environment overlay ───────────────────────────────────────────────────────

func TestApplyEnv_PrefixedOverrides(t *testing.T) {
	t.Setenv("DINLE_LOG_LEVEL", "debug")
	t.Setenv("DINLE_CONTROL_ADDR", ":9900")
	t.Setenv("DINLE_WEATHER_API_KEY", "env-key")

	cfg := &config.Config{}
	cfg.Log.Level = config.LogWarn
	cfg.Weather.APIKey = "file-key"

	config.ApplyEnv(cfg)

	if cfg.Log.Level != config.LogDebug {
		t.Errorf("DINLE_LOG_LEVEL should override the file, got %q", cfg.Log.Level)
	}
	if cfg.Control.Addr != ":9900" {
		t.Errorf("DINLE_CONTROL_ADDR should apply, got %q", cfg.Control.Addr)
	}
	if cfg.Weather.APIKey != "env-key" {
		t.Errorf("DINLE_WEATHER_API_KEY should override the file, got %q", cfg.Weather.APIKey)
	}
}

func TestApplyEnv_CompatKeysFillOnly(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("ELEVENLABS_API_KEY", "el-env")

	cfg := &config.Config{}
	cfg.TTS.APIKey = "el-file"

	config.ApplyEnv(cfg)

	if cfg.Chat.APIKey != "sk-env" {
		t.Errorf("OPENAI_API_KEY should fill the empty chat key, got %q", cfg.Chat.APIKey)
	}
	if cfg.TTS.APIKey != "el-file" {
		t.Errorf("ELEVENLABS_API_KEY must not clobber a file value, got %q", cfg.TTS.APIKey)
	}
}

func TestLoad_AppliesEnv(t *testing.T) {
	t.Setenv("DINLE_LOG_LEVEL", "error")
	t.Setenv("NEWS_API_KEY", "na-env")

	dir := t.TempDir()
	path := filepath.Join(dir, "dinle.yaml")
	doc := `
log:
  level: info
news:
  name: newsapi
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Log.Level != config.LogError {
		t.Errorf("log.level: got %q, want %q", cfg.Log.Level, config.LogError)
	}
	if cfg.News.APIKey != "na-env" {
		t.Errorf("news.api_key: got %q, want %q", cfg.News.APIKey, "na-env")
	}
}

func TestLoad_EnvValueIsValidated(t *testing.T) {
	t.Setenv("DINLE_LOG_LEVEL", "shouty")

	dir := t.TempDir()
	path := filepath.Join(dir, "dinle.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for invalid env log level, got nil")
	}
}

// ── Registry ─────────────────────────────────────────────────────────────────

func TestRegistry_UnknownProviders(t *testing.T) {
	reg := config.NewRegistry()
	entry := config.ProviderEntry{Name: "nonexistent"}

	_, sttErr := reg.CreateSTT(entry)
	_, ttsErr := reg.CreateTTS(entry)
	_, chatErr := reg.CreateChat(entry)
	_, weatherErr := reg.CreateWeather(entry)
	_, newsErr := reg.CreateNews(entry)
	_, appsErr := reg.CreateApps(entry)

	byKind := map[string]error{
		"stt":     sttErr,
		"tts":     ttsErr,
		"chat":    chatErr,
		"weather": weatherErr,
		"news":    newsErr,
		"apps":    appsErr,
	}
	for kind, err := range byKind {
		if !errors.Is(err, config.ErrProviderNotRegistered) {
			t.Errorf("%s: expected ErrProviderNotRegistered, got: %v", kind, err)
		}
		if err == nil || !strings.Contains(err.Error(), kind) {
			t.Errorf("%s: error should name the kind, got: %v", kind, err)
		}
	}
}

func TestRegistry_RegisteredSTT(t *testing.T) {
	reg := config.NewRegistry()
	want := &sttmock.Recognizer{}
	reg.RegisterSTT("stub", func(e config.ProviderEntry) (stt.Recognizer, error) {
		return want, nil
	})
	got, err := reg.CreateSTT(config.ProviderEntry{Name: "stub"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Error("returned recognizer is not the expected instance")
	}
}

func TestRegistry_RegisteredTTS(t *testing.T) {
	reg := config.NewRegistry()
	want := &ttsmock.Speaker{}
	reg.RegisterTTS("stub", func(e config.ProviderEntry) (tts.Speaker, error) {
		return want, nil
	})
	got, err := reg.CreateTTS(config.ProviderEntry{Name: "stub"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Error("returned speaker is not the expected instance")
	}
}

func TestRegistry_FactorySeesEntry(t *testing.T) {
	reg := config.NewRegistry()
	var seen config.ProviderEntry
	reg.RegisterChat("stub", func(e config.ProviderEntry) (chat.Provider, error) {
		seen = e
		return &chatmock.Provider{}, nil
	})
	entry := config.ProviderEntry{Name: "stub", APIKey: "sk-1", Model: "gpt-4o-mini"}
	if _, err := reg.CreateChat(entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen.APIKey != "sk-1" || seen.Model != "gpt-4o-mini" {
		t.Errorf("factory received %+v, want the original entry", seen)
	}
}

func TestRegistry_FactoryError(t *testing.T) {
	reg := config.NewRegistry()
	wantErr := errors.New("factory boom")
	reg.RegisterChat("broken", func(e config.ProviderEntry) (chat.Provider, error) {
		return nil, wantErr
	})
	_, err := reg.CreateChat(config.ProviderEntry{Name: "broken"})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected factory error %v, got %v", wantErr, err)
	}
}

func TestRegistry_Overwrite(t *testing.T) {
	reg := config.NewRegistry()
	first := &sttmock.Recognizer{}
	second := &sttmock.Recognizer{}
	reg.RegisterSTT("dup", func(e config.ProviderEntry) (stt.Recognizer, error) { return first, nil })
	reg.RegisterSTT("dup", func(e config.ProviderEntry) (stt.Recognizer, error) { return second, nil })
	got, err := reg.CreateSTT(config.ProviderEntry{Name: "dup"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != second {
		t.Error("later registration should win")
	}
}
