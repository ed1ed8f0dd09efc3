// Command dinle is the entry point for the Dinle voice assistant.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bkaraca/dinle/internal/app"
	"github.com/bkaraca/dinle/internal/config"
	"github.com/bkaraca/dinle/internal/observe"
	"github.com/bkaraca/dinle/pkg/audio"
	"github.com/bkaraca/dinle/pkg/audio/beep"
	"github.com/bkaraca/dinle/pkg/audio/portaudio"
	"github.com/bkaraca/dinle/pkg/provider/apps"
	applocal "github.com/bkaraca/dinle/pkg/provider/apps/local"
	"github.com/bkaraca/dinle/pkg/provider/chat"
	"github.com/bkaraca/dinle/pkg/provider/chat/anyllm"
	chatopenai "github.com/bkaraca/dinle/pkg/provider/chat/openai"
	"github.com/bkaraca/dinle/pkg/provider/news"
	"github.com/bkaraca/dinle/pkg/provider/news/newsapi"
	"github.com/bkaraca/dinle/pkg/provider/stt"
	"github.com/bkaraca/dinle/pkg/provider/stt/whisper"
	"github.com/bkaraca/dinle/pkg/provider/tts"
	"github.com/bkaraca/dinle/pkg/provider/tts/coqui"
	"github.com/bkaraca/dinle/pkg/provider/tts/elevenlabs"
	"github.com/bkaraca/dinle/pkg/provider/weather"
	"github.com/bkaraca/dinle/pkg/provider/weather/openweather"
)

// version is stamped at release time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	validate := flag.Bool("validate", false, "check the configuration file and exit")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("dinle " + version)
		return 0
	}

	// ── Environment ───────────────────────────────────────────────────────────
	// A missing .env file is fine; variables exported by the shell still apply.
	_ = godotenv.Load()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "dinle: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "dinle: %v\n", err)
		}
		return 2
	}
	if *validate {
		fmt.Printf("dinle: configuration %q is valid\n", *configPath)
		return 0
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	levelVar := new(slog.LevelVar)
	levelVar.Set(cfg.Log.Level.Level())
	slog.SetDefault(newLogger(cfg.Log.Format, levelVar))

	slog.Info("dinle starting",
		"version", version,
		"config", *configPath,
		"log_level", cfg.Log.Level,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	// Telemetry failures are not fatal; the assistant runs without metrics.
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Warn("telemetry init failed, metrics are disabled", "err", err)
	}

	// ── Audio devices ─────────────────────────────────────────────────────────
	player := beep.NewPlayer()
	mic := portaudio.New()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg, mic, player, cfg.Music.Dirs)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := app.BuildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}
	providers.Player = player

	if cfg.STT.Name == "whisper" {
		if err := mic.Start(ctx); err != nil {
			slog.Error("failed to open microphone", "err", err)
			return 1
		}
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(cfg, providers,
		app.WithLogLevel(levelVar),
		app.WithHotReload(*configPath),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("assistant ready, press Ctrl+C to shut down")

	exitCode := 0
	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		exitCode = 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutting down")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		exitCode = 1
	}
	if err := mic.Close(); err != nil {
		slog.Warn("microphone close error", "err", err)
	}
	if err := player.Close(); err != nil {
		slog.Warn("audio player close error", "err", err)
	}
	if otelShutdown != nil {
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}
	slog.Info("goodbye")
	return exitCode
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// builtinProviders maps provider kinds to the implementations that ship with
// Dinle. Used for startup logging.
var builtinProviders = map[string][]string{
	"stt":     {"whisper"},
	"tts":     {"elevenlabs", "coqui"},
	"chat":    {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"weather": {"openweather"},
	"news":    {"newsapi"},
	"apps":    {"local"},
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the provider
// from the real implementation packages. The microphone and the player are
// process-wide devices created in run(), so the factories that need them
// close over them here.
func registerBuiltinProviders(reg *config.Registry, mic audio.Source, player audio.Player, musicDirs []string) {
	// ── STT ───────────────────────────────────────────────────────────────────
	// whisper runs the model locally; entry.Model is the ggml model file path.
	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Recognizer, error) {
		var opts []whisper.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		if rate := optInt(entry.Options, "sample_rate"); rate > 0 {
			opts = append(opts, whisper.WithSampleRate(rate))
		}
		if ms := optInt(entry.Options, "silence_threshold_ms"); ms > 0 {
			opts = append(opts, whisper.WithSilenceThresholdMs(ms))
		}
		if ms := optInt(entry.Options, "max_utterance_ms"); ms > 0 {
			opts = append(opts, whisper.WithMaxUtteranceMs(ms))
		}
		if rms := optFloat(entry.Options, "rms_threshold"); rms > 0 {
			opts = append(opts, whisper.WithRMSThreshold(rms))
		}
		return whisper.New(entry.Model, mic, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Speaker, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(entry.BaseURL))
		}
		if outputFmt := optString(entry.Options, "output_format"); outputFmt != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(outputFmt))
		}
		return elevenlabs.New(entry.APIKey, entry.Voice, opts...)
	})

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Speaker, error) {
		var opts []coqui.Option
		if entry.Voice != "" {
			opts = append(opts, coqui.WithVoice(entry.Voice))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, coqui.WithLanguage(lang))
		}
		if mode := optString(entry.Options, "api_mode"); mode != "" {
			opts = append(opts, coqui.WithAPIMode(coqui.APIMode(mode)))
		}
		return coqui.New(entry.BaseURL, opts...)
	})

	// ── Chat ──────────────────────────────────────────────────────────────────

	// openai talks to the Chat Completions API through the official SDK.
	reg.RegisterChat("openai", func(entry config.ProviderEntry) (chat.Provider, error) {
		var opts []chatopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, chatopenai.WithBaseURL(entry.BaseURL))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, chatopenai.WithOrganization(org))
		}
		if prompt := optString(entry.Options, "system_prompt"); prompt != "" {
			opts = append(opts, chatopenai.WithSystemPrompt(prompt))
		}
		if t := optFloat(entry.Options, "temperature"); t > 0 {
			opts = append(opts, chatopenai.WithTemperature(t))
		}
		if n := optInt(entry.Options, "max_tokens"); n > 0 {
			opts = append(opts, chatopenai.WithMaxTokens(n))
		}
		return chatopenai.New(entry.APIKey, entry.Model, opts...)
	})

	// anthropic, gemini, deepseek, mistral, groq, llamacpp and llamafile all
	// share the any-llm backend: optional APIKey plus the common options.
	for _, providerName := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterChat(providerName, func(entry config.ProviderEntry) (chat.Provider, error) {
			opts := anyllmOptions(entry)
			if entry.APIKey != "" {
				opts = append(opts, anyllm.WithAPIKey(entry.APIKey))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; BaseURL selects the address, no API key.
	reg.RegisterChat("ollama", func(entry config.ProviderEntry) (chat.Provider, error) {
		return anyllm.New("ollama", entry.Model, anyllmOptions(entry)...)
	})

	// ── Weather ───────────────────────────────────────────────────────────────

	reg.RegisterWeather("openweather", func(entry config.ProviderEntry) (weather.Provider, error) {
		var opts []openweather.Option
		if entry.BaseURL != "" {
			opts = append(opts, openweather.WithBaseURL(entry.BaseURL))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, openweather.WithLanguage(lang))
		}
		return openweather.New(entry.APIKey, opts...)
	})

	// ── News ──────────────────────────────────────────────────────────────────

	reg.RegisterNews("newsapi", func(entry config.ProviderEntry) (news.Provider, error) {
		var opts []newsapi.Option
		if entry.BaseURL != "" {
			opts = append(opts, newsapi.WithBaseURL(entry.BaseURL))
		}
		if country := optString(entry.Options, "country"); country != "" {
			opts = append(opts, newsapi.WithCountry(country))
		}
		if n := optInt(entry.Options, "page_size"); n > 0 {
			opts = append(opts, newsapi.WithPageSize(n))
		}
		return newsapi.New(entry.APIKey, opts...)
	})

	// ── Apps ──────────────────────────────────────────────────────────────────

	// local launches desktop applications and plays music from the library
	// directories configured under music.dirs.
	reg.RegisterApps("local", func(entry config.ProviderEntry) (apps.Provider, error) {
		var opts []applocal.Option
		if len(musicDirs) > 0 {
			opts = append(opts, applocal.WithMusicDirs(musicDirs...))
		}
		return applocal.New(player, opts...)
	})

	// Debug log of all registered providers.
	for kind, names := range builtinProviders {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// anyllmOptions converts the shared entry fields and Options keys into
// chat/anyllm options. The API key stays with the callers because ollama
// does not take one.
func anyllmOptions(entry config.ProviderEntry) []anyllm.Option {
	var opts []anyllm.Option
	if entry.BaseURL != "" {
		opts = append(opts, anyllm.WithBaseURL(entry.BaseURL))
	}
	if prompt := optString(entry.Options, "system_prompt"); prompt != "" {
		opts = append(opts, anyllm.WithSystemPrompt(prompt))
	}
	if t := optFloat(entry.Options, "temperature"); t > 0 {
		opts = append(opts, anyllm.WithTemperature(t))
	}
	if n := optInt(entry.Options, "max_tokens"); n > 0 {
		opts = append(opts, anyllm.WithMaxTokens(n))
	}
	return opts
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔════════════════════════════════════════╗")
	fmt.Println("║          Dinle startup summary         ║")
	fmt.Println("╠════════════════════════════════════════╣")
	printProvider("STT", cfg.STT.Name, cfg.STT.Model)
	printProvider("TTS", cfg.TTS.Name, cfg.TTS.Model)
	printProvider("Chat", cfg.Chat.Name, cfg.Chat.Model)
	printProvider("Weather", cfg.Weather.Name, "")
	printProvider("News", cfg.News.Name, "")
	printProvider("Apps", cfg.Apps.Name, "")
	language := cfg.Session.Language
	if language == "" {
		language = "tr-TR"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", "Language", language)
	control := cfg.Control.Addr
	if cfg.Control.Disabled {
		control = "(disabled)"
	} else if control == "" {
		control = ":8844"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", "Control", control)
	fmt.Printf("║  %-12s    : %-19d ║\n", "Music dirs", len(cfg.Music.Dirs))
	fmt.Printf("║  %-12s    : %-19d ║\n", "Aliases", len(cfg.Session.Aliases))
	fmt.Println("╚════════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(format config.LogFormat, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// optInt extracts an integer value from a provider Options map. YAML decodes
// whole numbers as int; anything else yields 0.
func optInt(opts map[string]any, key string) int {
	if opts == nil {
		return 0
	}
	n, ok := opts[key].(int)
	if !ok {
		return 0
	}
	return n
}

// optFloat extracts a numeric value from a provider Options map, accepting
// both YAML floats and whole numbers.
func optFloat(opts map[string]any, key string) float64 {
	if opts == nil {
		return 0
	}
	switch v := opts[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
