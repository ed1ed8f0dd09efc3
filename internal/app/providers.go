package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bkaraca/dinle/internal/config"
	"github.com/bkaraca/dinle/internal/resilience"
	"github.com/bkaraca/dinle/pkg/audio"
	"github.com/bkaraca/dinle/pkg/provider/apps"
	"github.com/bkaraca/dinle/pkg/provider/chat"
	"github.com/bkaraca/dinle/pkg/provider/news"
	"github.com/bkaraca/dinle/pkg/provider/stt"
	"github.com/bkaraca/dinle/pkg/provider/tts"
	"github.com/bkaraca/dinle/pkg/provider/weather"
)

// Providers bundles the external services the assistant talks to. A nil
// field means that service is not configured; [New] rejects nil values for
// the fields the interaction loop cannot run without and degrades the
// optional ones to spoken "not configured" answers.
type Providers struct {
	// Recognizer turns microphone audio into Turkish text. Required.
	Recognizer stt.Recognizer

	// Speaker turns response text into audio. Required.
	Speaker tts.Speaker

	// Chat answers free-form utterances and classifies launcher targets.
	// Required.
	Chat chat.Provider

	// Player plays synthesised speech and local music. Required. The player
	// is not registry-built; the caller constructs it for the platform and
	// stays its owner, so [App.Shutdown] never closes it.
	Player audio.Player

	// Weather serves the "hava durumu" command. Optional.
	Weather weather.Provider

	// News serves "haberler" and "haber ara". Optional.
	News news.Provider

	// Apps launches desktop applications and picks music files. Optional.
	Apps apps.Provider
}

// validate reports the first missing required collaborator.
func (p *Providers) validate() error {
	switch {
	case p.Recognizer == nil:
		return errors.New("app: no speech recognizer (configure stt.name)")
	case p.Speaker == nil:
		return errors.New("app: no speech synthesizer (configure tts.name)")
	case p.Chat == nil:
		return errors.New("app: no chat provider (configure chat.name)")
	case p.Player == nil:
		return errors.New("app: no audio player")
	}
	if p.Weather == nil {
		slog.Warn("weather provider not configured; hava durumu will apologise")
	}
	if p.News == nil {
		slog.Warn("news provider not configured; haberler will apologise")
	}
	if p.Apps == nil {
		slog.Warn("apps provider not configured; launcher and music commands will apologise")
	}
	return nil
}

// BuildProviders instantiates every provider cfg names through the factories
// registered on reg. Kinds with an empty name are left nil. When the chat or
// tts entry carries fallbacks, the returned provider is a resilience chain
// that fails over between the configured backends.
//
// The Player field is not filled in; the caller owns the output device.
func BuildProviders(cfg *config.Config, reg *config.Registry) (*Providers, error) {
	p := &Providers{}

	if cfg.STT.Name != "" {
		rec, err := reg.CreateSTT(cfg.STT)
		if err != nil {
			return nil, fmt.Errorf("app: build stt provider %q: %w", cfg.STT.Name, err)
		}
		p.Recognizer = rec
	}

	if cfg.TTS.Name != "" {
		speaker, err := reg.CreateTTS(cfg.TTS)
		if err != nil {
			return nil, fmt.Errorf("app: build tts provider %q: %w", cfg.TTS.Name, err)
		}
		if len(cfg.TTS.Fallbacks) > 0 {
			chain := resilience.NewTTSFallback(speaker, cfg.TTS.Name, resilience.FallbackConfig{})
			for _, fb := range cfg.TTS.Fallbacks {
				backup, err := reg.CreateTTS(fb)
				if err != nil {
					return nil, fmt.Errorf("app: build tts fallback %q: %w", fb.Name, err)
				}
				chain.AddFallback(fb.Name, backup)
			}
			slog.Info("tts fallback chain assembled", "primary", cfg.TTS.Name, "fallbacks", len(cfg.TTS.Fallbacks))
			speaker = chain
		}
		p.Speaker = speaker
	}

	if cfg.Chat.Name != "" {
		provider, err := reg.CreateChat(cfg.Chat)
		if err != nil {
			return nil, fmt.Errorf("app: build chat provider %q: %w", cfg.Chat.Name, err)
		}
		if len(cfg.Chat.Fallbacks) > 0 {
			chain := resilience.NewChatFallback(provider, cfg.Chat.Name, resilience.FallbackConfig{})
			for _, fb := range cfg.Chat.Fallbacks {
				backup, err := reg.CreateChat(fb)
				if err != nil {
					return nil, fmt.Errorf("app: build chat fallback %q: %w", fb.Name, err)
				}
				chain.AddFallback(fb.Name, backup)
			}
			slog.Info("chat fallback chain assembled", "primary", cfg.Chat.Name, "fallbacks", len(cfg.Chat.Fallbacks))
			provider = chain
		}
		p.Chat = provider
	}

	if cfg.Weather.Name != "" {
		w, err := reg.CreateWeather(cfg.Weather)
		if err != nil {
			return nil, fmt.Errorf("app: build weather provider %q: %w", cfg.Weather.Name, err)
		}
		p.Weather = w
	}

	if cfg.News.Name != "" {
		n, err := reg.CreateNews(cfg.News)
		if err != nil {
			return nil, fmt.Errorf("app: build news provider %q: %w", cfg.News.Name, err)
		}
		p.News = n
	}

	if cfg.Apps.Name != "" {
		a, err := reg.CreateApps(cfg.Apps)
		if err != nil {
			return nil, fmt.Errorf("app: build apps provider %q: %w", cfg.Apps.Name, err)
		}
		p.Apps = a
	}

	return p, nil
}
