// Package app assembles a configured assistant process. It owns the wiring
// between the command set, the interaction session, the control surface, and
// the config watcher, and it tears the process down in a fixed order.
//
// The lifecycle is New → Run → Shutdown. [New] builds every subsystem or
// fails; [App.Run] announces the assistant and blocks until the context is
// cancelled; [App.Shutdown] stops the session, the control server, and the
// providers with deadline awareness.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/bkaraca/dinle/internal/command"
	"github.com/bkaraca/dinle/internal/config"
	"github.com/bkaraca/dinle/internal/control"
	"github.com/bkaraca/dinle/internal/health"
	"github.com/bkaraca/dinle/internal/observe"
	"github.com/bkaraca/dinle/internal/session"
)

// welcomeLine is the greeting spoken when the assistant comes up. The
// session.welcome config key turns it off.
const welcomeLine = "Lazzaran Sesli Asistan'a hoş geldiniz!"

// App is a fully wired assistant process.
type App struct {
	cfg       *config.Config
	providers *Providers

	registry *command.Registry
	executor *command.Executor
	session  *session.Session
	hub      *control.Hub
	control  *control.Server
	watcher  *config.Watcher

	metrics    *observe.Metrics
	levelVar   *slog.LevelVar
	reloadPath string

	// closers release provider resources during Shutdown, in order.
	closers []func() error

	stopOnce    sync.Once
	shutdownErr error
}

// Option adjusts an [App] during construction.
type Option func(*App)

// WithMetrics overrides the metrics facade. Defaults to the process-wide
// instruments.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) {
		if m != nil {
			a.metrics = m
		}
	}
}

// WithLogLevel hands the app the level var behind the process logger so a
// config reload can retune verbosity at runtime.
func WithLogLevel(v *slog.LevelVar) Option {
	return func(a *App) {
		a.levelVar = v
	}
}

// WithHotReload watches the config file at path while the assistant runs and
// applies the reloadable settings (log level, command aliases) on change.
func WithHotReload(path string) Option {
	return func(a *App) {
		a.reloadPath = path
	}
}

// ─── Construction ────────────────────────────────────────────────────────────

// New wires an assistant from cfg and providers. Construction is all or
// nothing: any failing step returns an error and leaves no goroutines
// behind.
func New(cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if providers == nil {
		providers = &Providers{}
	}

	a := &App{cfg: cfg, providers: providers}
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if err := providers.validate(); err != nil {
		return nil, err
	}

	// ── 1. Event hub ─────────────────────────────────────────────────────
	// Created first so the session can publish from its first breath.
	a.hub = control.NewHub()

	// ── 2. Command registry and executor ─────────────────────────────────
	a.registry = command.NewRegistry()
	a.executor = command.NewExecutor(a.registry, command.WithMetrics(a.metrics))

	// ── 3. Interaction session ───────────────────────────────────────────
	if err := a.initSession(); err != nil {
		return nil, fmt.Errorf("app: init session: %w", err)
	}

	// ── 4. Built-in command set ──────────────────────────────────────────
	// After the session; the chat turns read and extend its history.
	if err := a.initCommands(); err != nil {
		return nil, fmt.Errorf("app: init commands: %w", err)
	}

	// ── 5. Control surface ───────────────────────────────────────────────
	if !cfg.Control.Disabled {
		a.control = control.New(control.Config{Addr: cfg.Control.Addr}, control.Deps{
			Session:  a.session,
			Registry: a.registry,
			Health:   health.New(a.healthCheckers()...),
			Hub:      a.hub,
			Metrics:  a.metrics,
		})
	}

	// ── 6. Config watcher ────────────────────────────────────────────────
	if a.reloadPath != "" {
		w, err := config.NewWatcher(a.reloadPath, a.applyReload)
		if err != nil {
			return nil, fmt.Errorf("app: init config watcher: %w", err)
		}
		a.watcher = w
	}

	return a, nil
}

// initSession builds the interaction loop over the wired providers.
func (a *App) initSession() error {
	s, err := session.New(session.Config{
		ListenTimeout: a.cfg.Session.ListenTimeout,
		MaxRetries:    a.cfg.Session.MaxRetries,
		RetryDelay:    a.cfg.Session.RetryDelay,
		Language:      a.cfg.Session.Language,
		DefaultCity:   a.cfg.Session.DefaultCity,
		HistoryLimit:  a.cfg.Session.HistoryLimit,
	}, session.Deps{
		Recognizer: a.providers.Recognizer,
		Registry:   a.registry,
		Executor:   a.executor,
		Chat:       a.providers.Chat,
		Speaker:    a.providers.Speaker,
		Player:     a.providers.Player,
		Metrics:    a.metrics,
		OnEvent:    a.hub.Publish,
	})
	if err != nil {
		return err
	}
	a.session = s

	// The app owns the registry-built providers from here on.
	a.closers = append(a.closers, a.providers.Speaker.Close, a.providers.Recognizer.Close)
	return nil
}

// initCommands registers the built-in command set and overlays the user
// alias vocabulary from the config.
func (a *App) initCommands() error {
	builtins := command.NewBuiltins(command.BuiltinConfig{
		Weather:     a.providers.Weather,
		News:        a.providers.News,
		Chat:        a.providers.Chat,
		Apps:        a.providers.Apps,
		History:     a.session.History(),
		DefaultCity: a.cfg.Session.DefaultCity,
	})
	if err := builtins.RegisterAll(a.registry); err != nil {
		return err
	}
	if len(a.cfg.Session.Aliases) > 0 {
		a.registry.ReplaceAliases(mergeAliases(a.cfg.Session.Aliases))
	}
	return nil
}

// healthCheckers assembles the readiness probes for the configured backends.
func (a *App) healthCheckers() []health.Checker {
	var checks []health.Checker
	if a.cfg.STT.Name == "whisper" && a.cfg.STT.Model != "" {
		checks = append(checks, health.FileCheck("stt-model", a.cfg.STT.Model))
	}
	if a.cfg.Chat.BaseURL != "" {
		checks = append(checks, health.URLCheck("chat", a.cfg.Chat.BaseURL, nil))
	}
	if a.cfg.TTS.BaseURL != "" {
		checks = append(checks, health.URLCheck("tts", a.cfg.TTS.BaseURL, nil))
	}
	checks = append(checks, health.DirsCheck("music-dirs", a.cfg.Music.Dirs...))
	return checks
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run brings the assistant up and blocks until ctx is cancelled. It starts
// the control server, speaks the welcome line when enabled, and launches the
// recognition loop. The loop itself outlives ctx; call [App.Shutdown] to end
// it.
func (a *App) Run(ctx context.Context) error {
	if a.control != nil {
		if err := a.control.Start(); err != nil {
			return fmt.Errorf("app: start control server: %w", err)
		}
	}

	if a.cfg.Session.WelcomeEnabled() {
		a.hub.Publish(slog.LevelInfo, welcomeLine)
		if _, err := a.session.Speak(ctx, welcomeLine); err != nil {
			slog.Error("welcome announcement failed", "err", err)
		}
	}

	if err := a.session.Start(ctx); err != nil {
		return fmt.Errorf("app: start session: %w", err)
	}

	controlAddr := "disabled"
	if a.control != nil {
		controlAddr = a.control.Addr()
	}
	slog.Info("assistant running",
		"language", a.session.StateSnapshot().Language,
		"commands", len(a.registry.Commands()),
		"control", controlAddr,
		"hot_reload", a.watcher != nil,
	)

	<-ctx.Done()
	return ctx.Err()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears the assistant down: watcher, session, control server, then
// the provider closers in order. Closers are skipped with a warning once ctx
// expires, so a stuck backend cannot wedge process exit. Shutdown is
// idempotent; later calls return the first result.
func (a *App) Shutdown(ctx context.Context) error {
	a.stopOnce.Do(func() {
		slog.Info("shutting down")

		if a.watcher != nil {
			a.watcher.Stop()
		}
		if err := a.session.Stop(ctx); err != nil {
			slog.Warn("session stop failed", "err", err)
		}
		if a.control != nil {
			if err := a.control.Shutdown(ctx); err != nil {
				slog.Warn("control server shutdown failed", "err", err)
			}
		} else {
			// No control server means nobody else closes the hub.
			a.hub.Close()
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				a.shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer failed", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return a.shutdownErr
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Session returns the interaction session.
func (a *App) Session() *session.Session {
	return a.session
}

// Registry returns the command registry.
func (a *App) Registry() *command.Registry {
	return a.registry
}

// ControlAddr returns the address the control server is bound to, or "" when
// the control surface is disabled or not yet started.
func (a *App) ControlAddr() string {
	if a.control == nil {
		return ""
	}
	return a.control.Addr()
}

// ─── Hot reload ──────────────────────────────────────────────────────────────

// applyReload is the watcher callback. Only the log level and the alias
// vocabulary are applied live; everything else needs a restart.
func (a *App) applyReload(old, next *config.Config) {
	d := config.Diff(old, next)
	if d.Empty() {
		slog.Debug("config changed but nothing is reloadable at runtime")
		return
	}

	if d.LogLevelChanged {
		if a.levelVar != nil {
			a.levelVar.Set(d.NewLogLevel.Level())
			slog.Info("log level changed", "level", d.NewLogLevel)
		} else {
			slog.Warn("log level changed in config but the process logger is fixed")
		}
	}

	if d.AliasesChanged {
		a.registry.ReplaceAliases(mergeAliases(d.NewAliases))
		slog.Info("command aliases reloaded", "extra", len(d.NewAliases))
	}
}

// mergeAliases overlays the user vocabulary on the built-in phrases so a
// reload never loses the stock aliases.
func mergeAliases(extra map[string]string) map[string]string {
	merged := command.BuiltinAliases()
	maps.Copy(merged, extra)
	return merged
}
