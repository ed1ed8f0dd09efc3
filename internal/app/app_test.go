package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bkaraca/dinle/internal/config"
	"github.com/bkaraca/dinle/pkg/audio"
	audiomock "github.com/bkaraca/dinle/pkg/audio/mock"
	chatmock "github.com/bkaraca/dinle/pkg/provider/chat/mock"
	sttmock "github.com/bkaraca/dinle/pkg/provider/stt/mock"
	ttsmock "github.com/bkaraca/dinle/pkg/provider/tts/mock"
)

const greetingLine = "Ses tanıma başlatılıyor..."

// appFixture wires an App to mocks and records everything spoken, guarded
// against the session goroutine.
type appFixture struct {
	app     *App
	rec     *sttmock.Recognizer
	speaker *ttsmock.Speaker
	player  *audiomock.Player
	chat    *chatmock.Provider

	mu     sync.Mutex
	spoken []string
}

// newAppFixture builds an App over mocks. A nil cfg gets a fast loop with
// the control surface disabled.
func newAppFixture(t *testing.T, cfg *config.Config, opts ...Option) *appFixture {
	t.Helper()

	if cfg == nil {
		cfg = fastConfig()
	}

	f := &appFixture{
		rec:     &sttmock.Recognizer{},
		speaker: &ttsmock.Speaker{},
		player:  &audiomock.Player{},
		chat:    &chatmock.Provider{},
	}
	f.speaker.SynthesizeFunc = func(_ context.Context, text string) (audio.Clip, error) {
		f.mu.Lock()
		f.spoken = append(f.spoken, text)
		f.mu.Unlock()
		return audio.Clip{}, nil
	}

	app, err := New(cfg, &Providers{
		Recognizer: f.rec,
		Speaker:    f.speaker,
		Chat:       f.chat,
		Player:     f.player,
	}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.app = app

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = f.app.Shutdown(ctx)
	})
	return f
}

// fastConfig returns a config whose session loop polls quickly enough for
// tests and whose control surface stays off.
func fastConfig() *config.Config {
	return &config.Config{
		Session: config.SessionConfig{
			ListenTimeout: 200 * time.Millisecond,
			MaxRetries:    2,
			RetryDelay:    time.Millisecond,
		},
		Control: config.ControlConfig{Disabled: true},
	}
}

// run launches App.Run on a cancellable context and returns the cancel
// function and the channel Run's result lands on.
func (f *appFixture) run(t *testing.T) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	errc := make(chan error, 1)
	go func() { errc <- f.app.Run(ctx) }()
	return cancel, errc
}

func (f *appFixture) spokenSeen(text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.spoken {
		if s == text {
			return true
		}
	}
	return false
}

func (f *appFixture) spokenPrefixSeen(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.spoken {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// spokenIndex returns the position of text in the spoken transcript, or -1.
func (f *appFixture) spokenIndex(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.spoken {
		if s == text {
			return i
		}
	}
	return -1
}

// waitFor polls cond until it holds or the test deadline budget runs out.
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNew_NilConfig(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, &Providers{}); err == nil {
		t.Fatal("New(nil config) succeeded, want error")
	}
}

func TestNew_MissingProviders(t *testing.T) {
	t.Parallel()

	full := func() *Providers {
		return &Providers{
			Recognizer: &sttmock.Recognizer{},
			Speaker:    &ttsmock.Speaker{},
			Chat:       &chatmock.Provider{},
			Player:     &audiomock.Player{},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Providers)
		wantSub string
	}{
		{"recognizer", func(p *Providers) { p.Recognizer = nil }, "stt.name"},
		{"speaker", func(p *Providers) { p.Speaker = nil }, "tts.name"},
		{"chat", func(p *Providers) { p.Chat = nil }, "chat.name"},
		{"player", func(p *Providers) { p.Player = nil }, "player"},
	}
	for _, tt := range tests {
		p := full()
		tt.mutate(p)
		_, err := New(fastConfig(), p)
		if err == nil {
			t.Errorf("%s: New succeeded, want error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.wantSub) {
			t.Errorf("%s: error = %v, want mention of %q", tt.name, err, tt.wantSub)
		}
	}
}

func TestNew_RegistersBuiltinCommands(t *testing.T) {
	t.Parallel()

	f := newAppFixture(t, nil)

	cmds := f.app.Registry().Commands()
	if len(cmds) != 13 {
		t.Errorf("registry has %d commands, want 13", len(cmds))
	}
	if m, ok := f.app.Registry().Resolve("saat kaç"); !ok || m.Name != "saat" {
		t.Errorf("Resolve(saat kaç) = %+v, %v; want saat", m, ok)
	}
	if m, ok := f.app.Registry().Resolve("hava durumu nasıl"); !ok || m.Name != "hava durumu" {
		t.Errorf("Resolve(hava durumu nasıl) = %+v, %v; want hava durumu", m, ok)
	}
}

func TestNew_AppliesConfigAliases(t *testing.T) {
	t.Parallel()

	cfg := fastConfig()
	cfg.Session.Aliases = map[string]string{"radyo aç": "müzik çal"}
	f := newAppFixture(t, cfg)

	m, ok := f.app.Registry().Resolve("radyo aç")
	if !ok || m.Name != "müzik çal" || !m.ViaAlias {
		t.Errorf("Resolve(radyo aç) = %+v, %v; want müzik çal via alias", m, ok)
	}
	// The built-in vocabulary survives the overlay.
	if m, ok := f.app.Registry().Resolve("saati söyle"); !ok || m.Name != "saat" {
		t.Errorf("Resolve(saati söyle) = %+v, %v; want saat", m, ok)
	}
}

func TestRun_SpeaksWelcomeThenGreeting(t *testing.T) {
	t.Parallel()

	f := newAppFixture(t, nil)
	cancel, errc := f.run(t)

	waitFor(t, func() bool { return f.spokenSeen(greetingLine) }, "startup greeting")
	if !f.spokenSeen(welcomeLine) {
		t.Error("welcome line was never spoken")
	}
	if wi, gi := f.spokenIndex(welcomeLine), f.spokenIndex(greetingLine); wi > gi {
		t.Errorf("welcome spoken at %d, after greeting at %d", wi, gi)
	}

	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_WelcomeDisabled(t *testing.T) {
	t.Parallel()

	off := false
	cfg := fastConfig()
	cfg.Session.Welcome = &off
	f := newAppFixture(t, cfg)
	f.run(t)

	waitFor(t, func() bool { return f.spokenSeen(greetingLine) }, "startup greeting")
	if f.spokenSeen(welcomeLine) {
		t.Error("welcome line spoken despite session.welcome: false")
	}
}

func TestRun_PublishesWelcomeToHub(t *testing.T) {
	t.Parallel()

	f := newAppFixture(t, nil)
	events, cancelSub := f.app.hub.Subscribe()
	defer cancelSub()

	f.run(t)

	select {
	case ev := <-events:
		if ev.Message != welcomeLine {
			t.Errorf("first hub event = %q, want welcome line", ev.Message)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event reached the hub")
	}
}

func TestRun_ExecutesRecognizedCommand(t *testing.T) {
	t.Parallel()

	f := newAppFixture(t, nil)
	f.rec.Script = []sttmock.ListenResult{{Text: "saat kaç"}}
	f.run(t)

	waitFor(t, func() bool { return f.spokenPrefixSeen("Şu anki saat: ") }, "clock response")
}

func TestShutdown_ClosesProviders(t *testing.T) {
	t.Parallel()

	f := newAppFixture(t, nil)
	cancel, errc := f.run(t)
	waitFor(t, func() bool { return f.spokenSeen(greetingLine) }, "startup greeting")
	cancel()
	<-errc

	ctx, cancelStop := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelStop()
	if err := f.app.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if f.speaker.CloseCallCount != 1 {
		t.Errorf("speaker closed %d times, want 1", f.speaker.CloseCallCount)
	}
	if f.rec.CloseCallCount != 1 {
		t.Errorf("recognizer closed %d times, want 1", f.rec.CloseCallCount)
	}
	// The player belongs to the caller.
	if f.player.CallCountClose != 0 {
		t.Errorf("player closed %d times, want 0", f.player.CallCountClose)
	}

	// Idempotent: a second call neither re-runs closers nor errors.
	if err := f.app.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
	if f.speaker.CloseCallCount != 1 {
		t.Errorf("speaker closed %d times after second Shutdown, want 1", f.speaker.CloseCallCount)
	}
}

func TestRun_ControlServerServes(t *testing.T) {
	t.Parallel()

	cfg := fastConfig()
	cfg.Control = config.ControlConfig{Addr: "127.0.0.1:0"}
	f := newAppFixture(t, cfg)
	f.run(t)

	waitFor(t, func() bool { return f.app.ControlAddr() != "" }, "control server bind")

	resp, err := http.Get("http://" + f.app.ControlAddr() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /healthz = %d, want 200", resp.StatusCode)
	}
}

func TestControlDisabled(t *testing.T) {
	t.Parallel()

	f := newAppFixture(t, nil)
	if addr := f.app.ControlAddr(); addr != "" {
		t.Errorf("ControlAddr() = %q with control disabled, want empty", addr)
	}
}

func TestApplyReload_LogLevel(t *testing.T) {
	t.Parallel()

	level := new(slog.LevelVar)
	f := newAppFixture(t, nil, WithLogLevel(level))

	old := &config.Config{}
	next := &config.Config{Log: config.LogConfig{Level: config.LogDebug}}
	f.app.applyReload(old, next)

	if got := level.Level(); got != slog.LevelDebug {
		t.Errorf("level after reload = %v, want debug", got)
	}
}

func TestApplyReload_Aliases(t *testing.T) {
	t.Parallel()

	f := newAppFixture(t, nil)

	old := &config.Config{}
	next := &config.Config{Session: config.SessionConfig{
		Aliases: map[string]string{"gündem": "haberler"},
	}}
	f.app.applyReload(old, next)

	if m, ok := f.app.Registry().Resolve("gündem nedir"); !ok || m.Name != "haberler" {
		t.Errorf("Resolve(gündem nedir) = %+v, %v; want haberler", m, ok)
	}
	// Built-in phrases survive the swap.
	if m, ok := f.app.Registry().Resolve("saat kaç"); !ok || m.Name != "saat" {
		t.Errorf("Resolve(saat kaç) = %+v, %v; want saat", m, ok)
	}
}

func TestMergeAliases_UserOverridesBuiltin(t *testing.T) {
	t.Parallel()

	merged := mergeAliases(map[string]string{"saat kaç": "haberler"})
	if merged["saat kaç"] != "haberler" {
		t.Errorf("merged[saat kaç] = %q, want haberler", merged["saat kaç"])
	}
	if merged["haber ver"] != "haberler" {
		t.Errorf("merged[haber ver] = %q, want haberler (builtin retained)", merged["haber ver"])
	}
}
