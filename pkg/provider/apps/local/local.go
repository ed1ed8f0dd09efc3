// Package local implements [apps.Provider] for the machine the assistant
// runs on. Applications are started through os/exec with a per-application
// table of candidate executables, running processes are detected by scanning
// /proc, and music files are searched in the configured directories and
// played through an [audio.Player].
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/bkaraca/dinle/pkg/audio"
	"github.com/bkaraca/dinle/pkg/provider/apps"
)

// Compile-time interface assertion.
var _ apps.Provider = (*Provider)(nil)

// launchSpec is one executable an application can be started from.
type launchSpec struct {
	exe  string
	args []string
}

// application maps a canonical name to the executables probed at launch.
// The spawn executables (plus the extra match names) also drive the process
// scan for IsRunning and Terminate.
type application struct {
	name  string
	spawn []launchSpec
	match []string
}

// applications is the fixed candidate set, in the order reported by
// Candidates. The first spawn executable found in PATH is started. The
// canonical names are what the launcher command classifies utterances
// against, so they stay short and pronounceable.
var applications = []application{
	{name: "notepad", spawn: specs("notepad", "gedit", "kate", "mousepad")},
	{name: "calc", spawn: specs("calc", "gnome-calculator", "kcalc")},
	{name: "mspaint", spawn: specs("mspaint", "kolourpaint", "drawing")},
	{name: "cmd", spawn: specs("cmd", "x-terminal-emulator", "gnome-terminal", "konsole", "xterm")},
	{name: "explorer", spawn: specs("explorer", "nautilus", "dolphin", "thunar")},
	{name: "taskmgr", spawn: specs("taskmgr", "gnome-system-monitor", "plasma-systemmonitor")},
	{name: "control", spawn: specs("control", "gnome-control-center", "systemsettings")},
	{name: "chrome", spawn: specs("google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "chrome")},
	{name: "firefox", spawn: specs("firefox", "firefox-esr")},
	{name: "word", spawn: []launchSpec{{exe: "winword"}, {exe: "libreoffice", args: []string{"--writer"}}}, match: []string{"soffice.bin"}},
	{name: "excel", spawn: []launchSpec{{exe: "excel"}, {exe: "libreoffice", args: []string{"--calc"}}}, match: []string{"soffice.bin"}},
	{name: "powerpoint", spawn: []launchSpec{{exe: "powerpnt"}, {exe: "libreoffice", args: []string{"--impress"}}}, match: []string{"soffice.bin"}},
	{name: "code", spawn: specs("code", "codium", "code-oss")},
	{name: "spotify", spawn: specs("spotify")},
	{name: "teams", spawn: specs("teams", "teams-for-linux")},
	{name: "discord", spawn: specs("discord")},
	{name: "steam", spawn: specs("steam")},
	{name: "telegram", spawn: specs("telegram-desktop", "telegram"), match: []string{"Telegram"}},
	{name: "opera", spawn: specs("opera")},
	{name: "whatsapp", spawn: specs("whatsapp-for-linux", "whatsdesk")},
}

func specs(exes ...string) []launchSpec {
	out := make([]launchSpec, len(exes))
	for i, exe := range exes {
		out[i] = launchSpec{exe: exe}
	}
	return out
}

// musicExtensions maps the recognised music file extensions to their clip
// encoding.
var musicExtensions = map[string]audio.Encoding{
	".mp3": audio.EncodingMP3,
	".wav": audio.EncodingWAV,
	".ogg": audio.EncodingOGG,
}

// ─── Provider ─────────────────────────────────────────────────────────────────

// Option is a functional option for configuring a [Provider].
type Option func(*Provider)

// WithMusicDirs sets the directories searched by PlayMusic. Without it every
// PlayMusic call returns [apps.ErrNoTrack].
func WithMusicDirs(dirs ...string) Option {
	return func(p *Provider) {
		p.musicDirs = append([]string(nil), dirs...)
	}
}

// Provider implements [apps.Provider] for the local machine.
type Provider struct {
	player    audio.Player
	musicDirs []string

	// procRoot is the mount point scanned for processes, normally /proc.
	procRoot string

	// Seams for tests; production code never overrides these.
	lookPath func(string) (string, error)
	start    func(path string, args []string) (int, error)
	signal   func(pid int) error

	trackMu  sync.Mutex
	track    string
	trackGen uint64
}

// New creates a local provider that plays music through player.
func New(player audio.Player, opts ...Option) (*Provider, error) {
	if player == nil {
		return nil, errors.New("local: audio player must not be nil")
	}
	p := &Provider{
		player:   player,
		procRoot: "/proc",
		lookPath: exec.LookPath,
		start:    startDetached,
		signal:   signalTerm,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Candidates implements [apps.Provider].
func (p *Provider) Candidates() []string {
	names := make([]string, len(applications))
	for i, app := range applications {
		names[i] = app.name
	}
	return names
}

// Launch implements [apps.Provider]. The started process is detached: it is
// reaped in the background and is not bound to ctx, so the application
// outlives the command that launched it.
func (p *Provider) Launch(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	app, ok := lookup(name)
	if !ok {
		return fmt.Errorf("local: %q: %w", name, apps.ErrUnknownApp)
	}
	for _, spec := range app.spawn {
		path, err := p.lookPath(spec.exe)
		if err != nil {
			continue
		}
		pid, err := p.start(path, spec.args)
		if err != nil {
			return fmt.Errorf("local: start %s: %w", spec.exe, err)
		}
		slog.Info("application launched", "app", app.name, "exe", spec.exe, "pid", pid)
		return nil
	}
	return fmt.Errorf("local: %s: %w", app.name, apps.ErrNotInstalled)
}

// IsRunning implements [apps.Provider] by scanning the process table.
func (p *Provider) IsRunning(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	app, ok := lookup(name)
	if !ok {
		return false, fmt.Errorf("local: %q: %w", name, apps.ErrUnknownApp)
	}
	pids, err := p.matchingPIDs(app)
	if err != nil {
		return false, err
	}
	return len(pids) > 0, nil
}

// Terminate implements [apps.Provider]. Every matching process receives
// SIGTERM; a process that ignores it keeps running.
func (p *Provider) Terminate(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	app, ok := lookup(name)
	if !ok {
		return fmt.Errorf("local: %q: %w", name, apps.ErrUnknownApp)
	}
	pids, err := p.matchingPIDs(app)
	if err != nil {
		return err
	}
	if len(pids) == 0 {
		return fmt.Errorf("local: %s: %w", app.name, apps.ErrNotRunning)
	}
	var errs []error
	for _, pid := range pids {
		if err := p.signal(pid); err != nil {
			errs = append(errs, fmt.Errorf("pid %d: %w", pid, err))
		}
	}
	if len(errs) == len(pids) {
		return fmt.Errorf("local: terminate %s: %w", app.name, errors.Join(errs...))
	}
	slog.Info("application terminated", "app", app.name, "processes", len(pids)-len(errs))
	return nil
}

func lookup(name string) (application, bool) {
	needle := strings.TrimSpace(strings.ToLower(name))
	for _, app := range applications {
		if app.name == needle {
			return app, true
		}
	}
	return application{}, false
}

// ─── process scanning ─────────────────────────────────────────────────────────

// matchingPIDs walks the proc root and returns the PIDs whose process name
// matches one of the application's executables.
func (p *Provider) matchingPIDs(app application) ([]int, error) {
	entries, err := os.ReadDir(p.procRoot)
	if err != nil {
		return nil, fmt.Errorf("local: read %s: %w", p.procRoot, err)
	}
	var pids []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		name := processName(filepath.Join(p.procRoot, e.Name()))
		if name == "" {
			continue
		}
		if appMatches(app, name) {
			pids = append(pids, pid)
		}
	}
	return pids, nil
}

// processName returns the basename of a process's argv[0], falling back to
// comm for processes with an empty command line (kernel threads).
func processName(procDir string) string {
	if raw, err := os.ReadFile(filepath.Join(procDir, "cmdline")); err == nil {
		if argv0, _, _ := bytes.Cut(raw, []byte{0}); len(argv0) > 0 {
			return filepath.Base(string(argv0))
		}
	}
	if raw, err := os.ReadFile(filepath.Join(procDir, "comm")); err == nil {
		return string(bytes.TrimSpace(raw))
	}
	return ""
}

func appMatches(app application, procName string) bool {
	for _, spec := range app.spawn {
		if nameMatches(procName, spec.exe) {
			return true
		}
	}
	for _, alias := range app.match {
		if nameMatches(procName, alias) {
			return true
		}
	}
	return false
}

func nameMatches(procName, exe string) bool {
	if strings.EqualFold(procName, exe) {
		return true
	}
	// comm values are truncated to 15 bytes by the kernel.
	return len(procName) == 15 && len(exe) > 15 && strings.EqualFold(procName, exe[:15])
}

// ─── music ────────────────────────────────────────────────────────────────────

// PlayMusic implements [apps.Provider]. Matching is a case-insensitive
// substring test against the file name; with an empty query the first track
// in path order plays. Playback runs in the background and replaces whatever
// this provider was playing before.
func (p *Provider) PlayMusic(ctx context.Context, query string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := p.findTrack(strings.TrimSpace(query))
	if err != nil {
		return "", err
	}
	clip, err := loadClip(path)
	if err != nil {
		return "", err
	}
	title := trackTitle(path)

	if err := p.player.Stop(); err != nil {
		return "", fmt.Errorf("local: stop previous track: %w", err)
	}
	p.trackMu.Lock()
	p.trackGen++
	gen := p.trackGen
	p.track = title
	p.trackMu.Unlock()

	slog.Info("music playback started", "track", title, "path", path)
	go func() {
		if err := p.player.Play(context.Background(), clip); err != nil {
			slog.Error("music playback failed", "track", title, "err", err)
		}
		p.trackMu.Lock()
		if p.trackGen == gen {
			p.track = ""
		}
		p.trackMu.Unlock()
	}()
	return title, nil
}

// StopMusic implements [apps.Provider].
func (p *Provider) StopMusic(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.trackMu.Lock()
	p.track = ""
	p.trackMu.Unlock()
	return p.player.Stop()
}

// NowPlaying returns the title of the track currently playing, or "" when
// idle.
func (p *Provider) NowPlaying() string {
	p.trackMu.Lock()
	defer p.trackMu.Unlock()
	return p.track
}

// findTrack collects every music file under the configured directories and
// picks the first one, in sorted path order, whose name contains the query.
func (p *Provider) findTrack(query string) (string, error) {
	var tracks []string
	for _, dir := range p.musicDirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if _, ok := musicExtensions[strings.ToLower(filepath.Ext(path))]; ok {
				tracks = append(tracks, path)
			}
			return nil
		})
		if err != nil {
			slog.Warn("music directory skipped", "dir", dir, "err", err)
		}
	}
	sort.Strings(tracks)

	needle := strings.ToLower(query)
	for _, path := range tracks {
		if needle == "" || strings.Contains(strings.ToLower(trackTitle(path)), needle) {
			return path, nil
		}
	}
	if query == "" {
		return "", fmt.Errorf("local: no music files in configured directories: %w", apps.ErrNoTrack)
	}
	return "", fmt.Errorf("local: %q: %w", query, apps.ErrNoTrack)
}

// loadClip reads a music file into a clip. Container formats carry their own
// sample rate, so only the encoding is set here.
func loadClip(path string) (audio.Clip, error) {
	enc, ok := musicExtensions[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return audio.Clip{}, fmt.Errorf("local: unsupported music file %s", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("local: read track: %w", err)
	}
	return audio.Clip{Encoding: enc, Data: data}, nil
}

// trackTitle is the file name without its extension.
func trackTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ─── process control defaults ─────────────────────────────────────────────────

// startDetached starts path with args and reaps it in the background so the
// child never becomes a zombie.
func startDetached(path string, args []string) (int, error) {
	cmd := exec.Command(path, args...)
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	go func() { _ = cmd.Wait() }()
	return pid, nil
}

func signalTerm(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGTERM)
}
