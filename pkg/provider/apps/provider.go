// Package apps defines the desktop application and music playback provider
// contract. A provider knows a fixed set of launchable applications by
// canonical name; the launcher command matches a spoken Turkish utterance
// against those names before calling in here.
package apps

import (
	"context"
	"errors"
)

// Sentinel errors returned by providers. Callers match them with [errors.Is]
// to choose the spoken response.
var (
	// ErrUnknownApp means the requested name is not in the candidate set.
	ErrUnknownApp = errors.New("apps: unknown application")

	// ErrNotInstalled means the application is known but no executable for
	// it was found on this machine.
	ErrNotInstalled = errors.New("apps: application not installed")

	// ErrNotRunning means no process for the application was found.
	ErrNotRunning = errors.New("apps: application not running")

	// ErrNoTrack means no music file matched the requested query.
	ErrNoTrack = errors.New("apps: no matching music file")
)

// Provider launches and terminates desktop applications and plays local
// music files.
type Provider interface {
	// Candidates returns the canonical application names this provider can
	// launch, in a stable order. The launcher command feeds these to the
	// classifier when matching an utterance to an application.
	Candidates() []string

	// Launch starts the named application detached from the calling process.
	// The name must be one of Candidates, matched case-insensitively.
	// Returns ErrUnknownApp for names outside the candidate set and
	// ErrNotInstalled when no executable is available.
	Launch(ctx context.Context, name string) error

	// IsRunning reports whether at least one process of the named
	// application is currently running.
	IsRunning(ctx context.Context, name string) (bool, error)

	// Terminate asks every running process of the named application to exit.
	// Returns ErrNotRunning when no process was found.
	Terminate(ctx context.Context, name string) error

	// PlayMusic finds a local music file matching query (any file when query
	// is empty), starts playing it in the background, and returns the track
	// title. Returns ErrNoTrack when nothing matches.
	PlayMusic(ctx context.Context, query string) (string, error)

	// StopMusic stops the currently playing track, if any. Stopping when
	// nothing plays is not an error.
	StopMusic(ctx context.Context) error
}
