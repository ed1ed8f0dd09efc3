// Package mock provides in-memory mock implementations of the [audio.Source]
// and [audio.Player] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields that the test can set to control return values.
//
// Typical usage:
//
//	frames := make(chan audio.Frame, 16)
//	src := &mock.Source{FramesResult: frames}
//	player := &mock.Player{}
//	// ... exercise code under test ...
//	if player.CallCountPlay != 1 {
//	    t.Errorf("Play called %d times, want 1", player.CallCountPlay)
//	}
package mock

import (
	"context"
	"sync"

	"github.com/bkaraca/dinle/pkg/audio"
)

// ─── Source ───────────────────────────────────────────────────────────────────

// Source is a mock implementation of [audio.Source].
// Set the exported Result fields before use; inspect the Call* fields after.
type Source struct {
	mu sync.Mutex

	// FramesResult is returned by [Source.Frames]. Defaults to a closed
	// channel if left nil, so readers see an immediately-ended stream.
	FramesResult chan audio.Frame

	// StartError is returned by [Source.Start].
	StartError error

	// CloseError is returned by [Source.Close].
	CloseError error

	// CallCountStart records how many times Start was called.
	CallCountStart int

	// CallCountFrames records how many times Frames was called.
	CallCountFrames int

	// CallCountClose records how many times Close was called.
	CallCountClose int
}

// Start implements [audio.Source]. Returns StartError.
func (s *Source) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStart++
	return s.StartError
}

// Frames implements [audio.Source]. Returns FramesResult; if it is nil, a
// closed channel is returned.
func (s *Source) Frames() <-chan audio.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountFrames++
	if s.FramesResult == nil {
		closed := make(chan audio.Frame)
		close(closed)
		return closed
	}
	return s.FramesResult
}

// Close implements [audio.Source]. Returns CloseError. The first call closes
// FramesResult if it is non-nil.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	if s.CallCountClose == 1 && s.FramesResult != nil {
		close(s.FramesResult)
	}
	return s.CloseError
}

var _ audio.Source = (*Source)(nil)

// ─── Player ───────────────────────────────────────────────────────────────────

// Player is a mock implementation of [audio.Player].
// Set the exported fields before use; inspect the Call* fields after.
type Player struct {
	mu sync.Mutex

	// PlayFunc, when non-nil, is invoked by [Player.Play] after recording the
	// call. Use it to block playback until the test releases it (e.g., to
	// exercise interruption paths).
	PlayFunc func(ctx context.Context, clip audio.Clip) error

	// PlayError is returned by [Player.Play] when PlayFunc is nil.
	PlayError error

	// StopError is returned by [Player.Stop].
	StopError error

	// CloseError is returned by [Player.Close].
	CloseError error

	// PlayedClips records every clip passed to Play, in order.
	PlayedClips []audio.Clip

	// CallCountPlay records how many times Play was called.
	CallCountPlay int

	// CallCountStop records how many times Stop was called.
	CallCountStop int

	// CallCountClose records how many times Close was called.
	CallCountClose int
}

// Play implements [audio.Player]. It records the clip, then either delegates
// to PlayFunc or returns PlayError immediately.
func (p *Player) Play(ctx context.Context, clip audio.Clip) error {
	p.mu.Lock()
	p.CallCountPlay++
	p.PlayedClips = append(p.PlayedClips, clip)
	fn := p.PlayFunc
	err := p.PlayError
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, clip)
	}
	return err
}

// Stop implements [audio.Player]. Returns StopError.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CallCountStop++
	return p.StopError
}

// Close implements [audio.Player]. Returns CloseError.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CallCountClose++
	return p.CloseError
}

var _ audio.Player = (*Player)(nil)
