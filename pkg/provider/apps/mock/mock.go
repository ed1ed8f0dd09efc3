// Package mock provides an in-memory mock implementation of the
// [apps.Provider] interface for use in unit tests.
//
// The mock is safe for concurrent use. Set the exported Result and Err
// fields before use; inspect the recorded calls after.
package mock

import (
	"context"
	"sync"

	"github.com/bkaraca/dinle/pkg/provider/apps"
)

// Compile-time interface assertion.
var _ apps.Provider = (*Provider)(nil)

// LaunchCall records one call to [Provider.Launch].
type LaunchCall struct {
	Ctx  context.Context
	Name string
}

// IsRunningCall records one call to [Provider.IsRunning].
type IsRunningCall struct {
	Ctx  context.Context
	Name string
}

// TerminateCall records one call to [Provider.Terminate].
type TerminateCall struct {
	Ctx  context.Context
	Name string
}

// PlayMusicCall records one call to [Provider.PlayMusic].
type PlayMusicCall struct {
	Ctx   context.Context
	Query string
}

// Provider is a mock implementation of [apps.Provider].
type Provider struct {
	mu sync.Mutex

	// CandidatesResult is returned by Candidates.
	CandidatesResult []string

	// LaunchErr is returned by Launch.
	LaunchErr error

	// IsRunningResult and IsRunningErr are returned by IsRunning.
	IsRunningResult bool
	IsRunningErr    error

	// TerminateErr is returned by Terminate.
	TerminateErr error

	// PlayMusicResult and PlayMusicErr are returned by PlayMusic.
	PlayMusicResult string
	PlayMusicErr    error

	// StopMusicErr is returned by StopMusic.
	StopMusicErr error

	// LaunchCalls records every Launch call, in order.
	LaunchCalls []LaunchCall

	// IsRunningCalls records every IsRunning call, in order.
	IsRunningCalls []IsRunningCall

	// TerminateCalls records every Terminate call, in order.
	TerminateCalls []TerminateCall

	// PlayMusicCalls records every PlayMusic call, in order.
	PlayMusicCalls []PlayMusicCall

	// StopMusicCallCount records how many times StopMusic was called.
	StopMusicCallCount int
}

// Candidates implements [apps.Provider]. Returns CandidatesResult.
func (p *Provider) Candidates() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.CandidatesResult...)
}

// Launch implements [apps.Provider]. Records the call and returns LaunchErr.
func (p *Provider) Launch(ctx context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.LaunchCalls = append(p.LaunchCalls, LaunchCall{Ctx: ctx, Name: name})
	return p.LaunchErr
}

// IsRunning implements [apps.Provider]. Records the call and returns
// IsRunningResult and IsRunningErr.
func (p *Provider) IsRunning(ctx context.Context, name string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.IsRunningCalls = append(p.IsRunningCalls, IsRunningCall{Ctx: ctx, Name: name})
	return p.IsRunningResult, p.IsRunningErr
}

// Terminate implements [apps.Provider]. Records the call and returns
// TerminateErr.
func (p *Provider) Terminate(ctx context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TerminateCalls = append(p.TerminateCalls, TerminateCall{Ctx: ctx, Name: name})
	return p.TerminateErr
}

// PlayMusic implements [apps.Provider]. Records the call and returns
// PlayMusicResult and PlayMusicErr.
func (p *Provider) PlayMusic(ctx context.Context, query string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PlayMusicCalls = append(p.PlayMusicCalls, PlayMusicCall{Ctx: ctx, Query: query})
	return p.PlayMusicResult, p.PlayMusicErr
}

// StopMusic implements [apps.Provider]. Returns StopMusicErr.
func (p *Provider) StopMusic(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StopMusicCallCount++
	return p.StopMusicErr
}

// Reset clears all recorded calls and configured results.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CandidatesResult = nil
	p.LaunchErr = nil
	p.IsRunningResult = false
	p.IsRunningErr = nil
	p.TerminateErr = nil
	p.PlayMusicResult = ""
	p.PlayMusicErr = nil
	p.StopMusicErr = nil
	p.LaunchCalls = nil
	p.IsRunningCalls = nil
	p.TerminateCalls = nil
	p.PlayMusicCalls = nil
	p.StopMusicCallCount = 0
}
