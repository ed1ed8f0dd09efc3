// Package mock provides a test double for the weather.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/bkaraca/dinle/pkg/provider/weather"
)

// CurrentCall records a single invocation of Provider.Current.
type CurrentCall struct {
	// Ctx is the context passed to Current.
	Ctx context.Context
	// City is the city passed to Current.
	City string
}

// Provider is a mock implementation of weather.Provider.
type Provider struct {
	mu sync.Mutex

	// CurrentResult is returned by Current.
	CurrentResult *weather.Report

	// CurrentErr, if non-nil, is returned as the error from Current.
	CurrentErr error

	// CurrentCalls records every call to Current in order.
	CurrentCalls []CurrentCall
}

// Current records the call and returns CurrentResult, CurrentErr.
func (p *Provider) Current(ctx context.Context, city string) (*weather.Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CurrentCalls = append(p.CurrentCalls, CurrentCall{Ctx: ctx, City: city})
	if p.CurrentErr != nil {
		return nil, p.CurrentErr
	}
	return p.CurrentResult, nil
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CurrentCalls = nil
}

// Ensure Provider implements weather.Provider at compile time.
var _ weather.Provider = (*Provider)(nil)
