// Package mock provides a test double for the news.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/bkaraca/dinle/pkg/provider/news"
)

// TopHeadlinesCall records a single invocation of Provider.TopHeadlines.
type TopHeadlinesCall struct {
	// Ctx is the context passed to TopHeadlines.
	Ctx context.Context
	// Category is the category passed to TopHeadlines.
	Category string
}

// SearchCall records a single invocation of Provider.Search.
type SearchCall struct {
	// Ctx is the context passed to Search.
	Ctx context.Context
	// Query is the query passed to Search.
	Query string
}

// Provider is a mock implementation of news.Provider.
type Provider struct {
	mu sync.Mutex

	// TopHeadlinesResult is returned by TopHeadlines.
	TopHeadlinesResult []news.Article

	// TopHeadlinesErr, if non-nil, is returned as the error from TopHeadlines.
	TopHeadlinesErr error

	// SearchResult is returned by Search.
	SearchResult []news.Article

	// SearchErr, if non-nil, is returned as the error from Search.
	SearchErr error

	// --- Call records ---

	// TopHeadlinesCalls records every call to TopHeadlines in order.
	TopHeadlinesCalls []TopHeadlinesCall

	// SearchCalls records every call to Search in order.
	SearchCalls []SearchCall
}

// TopHeadlines records the call and returns TopHeadlinesResult, TopHeadlinesErr.
func (p *Provider) TopHeadlines(ctx context.Context, category string) ([]news.Article, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TopHeadlinesCalls = append(p.TopHeadlinesCalls, TopHeadlinesCall{Ctx: ctx, Category: category})
	if p.TopHeadlinesErr != nil {
		return nil, p.TopHeadlinesErr
	}
	return p.TopHeadlinesResult, nil
}

// Search records the call and returns SearchResult, SearchErr.
func (p *Provider) Search(ctx context.Context, query string) ([]news.Article, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SearchCalls = append(p.SearchCalls, SearchCall{Ctx: ctx, Query: query})
	if p.SearchErr != nil {
		return nil, p.SearchErr
	}
	return p.SearchResult, nil
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TopHeadlinesCalls = nil
	p.SearchCalls = nil
}

// Ensure Provider implements news.Provider at compile time.
var _ news.Provider = (*Provider)(nil)
