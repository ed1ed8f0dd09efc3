// Package news defines the Provider interface for news backends and the
// Turkish category vocabulary the assistant understands.
package news

import "context"

// Provider is the abstraction over a news service.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// TopHeadlines returns the current top stories. category is an English
	// NewsAPI category name ("business", "sports", ...) or empty for
	// general headlines. Results are capped by the implementation.
	TopHeadlines(ctx context.Context, category string) ([]Article, error)

	// Search returns articles matching the free-text query, most relevant
	// first. An empty query is an error.
	Search(ctx context.Context, query string) ([]Article, error)
}
