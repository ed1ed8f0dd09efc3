// Package weather defines the Provider interface for weather data backends.
package weather

import "context"

// Provider is the abstraction over a weather data service.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Current returns the current conditions for the given city name.
	// City names may be Turkish ("İstanbul", "Ankara"); implementations
	// handle any encoding the backend requires. An empty city is an error.
	Current(ctx context.Context, city string) (*Report, error)
}
