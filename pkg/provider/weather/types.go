package weather

import "time"

// Report holds the current conditions for one location.
type Report struct {
	// Location is the resolved place name as reported by the backend,
	// which may differ from the query (e.g., "Istanbul Province").
	Location string

	// Temperature is the current temperature in degrees Celsius.
	Temperature float64

	// Condition is a short human-readable description in the request
	// language (e.g., "parçalı bulutlu").
	Condition string

	// Humidity is the relative humidity in percent.
	Humidity int

	// WindSpeed is the wind speed in meters per second.
	WindSpeed float64

	// Timestamp is when the backend measured these conditions.
	Timestamp time.Time
}
