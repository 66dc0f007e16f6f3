package location

import "time"

// Position is a single fix reported by a provider.
type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  *float64 // meters, nil when the source cannot estimate it
	Altitude  *float64 // meters above mean sea level
	Timestamp time.Time
}

// PositionOptions mirrors the platform geolocation read options.
type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration // upper bound for one read
	MaximumAge   time.Duration // a cached fix at most this old may satisfy the read
}
