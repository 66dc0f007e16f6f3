package models

import (
	"time"
)

// Coordinate is a resolved device position. It is published once per
// successful acquisition and replaced, never mutated, by the next one.
type Coordinate struct {
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters *float64  `json:"accuracy_meters,omitempty"`
	AltitudeMeters *float64  `json:"altitude_meters,omitempty"`
	ObservedAt     time.Time `json:"observed_at"`
}
