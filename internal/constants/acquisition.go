package constants

import "time"

// AcquisitionPhase names the position of the location state machine.
type AcquisitionPhase string

const (
	PhaseIdle       AcquisitionPhase = "idle"
	PhaseRequesting AcquisitionPhase = "requesting"
	// PhaseCancelling is shown between Cancel and the return of the read that was in flight.
	PhaseCancelling AcquisitionPhase = "cancelling"
	PhaseSucceeded  AcquisitionPhase = "succeeded"
	PhaseCancelled  AcquisitionPhase = "cancelled"
	PhaseFailed     AcquisitionPhase = "failed"
)

// Terminal reports whether no automatic transition follows the phase.
func (p AcquisitionPhase) Terminal() bool {
	switch p {
	case PhaseIdle, PhaseSucceeded, PhaseCancelled, PhaseFailed:
		return true
	}
	return false
}

const (
	DefaultMaxAttempts  = 3
	DefaultRetryDelay   = 2 * time.Second
	DefaultReadTimeout  = 15 * time.Second
	DefaultMaxCacheAge  = 10 * time.Second
	DefaultHighAccuracy = true
)
