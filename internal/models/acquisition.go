package models

import (
	"github.com/benmeehan/hospital-finder/internal/constants"
	"github.com/benmeehan/hospital-finder/pkg/faults"
)

// AcquisitionState is the observable state of the location controller.
type AcquisitionState struct {
	Phase      constants.AcquisitionPhase `json:"phase"`
	Attempt    int                        `json:"attempt,omitempty"`
	Coordinate *Coordinate                `json:"coordinate,omitempty"`
	Reason     faults.Kind                `json:"reason,omitempty"`
	Err        error                      `json:"-"`
}

func Idle() AcquisitionState {
	return AcquisitionState{Phase: constants.PhaseIdle}
}

func Requesting(attempt int) AcquisitionState {
	return AcquisitionState{Phase: constants.PhaseRequesting, Attempt: attempt}
}

func Succeeded(c Coordinate) AcquisitionState {
	return AcquisitionState{Phase: constants.PhaseSucceeded, Coordinate: &c}
}

func Cancelling() AcquisitionState {
	return AcquisitionState{Phase: constants.PhaseCancelling}
}

func Cancelled() AcquisitionState {
	return AcquisitionState{Phase: constants.PhaseCancelled, Reason: faults.UserCancelled}
}

// Failed records a terminal failure; the reason is taken from err's kind.
func Failed(err error) AcquisitionState {
	return AcquisitionState{Phase: constants.PhaseFailed, Reason: faults.KindOf(err), Err: err}
}

// Blocking reports whether the UI should keep its progress overlay up.
func (s AcquisitionState) Blocking() bool {
	return s.Phase == constants.PhaseRequesting
}
