package services

import (
	"sync"

	"github.com/benmeehan/hospital-finder/internal/constants"
	"github.com/benmeehan/hospital-finder/internal/models"
)

// ScreenState is the home screen's owned, in-memory state. The location
// controller and the facility service receive it by pointer and are its only
// writers; everyone else reads snapshots.
type ScreenState struct {
	mu          sync.RWMutex
	acquisition models.AcquisitionState
	attempt     int
	coordinate  *models.Coordinate
	facilities  *models.FacilitySet
	fetching    bool
}

// NewScreenState returns an idle screen with no coordinate and no results.
func NewScreenState() *ScreenState {
	return &ScreenState{acquisition: models.Idle()}
}

// Acquisition returns the current acquisition state.
func (s *ScreenState) Acquisition() models.AcquisitionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.acquisition
}

// Attempt returns the attempt counter of the running episode, 0 when none.
func (s *ScreenState) Attempt() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attempt
}

// Coordinate returns the last published coordinate.
func (s *ScreenState) Coordinate() (models.Coordinate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.coordinate == nil {
		return models.Coordinate{}, false
	}
	return *s.coordinate, true
}

// Facilities returns the current facility set.
func (s *ScreenState) Facilities() (models.FacilitySet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.facilities == nil {
		return models.FacilitySet{}, false
	}
	return *s.facilities, true
}

// Snapshot returns a consistent copy of the whole screen.
func (s *ScreenState) Snapshot(maxAttempts int) models.ScreenSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := models.ScreenSnapshot{
		State:       s.acquisition,
		Attempt:     s.attempt,
		MaxAttempts: maxAttempts,
		Loading:     s.acquisition.Blocking() || s.fetching,
	}
	if s.coordinate != nil {
		c := *s.coordinate
		snap.Coordinate = &c
	}
	if s.facilities != nil {
		f := *s.facilities
		f.Records = append([]models.FacilityRecord(nil), s.facilities.Records...)
		snap.Facilities = &f
	}
	return snap
}

// beginAcquisition moves an idle screen into the first attempt. It fails
// while a facility search is in flight.
func (s *ScreenState) beginAcquisition(state models.AcquisitionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetching {
		return ErrSearchInProgress
	}
	s.acquisition = state
	s.attempt = state.Attempt
	return nil
}

func (s *ScreenState) setAcquisition(state models.AcquisitionState, attempt int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acquisition = state
	s.attempt = attempt
	if state.Phase == constants.PhaseSucceeded && state.Coordinate != nil {
		c := *state.Coordinate
		s.coordinate = &c
	}
}

// beginFetch marks a facility search as running. Reads and searches never
// overlap on one screen, so a cancelled read that has not returned yet still
// holds the sensor.
func (s *ScreenState) beginFetch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acquisition.Blocking() || s.acquisition.Phase == constants.PhaseCancelling {
		return ErrAcquisitionInProgress
	}
	if s.fetching {
		return ErrSearchInProgress
	}
	s.fetching = true
	return nil
}

func (s *ScreenState) endFetch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetching = false
}

// replaceFacilities swaps in a new set. Sets are never merged.
func (s *ScreenState) replaceFacilities(set models.FacilitySet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facilities = &set
}
