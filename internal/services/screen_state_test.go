package services

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/hospital-finder/internal/constants"
	"github.com/benmeehan/hospital-finder/internal/mocks"
	"github.com/benmeehan/hospital-finder/internal/models"
)

func TestScreenState_SnapshotCopiesRecords(t *testing.T) {
	s := NewScreenState()
	s.replaceFacilities(models.FacilitySet{Records: []models.FacilityRecord{{ID: "a"}}})

	snap := s.Snapshot(3)
	snap.Facilities.Records[0].ID = "changed"

	current, _ := s.Facilities()
	assert.Equal(t, "a", current.Records[0].ID)
	assert.Equal(t, constants.PhaseIdle, snap.State.Phase)
	assert.Equal(t, 3, snap.MaxAttempts)
}

func TestScreenState_FetchAndAcquisitionExclude(t *testing.T) {
	s := NewScreenState()

	require.NoError(t, s.beginFetch())
	assert.ErrorIs(t, s.beginFetch(), ErrSearchInProgress)
	assert.True(t, s.Snapshot(3).Loading)
	s.endFetch()

	require.NoError(t, s.beginAcquisition(models.Requesting(1)))
	assert.ErrorIs(t, s.beginFetch(), ErrAcquisitionInProgress)
	assert.Equal(t, 1, s.Attempt())
	assert.True(t, s.Snapshot(3).Loading)
}

func TestScreenState_KeepsLastCoordinateAfterFailure(t *testing.T) {
	s := NewScreenState()
	s.setAcquisition(models.Succeeded(models.Coordinate{Latitude: 5, Longitude: 6}), 0)
	s.setAcquisition(models.Failed(nil), 0)

	coord, ok := s.Coordinate()
	assert.True(t, ok)
	assert.Equal(t, 5.0, coord.Latitude)
	assert.Equal(t, constants.PhaseFailed, s.Acquisition().Phase)
}

func TestActivityLog_ErrorNotifies(t *testing.T) {
	log := NewActivityLog(zerolog.Nop(), mocks.NewManualClock(testEpoch))

	var got []models.Notification
	log.AddNotifier(NotifierFunc(func(n models.Notification) { got = append(got, n) }))

	log.Info("Attempting to get current location (Attempt 1/3)")
	log.Error("Failed to get current location")

	entries := log.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, models.LogLevelInfo, entries[0].Level)
	assert.True(t, strings.HasSuffix(entries[1].String(), "ERROR: Failed to get current location"))

	require.Len(t, got, 1)
	assert.Equal(t, "Error Occurred", got[0].Title)
	assert.Equal(t, testEpoch, got[0].Timestamp)
}
