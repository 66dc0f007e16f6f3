package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/benmeehan/hospital-finder/internal/models"
	"github.com/benmeehan/hospital-finder/internal/utils"
	"github.com/benmeehan/hospital-finder/pkg/faults"
	"github.com/benmeehan/hospital-finder/pkg/places"
)

// PlacesSearcher issues one nearby search per call.
type PlacesSearcher interface {
	NearbySearch(ctx context.Context, req places.NearbyRequest) (*places.NearbyResponse, error)
}

// FacilityService turns a resolved coordinate into a validated FacilitySet.
// It never retries; the user re-invokes it.
type FacilityService struct {
	searcher PlacesSearcher
	state    *ScreenState
	activity *ActivityLog
	clock    utils.Clock
	logger   zerolog.Logger

	radiusMeters int
	category     string

	listeners []func()
}

// NewFacilityService creates the pipeline for one screen.
func NewFacilityService(searcher PlacesSearcher, radiusMeters int, category string, state *ScreenState,
	activity *ActivityLog, clock utils.Clock, logger zerolog.Logger) *FacilityService {
	return &FacilityService{
		searcher:     searcher,
		state:        state,
		activity:     activity,
		clock:        clock,
		logger:       logger,
		radiusMeters: radiusMeters,
		category:     category,
	}
}

// OnChange registers fn to run whenever a search starts or settles. It must
// be called before the service is used.
func (f *FacilityService) OnChange(fn func()) {
	f.listeners = append(f.listeners, fn)
}

// QueryNearby searches around center and keeps only results with a numeric
// latitude and longitude, in provider order. A nil center is a caller error
// and no request is made.
func (f *FacilityService) QueryNearby(ctx context.Context, center *models.Coordinate, radiusMeters int, category string) (models.FacilitySet, error) {
	const op = "facilities.query"

	if center == nil {
		return models.FacilitySet{}, faults.New(faults.PreconditionViolation, op, "no resolved coordinate")
	}

	resp, err := f.searcher.NearbySearch(ctx, places.NearbyRequest{
		Latitude:     center.Latitude,
		Longitude:    center.Longitude,
		RadiusMeters: radiusMeters,
		Category:     category,
	})
	if err != nil {
		if faults.KindOf(err) == faults.Unknown {
			err = faults.Wrap(faults.NetworkFailure, op, err)
		}
		return models.FacilitySet{}, err
	}

	set := models.FacilitySet{
		Center:    *center,
		Radius:    radiusMeters,
		Category:  category,
		Records:   make([]models.FacilityRecord, 0, len(resp.Results)),
		QueriedAt: f.clock.Now(),
	}
	dropped := 0
	for _, p := range resp.Results {
		record, ok := toFacilityRecord(p)
		if !ok {
			dropped++
			continue
		}
		set.Records = append(set.Records, record)
	}

	f.logger.Info().
		Str("status", resp.Status).
		Int("valid", len(set.Records)).
		Int("dropped", dropped).
		Msg("Nearby search completed")
	return set, nil
}

// FindNearby is the screen action: query around the last published
// coordinate with the configured radius and category and publish the result.
func (f *FacilityService) FindNearby(ctx context.Context) (models.FacilitySet, error) {
	coord, ok := f.state.Coordinate()
	if !ok {
		err := faults.New(faults.PreconditionViolation, "facilities.find", "no resolved coordinate")
		f.activity.Error(faults.Message(faults.PreconditionViolation))
		return models.FacilitySet{}, err
	}

	if err := f.state.beginFetch(); err != nil {
		return models.FacilitySet{}, err
	}
	f.changed()
	defer func() {
		f.state.endFetch()
		f.changed()
	}()

	f.activity.Info("Starting nearby hospitals search")

	set, err := f.QueryNearby(ctx, &coord, f.radiusMeters, f.category)
	if err != nil {
		f.logger.Error().Err(err).Msg("Nearby search failed")
		f.activity.Error(fmt.Sprintf("Hospital fetch error: %s", faults.Message(faults.KindOf(err))))
		return models.FacilitySet{}, err
	}

	f.state.replaceFacilities(set)
	f.activity.Info(fmt.Sprintf("Found %d valid hospitals", set.Len()))
	return set, nil
}

func toFacilityRecord(p places.Place) (models.FacilityRecord, bool) {
	if p.Lat == nil || p.Lng == nil {
		return models.FacilityRecord{}, false
	}

	id := p.PlaceID
	if id == "" {
		id = uuid.NewString()
	}
	record := models.FacilityRecord{
		ID:          id,
		Name:        p.Name,
		Location:    models.Coordinate{Latitude: *p.Lat, Longitude: *p.Lng},
		Vicinity:    p.Vicinity,
		Rating:      p.Rating,
		RatingCount: p.UserRatingsTotal,
		OpenNow:     p.OpenNow,
	}
	return record, true
}

func (f *FacilityService) changed() {
	for _, fn := range f.listeners {
		fn()
	}
}
