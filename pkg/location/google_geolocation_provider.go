package location

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"
)

type geolocator interface {
	Geolocate(ctx context.Context, r *maps.GeolocationRequest) (*maps.GeolocationResult, error)
}

// GoogleGeolocationProvider uses the Google Maps API to get location data.
type GoogleGeolocationProvider struct {
	client geolocator // Maps API client for making geolocation requests
	logger zerolog.Logger

	scanWiFi  func(ctx context.Context) ([]maps.WiFiAccessPoint, error)
	scanCells func(ctx context.Context) ([]maps.CellTower, error)
	now       func() time.Time
}

// NewGoogleGeolocationProvider creates a new GoogleGeolocationProvider instance.
// Extra client options (e.g. maps.WithBaseURL) are passed through.
func NewGoogleGeolocationProvider(apiKey string, modemIndex int, logger zerolog.Logger, opts ...maps.ClientOption) (*GoogleGeolocationProvider, error) {
	c, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, err
	}

	return &GoogleGeolocationProvider{
		client:   c,
		logger:   logger,
		scanWiFi: getWiFiAccessPoints,
		scanCells: func(ctx context.Context) ([]maps.CellTower, error) {
			return getCellTowers(ctx, modemIndex)
		},
		now: time.Now,
	}, nil
}

// GetLocation retrieves the device's location using Google Maps Geolocation API.
// Radio scans are best effort; without them the API falls back to the IP address.
func (g *GoogleGeolocationProvider) GetLocation(ctx context.Context, opts PositionOptions) (Position, error) {
	const op = "location.geolocate"

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req := &maps.GeolocationRequest{ConsiderIP: true}

	if opts.HighAccuracy {
		wifiAPs, err := g.scanWiFi(ctx)
		if err != nil {
			g.logger.Warn().Err(err).Msg("WiFi scan failed, continuing without access points")
		}
		req.WiFiAccessPoints = wifiAPs

		cellTowers, err := g.scanCells(ctx)
		if err != nil {
			g.logger.Warn().Err(err).Msg("Cell tower scan failed, continuing without towers")
		}
		req.CellTowers = cellTowers
	}

	resp, err := g.client.Geolocate(ctx, req)
	if err != nil {
		return Position{}, classify(op, err)
	}

	accuracy := resp.Accuracy
	return Position{
		Latitude:  resp.Location.Lat,
		Longitude: resp.Location.Lng,
		Accuracy:  &accuracy,
		Timestamp: g.now(),
	}, nil
}
