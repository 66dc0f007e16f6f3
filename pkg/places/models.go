package places

import (
	"bytes"
	"encoding/json"
)

// Provider status values of interest.
const (
	StatusOK             = "OK"
	StatusZeroResults    = "ZERO_RESULTS"
	StatusRequestDenied  = "REQUEST_DENIED"
	StatusOverQueryLimit = "OVER_QUERY_LIMIT"
	StatusInvalidRequest = "INVALID_REQUEST"
	StatusUnknownError   = "UNKNOWN_ERROR"
)

// NearbyRequest describes one nearby search around a point.
type NearbyRequest struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters int
	Category     string
}

// NearbyResponse is the decoded provider reply, results in provider order.
type NearbyResponse struct {
	Status       string
	ErrorMessage string
	Results      []Place
}

// Place is a single search result. Lat and Lng are nil unless the provider
// sent them as JSON numbers.
type Place struct {
	PlaceID          string
	Name             string
	Vicinity         *string
	Rating           *float64
	UserRatingsTotal *int
	OpenNow          *bool
	Lat              *float64
	Lng              *float64
}

type nearbyPayload struct {
	Status       string            `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Results      []json.RawMessage `json:"results"`
}

// placeEntry keeps every field raw so one mistyped value only blanks that
// field instead of failing the whole reply.
type placeEntry struct {
	PlaceID          json.RawMessage `json:"place_id"`
	Name             json.RawMessage `json:"name"`
	Geometry         json.RawMessage `json:"geometry"`
	Vicinity         json.RawMessage `json:"vicinity"`
	Rating           json.RawMessage `json:"rating"`
	UserRatingsTotal json.RawMessage `json:"user_ratings_total"`
	OpeningHours     json.RawMessage `json:"opening_hours"`
}

type geometryEntry struct {
	Location json.RawMessage `json:"location"`
}

type latLngEntry struct {
	Lat json.RawMessage `json:"lat"`
	Lng json.RawMessage `json:"lng"`
}

type openingHoursEntry struct {
	OpenNow json.RawMessage `json:"open_now"`
}

// decodePlace decodes one result. It fails only when raw is not an object.
func decodePlace(raw json.RawMessage) (Place, error) {
	var e placeEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Place{}, err
	}

	p := Place{
		Vicinity:         decode[string](e.Vicinity),
		Rating:           decode[float64](e.Rating),
		UserRatingsTotal: decode[int](e.UserRatingsTotal),
	}
	if v := decode[string](e.PlaceID); v != nil {
		p.PlaceID = *v
	}
	if v := decode[string](e.Name); v != nil {
		p.Name = *v
	}
	if hours := decode[openingHoursEntry](e.OpeningHours); hours != nil {
		p.OpenNow = decode[bool](hours.OpenNow)
	}
	if geometry := decode[geometryEntry](e.Geometry); geometry != nil {
		if loc := decode[latLngEntry](geometry.Location); loc != nil {
			p.Lat = decode[float64](loc.Lat)
			p.Lng = decode[float64](loc.Lng)
		}
	}
	return p, nil
}

// decode returns the value of raw as a T, or nil when raw is absent, null or
// of another JSON type.
func decode[T any](raw json.RawMessage) *T {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}
