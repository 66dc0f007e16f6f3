package models

import "time"

// FacilityRecord is one point of interest returned by a nearby search.
// Only records with a numeric latitude and longitude are ever built.
type FacilityRecord struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Location    Coordinate `json:"location"`
	Vicinity    *string    `json:"vicinity,omitempty"`
	Rating      *float64   `json:"rating,omitempty"`
	RatingCount *int       `json:"rating_count,omitempty"`
	OpenNow     *bool      `json:"open_now,omitempty"`
}

// FacilitySet is the ordered result of a single query, in provider order.
// A new query replaces it wholesale.
type FacilitySet struct {
	Center    Coordinate       `json:"center"`
	Radius    int              `json:"radius_meters"`
	Category  string           `json:"category"`
	Records   []FacilityRecord `json:"records"`
	QueriedAt time.Time        `json:"queried_at"`
}

// Len returns the number of records in the set.
func (s FacilitySet) Len() int {
	return len(s.Records)
}

// Find returns the record with the given id.
func (s FacilitySet) Find(id string) (FacilityRecord, bool) {
	for _, r := range s.Records {
		if r.ID == id {
			return r, true
		}
	}
	return FacilityRecord{}, false
}

// FacilityDetails is one selected record shown next to the user's position.
type FacilityDetails struct {
	Facility     FacilityRecord `json:"facility"`
	UserLocation *Coordinate    `json:"user_location,omitempty"`
}
