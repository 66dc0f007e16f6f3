package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/benmeehan/hospital-finder/internal/models"
)

type healthResponse struct {
	Status string `json:"status"`
}

type logsResponse struct {
	Entries []models.LogEntry `json:"entries"`
	Lines   []string          `json:"lines"`
}

// getHealth handles GET /healthz.
func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// getState handles GET /home/state.
func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.home.Snapshot())
}

// getLogs handles GET /home/logs.
func (s *Server) getLogs(w http.ResponseWriter, r *http.Request) {
	entries := s.home.Logs()
	resp := logsResponse{
		Entries: entries,
		Lines:   make([]string, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Lines = append(resp.Lines, e.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

// requestLocation handles POST /home/location. The episode runs in the
// background; poll /home/state for the outcome.
func (s *Server) requestLocation(w http.ResponseWriter, r *http.Request) {
	if err := s.home.RequestLocation(); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.home.Snapshot())
}

// cancelLocation handles POST /home/location/cancel.
func (s *Server) cancelLocation(w http.ResponseWriter, r *http.Request) {
	s.home.CancelLocation()
	writeJSON(w, http.StatusAccepted, s.home.Snapshot())
}

// searchFacilities handles POST /home/facilities/search.
func (s *Server) searchFacilities(w http.ResponseWriter, r *http.Request) {
	set, err := s.home.FindHospitals(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

// getFacility handles GET /home/facilities/{id}.
func (s *Server) getFacility(w http.ResponseWriter, r *http.Request) {
	details, err := s.home.Facility(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}
