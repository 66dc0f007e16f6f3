// Package handler implements the local HTTP host for the home screen.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/benmeehan/hospital-finder/internal/middleware"
	"github.com/benmeehan/hospital-finder/internal/models"
)

// HomeScreen is the screen surface the HTTP host drives.
type HomeScreen interface {
	RequestLocation() error
	CancelLocation()
	FindHospitals(ctx context.Context) (models.FacilitySet, error)
	Facility(id string) (models.FacilityDetails, error)
	Snapshot() models.ScreenSnapshot
	Logs() []models.LogEntry
}

// Server serves the home screen over HTTP.
type Server struct {
	home   HomeScreen
	logger zerolog.Logger
}

// NewServer constructs the Server with its dependencies.
func NewServer(home HomeScreen, logger zerolog.Logger) *Server {
	return &Server{home: home, logger: logger}
}

// Routes builds the router.
// Middleware order: RequestID, RealIP, request logger, Recoverer.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewRequestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.getHealth)
	r.Route("/home", func(r chi.Router) {
		r.Get("/state", s.getState)
		r.Get("/logs", s.getLogs)
		r.Post("/location", s.requestLocation)
		r.Post("/location/cancel", s.cancelLocation)
		r.Post("/facilities/search", s.searchFacilities)
		r.Get("/facilities/{id}", s.getFacility)
	})
	return r
}
