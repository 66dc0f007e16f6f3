package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/benmeehan/hospital-finder/internal/services"
	"github.com/benmeehan/hospital-finder/pkg/faults"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable code and a message a user can read.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps a screen error onto an HTTP status and error code.
func statusFor(err error) (int, ErrorDetail) {
	switch {
	case errors.Is(err, services.ErrAcquisitionInProgress), errors.Is(err, services.ErrSearchInProgress):
		return http.StatusConflict, ErrorDetail{Code: "conflict", Message: err.Error()}
	case errors.Is(err, services.ErrControllerClosed):
		return http.StatusServiceUnavailable, ErrorDetail{Code: "unavailable", Message: err.Error()}
	case errors.Is(err, services.ErrFacilityNotFound):
		return http.StatusNotFound, ErrorDetail{Code: "not_found", Message: err.Error()}
	}

	kind := faults.KindOf(err)
	detail := ErrorDetail{Code: kind.String(), Message: faults.Message(kind)}
	switch kind {
	case faults.PreconditionViolation:
		return http.StatusPreconditionFailed, detail
	case faults.Unknown:
		return http.StatusInternalServerError, detail
	default:
		return http.StatusBadGateway, detail
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, detail := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Int("status", status).Msg("Request failed")
	}
	writeJSON(w, status, ErrorResponse{Error: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
