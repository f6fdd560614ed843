// Package httpserver contains HTTP handlers and middleware.
//
// It provides the REST API for submitting evaluations, polling task status
// and fetching aggregated reports, keeping HTTP concerns separate from the
// evaluation pipeline.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zaizaiboom/futureu913/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, _ *http.Request, err error, details interface{}) {
	code := http.StatusInternalServerError
	codeStr := "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		code = http.StatusBadRequest
		codeStr = "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
		codeStr = "NOT_FOUND"
	case errors.Is(err, domain.ErrConflict):
		code = http.StatusConflict
		codeStr = "CONFLICT"
	case errors.Is(err, domain.ErrRateLimited):
		code = http.StatusTooManyRequests
		codeStr = "RATE_LIMITED"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		code = http.StatusServiceUnavailable
		codeStr = "UPSTREAM_TIMEOUT"
	case errors.Is(err, domain.ErrMalformedOutput), errors.Is(err, domain.ErrMissingFields):
		code = http.StatusServiceUnavailable
		codeStr = "UPSTREAM_OUTPUT_INVALID"
	}
	writeJSON(w, code, errorEnvelope{Error: apiError{Code: codeStr, Message: err.Error(), Details: details}})
}

// writeRejection surfaces a guard rejection as 422. The full rejection rides
// in details so clients can render the coaching suggestions directly.
func writeRejection(w http.ResponseWriter, rejection domain.PenaltyRejection) {
	writeJSON(w, http.StatusUnprocessableEntity, errorEnvelope{Error: apiError{
		Code:    "INPUT_REJECTED",
		Message: rejection.Message,
		Details: rejection,
	}})
}
