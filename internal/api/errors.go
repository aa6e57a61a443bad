package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/your-username/appsync-flow-simulator/internal/models"
	"github.com/your-username/appsync-flow-simulator/internal/simulator"
	"github.com/your-username/appsync-flow-simulator/internal/tracing"
)

var (
	errInvalidBody = errors.New("invalid request body")
	errInvalidPage = errors.New("invalid page request")
)

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var unknown *models.UnknownKindError
	switch {
	case errors.Is(err, errInvalidBody),
		errors.Is(err, errInvalidPage),
		errors.Is(err, errInvalidExport),
		errors.Is(err, simulator.ErrEmptyOperation),
		errors.As(err, &unknown):
		return http.StatusBadRequest
	case errors.Is(err, simulator.ErrOperationInFlight):
		return http.StatusConflict
	case errors.Is(err, tracing.ErrTraceNotFound),
		errors.Is(err, simulator.ErrSubscriptionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

func decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errInvalidBody
	}
	return nil
}
