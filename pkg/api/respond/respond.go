// Package respond writes JSON responses and maps error kinds to HTTP statuses.
package respond

import (
	"encoding/json"
	"net/http"

	"econ_dashboard/pkg/core/apperr"

	"github.com/rs/zerolog"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// JSON writes a JSON response
func JSON(w http.ResponseWriter, log zerolog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// Message writes an error body with a plain message.
func Message(w http.ResponseWriter, log zerolog.Logger, status int, message string) {
	JSON(w, log, status, ErrorBody{Error: message})
}

// Error writes err with the status of its kind and its user-facing message.
func Error(w http.ResponseWriter, log zerolog.Logger, err error) {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("kind", kind.String()).Msg("Request failed")
	}
	JSON(w, log, status, ErrorBody{Error: apperr.UserMessage(err), Kind: kind.String()})
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalidSelection:
		return http.StatusBadRequest
	case apperr.KindUnknownID, apperr.KindEmpty:
		return http.StatusNotFound
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	case apperr.KindDownstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
