package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

type ErrorPayload struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	RetryAfterSec int    `json:"retryAfterSec,omitempty"`
	Details       any    `json:"details,omitempty"`
}

// Envelope is the body of every error response: {"error": {...}}.
type Envelope struct {
	Error ErrorPayload `json:"error"`
}

// WriteError writes a JSON error using the status text as code.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	writeEnvelope(w, statusCode, ErrorPayload{Code: http.StatusText(statusCode), Message: message})
}

// WriteTypedError writes a JSON error with explicit code and optional retryAfterSec.
func WriteTypedError(w http.ResponseWriter, statusCode int, code, message string, retryAfter int) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	writeEnvelope(w, statusCode, ErrorPayload{Code: code, Message: message, RetryAfterSec: retryAfter})
}

// WriteErrorWithDetails writes a JSON error with a stable code and additional details.
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, code, message string, details any) {
	writeEnvelope(w, statusCode, ErrorPayload{Code: code, Message: message, Details: details})
}

func writeEnvelope(w http.ResponseWriter, statusCode int, p ErrorPayload) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(Envelope{Error: p}); err != nil {
		log.Error().Err(err).Msg("failed to write error response")
	}
}
