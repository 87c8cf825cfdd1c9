package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/hangman/apps/go-server/internal/apperr"
)

var (
	errBadJSON      = apperr.New(apperr.InvalidInput, "Invalid JSON body.")
	errMissingToken = apperr.New(apperr.Credential, "Missing bearer token.")
	errBadCount     = apperr.New(apperr.InvalidInput, "Query parameter n must be a positive integer.")
)

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.NotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.Credential):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.Authorization):
		return http.StatusForbidden
	case errors.Is(err, apperr.InvalidState), errors.Is(err, apperr.InvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperr.Conflict):
		return http.StatusConflict
	case errors.Is(err, apperr.StorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": msg}. Server-side failures are
// logged with their cause; client errors only at debug.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	l := hlog.FromRequest(r)
	if status >= http.StatusInternalServerError {
		l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		l.Debug().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request rejected")
	}
	writeJSON(w, status, map[string]string{"error": apperr.Message(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
