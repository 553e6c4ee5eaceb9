package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"autonome/internal/config"
	"autonome/internal/core"
	"autonome/internal/export"
	"autonome/internal/ledger"
	"autonome/internal/log"
)

// errBadRequest marks request parsing failures.
var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, config.ErrInvalidSetting),
		errors.Is(err, export.ErrUnknownCollection),
		errors.Is(err, export.ErrInvalidBackup),
		errors.Is(err, ledger.ErrInvalidDataset),
		core.IsValidationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes {"error": ...}. Server errors are logged and their
// details kept out of the response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldError, err,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorBody{Error: msg})
}
