package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vibhor121/mastersunion/internal/api/dto"
	"github.com/vibhor121/mastersunion/internal/apperror"
	"github.com/vibhor121/mastersunion/pkg/util"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorWriter is embedded by every handler that reports service errors.
type errorWriter struct {
	logger *slog.Logger
}

func newErrorWriter(logger *slog.Logger) errorWriter {
	if logger == nil {
		logger = util.DiscardLogger()
	}
	return errorWriter{logger: logger}
}

// writeError maps service errors to status codes. Unexpected errors are
// logged and reported with the fallback message only.
func (e errorWriter) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: apperror.Fields(err)})
	case errors.Is(err, apperror.ErrNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: capitalize(err.Error())})
	case errors.Is(err, apperror.ErrForbidden):
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "You do not have permission to perform this action"})
	case errors.Is(err, apperror.ErrConflict):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: message(err, apperror.ErrConflict)})
	default:
		e.logger.Error(fallback, "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: fallback})
	}
}

func writeValidation(w http.ResponseWriter, details map[string]string) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: details})
}

// decode reads a JSON body into v. An empty body decodes to the zero value.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return false
	}
	return true
}

// pathID parses a UUID route parameter; a malformed id cannot name a row.
func pathID(w http.ResponseWriter, r *http.Request, name, entity string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: entity + " not found"})
		return uuid.Nil, false
	}
	return id, true
}

// message renders err for clients without the trailing sentinel text.
func message(err, sentinel error) string {
	return capitalize(strings.TrimSuffix(err.Error(), ": "+sentinel.Error()))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}
