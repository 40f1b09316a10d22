package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeBody reads a JSON body of at most maxBodyBytes. An empty body is
// accepted when allowEmpty is set and leaves dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	return err
}

// writeServiceError maps a service error onto the HTTP error taxonomy.
// Internal details are logged and never returned to the caller.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, op string, err error) {
	var ve *models.ValidationError
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "Entry not found or not authorized")
	default:
		log.ErrorContext(r.Context(), op+" failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Something went wrong")
	}
}
