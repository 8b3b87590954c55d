// internal/api/http/respond.go
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/apperr"
	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
)

const maxBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Message string           `json:"message"`
	Errors  []apperr.Problem `json:"errors,omitempty"`
}

// writeError maps err onto a status code and a public message. The full chain
// only goes to the log.
func writeError(w http.ResponseWriter, log *slog.Logger, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	body := errorBody{Message: apperr.Public(err)}

	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		body.Errors = ve.Problems
	}
	level := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	log.LogAttrs(r.Context(), level, "request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
	writeJSON(w, status, body)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Message: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		return apperr.Invalid("body", "malformed JSON: "+err.Error())
	}
	return nil
}

func int64Param(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid(name, "must be a positive integer")
	}
	return id, nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}

// viewer returns the authenticated user id; JWTMiddleware guarantees a subject.
func viewer(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "unauthenticated")
	}
	return id, ok
}
