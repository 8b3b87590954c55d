// Package apperr holds the error taxonomy shared by the quiz engine and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyQuiz    = errors.New("quiz has no questions")
	ErrInvalidState = errors.New("invalid session state")
	ErrConflict     = errors.New("already exists")
	ErrStorage      = errors.New("storage failure")
)

// Problem is one rejected field.
type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports malformed input. It is never retried.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+": "+p.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a problem and returns the receiver for chaining.
func (e *ValidationError) Add(field, msg string) *ValidationError {
	e.Problems = append(e.Problems, Problem{Field: field, Message: msg})
	return e
}

// OrNil returns nil when no problems were collected.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Problems) == 0 {
		return nil
	}
	return e
}

func Invalid(field, msg string) error {
	return (&ValidationError{}).Add(field, msg)
}

// Storage wraps a persistence error so callers can match ErrStorage.
func Storage(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrStorage, err))
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// HTTPStatus maps an engine error to a response status.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyQuiz):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the client-facing text for err: the matched sentinel's message,
// never the wrapped chain with its op names and ids.
func Public(err error) string {
	for _, target := range []error{ErrNotFound, ErrEmptyQuiz, ErrInvalidState, ErrConflict} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	if IsValidation(err) {
		return "validation failed"
	}
	return "internal error"
}
