// internal/api/http/session_handlers.go
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/apperr"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/session"
)

type startRequest struct {
	QuizID int64 `json:"quiz_id"`
}

type answerRequest struct {
	Option quiz.Option `json:"option"`
}

func StartSessionHandler(mgr *session.Manager, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := viewer(w, r)
		if !ok {
			return
		}
		var req startRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, log, r, err)
			return
		}
		if req.QuizID <= 0 {
			writeError(w, log, r, apperr.Invalid("quiz_id", "is required"))
			return
		}
		snap, err := mgr.Start(r.Context(), uid, req.QuizID)
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, snap)
	}
}

func GetSessionHandler(mgr *session.Manager, log *slog.Logger) http.HandlerFunc {
	return sessionCommand(log, func(uid int64, id string) (session.Snapshot, error) {
		return mgr.Get(uid, id)
	})
}

func AnswerHandler(mgr *session.Manager, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, log, r, err)
			return
		}
		sessionCommand(log, func(uid int64, id string) (session.Snapshot, error) {
			return mgr.Answer(uid, id, req.Option)
		})(w, r)
	}
}

func NextHandler(mgr *session.Manager, log *slog.Logger) http.HandlerFunc {
	return sessionCommand(log, func(uid int64, id string) (session.Snapshot, error) {
		return mgr.Next(uid, id)
	})
}

func PreviousHandler(mgr *session.Manager, log *slog.Logger) http.HandlerFunc {
	return sessionCommand(log, func(uid int64, id string) (session.Snapshot, error) {
		return mgr.Previous(uid, id)
	})
}

// SubmitHandler is idempotent: resubmitting returns the original outcome.
func SubmitHandler(mgr *session.Manager, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := viewer(w, r)
		if !ok {
			return
		}
		out, err := mgr.Submit(r.Context(), uid, chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func AbandonHandler(mgr *session.Manager, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := viewer(w, r)
		if !ok {
			return
		}
		if err := mgr.Abandon(uid, chi.URLParam(r, "sessionID")); err != nil {
			writeError(w, log, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func sessionCommand(log *slog.Logger, fn func(uid int64, id string) (session.Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := viewer(w, r)
		if !ok {
			return
		}
		snap, err := fn(uid, chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}
