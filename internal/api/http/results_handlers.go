// internal/api/http/results_handlers.go
package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	"github.com/mind-engage/mindengage-quiz/internal/results"
)

// ResultReader is the read side of the result store.
type ResultReader interface {
	ListResults(ctx context.Context, userID int64) ([]results.Result, error)
	Statistics(ctx context.Context, quizID int64) (results.Stats, error)
}

// ListResultsHandler returns the caller's own results.
func ListResultsHandler(rr ResultReader, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := viewer(w, r)
		if !ok {
			return
		}
		list, err := rr.ListResults(r.Context(), uid)
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// StatsHandler is open to the quiz creator and to roles holding results:stats.
// The answer key is listed next to the attempts so scores can be read against it.
func StatsHandler(store quiz.Store, rr ResultReader, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := viewer(w, r)
		if !ok {
			return
		}
		id, err := int64Param(r, "quizID")
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		q, err := store.GetQuiz(r.Context(), id)
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		if q.CreatedBy != uid && !rbac.Can(r.Context(), rbac.PermResultsStats) {
			writeMessage(w, http.StatusForbidden, "forbidden")
			return
		}
		st, err := rr.Statistics(r.Context(), id)
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"quiz":       q.StudentView(),
			"answer_key": grading.Keys(q.Questions),
			"stats":      st,
		})
	}
}
