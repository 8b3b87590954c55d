// internal/api/http/quiz_handlers.go
package http

import (
	"log/slog"
	"net/http"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// ListQuizzesHandler is public: quiz summaries without questions.
func ListQuizzesHandler(store quiz.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListQuizzes(r.Context())
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func ListQuizzesAdminHandler(store quiz.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListQuizzesAdmin(r.Context())
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GetQuizHandler hides the answer key from callers who cannot edit quizzes.
func GetQuizHandler(store quiz.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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
		if !rbac.Can(r.Context(), rbac.PermQuizEdit) {
			q = q.StudentView()
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func CreateQuizHandler(store quiz.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := viewer(w, r)
		if !ok {
			return
		}
		var in quiz.QuizInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, log, r, err)
			return
		}
		in.CreatedBy = uid
		id, err := store.CreateQuiz(r.Context(), in)
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		log.Info("quiz created", slog.Int64("quiz_id", id), slog.Int64("user_id", uid))
		writeJSON(w, http.StatusCreated, map[string]any{"id": id, "message": "Quiz created successfully"})
	}
}

func UpdateQuizHandler(store quiz.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := int64Param(r, "quizID")
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		var in quiz.QuizInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, log, r, err)
			return
		}
		if err := store.ReplaceQuiz(r.Context(), id, in); err != nil {
			writeError(w, log, r, err)
			return
		}
		log.Info("quiz replaced", slog.Int64("quiz_id", id))
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "message": "Quiz updated successfully"})
	}
}

func DeleteQuizHandler(store quiz.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := int64Param(r, "quizID")
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		if err := store.DeleteQuiz(r.Context(), id); err != nil {
			writeError(w, log, r, err)
			return
		}
		log.Info("quiz deleted", slog.Int64("quiz_id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}
