// Package results persists finished attempts and aggregates them per quiz.
package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/apperr"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/session"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

// RecentLimit caps Stats.RecentAttempts.
const RecentLimit = 10

type Result struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	QuizID         int64     `json:"quiz_id"`
	QuizTitle      string    `json:"quiz_title,omitempty"`
	Username       string    `json:"username,omitempty"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	TimeTaken      int       `json:"time_taken"`
	CompletedAt    time.Time `json:"completed_at"`
}

type Stats struct {
	QuizID         int64    `json:"quiz_id"`
	AttemptCount   int      `json:"attempt_count"`
	AverageScore   float64  `json:"average_score"`
	MinScore       int      `json:"min_score"`
	MaxScore       int      `json:"max_score"`
	AverageTime    float64  `json:"average_time"`
	RecentAttempts []Result `json:"recent_attempts"`
}

type SQLRecorder struct {
	db     *sql.DB
	events *syncx.EventRepo
	now    func() time.Time
}

func NewSQLRecorder(h *sql.DB, events *syncx.EventRepo) *SQLRecorder {
	if events == nil {
		events = syncx.NewEventRepo(h, "")
	}
	return &SQLRecorder{db: h, events: events, now: time.Now}
}

func validateRecord(rec session.Record) error {
	ve := &apperr.ValidationError{}
	if rec.QuizID <= 0 {
		ve.Add("quiz_id", "is required")
	}
	if rec.TotalQuestions < 1 {
		ve.Add("total_questions", "must be at least 1")
	}
	if rec.Score < 0 || rec.Score > rec.TotalQuestions {
		ve.Add("score", fmt.Sprintf("must be between 0 and %d", rec.TotalQuestions))
	}
	if rec.TimeTaken < 0 {
		ve.Add("time_taken", "must not be negative")
	}
	return ve.OrNil()
}

// RecordResult inserts exactly one result row for rec.
func (r *SQLRecorder) RecordResult(ctx context.Context, userID int64, rec session.Record) (int64, error) {
	const op = "results.SQLRecorder.RecordResult"

	if err := validateRecord(rec); err != nil {
		return 0, err
	}
	completed := rec.CompletedAt
	if completed.IsZero() {
		completed = r.now()
	}

	var id int64
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM quizzes WHERE id=$1`, rec.QuizID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.ErrNotFound
			}
			return err
		}
		err := tx.QueryRowContext(ctx,
			`INSERT INTO results (user_id,quiz_id,score,total_questions,time_taken,completed_at)
			 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
			userID, rec.QuizID, rec.Score, rec.TotalQuestions, rec.TimeTaken, completed.Unix()).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert result: %w", err)
		}
		return r.events.Append(ctx, tx, syncx.TypeResultRecorded, strconv.FormatInt(id, 10), map[string]any{
			"user_id": userID, "quiz_id": rec.QuizID, "score": rec.Score,
			"total_questions": rec.TotalQuestions, "auto_submitted": rec.AutoSubmitted,
		})
	})
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, apperr.ErrNotFound):
		return 0, fmt.Errorf("%s: quiz %d: %w", op, rec.QuizID, err)
	default:
		return 0, apperr.Storage(op, err)
	}
}

// ListResults returns the user's results with quiz titles, most recent first.
func (r *SQLRecorder) ListResults(ctx context.Context, userID int64) ([]Result, error) {
	const op = "results.SQLRecorder.ListResults"

	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.user_id, r.quiz_id, q.title, '', r.score, r.total_questions, r.time_taken, r.completed_at
		FROM results r
		JOIN quizzes q ON q.id = r.quiz_id
		WHERE r.user_id = $1
		ORDER BY r.completed_at DESC, r.id DESC`, userID)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	out, err := scanResults(rows)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	return out, nil
}

// Statistics aggregates every result of a quiz. With no attempts all numbers
// are zero and RecentAttempts is empty.
func (r *SQLRecorder) Statistics(ctx context.Context, quizID int64) (Stats, error) {
	const op = "results.SQLRecorder.Statistics"

	st := Stats{QuizID: quizID, RecentAttempts: []Result{}}
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(CAST(AVG(score) AS DOUBLE PRECISION), 0),
		       COALESCE(MIN(score), 0),
		       COALESCE(MAX(score), 0),
		       COALESCE(CAST(AVG(time_taken) AS DOUBLE PRECISION), 0)
		FROM results WHERE quiz_id = $1`, quizID).
		Scan(&st.AttemptCount, &st.AverageScore, &st.MinScore, &st.MaxScore, &st.AverageTime)
	if err != nil {
		return Stats{}, apperr.Storage(op, err)
	}
	if st.AttemptCount == 0 {
		return st, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.user_id, r.quiz_id, q.title, COALESCE(u.username, ''),
		       r.score, r.total_questions, r.time_taken, r.completed_at
		FROM results r
		JOIN quizzes q ON q.id = r.quiz_id
		LEFT JOIN users u ON u.id = r.user_id
		WHERE r.quiz_id = $1
		ORDER BY r.completed_at DESC, r.id DESC
		LIMIT $2`, quizID, RecentLimit)
	if err != nil {
		return Stats{}, apperr.Storage(op, err)
	}
	st.RecentAttempts, err = scanResults(rows)
	if err != nil {
		return Stats{}, apperr.Storage(op, err)
	}
	return st, nil
}

func scanResults(rows *sql.Rows) ([]Result, error) {
	defer rows.Close()
	out := []Result{}
	for rows.Next() {
		var res Result
		var completed int64
		if err := rows.Scan(&res.ID, &res.UserID, &res.QuizID, &res.QuizTitle, &res.Username,
			&res.Score, &res.TotalQuestions, &res.TimeTaken, &completed); err != nil {
			return nil, err
		}
		res.CompletedAt = time.Unix(completed, 0).UTC()
		out = append(out, res)
	}
	return out, rows.Err()
}
