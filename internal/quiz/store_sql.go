package quiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/apperr"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

type SQLStore struct {
	db     *sql.DB
	events *syncx.EventRepo
	now    func() time.Time
}

func NewSQLStore(h *sql.DB, events *syncx.EventRepo) *SQLStore {
	if events == nil {
		events = syncx.NewEventRepo(h, "")
	}
	return &SQLStore{db: h, events: events, now: time.Now}
}

type quizEvent struct {
	Title         string `json:"title"`
	TimeLimit     int    `json:"time_limit"`
	QuestionCount int    `json:"question_count"`
	CreatedBy     int64  `json:"created_by,omitempty"`
}

func (s *SQLStore) CreateQuiz(ctx context.Context, in QuizInput) (int64, error) {
	const op = "quiz.SQLStore.CreateQuiz"

	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO quizzes (title,description,time_limit,created_by,created_at)
			 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
			in.Title, in.Description, in.TimeLimit, in.CreatedBy, s.now().Unix()).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert quiz: %w", err)
		}
		if err := insertQuestions(ctx, tx, id, in.Questions); err != nil {
			return err
		}
		return s.events.Append(ctx, tx, syncx.TypeQuizCreated, strconv.FormatInt(id, 10), quizEvent{
			Title: in.Title, TimeLimit: in.TimeLimit, QuestionCount: len(in.Questions), CreatedBy: in.CreatedBy,
		})
	})
	if err != nil {
		return 0, apperr.Storage(op, err)
	}
	return id, nil
}

// ReplaceQuiz overwrites metadata and swaps the whole question set. Questions
// are never merged; the old rows are deleted and the new list inserted.
func (s *SQLStore) ReplaceQuiz(ctx context.Context, id int64, in QuizInput) error {
	const op = "quiz.SQLStore.ReplaceQuiz"

	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return err
	}

	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE quizzes SET title=$1, description=$2, time_limit=$3 WHERE id=$4`,
			in.Title, in.Description, in.TimeLimit, id)
		if err != nil {
			return fmt.Errorf("update quiz: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return apperr.ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE quiz_id=$1`, id); err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		if err := insertQuestions(ctx, tx, id, in.Questions); err != nil {
			return err
		}
		return s.events.Append(ctx, tx, syncx.TypeQuizReplaced, strconv.FormatInt(id, 10), quizEvent{
			Title: in.Title, TimeLimit: in.TimeLimit, QuestionCount: len(in.Questions),
		})
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperr.ErrNotFound):
		return fmt.Errorf("%s: quiz %d: %w", op, id, err)
	default:
		return apperr.Storage(op, err)
	}
}

// DeleteQuiz removes the quiz with its questions and results. A missing quiz is
// not an error.
func (s *SQLStore) DeleteQuiz(ctx context.Context, id int64) error {
	const op = "quiz.SQLStore.DeleteQuiz"

	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE quiz_id=$1`, id); err != nil {
			return fmt.Errorf("delete results: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE quiz_id=$1`, id); err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
		if err != nil {
			return fmt.Errorf("delete quiz: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil || n == 0 {
			return err
		}
		return s.events.Append(ctx, tx, syncx.TypeQuizDeleted, strconv.FormatInt(id, 10), nil)
	})
	if err != nil {
		return apperr.Storage(op, err)
	}
	return nil
}

// GetQuiz reads the quiz and its questions in one statement so the question
// set always comes from a single committed version.
func (s *SQLStore) GetQuiz(ctx context.Context, id int64) (Quiz, error) {
	const op = "quiz.SQLStore.GetQuiz"

	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.title, q.description, q.time_limit, q.created_by, q.created_at,
		       COALESCE(u.username, ''),
		       qs.id, qs.question_text, qs.option_a, qs.option_b, qs.option_c, qs.option_d, qs.correct_answer
		FROM quizzes q
		LEFT JOIN users u ON u.id = q.created_by
		LEFT JOIN questions qs ON qs.quiz_id = q.id
		WHERE q.id = $1
		ORDER BY qs.position ASC, qs.id ASC`, id)
	if err != nil {
		return Quiz{}, apperr.Storage(op, err)
	}
	defer rows.Close()

	var (
		q     Quiz
		found bool
	)
	for rows.Next() {
		var (
			createdAt                    int64
			qid                          sql.NullInt64
			text, oa, ob, oc, od, answer sql.NullString
		)
		if err := rows.Scan(&q.ID, &q.Title, &q.Description, &q.TimeLimit, &q.CreatedBy, &createdAt,
			&q.CreatorName, &qid, &text, &oa, &ob, &oc, &od, &answer); err != nil {
			return Quiz{}, apperr.Storage(op, err)
		}
		found = true
		q.CreatedAt = time.Unix(createdAt, 0).UTC()
		if !qid.Valid {
			continue
		}
		q.Questions = append(q.Questions, Question{
			ID: qid.Int64, QuizID: q.ID, Text: text.String,
			OptionA: oa.String, OptionB: ob.String, OptionC: oc.String, OptionD: od.String,
			CorrectAnswer: Option(answer.String),
		})
	}
	if err := rows.Err(); err != nil {
		return Quiz{}, apperr.Storage(op, err)
	}
	if !found {
		return Quiz{}, fmt.Errorf("%s: quiz %d: %w", op, id, apperr.ErrNotFound)
	}
	return q, nil
}

// ListQuizzes returns metadata only, newest first.
func (s *SQLStore) ListQuizzes(ctx context.Context) ([]Quiz, error) {
	return s.list(ctx, "quiz.SQLStore.ListQuizzes", false)
}

// ListQuizzesAdmin is ListQuizzes plus per-quiz question counts.
func (s *SQLStore) ListQuizzesAdmin(ctx context.Context) ([]Quiz, error) {
	return s.list(ctx, "quiz.SQLStore.ListQuizzesAdmin", true)
}

func (s *SQLStore) list(ctx context.Context, op string, withCount bool) ([]Quiz, error) {
	countCol := "0"
	if withCount {
		countCol = "(SELECT COUNT(*) FROM questions qs WHERE qs.quiz_id = q.id)"
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.title, q.description, q.time_limit, q.created_by, q.created_at,
		       COALESCE(u.username, ''), `+countCol+`
		FROM quizzes q
		LEFT JOIN users u ON u.id = q.created_by
		ORDER BY q.created_at DESC, q.id DESC`)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	defer rows.Close()

	out := []Quiz{}
	for rows.Next() {
		var q Quiz
		var createdAt int64
		if err := rows.Scan(&q.ID, &q.Title, &q.Description, &q.TimeLimit, &q.CreatedBy, &createdAt,
			&q.CreatorName, &q.QuestionCount); err != nil {
			return nil, apperr.Storage(op, err)
		}
		q.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(op, err)
	}
	return out, nil
}

func insertQuestions(ctx context.Context, tx *sql.Tx, quizID int64, qs []QuestionInput) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO questions
		 (quiz_id, position, question_text, option_a, option_b, option_c, option_d, correct_answer)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`)
	if err != nil {
		return fmt.Errorf("prepare question insert: %w", err)
	}
	defer stmt.Close()

	for i, q := range qs {
		if _, err := stmt.ExecContext(ctx, quizID, i, q.Text,
			q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectAnswer); err != nil {
			return fmt.Errorf("insert question %d: %w", i, err)
		}
	}
	return nil
}
