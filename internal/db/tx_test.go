package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/db/dbtest"
)

func countQuizzes(t *testing.T, h *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, h.QueryRow(`SELECT COUNT(*) FROM quizzes`).Scan(&n))
	return n
}

func insertQuiz(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO quizzes (title,description,time_limit,created_by,created_at) VALUES ('t','',1,1,0)`)
	return err
}

func TestWithTxCommits(t *testing.T) {
	h := dbtest.Open(t)
	ctx := context.Background()

	err := db.WithTx(ctx, h, func(tx *sql.Tx) error { return insertQuiz(ctx, tx) })
	require.NoError(t, err)
	assert.Equal(t, 1, countQuizzes(t, h))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	h := dbtest.Open(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTx(ctx, h, func(tx *sql.Tx) error {
		if err := insertQuiz(ctx, tx); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countQuizzes(t, h))

	// the single pooled connection must be free again
	require.NoError(t, db.WithTx(ctx, h, func(tx *sql.Tx) error { return insertQuiz(ctx, tx) }))
	assert.Equal(t, 1, countQuizzes(t, h))
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	h := dbtest.Open(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = db.WithTx(ctx, h, func(tx *sql.Tx) error {
			_ = insertQuiz(ctx, tx)
			panic("handler bug")
		})
	})
	assert.Equal(t, 0, countQuizzes(t, h))
}

func TestParseDriver(t *testing.T) {
	d, err := db.ParseDriver("pgx")
	require.NoError(t, err)
	assert.Equal(t, db.DriverPostgres, d)

	d, err = db.ParseDriver("")
	require.NoError(t, err)
	assert.Equal(t, db.DriverSQLite, d)

	_, err = db.ParseDriver("oracle")
	assert.Error(t, err)
}
