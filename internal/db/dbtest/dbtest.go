// Package dbtest opens throwaway in-memory SQLite databases for package tests.
package dbtest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/db"
)

// Open returns a migrated in-memory database private to the calling test.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	h, err := db.Open(ctx, db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h
}

// SeedUser inserts a user row and returns its id.
func SeedUser(t testing.TB, h *sql.DB, username string, admin bool) int64 {
	t.Helper()
	var id int64
	err := h.QueryRowContext(context.Background(),
		`INSERT INTO users (username,email,password_hash,is_admin,created_at)
		 VALUES ($1,$2,'x',$3,$4) RETURNING id`,
		username, username+"@example.test", admin, time.Now().Unix()).Scan(&id)
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return id
}
