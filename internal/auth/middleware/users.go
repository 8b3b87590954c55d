package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-quiz/internal/apperr"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

const bcryptCost = 12

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) Role() string {
	if u.IsAdmin {
		return rbac.RoleAdmin
	}
	return rbac.RoleUser
}

var ErrBadCredentials = errors.New("invalid email or password")

type UserRepo struct {
	db   *sql.DB
	cost int
}

func NewUserRepo(h *sql.DB) *UserRepo { return &UserRepo{db: h, cost: bcryptCost} }

// WithCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (r *UserRepo) WithCost(cost int) *UserRepo { r.cost = cost; return r }

// Create registers a non-admin user. Duplicate email or username is ErrConflict.
func (r *UserRepo) Create(ctx context.Context, username, email, password string) (User, error) {
	const op = "auth.UserRepo.Create"

	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM users WHERE email=$1 OR username=$2`, email, username).Scan(&exists)
	if err == nil {
		return User{}, fmt.Errorf("%s: user with this email or username: %w", op, apperr.ErrConflict)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, apperr.Storage(op, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	u := User{Username: username, Email: email, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO users (username,email,password_hash,is_admin,created_at)
		 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		u.Username, u.Email, string(hash), false, u.CreatedAt.Unix()).Scan(&u.ID)
	if err != nil {
		return User{}, apperr.Storage(op, err)
	}
	return u, nil
}

// Authenticate checks an email/password pair.
func (r *UserRepo) Authenticate(ctx context.Context, email, password string) (User, error) {
	const op = "auth.UserRepo.Authenticate"

	u, hash, err := r.scanOne(ctx, `WHERE email=$1`, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, apperr.ErrNotFound) {
		return User{}, ErrBadCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrBadCredentials
	}
	return u, nil
}

func (r *UserRepo) Get(ctx context.Context, id int64) (User, error) {
	u, _, err := r.scanOne(ctx, `WHERE id=$1`, id)
	if err != nil {
		return User{}, fmt.Errorf("auth.UserRepo.Get: user %d: %w", id, err)
	}
	return u, nil
}

// EnsureAdmin creates the bootstrap admin from a bcrypt hash when no user with
// that username exists yet. Existing accounts are left alone.
func (r *UserRepo) EnsureAdmin(ctx context.Context, username, email, passHash string) (bool, error) {
	const op = "auth.UserRepo.EnsureAdmin"

	if _, err := bcrypt.Cost([]byte(passHash)); err != nil {
		return false, fmt.Errorf("%s: admin hash is not bcrypt: %w", op, err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username,email,password_hash,is_admin,created_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT DO NOTHING`,
		username, strings.ToLower(email), passHash, true, time.Now().Unix())
	if err != nil {
		return false, apperr.Storage(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Storage(op, err)
	}
	return n > 0, nil
}

func (r *UserRepo) scanOne(ctx context.Context, where string, arg any) (User, string, error) {
	var (
		u       User
		hash    string
		created int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, is_admin, created_at FROM users `+where, arg).
		Scan(&u.ID, &u.Username, &u.Email, &hash, &u.IsAdmin, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, "", apperr.ErrNotFound
	}
	if err != nil {
		return User{}, "", apperr.Storage("auth.UserRepo.scanOne", err)
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	return u, hash, nil
}
