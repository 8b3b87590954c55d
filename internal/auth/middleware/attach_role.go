// internal/auth/middleware/attach_role.go
package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mind-engage/mindengage-quiz/internal/apperr"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// AttachRoleFromDB replaces the role claimed in the token with the one stored
// for the user, so revoked admins lose access before their token expires.
// Tokens for users that no longer exist are rejected.
func AttachRoleFromDB(users *UserRepo, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id, ok := UserIDFromContext(ctx)
			if !ok {
				deny(w, http.StatusUnauthorized, "bad subject")
				return
			}
			u, err := users.Get(ctx, id)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, u.Role())))
			case errors.Is(err, apperr.ErrNotFound):
				deny(w, http.StatusUnauthorized, "user not found")
			default:
				log.Error("role lookup failed", slog.Int64("user_id", id), slog.String("error", err.Error()))
				deny(w, http.StatusInternalServerError, "server error")
			}
		})
	}
}
