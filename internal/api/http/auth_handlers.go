// internal/api/http/auth_handlers.go
package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-quiz/internal/apperr"
	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct converts validator failures into an apperr.ValidationError.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) {
		return err
	}
	ve := &apperr.ValidationError{}
	for _, fe := range fes {
		var msg string
		switch fe.Tag() {
		case "required":
			msg = "is required"
		case "email":
			msg = "must be a valid email address"
		case "min":
			msg = fmt.Sprintf("must be at least %s characters", fe.Param())
		case "max":
			msg = fmt.Sprintf("must be at most %s characters", fe.Param())
		default:
			msg = "is invalid"
		}
		ve.Add(fe.Field(), msg)
	}
	return ve
}

type signupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token string    `json:"token"`
	User  auth.User `json:"user"`
}

func issue(authSvc *auth.AuthService, u auth.User) (tokenResponse, error) {
	tok, err := authSvc.IssueJWT(strconv.FormatInt(u.ID, 10), u.Role(), u.Username)
	if err != nil {
		return tokenResponse{}, fmt.Errorf("issue token: %w", err)
	}
	return tokenResponse{Token: tok, User: u}, nil
}

func SignupHandler(users *auth.UserRepo, authSvc *auth.AuthService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, log, r, err)
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		req.Email = strings.TrimSpace(req.Email)
		if err := validateStruct(req); err != nil {
			writeError(w, log, r, err)
			return
		}
		u, err := users.Create(r.Context(), req.Username, req.Email, req.Password)
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		resp, err := issue(authSvc, u)
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		log.Info("user signed up", slog.Int64("user_id", u.ID))
		writeJSON(w, http.StatusCreated, resp)
	}
}

func LoginHandler(users *auth.UserRepo, authSvc *auth.AuthService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, log, r, err)
			return
		}
		if err := validateStruct(req); err != nil {
			writeError(w, log, r, err)
			return
		}
		u, err := users.Authenticate(r.Context(), req.Email, req.Password)
		if errors.Is(err, auth.ErrBadCredentials) {
			writeMessage(w, http.StatusUnauthorized, err.Error())
			return
		}
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		resp, err := issue(authSvc, u)
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// CheckHandler reports the current user. Logout is client-side: tokens are
// stateless and simply discarded.
func CheckHandler(users *auth.UserRepo, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := viewer(w, r)
		if !ok {
			return
		}
		u, err := users.Get(r.Context(), uid)
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "user": u})
	}
}
