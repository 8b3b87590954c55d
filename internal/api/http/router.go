// internal/api/http/router.go
package http

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/logging"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	"github.com/mind-engage/mindengage-quiz/internal/session"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

type Deps struct {
	DB       *sql.DB
	Quizzes  quiz.Store
	Results  ResultReader
	Sessions *session.Manager
	Users    *auth.UserRepo
	Events   *syncx.EventRepo
	Auth     *auth.AuthService
	Log      *slog.Logger

	CORSOrigins     []string
	EnableLocalAuth bool
	RequestTimeout  time.Duration
}

// NewRouter mounts the public and protected API. Protected routes run
// JWT → role from DB → RBAC.
func NewRouter(d Deps) http.Handler {
	log := d.Log
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logging.Middleware(log), middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := d.DB.PingContext(ctx); err != nil {
			writeMessage(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	// Plain request/response routes get a deadline; the websocket stream does not.
	r.Group(func(pub chi.Router) {
		pub.Use(middleware.Timeout(d.RequestTimeout))
		if d.EnableLocalAuth {
			pub.Post("/auth/signup", SignupHandler(d.Users, d.Auth, log))
			pub.Post("/auth/login", LoginHandler(d.Users, d.Auth, log))
		}
		pub.Get("/quizzes", ListQuizzesHandler(d.Quizzes, log))
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth), auth.AttachRoleFromDB(d.Users, log))

		pr.With(rbac.Require(rbac.PermSessionPlay)).
			Get("/sessions/{sessionID}/stream", StreamHandler(d.Sessions, d.CORSOrigins, log))

		pr.Group(func(pr chi.Router) {
			pr.Use(middleware.Timeout(d.RequestTimeout))

			pr.Get("/auth/check", CheckHandler(d.Users, log))

			// Quizzes
			pr.With(rbac.Require(rbac.PermQuizView)).
				Get("/quizzes/{quizID}", GetQuizHandler(d.Quizzes, log))
			pr.With(rbac.Require(rbac.PermQuizListAdmin)).
				Get("/admin/quizzes", ListQuizzesAdminHandler(d.Quizzes, log))
			pr.With(rbac.Require(rbac.PermQuizCreate)).
				Post("/quizzes", CreateQuizHandler(d.Quizzes, log))
			pr.With(rbac.Require(rbac.PermQuizEdit)).
				Put("/quizzes/{quizID}", UpdateQuizHandler(d.Quizzes, log))
			pr.With(rbac.Require(rbac.PermQuizDelete)).
				Delete("/quizzes/{quizID}", DeleteQuizHandler(d.Quizzes, log))

			// Sessions
			pr.With(rbac.Require(rbac.PermSessionStart)).
				Post("/sessions", StartSessionHandler(d.Sessions, log))
			play := pr.With(rbac.Require(rbac.PermSessionPlay))
			play.Get("/sessions/{sessionID}", GetSessionHandler(d.Sessions, log))
			play.Delete("/sessions/{sessionID}", AbandonHandler(d.Sessions, log))
			play.Post("/sessions/{sessionID}/answer", AnswerHandler(d.Sessions, log))
			play.Post("/sessions/{sessionID}/next", NextHandler(d.Sessions, log))
			play.Post("/sessions/{sessionID}/previous", PreviousHandler(d.Sessions, log))
			play.Post("/sessions/{sessionID}/submit", SubmitHandler(d.Sessions, log))

			// Results
			pr.With(rbac.Require(rbac.PermResultsOwn)).
				Get("/results", ListResultsHandler(d.Results, log))
			pr.Get("/results/stats/{quizID}", StatsHandler(d.Quizzes, d.Results, log))

			pr.With(rbac.Require(rbac.PermEventsView)).
				Get("/admin/events", EventsHandler(d.Events, log))
		})
	})
	return r
}
