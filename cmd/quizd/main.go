package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	api "github.com/mind-engage/mindengage-quiz/internal/api/http"
	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/logging"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/results"
	"github.com/mind-engage/mindengage-quiz/internal/session"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

func main() {
	cfg := config.MustLoad()
	log := logging.New(cfg.Env)

	if err := run(cfg, log); err != nil {
		log.Error("quizd stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		return err
	}
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(openCtx, driver, cfg.DBDSN)
	cancel()
	if err != nil {
		return err
	}
	defer dbh.Close()

	events := syncx.NewEventRepo(dbh, cfg.SiteID)
	store := quiz.NewSQLStore(dbh, events)
	recorder := results.NewSQLRecorder(dbh, events)
	users := auth.NewUserRepo(dbh)

	// --- Admin bootstrap ---
	if cfg.AdminPassHash != "" {
		created, err := users.EnsureAdmin(ctx, cfg.AdminUser, cfg.AdminEmail, cfg.AdminPassHash)
		if err != nil {
			return err
		}
		if created {
			log.Info("admin account created", slog.String("username", cfg.AdminUser))
		}
	}

	mgr := session.NewManager(store, recorder, session.Options{
		TickInterval: cfg.SessionTick,
		Retention:    cfg.SessionRetention,
		Logger:       log,
	})

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewRouter(api.Deps{
			DB:              dbh,
			Quizzes:         store,
			Results:         recorder,
			Sessions:        mgr,
			Users:           users,
			Events:          events,
			Auth:            auth.NewAuthService(cfg.AuthHMACSecret, cfg.TokenTTL),
			Log:             log,
			CORSOrigins:     cfg.CORSOrigins(),
			EnableLocalAuth: cfg.EnableLocalAuth,
			RequestTimeout:  cfg.RequestTimeout,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mgr.Run(gctx) })
	g.Go(func() error {
		log.Info("listening",
			slog.String("addr", cfg.HTTPAddr),
			slog.String("mode", string(cfg.Mode)),
			slog.String("db", string(driver)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutCtx)
	})
	return g.Wait()
}
