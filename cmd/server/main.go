package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"finance-tracker/internal/auth"
	"finance-tracker/internal/config"
	"finance-tracker/internal/handlers"
	"finance-tracker/internal/logging"
	"finance-tracker/internal/session"
	"finance-tracker/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}
	logger := logging.Setup(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	defer db.Close()

	if err := seedAdmin(context.Background(), db, cfg.AdminUser, cfg.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("create admin user")
	}

	h := handlers.NewHandlers(db, session.NewStore(cfg.GuestTTL), handlers.Options{
		TemplateDir:     cfg.TemplateDir,
		SecureCookie:    cfg.SecureCookie,
		Policy:          cfg.Policy(),
		SessionDuration: cfg.SessionDuration,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        handlers.RequestLogger(logger)(setupRouter(h, cfg.StaticDir)),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("server shutdown")
		}
	}()

	log.Info().
		Str("port", cfg.Port).
		Str("db", cfg.DBPath).
		Str("session_policy", string(cfg.Policy())).
		Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("server stopped")
}

// setupRouter registers every route. Application routes run inside the
// session middleware and pages go through h.Page so the session policy sees
// full page loads. Static files and the health check carry no session.
func setupRouter(h *handlers.Handlers, staticDir string) http.Handler {
	app := http.NewServeMux()

	app.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/entries/new", http.StatusFound)
	})

	app.Handle("GET /entries/new", h.Page(h.NewEntryForm))
	app.HandleFunc("POST /entries", h.CreateEntry)

	app.Handle("GET /transactions", h.Page(h.ListTransactions))
	app.HandleFunc("GET /transactions/export.csv", h.ExportCSV)
	app.HandleFunc("POST /transactions/clear", h.ClearData)

	app.Handle("GET /dashboard", h.Page(h.Dashboard))
	app.HandleFunc("GET /dashboard/report.pdf", h.DashboardPDF)

	app.Handle("GET /login", h.Page(h.LoginForm))
	app.HandleFunc("POST /login", h.Login)
	app.HandleFunc("POST /logout", h.Logout)
	app.Handle("GET /signup", h.Page(h.SignupForm))
	app.HandleFunc("POST /signup", h.Signup)

	mux := http.NewServeMux()
	fs := http.FileServer(http.Dir(staticDir))
	mux.Handle("GET /static/", http.StripPrefix("/static/", fs))
	mux.HandleFunc("GET /healthz", h.Health)
	mux.Handle("/", h.SessionMiddleware(app))

	return mux
}

// seedAdmin creates the configured admin account on an empty database.
func seedAdmin(ctx context.Context, db *storage.DB, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	count, err := db.UserCount(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	user, err := db.CreateUser(ctx, username, username, "", hash)
	if err != nil {
		return err
	}
	log.Info().Str("username", user.Username).Msg("admin user created")
	return nil
}
