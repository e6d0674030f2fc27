// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command museum runs the Venture Museum web application: a JSON API for
// event submission and review, session-cookie authentication and the
// admin/superadmin dashboards.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/venturemuseum/museum-go/internal/cache"
	"github.com/venturemuseum/museum-go/internal/config"
	"github.com/venturemuseum/museum-go/internal/geoip"
	"github.com/venturemuseum/museum-go/internal/handler"
	"github.com/venturemuseum/museum-go/internal/imaging"
	"github.com/venturemuseum/museum-go/internal/logging"
	"github.com/venturemuseum/museum-go/internal/mailer"
	"github.com/venturemuseum/museum-go/internal/middleware"
	"github.com/venturemuseum/museum-go/internal/scheduler"
	"github.com/venturemuseum/museum-go/internal/service"
	"github.com/venturemuseum/museum-go/internal/session"
	"github.com/venturemuseum/museum-go/internal/store"
	"github.com/venturemuseum/museum-go/internal/version"
)

// Build-time version information injected via ldflags.
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Venture Museum\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MUSEUM_SESSION_SECRET      Session/CSRF key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MUSEUM_DB_PATH             SQLite database path (default: ./data/museum.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MUSEUM_SERVER_PORT         Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MUSEUM_ENV                 Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MUSEUM_SMTP_HOST           SMTP relay for outgoing mail (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MUSEUM_REDIS_URL           Redis URL for distributed caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MUSEUM_GEOIP_DB_PATH       GeoLite2-Country.mmdb path (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MUSEUM_DO_SEED             Seed the default superadmin account (default: false)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("museum %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the audit log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewAuditLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("audit log integration enabled", "min_level", "warn")

	ctx := context.Background()
	if cfg.DoSeed {
		if err := store.Seed(ctx, db); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}

	cacheStore, err := cache.New(cache.Options{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: time.Duration(cfg.CacheTTL) * time.Second,
		MaxSize:    cfg.CacheMaxSize,
	})
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() {
		if err := cacheStore.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()
	slog.Info("cache initialized", "redis", cfg.UseRedisCache())

	var geo *geoip.Lookup
	if cfg.GeoIPEnabled() {
		geo = geoip.NewLookup()
		if err := geo.Init(cfg.GeoIPDBPath); err != nil {
			// Country enrichment is optional; run without it.
			slog.Warn("GeoIP database unavailable", "path", cfg.GeoIPDBPath, "error", err)
			geo = nil
		} else {
			defer func() { _ = geo.Close() }()
		}
	}

	var mail mailer.Mailer
	if cfg.SMTPEnabled() {
		mail = mailer.NewSMTP(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		slog.Info("SMTP mailer configured", "host", cfg.SMTPHost)
	} else {
		mail = mailer.NewLog()
		slog.Info("SMTP not configured, outgoing mail will be logged")
	}

	sessions := session.New(db)
	audit := service.NewAuditService(db, geo)
	images := imaging.NewProcessor(cfg.UploadsDir)
	events := service.NewEventService(db, audit, cacheStore, images)

	maintenance := scheduler.New(sessions, audit, geo, cfg.LogRetentionDays, logger)
	if err := maintenance.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer maintenance.Stop()

	protection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())

	authHandler := handler.NewAuthHandler(db, sessions, mail, audit, protection, cfg.IsProduction())
	eventHandler := handler.NewEventHandler(events)
	userHandler := handler.NewUserHandler(db, audit)
	dashHandler := handler.NewDashboardHandler(db, cacheStore)
	healthHandler := handler.NewHealthHandler(db, cfg.UploadsDir, versionInfo)

	r := newRouter(cfg, db, sessions, protection,
		authHandler, eventHandler, userHandler, dashHandler, healthHandler)

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// newRouter builds the middleware stack and the full route tree.
func newRouter(cfg *config.Config, db *sql.DB, sessions *session.Manager,
	protection *middleware.LoginProtection,
	authHandler *handler.AuthHandler, eventHandler *handler.EventHandler,
	userHandler *handler.UserHandler, dashHandler *handler.DashboardHandler,
	healthHandler *handler.HealthHandler) chi.Router {

	rateLimiter := middleware.NewGlobalRateLimiter(20, 40)
	csrfConfig := middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret)[:config.MinSessionSecretLength], cfg.IsDevelopment())

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(rateLimiter.Middleware())
	r.Use(middleware.CSRF(csrfConfig))
	r.Use(middleware.Gate())
	r.Use(middleware.LoadUser(sessions, db))

	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/sign-up", authHandler.SignUp)
			r.With(protection.Middleware()).Post("/sign-in", authHandler.SignIn)
			r.Post("/sign-out", authHandler.SignOut)
			r.Post("/verify-code", authHandler.VerifyCode)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth())
				r.Get("/me", authHandler.Me)
				r.Patch("/profile", authHandler.UpdateProfile)
			})
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/approved", eventHandler.ListApproved)
			r.Get("/{id}", eventHandler.Get)
			r.Get("/{id}/comments", eventHandler.ListComments)
			r.With(middleware.RequireAuth()).Post("/{id}/comments", eventHandler.AddComment)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin())
				r.Get("/pending", eventHandler.ListPending)
				r.Post("/", eventHandler.Create)
				r.Put("/{id}", eventHandler.Update)
				r.Delete("/{id}", eventHandler.Delete)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireSuperadmin())
				r.Patch("/{id}/approve", eventHandler.Approve)
				r.Patch("/{id}/reject", eventHandler.Reject)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin())
			r.Get("/dashboard", dashHandler.Admin)
			r.Get("/logs", dashHandler.Logs)

			// User management stays under /admin but needs the top role.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireSuperadmin())
				r.Get("/users", userHandler.List)
				r.Patch("/users/{id}/role", userHandler.UpdateRole)
			})
		})

		r.Route("/superadmin", func(r chi.Router) {
			r.Use(middleware.RequireSuperadmin())
			r.Get("/dashboard", dashHandler.Superadmin)
		})
	})

	// Stored event images
	uploadsDir := http.Dir(cfg.UploadsDir)
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(uploadsDir)))

	return r
}
