// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/venturemuseum/museum-go/internal/auth"
	"github.com/venturemuseum/museum-go/internal/cache"
	"github.com/venturemuseum/museum-go/internal/cookie"
	"github.com/venturemuseum/museum-go/internal/handler"
	"github.com/venturemuseum/museum-go/internal/imaging"
	"github.com/venturemuseum/museum-go/internal/middleware"
	"github.com/venturemuseum/museum-go/internal/model"
	"github.com/venturemuseum/museum-go/internal/service"
	"github.com/venturemuseum/museum-go/internal/session"
	"github.com/venturemuseum/museum-go/internal/store"
	"github.com/venturemuseum/museum-go/internal/testutil"
	"github.com/venturemuseum/museum-go/internal/version"
)

// recordingMailer captures outgoing codes instead of sending mail.
type recordingMailer struct {
	lastVerifyCode string
	lastResetCode  string
	lastRecipient  string
}

func (m *recordingMailer) SendVerificationCode(_ context.Context, to, _, code string) error {
	m.lastRecipient = to
	m.lastVerifyCode = code
	return nil
}

func (m *recordingMailer) SendPasswordResetCode(_ context.Context, to, _, code string) error {
	m.lastRecipient = to
	m.lastResetCode = code
	return nil
}

// testEnv wires the full API router against a temporary database.
type testEnv struct {
	db       *sql.DB
	queries  *store.Queries
	sessions *session.Manager
	mail     *recordingMailer
	router   chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	queries := store.New(db)
	sessions := session.New(db)
	mail := &recordingMailer{}

	memCache, err := cache.New(cache.Options{DefaultTTL: time.Minute})
	if err != nil {
		t.Fatalf("creating cache: %v", err)
	}
	t.Cleanup(func() { _ = memCache.Close() })

	audit := service.NewAuditService(db, nil)
	events := service.NewEventService(db, audit, memCache, imaging.NewProcessor(t.TempDir()))
	protection := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit: 1000,
		IPBurst:     1000,
	})

	authHandler := handler.NewAuthHandler(db, sessions, mail, audit, protection, false)
	eventHandler := handler.NewEventHandler(events)
	userHandler := handler.NewUserHandler(db, audit)
	dashHandler := handler.NewDashboardHandler(db, memCache)
	healthHandler := handler.NewHealthHandler(db, t.TempDir(), version.Info{Version: "test"})

	r := chi.NewRouter()
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

	return &testEnv{
		db:       db,
		queries:  queries,
		sessions: sessions,
		mail:     mail,
		router:   r,
	}
}

// createUser inserts a verified user directly and returns it with a live
// session token.
func (env *testEnv) createUser(t *testing.T, name, email, role string) (model.User, string) {
	t.Helper()

	hash, err := auth.HashPassword("password123")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	now := time.Now()
	user, err := env.queries.CreateUser(context.Background(), store.CreateUserParams{
		Name:         name,
		Email:        email,
		City:         "Lisbon",
		Gender:       model.GenderFemale,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}
	if err := env.queries.MarkUserVerified(context.Background(), user.ID); err != nil {
		t.Fatalf("verifying user: %v", err)
	}

	token, err := env.sessions.Create(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}

	return user, token
}

// request performs an API request with an optional JSON body and session
// token, returning the recorded response.
func (env *testEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}

	r := httptest.NewRequest(method, path, &buf)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.Header.Set("Cookie", cookie.SessionCookieName+"="+token)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, r)
	return w
}

// decodeBody parses a JSON response body into a generic map.
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
	return body
}

// submitEvent creates a pending event through the API and returns its id.
func (env *testEnv) submitEvent(t *testing.T, token, title string) int64 {
	t.Helper()

	w := env.request(t, http.MethodPost, "/api/events", token, map[string]any{
		"title":       title,
		"description": "An evening of exhibits",
		"date":        "2026-09-15",
		"location":    "Main Hall",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("creating event: status = %d, body = %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	event, ok := body["event"].(map[string]any)
	if !ok {
		t.Fatalf("response missing event: %v", body)
	}
	return int64(event["id"].(float64))
}
