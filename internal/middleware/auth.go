// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, rate limiting and request context handling.
package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/venturemuseum/museum-go/internal/cookie"
	"github.com/venturemuseum/museum-go/internal/model"
	"github.com/venturemuseum/museum-go/internal/session"
	"github.com/venturemuseum/museum-go/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyUser is the context key for the authenticated user.
const ContextKeyUser ContextKey = "user"

// SignInPath is where unauthenticated page requests are redirected.
const SignInPath = "/sign-in"

// gatedPrefixes are the page prefixes requiring a session cookie. The gate
// checks only cookie presence: token validity is established later by
// LoadUser, so a garbage cookie passes the gate but yields no user.
var gatedPrefixes = []string{"/dashboard", "/admin", "/superadmin", "/profile"}

// errorResponse is the JSON error envelope shared by all API responses.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// writeJSONError writes a JSON error response in the API envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorResponse{Success: false, Error: message})
}

// Gate creates middleware that redirects page requests lacking a session
// cookie away from protected prefixes. It deliberately performs no database
// work so every request stays cheap; authorization happens downstream.
func Gate() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isGatedPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			cookies := cookie.ParseCookies(r.Header.Get("Cookie"))
			if cookies[cookie.SessionCookieName] == "" {
				http.Redirect(w, r, SignInPath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isGatedPath reports whether a path falls under a protected prefix.
// Prefixes match on segment boundaries: /admin and /admin/logs are gated,
// /administrator is not.
func isGatedPath(path string) bool {
	for _, prefix := range gatedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// LoadUser creates middleware that resolves the session cookie to a user
// and stores it in the request context. Requests without a valid session
// simply continue without user context; enforcement is RequireRole's job.
func LoadUser(sessions *session.Manager, db *sql.DB) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookies := cookie.ParseCookies(r.Header.Get("Cookie"))
			token := cookies[cookie.SessionCookieName]
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := sessions.UserID(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := queries.GetUserByID(r.Context(), userID)
			if err != nil {
				// Session points at a deleted user; destroy it.
				_ = sessions.Destroy(r.Context(), token)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser retrieves the current user from the request context.
// Returns nil if no user is in context.
func GetUser(r *http.Request) *model.User {
	user, ok := r.Context().Value(ContextKeyUser).(model.User)
	if !ok {
		return nil
	}
	return &user
}

// GetUserID returns the current user's ID from context, or 0 if not found.
func GetUserID(r *http.Request) int64 {
	if user := GetUser(r); user != nil {
		return user.ID
	}
	return 0
}

// RequireAuth creates middleware that rejects requests without an
// authenticated user with a 401 JSON error.
func RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetUser(r) == nil {
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole creates middleware that requires a minimum user role.
// Roles are hierarchical: superadmin > admin > user. Unauthenticated
// requests get 401, insufficient roles get 403, always as JSON.
func RequireRole(minRole string) func(http.Handler) http.Handler {
	minLevel := model.RoleLevel(minRole)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			if model.RoleLevel(user.Role) < minLevel {
				slog.Warn("access denied",
					"status", http.StatusForbidden,
					"method", r.Method,
					"path", r.URL.Path,
					"user_id", user.ID,
					"user_role", user.Role,
					"required_role", minRole,
				)
				writeJSONError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin creates middleware that requires at least admin role.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireRole(model.RoleAdmin)
}

// RequireSuperadmin creates middleware that requires superadmin role.
func RequireSuperadmin() func(http.Handler) http.Handler {
	return RequireRole(model.RoleSuperadmin)
}
