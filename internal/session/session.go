// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session manages server-side sessions backed by the sessions
// table. Tokens are opaque random hex strings; the browser holds only the
// token, all state lives in the database.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/venturemuseum/museum-go/internal/auth"
	"github.com/venturemuseum/museum-go/internal/model"
	"github.com/venturemuseum/museum-go/internal/store"
)

// ErrNotFound is returned when a session token does not resolve to a live
// session. Expired sessions are reported as not found.
var ErrNotFound = errors.New("session not found")

// Manager creates, resolves and destroys sessions.
type Manager struct {
	queries *store.Queries
}

// New creates a session manager backed by the given database.
func New(db *sql.DB) *Manager {
	return &Manager{queries: store.New(db)}
}

// Create generates a fresh token and persists a session for the user.
func (m *Manager) Create(ctx context.Context, userID int64) (string, error) {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}

	now := time.Now()
	if err := m.queries.CreateSession(ctx, store.CreateSessionParams{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(model.SessionLifetime),
	}); err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}

	return token, nil
}

// Find resolves a token to its session. Returns ErrNotFound for unknown,
// malformed or expired tokens; an expired session is destroyed on sight.
func (m *Manager) Find(ctx context.Context, token string) (model.Session, error) {
	if !auth.IsValidSessionToken(token) {
		return model.Session{}, ErrNotFound
	}

	sess, err := m.queries.GetSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Session{}, ErrNotFound
		}
		return model.Session{}, fmt.Errorf("looking up session: %w", err)
	}

	if sess.Expired(time.Now()) {
		_ = m.queries.DeleteSessionByToken(ctx, token)
		return model.Session{}, ErrNotFound
	}

	return sess, nil
}

// UserID resolves a token to the owning user's ID.
func (m *Manager) UserID(ctx context.Context, token string) (int64, error) {
	sess, err := m.Find(ctx, token)
	if err != nil {
		return 0, err
	}
	return sess.UserID, nil
}

// Destroy removes a session. Destroying an unknown token is a no-op, which
// keeps sign-out idempotent.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.queries.DeleteSessionByToken(ctx, token)
}

// DestroyAll removes every session belonging to a user. Used after a
// password reset so stolen tokens stop working.
func (m *Manager) DestroyAll(ctx context.Context, userID int64) error {
	return m.queries.DeleteSessionsByUserID(ctx, userID)
}

// PurgeExpired removes all expired sessions and returns the number deleted.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.queries.DeleteExpiredSessions(ctx, time.Now())
}
