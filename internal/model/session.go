// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// SessionLifetime is how long a session token stays valid. It matches the
// Max-Age of the session cookie so server-side and client-side expiry agree.
const SessionLifetime = 24 * time.Hour

// Session is an ephemeral credential mapping an opaque token to a user.
type Session struct {
	Token     string    `json:"-"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
