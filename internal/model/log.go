// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Log levels.
const (
	LogLevelInfo    = "info"
	LogLevelWarning = "warning"
	LogLevelError   = "error"
)

// Audit action labels. These are stable constants so log consumers can
// filter reliably; free-text labels are not written anywhere.
const (
	ActionUserSignedUp    = "user.signed_up"
	ActionUserVerified    = "user.verified"
	ActionUserSignedIn    = "user.signed_in"
	ActionUserSignedOut   = "user.signed_out"
	ActionUserUpdated     = "user.updated"
	ActionUserRoleChanged = "user.role_changed"
	ActionPasswordReset   = "user.password_reset"
	ActionEventCreated    = "event.created"
	ActionEventUpdated    = "event.updated"
	ActionEventDeleted    = "event.deleted"
	ActionEventApproved   = "event.approved"
	ActionEventRejected   = "event.rejected"
	ActionCommentCreated  = "comment.created"
	ActionSystem          = "system"
)

// Log is an append-only audit record. The store exposes create, list and
// purge only; no update path exists.
type Log struct {
	ID        int64          `json:"id"`
	UserID    sql.NullInt64  `json:"user_id,omitempty"`
	EventID   sql.NullInt64  `json:"event_id,omitempty"`
	Action    string         `json:"action"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Metadata  string         `json:"metadata"` // JSON string
	IPAddress string         `json:"ip_address,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
