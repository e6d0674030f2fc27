// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Event lifecycle statuses.
const (
	EventStatusPending  = "pending"
	EventStatusApproved = "approved"
	EventStatusRejected = "rejected"
)

// Event represents a museum event submitted for publication.
type Event struct {
	ID              int64         `json:"id"`
	Title           string        `json:"title"`
	Slug            string        `json:"slug"`
	Description     string        `json:"description"`
	DescriptionHTML string        `json:"description_html,omitempty"`
	Date            string        `json:"date"`
	Location        string        `json:"location"`
	Image           string        `json:"image,omitempty"`
	Status          string        `json:"status"`
	CreatedBy       int64         `json:"created_by"`
	ReviewedBy      sql.NullInt64 `json:"-"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// IsApproved returns true if the event is publicly visible.
func (e *Event) IsApproved() bool {
	return e.Status == EventStatusApproved
}

// IsValidEventStatus reports whether status is one of the known statuses.
func IsValidEventStatus(status string) bool {
	return status == EventStatusPending || status == EventStatusApproved || status == EventStatusRejected
}

// CanTransitionEvent reports whether an event may move from one status to
// another. Approval and rejection are only reachable from pending; approved
// and rejected are terminal.
func CanTransitionEvent(from, to string) bool {
	if from != EventStatusPending {
		return false
	}
	return to == EventStatusApproved || to == EventStatusRejected
}
