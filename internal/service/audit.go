// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides business logic: the museum event workflow and
// audit trail recording.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mileusna/useragent"

	"github.com/venturemuseum/museum-go/internal/geoip"
	"github.com/venturemuseum/museum-go/internal/model"
	"github.com/venturemuseum/museum-go/internal/store"
)

// AuditService records audit log entries. Every state change in the system
// passes through here so the admin log view has a complete trail.
type AuditService struct {
	queries *store.Queries
	geo     *geoip.Lookup
}

// NewAuditService creates a new AuditService. The GeoIP lookup may be nil.
func NewAuditService(db *sql.DB, geo *geoip.Lookup) *AuditService {
	return &AuditService{
		queries: store.New(db),
		geo:     geo,
	}
}

// Entry describes one audit log record before enrichment.
type Entry struct {
	UserID    *int64
	EventID   *int64
	Action    string
	Level     string
	Message   string
	IPAddress string
	UserAgent string
	Metadata  map[string]any
}

// Record writes an audit entry, enriching metadata with browser/OS parsed
// from the User-Agent header and the request country when GeoIP is enabled.
// Recording failures are logged but never fail the caller.
func (s *AuditService) Record(ctx context.Context, e Entry) {
	if err := s.RecordTx(ctx, s.queries, e); err != nil {
		slog.Error("failed to record audit entry", "action", e.Action, "error", err)
	}
}

// RecordTx writes an audit entry through the given queries handle, allowing
// callers to couple the entry to a transaction.
func (s *AuditService) RecordTx(ctx context.Context, q *store.Queries, e Entry) error {
	if e.Level == "" {
		e.Level = model.LogLevelInfo
	}

	metadata := e.Metadata
	if metadata == nil {
		metadata = make(map[string]any)
	}

	if e.UserAgent != "" {
		ua := useragent.Parse(e.UserAgent)
		if ua.Name != "" {
			metadata["browser"] = ua.Name
		}
		if ua.OS != "" {
			metadata["os"] = ua.OS
		}
		if ua.Bot {
			metadata["bot"] = true
		}
	}

	if s.geo != nil && e.IPAddress != "" {
		if country := s.geo.LookupCountry(e.IPAddress); country != "" {
			metadata["country"] = country
		}
	}

	metadataJSON := "{}"
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(b)
		}
	}

	var userID, eventID sql.NullInt64
	if e.UserID != nil {
		userID = sql.NullInt64{Int64: *e.UserID, Valid: true}
	}
	if e.EventID != nil {
		eventID = sql.NullInt64{Int64: *e.EventID, Valid: true}
	}

	_, err := q.CreateLog(ctx, store.CreateLogParams{
		UserID:    userID,
		EventID:   eventID,
		Action:    e.Action,
		Level:     e.Level,
		Message:   e.Message,
		Metadata:  metadataJSON,
		IPAddress: e.IPAddress,
		CreatedAt: time.Now(),
	})
	return err
}

// PurgeOld removes audit entries older than the retention window.
func (s *AuditService) PurgeOld(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return s.queries.DeleteOldLogs(ctx, cutoff)
}
