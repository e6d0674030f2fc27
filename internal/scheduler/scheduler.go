// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic maintenance jobs: expired session
// cleanup, audit log retention and GeoIP database reloads.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/venturemuseum/museum-go/internal/geoip"
	"github.com/venturemuseum/museum-go/internal/service"
	"github.com/venturemuseum/museum-go/internal/session"
)

// Scheduler handles periodic maintenance tasks.
type Scheduler struct {
	sessions      *session.Manager
	audit         *service.AuditService
	geo           *geoip.Lookup
	retentionDays int
	cron          *cron.Cron
	logger        *slog.Logger
}

// New creates a new scheduler instance. The GeoIP lookup may be nil.
func New(sessions *session.Manager, audit *service.AuditService, geo *geoip.Lookup,
	retentionDays int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		sessions:      sessions,
		audit:         audit,
		geo:           geo,
		retentionDays: retentionDays,
		cron:          cron.New(),
		logger:        logger,
	}
}

// Start registers the maintenance jobs and begins the cron loop:
// session purge hourly, log purge and GeoIP reload daily.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 * * * *", s.purgeSessions); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("30 3 * * *", s.purgeLogs); err != nil {
		return err
	}
	if s.geo != nil && s.geo.IsEnabled() {
		if _, err := s.cron.AddFunc("0 4 * * *", s.reloadGeoIP); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) purgeSessions() {
	n, err := s.sessions.PurgeExpired(context.Background())
	if err != nil {
		s.logger.Error("failed to purge expired sessions", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("purged expired sessions", "count", n)
	}
}

func (s *Scheduler) purgeLogs() {
	n, err := s.audit.PurgeOld(context.Background(), s.retentionDays)
	if err != nil {
		s.logger.Error("failed to purge old audit logs", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("purged old audit logs", "count", n, "retention_days", s.retentionDays)
	}
}

func (s *Scheduler) reloadGeoIP() {
	if err := s.geo.Reload(); err != nil {
		s.logger.Error("failed to reload GeoIP database", "error", err)
	}
}
