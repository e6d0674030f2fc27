// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/venturemuseum/museum-go/internal/cache"
	"github.com/venturemuseum/museum-go/internal/model"
	"github.com/venturemuseum/museum-go/internal/store"
)

// Audit log listing limits.
const (
	defaultLogLimit = 100
	maxLogLimit     = 500
)

// Dashboard aggregations are cached briefly; counts may lag mutations by up
// to this long.
const statsCacheTTL = 30 * time.Second

// DashboardHandler serves the admin and superadmin dashboard aggregations.
type DashboardHandler struct {
	queries *store.Queries
	cache   cache.Cache
}

// NewDashboardHandler creates a new DashboardHandler. The cache may be nil.
func NewDashboardHandler(db *sql.DB, c cache.Cache) *DashboardHandler {
	return &DashboardHandler{
		queries: store.New(db),
		cache:   c,
	}
}

func (h *DashboardHandler) eventCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, 3)
	for _, status := range []string{
		model.EventStatusPending,
		model.EventStatusApproved,
		model.EventStatusRejected,
	} {
		n, err := h.queries.CountEventsByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, nil
}

// serveCached answers from the stats cache or computes and stores the
// aggregation.
func (h *DashboardHandler) serveCached(w http.ResponseWriter, r *http.Request,
	key string, compute func(ctx context.Context) (map[string]any, error)) {
	ctx := r.Context()

	if h.cache != nil {
		if data, err := h.cache.Get(ctx, key); err == nil {
			var stats map[string]any
			if err := json.Unmarshal(data, &stats); err == nil {
				writeJSONSuccess(w, stats)
				return
			}
			_ = h.cache.Delete(ctx, key)
		}
	}

	stats, err := compute(ctx)
	if err != nil {
		slog.Error("dashboard aggregation failed", "key", key, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if h.cache != nil {
		if data, err := json.Marshal(stats); err == nil {
			if err := h.cache.Set(ctx, key, data, statsCacheTTL); err != nil {
				slog.Warn("failed to cache dashboard stats", "key", key, "error", err)
			}
		}
	}

	writeJSONSuccess(w, stats)
}

// Admin handles GET /api/admin/dashboard: totals for users, events by
// status and comments.
func (h *DashboardHandler) Admin(w http.ResponseWriter, r *http.Request) {
	h.serveCached(w, r, "stats:admin", func(ctx context.Context) (map[string]any, error) {
		users, err := h.queries.CountUsers(ctx)
		if err != nil {
			return nil, err
		}
		events, err := h.eventCounts(ctx)
		if err != nil {
			return nil, err
		}
		comments, err := h.queries.CountComments(ctx)
		if err != nil {
			return nil, err
		}

		return map[string]any{
			"users":    users,
			"events":   events,
			"comments": comments,
		}, nil
	})
}

// Superadmin handles GET /api/superadmin/dashboard: the admin aggregation
// plus a per-role user breakdown.
func (h *DashboardHandler) Superadmin(w http.ResponseWriter, r *http.Request) {
	h.serveCached(w, r, "stats:superadmin", func(ctx context.Context) (map[string]any, error) {
		users, err := h.queries.CountUsers(ctx)
		if err != nil {
			return nil, err
		}

		roles := make(map[string]int64, 3)
		for _, role := range []string{model.RoleUser, model.RoleAdmin, model.RoleSuperadmin} {
			n, err := h.queries.CountUsersByRole(ctx, role)
			if err != nil {
				return nil, err
			}
			roles[role] = n
		}

		events, err := h.eventCounts(ctx)
		if err != nil {
			return nil, err
		}
		comments, err := h.queries.CountComments(ctx)
		if err != nil {
			return nil, err
		}

		return map[string]any{
			"users":    users,
			"roles":    roles,
			"events":   events,
			"comments": comments,
		}, nil
	})
}

// Logs handles GET /api/admin/logs with an optional ?limit= parameter.
// Never cached; the audit trail is always read fresh.
func (h *DashboardHandler) Logs(w http.ResponseWriter, r *http.Request) {
	limit := int64(defaultLogLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		if n > maxLogLimit {
			n = maxLogLimit
		}
		limit = n
	}

	logs, err := h.queries.ListRecentLogs(r.Context(), limit)
	if err != nil {
		slog.Error("listing logs failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSONSuccess(w, map[string]any{"logs": logs})
}
