// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/venturemuseum/museum-go/internal/middleware"
	"github.com/venturemuseum/museum-go/internal/model"
	"github.com/venturemuseum/museum-go/internal/service"
	"github.com/venturemuseum/museum-go/internal/store"
	"github.com/venturemuseum/museum-go/internal/util"
)

// UserHandler serves the superadmin user-management endpoints.
type UserHandler struct {
	queries *store.Queries
	audit   *service.AuditService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(db *sql.DB, audit *service.AuditService) *UserHandler {
	return &UserHandler{
		queries: store.New(db),
		audit:   audit,
	}
}

// List handles GET /api/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.queries.ListUsers(r.Context())
	if err != nil {
		slog.Error("listing users failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSONSuccess(w, map[string]any{"users": users})
}

// updateRoleRequest is the role change payload.
type updateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateRole handles PATCH /api/users/{id}/role. Superadmins cannot change
// their own role, so the system always keeps at least one superadmin.
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUser(r)
	if actor == nil {
		writeJSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := parseIDParam(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req updateRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !model.IsValidRole(req.Role) {
		writeJSONError(w, http.StatusBadRequest, "role must be user, admin or superadmin")
		return
	}

	if id == actor.ID {
		writeJSONError(w, http.StatusBadRequest, "cannot change your own role")
		return
	}

	ctx := r.Context()

	existing, err := h.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "user not found")
			return
		}
		slog.Error("role change lookup failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if existing.Role == req.Role {
		writeJSONSuccess(w, map[string]any{"user": existing})
		return
	}

	updated, err := h.queries.UpdateUserRole(ctx, store.UpdateUserRoleParams{
		Role:      req.Role,
		UpdatedAt: time.Now(),
		ID:        id,
	})
	if err != nil {
		slog.Error("role update failed", "user_id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.audit.Record(ctx, service.Entry{
		UserID:    &actor.ID,
		Action:    model.ActionUserRoleChanged,
		Message:   fmt.Sprintf("user %q role changed from %s to %s", updated.Name, existing.Role, updated.Role),
		IPAddress: util.ClientIP(r),
		UserAgent: r.UserAgent(),
		Metadata: map[string]any{
			"target_user_id": updated.ID,
			"old_role":       existing.Role,
			"new_role":       updated.Role,
		},
	})

	writeJSONSuccess(w, map[string]any{"user": updated})
}
