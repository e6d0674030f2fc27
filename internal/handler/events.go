// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/venturemuseum/museum-go/internal/middleware"
	"github.com/venturemuseum/museum-go/internal/model"
	"github.com/venturemuseum/museum-go/internal/service"
)

// Event field limits.
const (
	maxTitleLength       = 200
	maxDescriptionLength = 20000
	maxLocationLength    = 200
	maxCommentLength     = 2000
)

// EventHandler serves the event workflow endpoints: submission, review,
// public listings and comments.
type EventHandler struct {
	events *service.EventService
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(events *service.EventService) *EventHandler {
	return &EventHandler{events: events}
}

// eventRequest is the create/update payload.
type eventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Location    string `json:"location"`
	Image       string `json:"image"`
}

func (req *eventRequest) validate() error {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Date = strings.TrimSpace(req.Date)
	req.Location = strings.TrimSpace(req.Location)

	switch {
	case req.Title == "" || len(req.Title) > maxTitleLength:
		return errors.New("title is required and must be at most 200 characters")
	case req.Description == "" || len(req.Description) > maxDescriptionLength:
		return errors.New("description is required and must be at most 20000 characters")
	case req.Date == "":
		return errors.New("date is required")
	case req.Location == "" || len(req.Location) > maxLocationLength:
		return errors.New("location is required and must be at most 200 characters")
	}
	return nil
}

func (req *eventRequest) input() service.EventInput {
	return service.EventInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		ImageData:   req.Image,
	}
}

// writeEventError maps service errors to HTTP status codes.
func writeEventError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		writeJSONError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, service.ErrInvalidTransition):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrEventNotApproved):
		writeJSONError(w, http.StatusConflict, "event is not approved")
	case errors.Is(err, service.ErrInvalidImage):
		writeJSONError(w, http.StatusBadRequest, "invalid event image")
	default:
		slog.Error("event operation failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

// Create handles POST /api/events. The stored status is always pending no
// matter what the client sends.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.events.Create(r.Context(), req.input(), requestActor(r))
	if err != nil {
		writeEventError(w, err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, map[string]any{"event": event})
}

// Get handles GET /api/events/{id}. Pending and rejected events are only
// visible to admins; everyone else sees 404, same as a missing event.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.events.Get(r.Context(), id)
	if err != nil {
		writeEventError(w, err)
		return
	}

	if !event.IsApproved() {
		user := middleware.GetUser(r)
		if user == nil || !user.IsAdmin() {
			writeJSONError(w, http.StatusNotFound, "event not found")
			return
		}
	}

	writeJSONSuccess(w, map[string]any{"event": event})
}

// Update handles PUT /api/events/{id}. The status field is untouched;
// review happens through the approve/reject endpoints.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.events.Update(r.Context(), id, req.input(), requestActor(r))
	if err != nil {
		writeEventError(w, err)
		return
	}

	writeJSONSuccess(w, map[string]any{"event": event})
}

// Delete handles DELETE /api/events/{id}.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.events.Delete(r.Context(), id, requestActor(r)); err != nil {
		writeEventError(w, err)
		return
	}

	writeJSONSuccess(w, nil)
}

// Approve handles PATCH /api/events/{id}/approve.
func (h *EventHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.events.Approve)
}

// Reject handles PATCH /api/events/{id}/reject.
func (h *EventHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.events.Reject)
}

func (h *EventHandler) review(w http.ResponseWriter, r *http.Request,
	transition func(ctx context.Context, id int64, actor service.Actor) (model.Event, error)) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := transition(r.Context(), id, requestActor(r))
	if err != nil {
		writeEventError(w, err)
		return
	}

	writeJSONSuccess(w, map[string]any{"event": event})
}

// ListPending handles GET /api/events/pending.
func (h *EventHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListPending(r.Context())
	if err != nil {
		writeEventError(w, err)
		return
	}
	writeJSONSuccess(w, map[string]any{"events": events})
}

// ListApproved handles GET /api/events/approved. This is the only public
// listing; pending and rejected events never appear here.
func (h *EventHandler) ListApproved(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListApproved(r.Context())
	if err != nil {
		writeEventError(w, err)
		return
	}
	writeJSONSuccess(w, map[string]any{"events": events})
}

// commentRequest is the add-comment payload.
type commentRequest struct {
	Body string `json:"body"`
}

// AddComment handles POST /api/events/{id}/comments. Commenting requires a
// verified account.
func (h *EventHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		writeJSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if !user.IsVerified {
		writeJSONError(w, http.StatusForbidden, "email verification required")
		return
	}

	id, err := parseIDParam(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" || len(req.Body) > maxCommentLength {
		writeJSONError(w, http.StatusBadRequest, "comment body is required and must be at most 2000 characters")
		return
	}

	comment, err := h.events.AddComment(r.Context(), id, req.Body, requestActor(r))
	if err != nil {
		writeEventError(w, err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, map[string]any{"comment": comment})
}

// ListComments handles GET /api/events/{id}/comments.
func (h *EventHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	comments, err := h.events.ListComments(r.Context(), id)
	if err != nil {
		writeEventError(w, err)
		return
	}

	writeJSONSuccess(w, map[string]any{"comments": comments})
}
