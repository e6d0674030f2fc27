// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/venturemuseum/museum-go/internal/cookie"
)

func TestEventCreateRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	_, userToken := env.createUser(t, "visitor", "visitor@example.com", "user")

	body := map[string]any{
		"title":       "Night at the Museum",
		"description": "desc",
		"date":        "2026-10-01",
		"location":    "Atrium",
	}

	w := env.request(t, http.MethodPost, "/api/events", "", body)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous create status = %d, want 401", w.Code)
	}

	w = env.request(t, http.MethodPost, "/api/events", userToken, body)
	if w.Code != http.StatusForbidden {
		t.Errorf("user create status = %d, want 403", w.Code)
	}
}

func TestEventCreateStartsPendingDespiteClientStatus(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.createUser(t, "admin", "admin@example.com", "admin")

	w := env.request(t, http.MethodPost, "/api/events", adminToken, map[string]any{
		"title":       "Fair",
		"description": "d",
		"date":        "2026-01-01",
		"location":    "Plaza",
		"status":      "approved",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	event := body["event"].(map[string]any)
	if event["status"] != "pending" {
		t.Errorf("stored status = %v, want pending", event["status"])
	}
	if event["slug"] != "fair" {
		t.Errorf("slug = %v, want fair", event["slug"])
	}
}

func TestEventImageURL(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.createUser(t, "admin", "admin@example.com", "admin")

	w := env.request(t, http.MethodPost, "/api/events", adminToken, map[string]any{
		"title":       "Poster Night",
		"description": "d",
		"date":        "2026-11-01",
		"location":    "Gallery",
		"image":       "https://example.com/poster.jpg",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	event := decodeBody(t, w)["event"].(map[string]any)
	if event["image"] != "https://example.com/poster.jpg" {
		t.Errorf("image = %v, want the submitted URL", event["image"])
	}

	w = env.request(t, http.MethodPost, "/api/events", adminToken, map[string]any{
		"title":       "Broken Poster",
		"description": "d",
		"date":        "2026-11-01",
		"location":    "Gallery",
		"image":       "ftp://example.com/poster.jpg",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unsupported image scheme status = %d, want 400", w.Code)
	}
}

func TestEventValidation(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.createUser(t, "admin", "admin@example.com", "admin")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing title", map[string]any{
			"description": "d", "date": "2026-01-01", "location": "Plaza"}},
		{"missing description", map[string]any{
			"title": "t", "date": "2026-01-01", "location": "Plaza"}},
		{"missing date", map[string]any{
			"title": "t", "description": "d", "location": "Plaza"}},
		{"missing location", map[string]any{
			"title": "t", "description": "d", "date": "2026-01-01"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.request(t, http.MethodPost, "/api/events", adminToken, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestApprovalWorkflow(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.createUser(t, "admin", "admin@example.com", "admin")
	_, superToken := env.createUser(t, "super", "super@example.com", "superadmin")

	id := env.submitEvent(t, adminToken, "Gala Opening")
	approvePath := fmt.Sprintf("/api/events/%d/approve", id)

	// Admins cannot approve.
	w := env.request(t, http.MethodPatch, approvePath, adminToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("admin approve status = %d, want 403", w.Code)
	}

	// The pending listing shows it, the public one does not.
	w = env.request(t, http.MethodGet, "/api/events/pending", adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("pending list status = %d", w.Code)
	}
	w = env.request(t, http.MethodGet, "/api/events/approved", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("approved list status = %d", w.Code)
	}
	if body := decodeBody(t, w); body["events"] != nil {
		t.Errorf("approved list before approval = %v, want empty", body["events"])
	}

	w = env.request(t, http.MethodPatch, approvePath, superToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("approve status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["event"].(map[string]any)["status"] != "approved" {
		t.Errorf("status after approve = %v", body["event"])
	}

	// Approved is terminal.
	w = env.request(t, http.MethodPatch, approvePath, superToken, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("re-approve status = %d, want 409", w.Code)
	}
	w = env.request(t, http.MethodPatch, fmt.Sprintf("/api/events/%d/reject", id), superToken, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("reject after approve status = %d, want 409", w.Code)
	}

	// Now it appears publicly.
	w = env.request(t, http.MethodGet, "/api/events/approved", "", nil)
	events, ok := decodeBody(t, w)["events"].([]any)
	if !ok || len(events) != 1 {
		t.Fatalf("approved list after approval = %s", w.Body.String())
	}
}

func TestRejectWorkflow(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.createUser(t, "admin", "admin@example.com", "admin")
	_, superToken := env.createUser(t, "super", "super@example.com", "superadmin")

	id := env.submitEvent(t, adminToken, "Questionable Exhibit")

	w := env.request(t, http.MethodPatch, fmt.Sprintf("/api/events/%d/reject", id), superToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reject status = %d, body = %s", w.Code, w.Body.String())
	}
	if decodeBody(t, w)["event"].(map[string]any)["status"] != "rejected" {
		t.Error("event not rejected")
	}

	// Rejected is terminal too.
	w = env.request(t, http.MethodPatch, fmt.Sprintf("/api/events/%d/approve", id), superToken, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("approve after reject status = %d, want 409", w.Code)
	}
}

func TestEventNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, superToken := env.createUser(t, "super", "super@example.com", "superadmin")

	w := env.request(t, http.MethodGet, "/api/events/9999", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get status = %d, want 404", w.Code)
	}

	w = env.request(t, http.MethodPatch, "/api/events/9999/approve", superToken, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("approve status = %d, want 404", w.Code)
	}

	w = env.request(t, http.MethodDelete, "/api/events/9999", superToken, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("delete status = %d, want 404", w.Code)
	}

	w = env.request(t, http.MethodGet, "/api/events/not-a-number", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed id status = %d, want 400", w.Code)
	}
}

func TestEventUpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.createUser(t, "admin", "admin@example.com", "admin")

	id := env.submitEvent(t, adminToken, "Draft Event")

	w := env.request(t, http.MethodPut, fmt.Sprintf("/api/events/%d", id), adminToken, map[string]any{
		"title":       "Final Event",
		"description": "updated",
		"date":        "2026-12-01",
		"location":    "West Wing",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	event := decodeBody(t, w)["event"].(map[string]any)
	if event["title"] != "Final Event" || event["status"] != "pending" {
		t.Errorf("updated event = %v", event)
	}

	w = env.request(t, http.MethodDelete, fmt.Sprintf("/api/events/%d", id), adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}

	w = env.request(t, http.MethodGet, fmt.Sprintf("/api/events/%d", id), "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}
}

func TestComments(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.createUser(t, "admin", "admin@example.com", "admin")
	_, superToken := env.createUser(t, "super", "super@example.com", "superadmin")
	_, userToken := env.createUser(t, "visitor", "visitor@example.com", "user")

	id := env.submitEvent(t, adminToken, "Open Evening")
	commentsPath := fmt.Sprintf("/api/events/%d/comments", id)

	// Comments are only allowed on approved events.
	w := env.request(t, http.MethodPost, commentsPath, userToken, map[string]any{"body": "early"})
	if w.Code != http.StatusConflict {
		t.Errorf("comment on pending status = %d, want 409", w.Code)
	}

	w = env.request(t, http.MethodPatch, fmt.Sprintf("/api/events/%d/approve", id), superToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("approve status = %d", w.Code)
	}

	w = env.request(t, http.MethodPost, commentsPath, "", map[string]any{"body": "anon"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous comment status = %d, want 401", w.Code)
	}

	// Accounts that never verified their email cannot comment.
	w = env.request(t, http.MethodPost, "/api/auth/sign-up", "", map[string]any{
		"name": "newbie", "email": "newbie@example.com", "city": "Faro",
		"gender": "male", "password": "password123", "confirm": "password123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("sign-up status = %d", w.Code)
	}
	w = env.request(t, http.MethodPost, "/api/auth/sign-in", "", map[string]any{
		"email": "newbie@example.com", "password": "password123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("sign-in status = %d", w.Code)
	}
	var unverifiedToken string
	for _, c := range w.Result().Cookies() {
		if c.Name == cookie.SessionCookieName {
			unverifiedToken = c.Value
		}
	}
	w = env.request(t, http.MethodPost, commentsPath, unverifiedToken, map[string]any{"body": "hi"})
	if w.Code != http.StatusForbidden {
		t.Errorf("unverified comment status = %d, want 403", w.Code)
	}

	w = env.request(t, http.MethodPost, commentsPath, userToken, map[string]any{"body": ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty comment status = %d, want 400", w.Code)
	}

	w = env.request(t, http.MethodPost, commentsPath, userToken, map[string]any{"body": "lovely exhibits"})
	if w.Code != http.StatusCreated {
		t.Fatalf("comment status = %d, body = %s", w.Code, w.Body.String())
	}

	w = env.request(t, http.MethodGet, commentsPath, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list comments status = %d", w.Code)
	}
	comments := decodeBody(t, w)["comments"].([]any)
	if len(comments) != 1 {
		t.Fatalf("comments = %v, want 1", comments)
	}
	c := comments[0].(map[string]any)
	if c["body"] != "lovely exhibits" || c["user_name"] != "visitor" {
		t.Errorf("comment = %v", c)
	}
}
