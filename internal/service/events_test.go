// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/venturemuseum/museum-go/internal/cache"
	"github.com/venturemuseum/museum-go/internal/imaging"
	"github.com/venturemuseum/museum-go/internal/model"
	"github.com/venturemuseum/museum-go/internal/service"
	"github.com/venturemuseum/museum-go/internal/store"
	"github.com/venturemuseum/museum-go/internal/testutil"
)

type fixture struct {
	queries *store.Queries
	events  *service.EventService
	admin   model.User
	super   model.User
}

func newFixture(t *testing.T) (*fixture, func()) {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	q := store.New(db)

	c := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	audit := service.NewAuditService(db, nil)
	events := service.NewEventService(db, audit, c, imaging.NewProcessor(t.TempDir()))

	f := &fixture{
		queries: q,
		events:  events,
		admin:   mustCreateUser(t, q, "admin", "admin@example.com", model.RoleAdmin),
		super:   mustCreateUser(t, q, "super", "super@example.com", model.RoleSuperadmin),
	}
	return f, func() {
		_ = c.Close()
		cleanup()
	}
}

func mustCreateUser(t *testing.T, q *store.Queries, name, email, role string) model.User {
	t.Helper()

	now := time.Now()
	user, err := q.CreateUser(context.Background(), store.CreateUserParams{
		Name:         name,
		Email:        email,
		Gender:       model.GenderMale,
		PasswordHash: "x",
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

func testInput() service.EventInput {
	return service.EventInput{
		Title:       "Opening Night",
		Description: "A **grand** opening.",
		Date:        "2026-10-01",
		Location:    "Main Hall",
	}
}

func TestCreateStartsPending(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	ctx := context.Background()

	event, err := f.events.Create(ctx, testInput(), service.Actor{UserID: f.admin.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if event.Status != model.EventStatusPending {
		t.Errorf("status = %q, want pending", event.Status)
	}
	if event.Slug != "opening-night" {
		t.Errorf("slug = %q, want opening-night", event.Slug)
	}
	if !strings.Contains(event.DescriptionHTML, "<strong>grand</strong>") {
		t.Errorf("description_html = %q, want rendered markdown", event.DescriptionHTML)
	}

	// The mutation and its audit entry commit together.
	logs, err := f.queries.ListRecentLogs(ctx, 5)
	if err != nil {
		t.Fatalf("ListRecentLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != model.ActionEventCreated {
		t.Errorf("logs = %+v, want single event.created entry", logs)
	}
}

func TestDescriptionHTMLSanitized(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()

	input := testInput()
	input.Description = `Hello <script>alert("xss")</script> world`

	event, err := f.events.Create(context.Background(), input, service.Actor{UserID: f.admin.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if strings.Contains(event.DescriptionHTML, "<script>") {
		t.Errorf("description_html = %q, script tag not stripped", event.DescriptionHTML)
	}
}

func TestApproveRejectTransitions(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	ctx := context.Background()
	actor := service.Actor{UserID: f.super.ID}

	event, err := f.events.Create(ctx, testInput(), service.Actor{UserID: f.admin.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	approved, err := f.events.Approve(ctx, event.ID, actor)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != model.EventStatusApproved {
		t.Errorf("status = %q, want approved", approved.Status)
	}
	if !approved.ReviewedBy.Valid || approved.ReviewedBy.Int64 != f.super.ID {
		t.Errorf("reviewed_by = %v, want %d", approved.ReviewedBy, f.super.ID)
	}

	// Terminal states cannot transition again.
	if _, err := f.events.Approve(ctx, event.ID, actor); !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("second Approve err = %v, want ErrInvalidTransition", err)
	}
	if _, err := f.events.Reject(ctx, event.ID, actor); !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("Reject after Approve err = %v, want ErrInvalidTransition", err)
	}

	rejected, err := f.events.Create(ctx, testInput(), service.Actor{UserID: f.admin.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := f.events.Reject(ctx, rejected.ID, actor)
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if got.Status != model.EventStatusRejected {
		t.Errorf("status = %q, want rejected", got.Status)
	}
}

func TestApproveMissingEvent(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()

	if _, err := f.events.Approve(context.Background(), 9999, service.Actor{UserID: f.super.ID}); !errors.Is(err, service.ErrEventNotFound) {
		t.Errorf("Approve(missing) err = %v, want ErrEventNotFound", err)
	}
}

func TestListApprovedUsesCacheAndInvalidates(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	ctx := context.Background()

	event, err := f.events.Create(ctx, testInput(), service.Actor{UserID: f.admin.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	listed, err := f.events.ListApproved(ctx)
	if err != nil {
		t.Fatalf("ListApproved: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("approved before review = %d entries, want 0", len(listed))
	}

	// Approval must invalidate the cached empty listing.
	if _, err := f.events.Approve(ctx, event.ID, service.Actor{UserID: f.super.ID}); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	listed, err = f.events.ListApproved(ctx)
	if err != nil {
		t.Fatalf("ListApproved: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("approved after review = %d entries, want 1", len(listed))
	}
}

func TestUpdateAndDelete(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	ctx := context.Background()
	actor := service.Actor{UserID: f.admin.ID}

	event, err := f.events.Create(ctx, testInput(), actor)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	input := testInput()
	input.Title = "Closing Night"
	updated, err := f.events.Update(ctx, event.ID, input, actor)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Closing Night" || updated.Slug != "closing-night" {
		t.Errorf("updated = %q/%q, want Closing Night/closing-night", updated.Title, updated.Slug)
	}
	if updated.Status != model.EventStatusPending {
		t.Errorf("Update changed status to %q", updated.Status)
	}

	if err := f.events.Delete(ctx, event.ID, actor); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.events.Get(ctx, event.ID); !errors.Is(err, service.ErrEventNotFound) {
		t.Errorf("Get after Delete err = %v, want ErrEventNotFound", err)
	}
	if err := f.events.Delete(ctx, event.ID, actor); !errors.Is(err, service.ErrEventNotFound) {
		t.Errorf("second Delete err = %v, want ErrEventNotFound", err)
	}
}

// pngDataURL encodes a small generated PNG as a base64 data URL.
func pngDataURL(t *testing.T) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(x * 30), B: uint8(y * 30), A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestEventImageVariants(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	ctx := context.Background()
	actor := service.Actor{UserID: f.admin.ID}

	// External URLs are stored verbatim.
	input := testInput()
	input.ImageData = "https://example.com/poster.jpg"
	event, err := f.events.Create(ctx, input, actor)
	if err != nil {
		t.Fatalf("Create with URL image: %v", err)
	}
	if event.Image != "https://example.com/poster.jpg" {
		t.Errorf("image = %q, want the submitted URL", event.Image)
	}

	// Data URLs are decoded and stored locally.
	input = testInput()
	input.ImageData = pngDataURL(t)
	event, err = f.events.Create(ctx, input, actor)
	if err != nil {
		t.Fatalf("Create with data URL image: %v", err)
	}
	if event.Image == "" || strings.HasPrefix(event.Image, "data:") {
		t.Errorf("image = %q, want a stored path", event.Image)
	}

	// Anything else is rejected.
	input = testInput()
	input.ImageData = "ftp://example.com/poster.jpg"
	if _, err := f.events.Create(ctx, input, actor); !errors.Is(err, service.ErrInvalidImage) {
		t.Errorf("Create with ftp image err = %v, want ErrInvalidImage", err)
	}
}

func TestCommentsRequireApprovedEvent(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	ctx := context.Background()

	event, err := f.events.Create(ctx, testInput(), service.Actor{UserID: f.admin.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.events.AddComment(ctx, event.ID, "early bird", service.Actor{UserID: f.admin.ID}); !errors.Is(err, service.ErrEventNotApproved) {
		t.Errorf("AddComment(pending) err = %v, want ErrEventNotApproved", err)
	}

	if _, err := f.events.Approve(ctx, event.ID, service.Actor{UserID: f.super.ID}); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	comment, err := f.events.AddComment(ctx, event.ID, "see you there", service.Actor{UserID: f.admin.ID})
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if comment.Body != "see you there" {
		t.Errorf("comment body = %q", comment.Body)
	}

	comments, err := f.events.ListComments(ctx, event.ID)
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(comments) != 1 || comments[0].UserName != "admin" {
		t.Errorf("comments = %+v, want one by admin", comments)
	}

	if _, err := f.events.ListComments(ctx, 9999); !errors.Is(err, service.ErrEventNotFound) {
		t.Errorf("ListComments(missing) err = %v, want ErrEventNotFound", err)
	}
}
