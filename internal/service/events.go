// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/venturemuseum/museum-go/internal/cache"
	"github.com/venturemuseum/museum-go/internal/imaging"
	"github.com/venturemuseum/museum-go/internal/model"
	"github.com/venturemuseum/museum-go/internal/store"
	"github.com/venturemuseum/museum-go/internal/util"
)

// Sentinel errors mapped to HTTP status codes by the handlers.
var (
	ErrEventNotFound     = errors.New("event not found")
	ErrInvalidTransition = errors.New("invalid event status transition")
	ErrEventNotApproved  = errors.New("event is not approved")
	ErrInvalidImage      = errors.New("invalid event image")
)

// approvedEventsCacheKey caches the public approved-events listing.
const approvedEventsCacheKey = "events:approved"

// EventService implements the museum event workflow: submission, review,
// publication and comments. Mutations and their audit entries commit in a
// single transaction.
type EventService struct {
	db      *sql.DB
	queries *store.Queries
	audit   *AuditService
	cache   cache.Cache
	images  *imaging.Processor

	markdown  goldmark.Markdown
	sanitizer *bluemonday.Policy
}

// NewEventService creates a new EventService. The cache and image processor
// may be nil; caching and image ingestion degrade gracefully.
func NewEventService(db *sql.DB, audit *AuditService, c cache.Cache, images *imaging.Processor) *EventService {
	return &EventService{
		db:        db,
		queries:   store.New(db),
		audit:     audit,
		cache:     c,
		images:    images,
		markdown:  goldmark.New(),
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// EventInput holds the submitted fields of an event.
type EventInput struct {
	Title       string
	Description string
	Date        string
	Location    string
	// ImageData is optional: a base64 data URL to store locally, or an
	// http(s) URL referencing an external image.
	ImageData string
}

// Actor identifies who performed an operation, for auditing.
type Actor struct {
	UserID    int64
	IPAddress string
	UserAgent string
}

// renderDescription converts markdown to sanitized HTML.
func (s *EventService) renderDescription(description string) (string, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(description), &buf); err != nil {
		return "", fmt.Errorf("rendering description: %w", err)
	}
	return s.sanitizer.Sanitize(buf.String()), nil
}

// processImage resolves a submitted image value. Data URLs are decoded and
// stored under the uploads directory; http(s) URLs are kept verbatim as
// external references. Returns "" when no image was submitted.
func (s *EventService) processImage(imageData string) (string, error) {
	if imageData == "" {
		return "", nil
	}
	if isExternalImage(imageData) {
		return imageData, nil
	}
	if !strings.HasPrefix(imageData, "data:") {
		return "", fmt.Errorf("%w: expected a data URL or an http(s) URL", ErrInvalidImage)
	}
	if s.images == nil {
		return "", nil
	}
	result, err := s.images.SaveDataURL(imageData)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return result.Path, nil
}

// isExternalImage reports whether an event image is an external URL rather
// than a stored upload.
func isExternalImage(image string) bool {
	return strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://")
}

// Create submits a new event. New events always start pending regardless of
// who submits them.
func (s *EventService) Create(ctx context.Context, input EventInput, actor Actor) (model.Event, error) {
	html, err := s.renderDescription(input.Description)
	if err != nil {
		return model.Event{}, err
	}

	imagePath, err := s.processImage(input.ImageData)
	if err != nil {
		return model.Event{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Event{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	qtx := s.queries.WithTx(tx)

	now := time.Now()
	event, err := qtx.CreateEvent(ctx, store.CreateEventParams{
		Title:           input.Title,
		Slug:            util.Slugify(input.Title),
		Description:     input.Description,
		DescriptionHTML: html,
		Date:            input.Date,
		Location:        input.Location,
		Image:           imagePath,
		Status:          model.EventStatusPending,
		CreatedBy:       actor.UserID,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return model.Event{}, fmt.Errorf("creating event: %w", err)
	}

	if err := s.audit.RecordTx(ctx, qtx, Entry{
		UserID:    &actor.UserID,
		EventID:   &event.ID,
		Action:    model.ActionEventCreated,
		Message:   fmt.Sprintf("event %q submitted", event.Title),
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	}); err != nil {
		return model.Event{}, fmt.Errorf("recording audit entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Event{}, fmt.Errorf("committing transaction: %w", err)
	}

	return event, nil
}

// Get fetches an event by ID.
func (s *EventService) Get(ctx context.Context, id int64) (model.Event, error) {
	event, err := s.queries.GetEventByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, ErrEventNotFound
		}
		return model.Event{}, fmt.Errorf("fetching event: %w", err)
	}
	return event, nil
}

// Update overwrites the editable fields of an event. The status is never
// touched here; approval flows through Approve/Reject.
func (s *EventService) Update(ctx context.Context, id int64, input EventInput, actor Actor) (model.Event, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return model.Event{}, err
	}

	html, err := s.renderDescription(input.Description)
	if err != nil {
		return model.Event{}, err
	}

	imagePath := existing.Image
	if input.ImageData != "" {
		imagePath, err = s.processImage(input.ImageData)
		if err != nil {
			return model.Event{}, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Event{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	qtx := s.queries.WithTx(tx)

	event, err := qtx.UpdateEvent(ctx, store.UpdateEventParams{
		Title:           input.Title,
		Slug:            util.Slugify(input.Title),
		Description:     input.Description,
		DescriptionHTML: html,
		Date:            input.Date,
		Location:        input.Location,
		Image:           imagePath,
		UpdatedAt:       time.Now(),
		ID:              id,
	})
	if err != nil {
		return model.Event{}, fmt.Errorf("updating event: %w", err)
	}

	if err := s.audit.RecordTx(ctx, qtx, Entry{
		UserID:    &actor.UserID,
		EventID:   &event.ID,
		Action:    model.ActionEventUpdated,
		Message:   fmt.Sprintf("event %q updated", event.Title),
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	}); err != nil {
		return model.Event{}, fmt.Errorf("recording audit entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Event{}, fmt.Errorf("committing transaction: %w", err)
	}

	if existing.IsApproved() {
		s.invalidateApprovedCache(ctx)
	}
	if input.ImageData != "" && existing.Image != "" && !isExternalImage(existing.Image) && s.images != nil {
		_ = s.images.Delete(existing.Image)
	}

	return event, nil
}

// Delete removes an event, its stored image and cached listings.
func (s *EventService) Delete(ctx context.Context, id int64, actor Actor) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	qtx := s.queries.WithTx(tx)

	if err := qtx.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}

	if err := s.audit.RecordTx(ctx, qtx, Entry{
		UserID:    &actor.UserID,
		Action:    model.ActionEventDeleted,
		Message:   fmt.Sprintf("event %q deleted", existing.Title),
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	}); err != nil {
		return fmt.Errorf("recording audit entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	if existing.IsApproved() {
		s.invalidateApprovedCache(ctx)
	}
	if existing.Image != "" && !isExternalImage(existing.Image) && s.images != nil {
		_ = s.images.Delete(existing.Image)
	}

	return nil
}

// Approve transitions a pending event to approved. Only pending events can
// be approved; anything else returns ErrInvalidTransition.
func (s *EventService) Approve(ctx context.Context, id int64, actor Actor) (model.Event, error) {
	return s.transition(ctx, id, model.EventStatusApproved, model.ActionEventApproved, actor)
}

// Reject transitions a pending event to rejected.
func (s *EventService) Reject(ctx context.Context, id int64, actor Actor) (model.Event, error) {
	return s.transition(ctx, id, model.EventStatusRejected, model.ActionEventRejected, actor)
}

func (s *EventService) transition(ctx context.Context, id int64, status, action string, actor Actor) (model.Event, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return model.Event{}, err
	}

	if !model.CanTransitionEvent(existing.Status, status) {
		return model.Event{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, existing.Status, status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Event{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	qtx := s.queries.WithTx(tx)

	event, err := qtx.UpdateEventStatus(ctx, store.UpdateEventStatusParams{
		Status:     status,
		ReviewedBy: sql.NullInt64{Int64: actor.UserID, Valid: true},
		UpdatedAt:  time.Now(),
		ID:         id,
	})
	if err != nil {
		return model.Event{}, fmt.Errorf("updating event status: %w", err)
	}

	if err := s.audit.RecordTx(ctx, qtx, Entry{
		UserID:    &actor.UserID,
		EventID:   &event.ID,
		Action:    action,
		Message:   fmt.Sprintf("event %q %s", event.Title, status),
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	}); err != nil {
		return model.Event{}, fmt.Errorf("recording audit entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Event{}, fmt.Errorf("committing transaction: %w", err)
	}

	if status == model.EventStatusApproved {
		s.invalidateApprovedCache(ctx)
	}

	return event, nil
}

// ListPending returns all events awaiting review.
func (s *EventService) ListPending(ctx context.Context) ([]model.Event, error) {
	events, err := s.queries.ListEventsByStatus(ctx, model.EventStatusPending)
	if err != nil {
		return nil, fmt.Errorf("listing pending events: %w", err)
	}
	return events, nil
}

// ListApproved returns the public approved-events listing, served from
// cache when possible.
func (s *EventService) ListApproved(ctx context.Context) ([]model.Event, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, approvedEventsCacheKey); err == nil {
			var events []model.Event
			if err := json.Unmarshal(data, &events); err == nil {
				return events, nil
			}
			// Corrupt cache entry; fall through to the database.
			_ = s.cache.Delete(ctx, approvedEventsCacheKey)
		}
	}

	events, err := s.queries.ListEventsByStatus(ctx, model.EventStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("listing approved events: %w", err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(events); err == nil {
			if err := s.cache.Set(ctx, approvedEventsCacheKey, data, 0); err != nil {
				slog.Warn("failed to cache approved events", "error", err)
			}
		}
	}

	return events, nil
}

func (s *EventService) invalidateApprovedCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, approvedEventsCacheKey); err != nil {
		slog.Warn("failed to invalidate approved events cache", "error", err)
	}
}

// AddComment attaches a comment to an approved event.
func (s *EventService) AddComment(ctx context.Context, eventID int64, body string, actor Actor) (model.Comment, error) {
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return model.Comment{}, err
	}
	if !event.IsApproved() {
		return model.Comment{}, ErrEventNotApproved
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Comment{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	qtx := s.queries.WithTx(tx)

	comment, err := qtx.CreateComment(ctx, store.CreateCommentParams{
		EventID:   eventID,
		UserID:    actor.UserID,
		Body:      body,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return model.Comment{}, fmt.Errorf("creating comment: %w", err)
	}

	if err := s.audit.RecordTx(ctx, qtx, Entry{
		UserID:    &actor.UserID,
		EventID:   &eventID,
		Action:    model.ActionCommentCreated,
		Message:   fmt.Sprintf("comment added to event %q", event.Title),
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	}); err != nil {
		return model.Comment{}, fmt.Errorf("recording audit entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Comment{}, fmt.Errorf("committing transaction: %w", err)
	}

	return comment, nil
}

// ListComments returns the comments on an event, newest first.
func (s *EventService) ListComments(ctx context.Context, eventID int64) ([]model.Comment, error) {
	if _, err := s.Get(ctx, eventID); err != nil {
		return nil, err
	}

	comments, err := s.queries.ListCommentsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	return comments, nil
}
