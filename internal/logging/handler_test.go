// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/venturemuseum/museum-go/internal/logging"
	"github.com/venturemuseum/museum-go/internal/model"
	"github.com/venturemuseum/museum-go/internal/store"
	"github.com/venturemuseum/museum-go/internal/testutil"
)

func TestWarnAndErrorForwardedToAuditLog(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	inner := slog.NewTextHandler(io.Discard, nil)
	logger := slog.New(logging.NewAuditLogHandler(inner, db))

	logger.Info("routine message")
	logger.Warn("disk getting full", "free_mb", 42)
	logger.Error("backend unreachable")

	// The handler writes synchronously but give SQLite a beat anyway.
	time.Sleep(10 * time.Millisecond)

	logs, err := store.New(db).ListRecentLogs(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecentLogs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("logs = %d entries, want 2 (info must not be forwarded)", len(logs))
	}

	levels := map[string]bool{}
	for _, l := range logs {
		levels[l.Level] = true
		if l.Action != model.ActionSystem {
			t.Errorf("action = %q, want %q", l.Action, model.ActionSystem)
		}
	}
	if !levels[model.LogLevelWarning] || !levels[model.LogLevelError] {
		t.Errorf("levels = %v, want warning and error", levels)
	}
}

func TestMetadataCapturesAttrs(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	inner := slog.NewTextHandler(io.Discard, nil)
	logger := slog.New(logging.NewAuditLogHandler(inner, db))

	logger.Warn("slow query", "duration_ms", 1500)

	logs, err := store.New(db).ListRecentLogs(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListRecentLogs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("logs = %d entries, want 1", len(logs))
	}
	if logs[0].Metadata == "{}" {
		t.Errorf("metadata = %q, want attrs captured", logs[0].Metadata)
	}
}
