// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for the museum project.
package testutil

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"

	"github.com/venturemuseum/museum-go/internal/store"

	_ "modernc.org/sqlite" // in-memory test databases
)

// TestLogger creates a silent test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// dbSeq keeps concurrently running tests on separate memory databases.
var dbSeq atomic.Int64

// TestDB opens a shared-cache in-memory SQLite database with migrations
// applied. Returns the database and a cleanup function that should be
// deferred; closing the database discards its contents.
func TestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	dsn := fmt.Sprintf("file:museum_test_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", dbSeq.Add(1))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	// A shared-cache memory database lives only while a connection holds it
	// open. Pinning the pool to one connection keeps it alive for the whole
	// test and serializes access the way SQLite expects.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	return db, func() { _ = db.Close() }
}
