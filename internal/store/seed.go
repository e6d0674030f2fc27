// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/venturemuseum/museum-go/internal/auth"
	"github.com/venturemuseum/museum-go/internal/model"
)

// Default superadmin credentials
const (
	DefaultSuperadminEmail    = "superadmin@example.com"
	DefaultSuperadminPassword = "changeme"
	DefaultSuperadminName     = "Superadmin"
)

// Seed creates initial data in the database. It is idempotent: an existing
// superadmin account disables the seed entirely.
func Seed(ctx context.Context, db *sql.DB) error {
	queries := New(db)

	_, err := queries.GetUserByEmail(ctx, DefaultSuperadminEmail)
	if err == nil {
		slog.Info("superadmin user already exists, skipping seed")
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for superadmin user: %w", err)
	}

	passwordHash, err := auth.HashPassword(DefaultSuperadminPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now()
	user, err := queries.CreateUser(ctx, CreateUserParams{
		Name:         DefaultSuperadminName,
		Email:        DefaultSuperadminEmail,
		Gender:       model.GenderMale,
		PasswordHash: passwordHash,
		Role:         model.RoleSuperadmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("creating superadmin user: %w", err)
	}

	// Seeded accounts skip email verification.
	if err := queries.MarkUserVerified(ctx, user.ID); err != nil {
		return fmt.Errorf("verifying superadmin user: %w", err)
	}

	slog.Info("created default superadmin user",
		"id", user.ID,
		"email", user.Email,
		"password", DefaultSuperadminPassword,
	)

	return nil
}
