// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the
// application including User, Session, Event, Log and Comment.
package model

import (
	"database/sql"
	"time"
)

// User roles, ordered by privilege.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperadmin = "superadmin"
)

// Genders accepted at sign-up.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// User represents a registered site member.
type User struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	City         string         `json:"city"`
	Gender       string         `json:"gender"`
	PasswordHash string         `json:"-"` // Never expose in JSON
	IsVerified   bool           `json:"is_verified"`
	VerifyCode   sql.NullString `json:"-"`
	Role         string         `json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	LastLoginAt  sql.NullTime   `json:"-"`
}

// IsAdmin returns true if the user has admin role or higher.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperadmin
}

// IsSuperadmin returns true if the user has superadmin role.
func (u *User) IsSuperadmin() bool {
	return u.Role == RoleSuperadmin
}

// RoleLevel returns a numeric level for role hierarchy.
// Higher level = more permissions. Unknown roles have level 0.
func RoleLevel(role string) int {
	switch role {
	case RoleSuperadmin:
		return 3
	case RoleAdmin:
		return 2
	case RoleUser:
		return 1
	default:
		return 0
	}
}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin || role == RoleSuperadmin
}

// IsValidGender reports whether gender is one of the accepted values.
func IsValidGender(gender string) bool {
	return gender == GenderMale || gender == GenderFemale
}
