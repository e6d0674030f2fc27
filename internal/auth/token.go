// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// SessionTokenBytes is the entropy of a session token. 30 random bytes give
// a 2^240 token space, large enough that collisions are not handled.
const SessionTokenBytes = 30

// SessionTokenLength is the hex-encoded token length (60 characters).
const SessionTokenLength = SessionTokenBytes * 2

// GenerateSessionToken returns a new opaque session token: 30 random bytes,
// hex-encoded to 60 characters.
func GenerateSessionToken() (string, error) {
	buf := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// IsValidSessionToken reports whether a token has the expected shape.
// Used as a cheap pre-check before hitting the session store.
func IsValidSessionToken(token string) bool {
	if len(token) != SessionTokenLength {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}

// GenerateVerifyCode returns a random 6-digit numeric code used for email
// verification and password resets.
func GenerateVerifyCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generating verify code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
