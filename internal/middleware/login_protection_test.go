// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"testing"
	"time"
)

func TestAccountLockoutAfterMaxFailures(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		MaxFailedAttempts: 3,
		LockoutDuration:   time.Minute,
		AttemptWindow:     time.Minute,
	})

	email := "alice@example.com"

	for i := 0; i < 2; i++ {
		if locked, _ := lp.RecordFailedAttempt(email); locked {
			t.Fatalf("locked after %d attempts, want 3", i+1)
		}
	}

	locked, duration := lp.RecordFailedAttempt(email)
	if !locked {
		t.Fatal("not locked after 3 failed attempts")
	}
	if duration != time.Minute {
		t.Errorf("lock duration = %v, want 1m", duration)
	}

	if isLocked, _ := lp.IsAccountLocked(email); !isLocked {
		t.Error("IsAccountLocked = false after lockout")
	}
}

func TestSuccessfulLoginClearsAttempts(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		MaxFailedAttempts: 3,
	})

	email := "bob@example.com"
	lp.RecordFailedAttempt(email)
	lp.RecordFailedAttempt(email)
	lp.RecordSuccessfulLogin(email)

	// Counter restarts from zero.
	if locked, _ := lp.RecordFailedAttempt(email); locked {
		t.Error("locked on first failure after successful login")
	}
}

func TestLockoutBackoffDoubles(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		MaxFailedAttempts: 1,
		LockoutDuration:   time.Minute,
		AttemptWindow:     time.Hour,
	})

	email := "carol@example.com"

	_, first := lp.RecordFailedAttempt(email)
	if first != time.Minute {
		t.Errorf("first lockout = %v, want 1m", first)
	}

	// Simulate lock expiry, then fail again.
	lp.attemptsMu.Lock()
	lp.failedAttempts[email].lockedUntil = time.Now().Add(-time.Second)
	lp.attemptsMu.Unlock()

	_, second := lp.RecordFailedAttempt(email)
	if second != 2*time.Minute {
		t.Errorf("second lockout = %v, want 2m", second)
	}
}

func TestIPRateLimit(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		IPRateLimit: 1,
		IPBurst:     2,
	})

	ip := "203.0.113.7"
	if !lp.CheckIPRateLimit(ip) || !lp.CheckIPRateLimit(ip) {
		t.Fatal("burst requests denied")
	}
	if lp.CheckIPRateLimit(ip) {
		t.Error("request beyond burst allowed")
	}
}
