// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"testing"
)

func TestCanTransitionEvent(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{
			name: "pending to approved",
			from: EventStatusPending,
			to:   EventStatusApproved,
			want: true,
		},
		{
			name: "pending to rejected",
			from: EventStatusPending,
			to:   EventStatusRejected,
			want: true,
		},
		{
			name: "approved is terminal",
			from: EventStatusApproved,
			to:   EventStatusRejected,
			want: false,
		},
		{
			name: "rejected is terminal",
			from: EventStatusRejected,
			to:   EventStatusApproved,
			want: false,
		},
		{
			name: "no self transition",
			from: EventStatusPending,
			to:   EventStatusPending,
			want: false,
		},
		{
			name: "unknown source",
			from: "draft",
			to:   EventStatusApproved,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransitionEvent(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransitionEvent(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestIsValidEventStatus(t *testing.T) {
	for _, status := range []string{EventStatusPending, EventStatusApproved, EventStatusRejected} {
		if !IsValidEventStatus(status) {
			t.Errorf("IsValidEventStatus(%q) = false, want true", status)
		}
	}
	for _, status := range []string{"", "Pending", "published"} {
		if IsValidEventStatus(status) {
			t.Errorf("IsValidEventStatus(%q) = true, want false", status)
		}
	}
}

func TestEventIsApproved(t *testing.T) {
	e := &Event{Status: EventStatusPending}
	if e.IsApproved() {
		t.Error("pending event should not be approved")
	}
	e.Status = EventStatusApproved
	if !e.IsApproved() {
		t.Error("approved event should be approved")
	}
}
