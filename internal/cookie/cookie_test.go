// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cookie

import (
	"strings"
	"testing"
)

func TestParseCookies(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   map[string]string
	}{
		{
			name:   "empty header",
			header: "",
			want:   map[string]string{},
		},
		{
			name:   "single cookie",
			header: "sessionToken=abc123",
			want:   map[string]string{"sessionToken": "abc123"},
		},
		{
			name:   "multiple cookies",
			header: "sessionToken=abc123; role=admin; theme=dark",
			want: map[string]string{
				"sessionToken": "abc123",
				"role":         "admin",
				"theme":        "dark",
			},
		},
		{
			name:   "no spaces after semicolons",
			header: "a=1;b=2",
			want:   map[string]string{"a": "1", "b": "2"},
		},
		{
			name:   "empty value",
			header: "sessionToken=",
			want:   map[string]string{"sessionToken": ""},
		},
		{
			name:   "malformed pair skipped",
			header: "garbage; sessionToken=abc",
			want:   map[string]string{"sessionToken": "abc"},
		},
		{
			name:   "quoted value",
			header: `name="value"`,
			want:   map[string]string{"name": "value"},
		},
		{
			name:   "url-escaped value",
			header: "city=New%20York",
			want:   map[string]string{"city": "New York"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCookies(tt.header)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseCookies(%q) = %v, want %v", tt.header, got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("ParseCookies(%q)[%q] = %q, want %q", tt.header, k, got[k], v)
				}
			}
		})
	}
}

func TestSerializeSessionCookie(t *testing.T) {
	token := strings.Repeat("ab", 30)

	got := SerializeSessionCookie(token, false)
	for _, want := range []string{
		"sessionToken=" + token,
		"Path=/",
		"Max-Age=86400",
		"HttpOnly",
		"SameSite=Strict",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("cookie %q missing %q", got, want)
		}
	}
	if strings.Contains(got, "Secure") {
		t.Errorf("development cookie %q should not be Secure", got)
	}

	prod := SerializeSessionCookie(token, true)
	if !strings.Contains(prod, "Secure") {
		t.Errorf("production cookie %q should be Secure", prod)
	}
}

func TestSerializeSessionCookieClearsOnEmptyToken(t *testing.T) {
	got := SerializeSessionCookie("", true)
	if !strings.Contains(got, "Max-Age=0") {
		t.Errorf("empty-token cookie %q should have Max-Age=0", got)
	}
	if !strings.HasPrefix(got, "sessionToken=;") {
		t.Errorf("empty-token cookie %q should have empty value", got)
	}
}

func TestSerializeRoleCookieReadableByClient(t *testing.T) {
	got := SerializeRoleCookie("admin", false)
	if strings.Contains(got, "HttpOnly") {
		t.Errorf("role cookie %q must be readable by client-side code", got)
	}
	if !strings.Contains(got, "role=admin") {
		t.Errorf("role cookie %q missing value", got)
	}
}

func TestSessionCookieRoundTrip(t *testing.T) {
	token := strings.Repeat("cd", 30)
	header := SerializeSessionCookie(token, false)

	// Simulate the browser echoing the cookie back.
	pair, _, _ := strings.Cut(header, ";")
	parsed := ParseCookies(pair)
	if parsed[SessionCookieName] != token {
		t.Errorf("round-trip token = %q, want %q", parsed[SessionCookieName], token)
	}
}
