// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cookie provides pure cookie parsing and serialization helpers.
// It performs no I/O and has no database dependency, so it is safe to use
// from the route gate which runs before any storage is touched.
package cookie

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "sessionToken"

// RoleCookieName is a client-readable hint used only for UI branching.
// It is never consulted for authorization; the authoritative role always
// comes from a fresh database read.
const RoleCookieName = "role"

// SessionCookieMaxAge matches model.SessionLifetime (1 day).
const SessionCookieMaxAge = int(24 * time.Hour / time.Second)

// ParseCookies splits a raw Cookie header into key/value pairs.
// Returns an empty map for a missing or empty header. Malformed pairs are
// skipped. Values are URL-unescaped when possible.
func ParseCookies(header string) map[string]string {
	cookies := make(map[string]string)
	if header == "" {
		return cookies
	}

	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		if unescaped, err := url.QueryUnescape(value); err == nil {
			value = unescaped
		}
		cookies[name] = value
	}

	return cookies
}

// SerializeSessionCookie builds a Set-Cookie value for the session token:
// httpOnly, Secure in production, Path=/, Max-Age 1 day, SameSite=Strict.
// An empty token serializes with Max-Age=0 so the cookie is cleared
// immediately rather than lingering with an empty value.
func SerializeSessionCookie(token string, isProduction bool) string {
	maxAge := SessionCookieMaxAge
	if token == "" {
		maxAge = 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s", SessionCookieName, url.QueryEscape(token))
	fmt.Fprintf(&b, "; Path=/; Max-Age=%d; HttpOnly; SameSite=Strict", maxAge)
	if isProduction {
		b.WriteString("; Secure")
	}
	return b.String()
}

// SerializeRoleCookie builds a Set-Cookie value for the role hint. Unlike
// the session cookie it is readable by client-side code (no HttpOnly).
func SerializeRoleCookie(role string, isProduction bool) string {
	maxAge := SessionCookieMaxAge
	if role == "" {
		maxAge = 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s", RoleCookieName, url.QueryEscape(role))
	fmt.Fprintf(&b, "; Path=/; Max-Age=%d; SameSite=Strict", maxAge)
	if isProduction {
		b.WriteString("; Secure")
	}
	return b.String()
}
