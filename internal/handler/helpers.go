// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/venturemuseum/museum-go/internal/middleware"
	"github.com/venturemuseum/museum-go/internal/service"
	"github.com/venturemuseum/museum-go/internal/util"
)

// maxRequestBytes caps JSON request bodies. Event submissions carry base64
// data-URL images, so the cap must sit above the raw image limit.
const maxRequestBytes = 16 << 20 // 16 MB

// parseIDParam extracts a positive numeric {id} route parameter.
func parseIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// decodeJSON reads a JSON request body into dst, enforcing the body size cap
// and rejecting trailing content. Unknown fields are ignored; fields the
// payload struct does not declare have no effect.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxBytesErr.Limit)
		}
		return fmt.Errorf("malformed JSON body")
	}

	if dec.More() {
		return fmt.Errorf("unexpected data after JSON body")
	}

	return nil
}

// requestActor builds the audit actor for the current request. The caller
// must run behind RequireAuth/RequireRole so a user is always present.
func requestActor(r *http.Request) service.Actor {
	return service.Actor{
		UserID:    middleware.GetUserID(r),
		IPAddress: util.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}
