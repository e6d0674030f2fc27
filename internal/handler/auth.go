// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/venturemuseum/museum-go/internal/auth"
	"github.com/venturemuseum/museum-go/internal/cookie"
	"github.com/venturemuseum/museum-go/internal/mailer"
	"github.com/venturemuseum/museum-go/internal/middleware"
	"github.com/venturemuseum/museum-go/internal/model"
	"github.com/venturemuseum/museum-go/internal/service"
	"github.com/venturemuseum/museum-go/internal/session"
	"github.com/venturemuseum/museum-go/internal/store"
	"github.com/venturemuseum/museum-go/internal/util"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// maxNameLength caps user and city names.
const maxNameLength = 100

// AuthHandler serves the authentication endpoints: sign-up, sign-in,
// sign-out, email verification, password reset and profile management.
type AuthHandler struct {
	queries      *store.Queries
	sessions     *session.Manager
	mail         mailer.Mailer
	audit        *service.AuditService
	protection   *middleware.LoginProtection
	isProduction bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *sql.DB, sessions *session.Manager, m mailer.Mailer,
	audit *service.AuditService, protection *middleware.LoginProtection, isProduction bool) *AuthHandler {
	return &AuthHandler{
		queries:      store.New(db),
		sessions:     sessions,
		mail:         m,
		audit:        audit,
		protection:   protection,
		isProduction: isProduction,
	}
}

// signUpRequest is the sign-up payload.
type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	City     string `json:"city"`
	Gender   string `json:"gender"`
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

func (req *signUpRequest) validate() error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.City = strings.TrimSpace(req.City)

	if req.Name == "" || len(req.Name) > maxNameLength {
		return fmt.Errorf("name is required and must be at most %d characters", maxNameLength)
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return errors.New("a valid email address is required")
	}
	if req.City == "" || len(req.City) > maxNameLength {
		return fmt.Errorf("city is required and must be at most %d characters", maxNameLength)
	}
	if !model.IsValidGender(req.Gender) {
		return errors.New("gender must be male or female")
	}
	if len(req.Password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if req.Password != req.Confirm {
		return errors.New("passwords do not match")
	}
	return nil
}

// SignUp handles POST /api/auth/sign-up. New accounts always start with the
// user role and unverified; a verification code is mailed after the record
// is stored, so a mail failure never loses the account.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()

	if _, err := h.queries.GetUserByEmail(ctx, req.Email); err == nil {
		writeJSONError(w, http.StatusConflict, "email already registered")
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		slog.Error("sign-up email lookup failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if _, err := h.queries.GetUserByName(ctx, req.Name); err == nil {
		writeJSONError(w, http.StatusConflict, "name already taken")
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		slog.Error("sign-up name lookup failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("password hashing failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	code, err := auth.GenerateVerifyCode()
	if err != nil {
		slog.Error("verify code generation failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	now := time.Now()
	user, err := h.queries.CreateUser(ctx, store.CreateUserParams{
		Name:         req.Name,
		Email:        req.Email,
		City:         req.City,
		Gender:       req.Gender,
		PasswordHash: hash,
		VerifyCode:   sql.NullString{String: code, Valid: true},
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		slog.Error("user creation failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.audit.Record(ctx, service.Entry{
		UserID:    &user.ID,
		Action:    model.ActionUserSignedUp,
		Message:   fmt.Sprintf("user %q signed up", user.Name),
		IPAddress: util.ClientIP(r),
		UserAgent: r.UserAgent(),
	})

	if err := h.mail.SendVerificationCode(ctx, user.Email, user.Name, code); err != nil {
		// The account exists; the user can request a new code later.
		slog.Error("verification email failed", "user_id", user.ID, "error", err)
	}

	writeJSONStatus(w, http.StatusCreated, map[string]any{"user": user})
}

// signInRequest is the sign-in payload.
type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn handles POST /api/auth/sign-in. Failed attempts count toward the
// account lockout; credential errors are reported uniformly so the endpoint
// does not reveal which accounts exist.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	if locked, remaining := h.protection.IsAccountLocked(req.Email); locked {
		writeJSONError(w, http.StatusTooManyRequests,
			fmt.Sprintf("account temporarily locked, try again in %s", remaining.Round(time.Second)))
		return
	}

	ctx := r.Context()

	user, err := h.queries.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.protection.RecordFailedAttempt(req.Email)
			writeJSONError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		slog.Error("sign-in lookup failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	ok, err := auth.CheckPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		if err != nil {
			slog.Error("password check failed", "user_id", user.ID, "error", err)
		}
		if locked, duration := h.protection.RecordFailedAttempt(req.Email); locked {
			writeJSONError(w, http.StatusTooManyRequests,
				fmt.Sprintf("account temporarily locked, try again in %s", duration.Round(time.Second)))
			return
		}
		writeJSONError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	h.protection.RecordSuccessfulLogin(req.Email)

	// Transparent parameter upgrade on successful sign-in.
	if auth.NeedsRehash(user.PasswordHash) {
		if hash, err := auth.HashPassword(req.Password); err == nil {
			_ = h.queries.UpdateUserPassword(ctx, store.UpdateUserPasswordParams{
				PasswordHash: hash,
				UpdatedAt:    time.Now(),
				ID:           user.ID,
			})
		}
	}

	token, err := h.sessions.Create(ctx, user.ID)
	if err != nil {
		slog.Error("session creation failed", "user_id", user.ID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.queries.UpdateUserLastLogin(ctx, store.UpdateUserLastLoginParams{
		LastLoginAt: sql.NullTime{Time: time.Now(), Valid: true},
		ID:          user.ID,
	}); err != nil {
		slog.Warn("last login update failed", "user_id", user.ID, "error", err)
	}

	h.audit.Record(ctx, service.Entry{
		UserID:    &user.ID,
		Action:    model.ActionUserSignedIn,
		Message:   fmt.Sprintf("user %q signed in", user.Name),
		IPAddress: util.ClientIP(r),
		UserAgent: r.UserAgent(),
	})

	w.Header().Add("Set-Cookie", cookie.SerializeSessionCookie(token, h.isProduction))
	w.Header().Add("Set-Cookie", cookie.SerializeRoleCookie(user.Role, h.isProduction))
	writeJSONSuccess(w, map[string]any{"user": user})
}

// SignOut handles POST /api/auth/sign-out. Signing out without a live
// session still succeeds and clears the cookies.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	cookies := cookie.ParseCookies(r.Header.Get("Cookie"))
	token := cookies[cookie.SessionCookieName]

	if err := h.sessions.Destroy(r.Context(), token); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}

	if user := middleware.GetUser(r); user != nil {
		h.audit.Record(r.Context(), service.Entry{
			UserID:    &user.ID,
			Action:    model.ActionUserSignedOut,
			Message:   fmt.Sprintf("user %q signed out", user.Name),
			IPAddress: util.ClientIP(r),
			UserAgent: r.UserAgent(),
		})
	}

	w.Header().Add("Set-Cookie", cookie.SerializeSessionCookie("", h.isProduction))
	w.Header().Add("Set-Cookie", cookie.SerializeRoleCookie("", h.isProduction))
	writeJSONSuccess(w, nil)
}

// verifyRequest is the email verification payload.
type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// VerifyCode handles POST /api/auth/verify-code. Mismatched codes and unknown
// emails get the same answer; re-verifying a verified account succeeds.
func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Code = strings.TrimSpace(req.Code)
	if req.Email == "" || req.Code == "" {
		writeJSONError(w, http.StatusBadRequest, "email and code are required")
		return
	}

	ctx := r.Context()

	user, err := h.queries.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusBadRequest, "invalid verification code")
			return
		}
		slog.Error("verify lookup failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if user.IsVerified {
		writeJSONSuccess(w, map[string]any{"message": "account already verified"})
		return
	}

	if !codeMatches(user.VerifyCode, req.Code) {
		writeJSONError(w, http.StatusBadRequest, "invalid verification code")
		return
	}

	if err := h.queries.MarkUserVerified(ctx, user.ID); err != nil {
		slog.Error("marking user verified failed", "user_id", user.ID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.audit.Record(ctx, service.Entry{
		UserID:    &user.ID,
		Action:    model.ActionUserVerified,
		Message:   fmt.Sprintf("user %q verified their email", user.Name),
		IPAddress: util.ClientIP(r),
		UserAgent: r.UserAgent(),
	})

	writeJSONSuccess(w, map[string]any{"message": "account verified"})
}

// forgotPasswordRequest is the forgot-password payload.
type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword handles POST /api/auth/forgot-password. The response is
// identical whether or not the address exists.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		writeJSONError(w, http.StatusBadRequest, "email is required")
		return
	}

	ctx := r.Context()

	user, err := h.queries.GetUserByEmail(ctx, req.Email)
	if err == nil {
		if code, err := auth.GenerateVerifyCode(); err == nil {
			if err := h.queries.SetUserVerifyCode(ctx, store.SetUserVerifyCodeParams{
				VerifyCode: sql.NullString{String: code, Valid: true},
				UpdatedAt:  time.Now(),
				ID:         user.ID,
			}); err == nil {
				if err := h.mail.SendPasswordResetCode(ctx, user.Email, user.Name, code); err != nil {
					slog.Error("password reset email failed", "user_id", user.ID, "error", err)
				}
			} else {
				slog.Error("storing reset code failed", "user_id", user.ID, "error", err)
			}
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		slog.Error("forgot-password lookup failed", "error", err)
	}

	writeJSONSuccess(w, map[string]any{"message": "if the address exists, a reset code has been sent"})
}

// resetPasswordRequest is the reset-password payload.
type resetPasswordRequest struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

// ResetPassword handles POST /api/auth/reset-password. A successful reset
// destroys every session of the account so stolen tokens stop working.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Code = strings.TrimSpace(req.Code)
	if req.Email == "" || req.Code == "" {
		writeJSONError(w, http.StatusBadRequest, "email and code are required")
		return
	}
	if len(req.Password) < MinPasswordLength {
		writeJSONError(w, http.StatusBadRequest,
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
		return
	}

	ctx := r.Context()

	user, err := h.queries.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusBadRequest, "invalid reset code")
			return
		}
		slog.Error("reset-password lookup failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !codeMatches(user.VerifyCode, req.Code) {
		writeJSONError(w, http.StatusBadRequest, "invalid reset code")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("password hashing failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	now := time.Now()
	if err := h.queries.UpdateUserPassword(ctx, store.UpdateUserPasswordParams{
		PasswordHash: hash,
		UpdatedAt:    now,
		ID:           user.ID,
	}); err != nil {
		slog.Error("password update failed", "user_id", user.ID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.queries.SetUserVerifyCode(ctx, store.SetUserVerifyCodeParams{
		VerifyCode: sql.NullString{},
		UpdatedAt:  now,
		ID:         user.ID,
	}); err != nil {
		slog.Warn("clearing reset code failed", "user_id", user.ID, "error", err)
	}

	if err := h.sessions.DestroyAll(ctx, user.ID); err != nil {
		slog.Warn("destroying sessions after reset failed", "user_id", user.ID, "error", err)
	}

	h.audit.Record(ctx, service.Entry{
		UserID:    &user.ID,
		Action:    model.ActionPasswordReset,
		Message:   fmt.Sprintf("user %q reset their password", user.Name),
		IPAddress: util.ClientIP(r),
		UserAgent: r.UserAgent(),
	})

	writeJSONSuccess(w, map[string]any{"message": "password updated, please sign in"})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		writeJSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSONSuccess(w, map[string]any{"user": user})
}

// updateProfileRequest is the profile update payload.
type updateProfileRequest struct {
	Name   string `json:"name"`
	City   string `json:"city"`
	Gender string `json:"gender"`
}

// UpdateProfile handles PATCH /api/auth/profile. Email and role are not
// editable here; roles change only through the superadmin endpoint.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		writeJSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.City = strings.TrimSpace(req.City)
	if req.Name == "" || len(req.Name) > maxNameLength {
		writeJSONError(w, http.StatusBadRequest,
			fmt.Sprintf("name is required and must be at most %d characters", maxNameLength))
		return
	}
	if len(req.City) > maxNameLength {
		writeJSONError(w, http.StatusBadRequest,
			fmt.Sprintf("city must be at most %d characters", maxNameLength))
		return
	}
	if !model.IsValidGender(req.Gender) {
		writeJSONError(w, http.StatusBadRequest, "gender must be male or female")
		return
	}

	ctx := r.Context()

	if req.Name != user.Name {
		if _, err := h.queries.GetUserByName(ctx, req.Name); err == nil {
			writeJSONError(w, http.StatusConflict, "name already taken")
			return
		} else if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("profile name lookup failed", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	updated, err := h.queries.UpdateUserProfile(ctx, store.UpdateUserProfileParams{
		Name:      req.Name,
		City:      req.City,
		Gender:    req.Gender,
		UpdatedAt: time.Now(),
		ID:        user.ID,
	})
	if err != nil {
		slog.Error("profile update failed", "user_id", user.ID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.audit.Record(ctx, service.Entry{
		UserID:    &user.ID,
		Action:    model.ActionUserUpdated,
		Message:   fmt.Sprintf("user %q updated their profile", updated.Name),
		IPAddress: util.ClientIP(r),
		UserAgent: r.UserAgent(),
	})

	writeJSONSuccess(w, map[string]any{"user": updated})
}

// codeMatches compares a stored one-time code against user input in
// constant time.
func codeMatches(stored sql.NullString, input string) bool {
	if !stored.Valid || stored.String == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored.String), []byte(input)) == 1
}
