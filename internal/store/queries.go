// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/venturemuseum/museum-go/internal/model"
)

// DBTX is the subset of database/sql used by Queries. Both *sql.DB and
// *sql.Tx satisfy it, so the same query methods work inside and outside
// transactions.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries provides typed access to the database.
type Queries struct {
	db DBTX
}

// New creates a Queries instance backed by the given database or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries instance bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const userColumns = `id, name, email, city, gender, password_hash, is_verified, verify_code, role, created_at, updated_at, last_login_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.City, &u.Gender, &u.PasswordHash,
		&u.IsVerified, &u.VerifyCode, &u.Role, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	return u, err
}

// CreateUserParams holds the fields required to create a user.
type CreateUserParams struct {
	Name         string
	Email        string
	City         string
	Gender       string
	PasswordHash string
	VerifyCode   sql.NullString
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateUser inserts a new user and returns the stored record.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email, city, gender, password_hash, is_verified, verify_code, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?)
		RETURNING `+userColumns,
		arg.Name, arg.Email, arg.City, arg.Gender, arg.PasswordHash,
		arg.VerifyCode, arg.Role, arg.CreatedAt, arg.UpdatedAt)
	return scanUser(row)
}

// GetUserByID fetches a user by primary key.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail fetches a user by email address.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// GetUserByName fetches a user by unique name.
func (q *Queries) GetUserByName(ctx context.Context, name string) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE name = ?`, name)
	return scanUser(row)
}

// MarkUserVerified sets the verification flag and clears the one-time code.
func (q *Queries) MarkUserVerified(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE users SET is_verified = 1, verify_code = NULL, updated_at = ? WHERE id = ?`,
		time.Now(), id)
	return err
}

// SetUserVerifyCodeParams holds a new one-time code for a user.
type SetUserVerifyCodeParams struct {
	VerifyCode sql.NullString
	UpdatedAt  time.Time
	ID         int64
}

// SetUserVerifyCode stores a new one-time verification/reset code.
func (q *Queries) SetUserVerifyCode(ctx context.Context, arg SetUserVerifyCodeParams) error {
	_, err := q.db.ExecContext(ctx, `UPDATE users SET verify_code = ?, updated_at = ? WHERE id = ?`,
		arg.VerifyCode, arg.UpdatedAt, arg.ID)
	return err
}

// UpdateUserPasswordParams holds a new password hash for a user.
type UpdateUserPasswordParams struct {
	PasswordHash string
	UpdatedAt    time.Time
	ID           int64
}

// UpdateUserPassword replaces the stored password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		arg.PasswordHash, arg.UpdatedAt, arg.ID)
	return err
}

// UpdateUserProfileParams holds editable profile fields.
type UpdateUserProfileParams struct {
	Name      string
	City      string
	Gender    string
	UpdatedAt time.Time
	ID        int64
}

// UpdateUserProfile overwrites the editable profile fields.
func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE users SET name = ?, city = ?, gender = ?, updated_at = ? WHERE id = ?
		RETURNING `+userColumns,
		arg.Name, arg.City, arg.Gender, arg.UpdatedAt, arg.ID)
	return scanUser(row)
}

// UpdateUserRoleParams holds a role change for a user.
type UpdateUserRoleParams struct {
	Role      string
	UpdatedAt time.Time
	ID        int64
}

// UpdateUserRole changes a user's role.
func (q *Queries) UpdateUserRole(ctx context.Context, arg UpdateUserRoleParams) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE users SET role = ?, updated_at = ? WHERE id = ?
		RETURNING `+userColumns,
		arg.Role, arg.UpdatedAt, arg.ID)
	return scanUser(row)
}

// UpdateUserLastLoginParams records a successful sign-in time.
type UpdateUserLastLoginParams struct {
	LastLoginAt sql.NullTime
	ID          int64
}

// UpdateUserLastLogin updates the last login timestamp.
func (q *Queries) UpdateUserLastLogin(ctx context.Context, arg UpdateUserLastLoginParams) error {
	_, err := q.db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`,
		arg.LastLoginAt, arg.ID)
	return err
}

// ListUsers returns all users ordered by creation time.
func (q *Queries) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountUsers returns the total number of users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// CountUsersByRole returns the number of users with the given role.
func (q *Queries) CountUsersByRole(ctx context.Context, role string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = ?`, role).Scan(&n)
	return n, err
}

// CreateSessionParams holds the fields of a new session record.
type CreateSessionParams struct {
	Token     string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// CreateSession persists a session token.
func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		arg.Token, arg.UserID, arg.CreatedAt, arg.ExpiresAt)
	return err
}

// GetSessionByToken fetches a session by exact token match.
func (q *Queries) GetSessionByToken(ctx context.Context, token string) (model.Session, error) {
	var s model.Session
	err := q.db.QueryRowContext(ctx, `
		SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = ?`, token).
		Scan(&s.Token, &s.UserID, &s.CreatedAt, &s.ExpiresAt)
	return s, err
}

// DeleteSessionByToken removes a session. Deleting an absent token is not
// an error, which makes sign-out idempotent.
func (q *Queries) DeleteSessionByToken(ctx context.Context, token string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// DeleteSessionsByUserID removes all sessions belonging to a user.
func (q *Queries) DeleteSessionsByUserID(ctx context.Context, userID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

// DeleteExpiredSessions removes sessions past their expiry and returns the
// number deleted.
func (q *Queries) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const eventColumns = `id, title, slug, description, description_html, date, location, image, status, created_by, reviewed_by, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Title, &e.Slug, &e.Description, &e.DescriptionHTML,
		&e.Date, &e.Location, &e.Image, &e.Status, &e.CreatedBy, &e.ReviewedBy,
		&e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// CreateEventParams holds the fields of a new event.
type CreateEventParams struct {
	Title           string
	Slug            string
	Description     string
	DescriptionHTML string
	Date            string
	Location        string
	Image           string
	Status          string
	CreatedBy       int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreateEvent inserts a new event and returns the stored record.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (model.Event, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO events (title, slug, description, description_html, date, location, image, status, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+eventColumns,
		arg.Title, arg.Slug, arg.Description, arg.DescriptionHTML, arg.Date,
		arg.Location, arg.Image, arg.Status, arg.CreatedBy, arg.CreatedAt, arg.UpdatedAt)
	return scanEvent(row)
}

// GetEventByID fetches an event by primary key.
func (q *Queries) GetEventByID(ctx context.Context, id int64) (model.Event, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

// ListEventsByStatus returns all events with the given status, newest first.
func (q *Queries) ListEventsByStatus(ctx context.Context, status string) ([]model.Event, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE status = ? ORDER BY created_at DESC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// UpdateEventParams holds the full set of editable event fields.
type UpdateEventParams struct {
	Title           string
	Slug            string
	Description     string
	DescriptionHTML string
	Date            string
	Location        string
	Image           string
	UpdatedAt       time.Time
	ID              int64
}

// UpdateEvent overwrites the editable fields of an event.
func (q *Queries) UpdateEvent(ctx context.Context, arg UpdateEventParams) (model.Event, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE events
		SET title = ?, slug = ?, description = ?, description_html = ?, date = ?, location = ?, image = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+eventColumns,
		arg.Title, arg.Slug, arg.Description, arg.DescriptionHTML, arg.Date,
		arg.Location, arg.Image, arg.UpdatedAt, arg.ID)
	return scanEvent(row)
}

// UpdateEventStatusParams holds a status transition for an event.
type UpdateEventStatusParams struct {
	Status     string
	ReviewedBy sql.NullInt64
	UpdatedAt  time.Time
	ID         int64
}

// UpdateEventStatus records a status transition.
func (q *Queries) UpdateEventStatus(ctx context.Context, arg UpdateEventStatusParams) (model.Event, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE events SET status = ?, reviewed_by = ?, updated_at = ? WHERE id = ?
		RETURNING `+eventColumns,
		arg.Status, arg.ReviewedBy, arg.UpdatedAt, arg.ID)
	return scanEvent(row)
}

// DeleteEvent removes an event by id.
func (q *Queries) DeleteEvent(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	return err
}

// CountEventsByStatus returns the number of events with the given status.
func (q *Queries) CountEventsByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE status = ?`, status).Scan(&n)
	return n, err
}

// CreateLogParams holds the fields of a new audit log entry.
type CreateLogParams struct {
	UserID    sql.NullInt64
	EventID   sql.NullInt64
	Action    string
	Level     string
	Message   string
	Metadata  string
	IPAddress string
	CreatedAt time.Time
}

// CreateLog appends an audit log entry. Logs are append-only: no update
// query exists in this package.
func (q *Queries) CreateLog(ctx context.Context, arg CreateLogParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO logs (user_id, event_id, action, level, message, metadata, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.UserID, arg.EventID, arg.Action, arg.Level, arg.Message,
		arg.Metadata, arg.IPAddress, arg.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListRecentLogs returns the most recent audit log entries.
func (q *Queries) ListRecentLogs(ctx context.Context, limit int64) ([]model.Log, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, user_id, event_id, action, level, message, metadata, ip_address, created_at
		FROM logs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []model.Log
	for rows.Next() {
		var l model.Log
		if err := rows.Scan(&l.ID, &l.UserID, &l.EventID, &l.Action, &l.Level,
			&l.Message, &l.Metadata, &l.IPAddress, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// DeleteOldLogs removes audit log entries created before the cutoff.
func (q *Queries) DeleteOldLogs(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM logs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreateCommentParams holds the fields of a new comment.
type CreateCommentParams struct {
	EventID   int64
	UserID    int64
	Body      string
	CreatedAt time.Time
}

// CreateComment inserts a comment and returns the stored record.
func (q *Queries) CreateComment(ctx context.Context, arg CreateCommentParams) (model.Comment, error) {
	var c model.Comment
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO comments (event_id, user_id, body, created_at) VALUES (?, ?, ?, ?)
		RETURNING id, event_id, user_id, body, created_at`,
		arg.EventID, arg.UserID, arg.Body, arg.CreatedAt).
		Scan(&c.ID, &c.EventID, &c.UserID, &c.Body, &c.CreatedAt)
	return c, err
}

// ListCommentsByEvent returns all comments on an event with author names,
// newest first.
func (q *Queries) ListCommentsByEvent(ctx context.Context, eventID int64) ([]model.Comment, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT c.id, c.event_id, c.user_id, u.name, c.body, c.created_at
		FROM comments c JOIN users u ON u.id = c.user_id
		WHERE c.event_id = ? ORDER BY c.created_at DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.EventID, &c.UserID, &c.UserName, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// CountComments returns the total number of comments.
func (q *Queries) CountComments(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments`).Scan(&n)
	return n, err
}
