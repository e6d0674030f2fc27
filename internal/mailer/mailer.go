// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package mailer sends transactional email: verification codes on sign-up
// and password reset codes. Without SMTP configuration, outgoing mail is
// written to the application log so local development works end to end.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Mailer sends transactional email.
type Mailer interface {
	// SendVerificationCode mails the 6-digit sign-up verification code.
	SendVerificationCode(ctx context.Context, to, name, code string) error

	// SendPasswordResetCode mails the 6-digit password reset code.
	SendPasswordResetCode(ctx context.Context, to, name, code string) error
}

// SMTPConfig holds connection settings for an SMTP relay.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPMailer sends email through a plain-auth SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTP creates a mailer backed by an SMTP relay.
func NewSMTP(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// SendVerificationCode implements Mailer.
func (m *SMTPMailer) SendVerificationCode(ctx context.Context, to, name, code string) error {
	subject := "Verify your Venture Museum account"
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\nYour verification code is: %s\r\n\r\nEnter it within the next hour to activate your account.\r\n",
		name, code)
	return m.send(ctx, to, subject, body)
}

// SendPasswordResetCode implements Mailer.
func (m *SMTPMailer) SendPasswordResetCode(ctx context.Context, to, name, code string) error {
	subject := "Venture Museum password reset"
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\nYour password reset code is: %s\r\n\r\nIf you did not request a reset, you can ignore this message.\r\n",
		name, code)
	return m.send(ctx, to, subject, body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	return nil
}

// LogMailer writes outgoing mail to the application log instead of sending
// it. Used in development when no SMTP relay is configured.
type LogMailer struct{}

// NewLog creates a log-only mailer.
func NewLog() *LogMailer {
	return &LogMailer{}
}

// SendVerificationCode implements Mailer.
func (m *LogMailer) SendVerificationCode(_ context.Context, to, name, code string) error {
	slog.Info("verification email (smtp disabled)", "to", to, "name", name, "code", code)
	return nil
}

// SendPasswordResetCode implements Mailer.
func (m *LogMailer) SendPasswordResetCode(_ context.Context, to, name, code string) error {
	slog.Info("password reset email (smtp disabled)", "to", to, "name", name, "code", code)
	return nil
}

var (
	_ Mailer = (*SMTPMailer)(nil)
	_ Mailer = (*LogMailer)(nil)
)
