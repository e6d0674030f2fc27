// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"MUSEUM_DB_PATH" envDefault:"./data/museum.db"`
	SessionSecret string `env:"MUSEUM_SESSION_SECRET,required"`
	ServerHost    string `env:"MUSEUM_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"MUSEUM_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"MUSEUM_ENV" envDefault:"development"`
	LogLevel      string `env:"MUSEUM_LOG_LEVEL" envDefault:"info"`
	BaseURL       string `env:"MUSEUM_BASE_URL" envDefault:"http://localhost:8080"`
	UploadsDir    string `env:"MUSEUM_UPLOADS_DIR" envDefault:"./uploads"`

	// SMTP configuration for verification and password reset emails.
	// When SMTPHost is empty, outgoing mail is logged instead of sent.
	SMTPHost     string `env:"MUSEUM_SMTP_HOST"`
	SMTPPort     int    `env:"MUSEUM_SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"MUSEUM_SMTP_USER"`
	SMTPPassword string `env:"MUSEUM_SMTP_PASSWORD"`
	SMTPFrom     string `env:"MUSEUM_SMTP_FROM" envDefault:"noreply@venturemuseum.local"`

	// Cache configuration
	RedisURL     string `env:"MUSEUM_REDIS_URL"`                         // Optional Redis URL for distributed caching
	CachePrefix  string `env:"MUSEUM_CACHE_PREFIX" envDefault:"museum:"` // Redis key prefix
	CacheTTL     int    `env:"MUSEUM_CACHE_TTL" envDefault:"300"`        // Default cache TTL in seconds
	CacheMaxSize int    `env:"MUSEUM_CACHE_MAX_SIZE" envDefault:"10000"` // Max memory cache entries

	// GeoIP configuration
	GeoIPDBPath string `env:"MUSEUM_GEOIP_DB_PATH"` // Path to GeoLite2-Country.mmdb file

	// Audit log retention
	LogRetentionDays int `env:"MUSEUM_LOG_RETENTION_DAYS" envDefault:"90"`

	// Seeding configuration
	DoSeed bool `env:"MUSEUM_DO_SEED" envDefault:"false"` // Enable database seeding
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if the application is running in production mode.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// SMTPEnabled returns true if an SMTP relay is configured.
func (c Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

// GeoIPEnabled returns true if GeoIP database is configured.
func (c Config) GeoIPEnabled() bool {
	return c.GeoIPDBPath != ""
}

// MinSessionSecretLength is the minimum required length for the session
// secret, which also keys the CSRF protection.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("MUSEUM_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	if cfg.LogRetentionDays < 1 {
		return nil, fmt.Errorf("MUSEUM_LOG_RETENTION_DAYS must be at least 1, got %d", cfg.LogRetentionDays)
	}

	return cfg, nil
}
