// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the application configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Supported database drivers.
const (
	DBDriverSQLite = "sqlite"
	DBDriverMySQL  = "mysql"
)

// Supported search drivers.
const (
	SearchDriverSQL   = "sql"
	SearchDriverIndex = "index"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBDriver   string `env:"OFORUM_DB_DRIVER" envDefault:"sqlite"`
	DBDSN      string `env:"OFORUM_DB_DSN" envDefault:"./data/oforum.db"`
	ServerHost string `env:"OFORUM_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"OFORUM_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"OFORUM_ENV" envDefault:"development"`
	LogLevel   string `env:"OFORUM_LOG_LEVEL" envDefault:"info"`
	ThemesDir  string `env:"OFORUM_THEMES_DIR" envDefault:"./custom/themes"`

	// Cache configuration
	RedisURL     string `env:"OFORUM_REDIS_URL"`                         // Optional Redis URL for distributed caching
	CachePrefix  string `env:"OFORUM_CACHE_PREFIX" envDefault:"oforum:"` // Redis key prefix
	CacheTTL     int    `env:"OFORUM_CACHE_TTL" envDefault:"3600"`       // Default cache TTL in seconds
	CacheMaxSize int    `env:"OFORUM_CACHE_MAX_SIZE" envDefault:"10000"` // Max memory cache entries

	// Search configuration
	SearchDriver          string `env:"OFORUM_SEARCH_DRIVER" envDefault:"sql"`
	SearchIndexPath       string `env:"OFORUM_SEARCH_INDEX_PATH" envDefault:"./data/search.bleve"`
	SearchReindexSchedule string `env:"OFORUM_SEARCH_REINDEX_SCHEDULE" envDefault:"0 3 * * *"`

	// Event log retention
	EventRetentionDays int `env:"OFORUM_EVENT_RETENTION_DAYS" envDefault:"30"`

	// API limits
	APIRateLimit float64 `env:"OFORUM_API_RATE_LIMIT" envDefault:"100"`
	APIRateBurst int     `env:"OFORUM_API_RATE_BURST" envDefault:"200"`

	// Seeding configuration
	AdminAPIKey string `env:"OFORUM_ADMIN_API_KEY"`              // Bootstrap key granted every permission
	DoSeed      bool   `env:"OFORUM_DO_SEED" envDefault:"false"` // Seed sample categories and discussions
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// UseSearchIndex returns true if searches go through the full-text index.
func (c Config) UseSearchIndex() bool {
	return c.SearchDriver == SearchDriverIndex
}

// CacheDuration returns the default cache TTL.
func (c Config) CacheDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// MinAdminAPIKeyLength is the minimum length of the bootstrap admin key.
const MinAdminAPIKeyLength = 24

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	switch cfg.DBDriver {
	case DBDriverSQLite, DBDriverMySQL:
	default:
		return nil, fmt.Errorf("OFORUM_DB_DRIVER must be %q or %q, got %q",
			DBDriverSQLite, DBDriverMySQL, cfg.DBDriver)
	}

	switch cfg.SearchDriver {
	case SearchDriverSQL, SearchDriverIndex:
	default:
		return nil, fmt.Errorf("OFORUM_SEARCH_DRIVER must be %q or %q, got %q",
			SearchDriverSQL, SearchDriverIndex, cfg.SearchDriver)
	}

	if cfg.AdminAPIKey != "" && len(cfg.AdminAPIKey) < MinAdminAPIKeyLength {
		return nil, fmt.Errorf("OFORUM_ADMIN_API_KEY must be at least %d bytes long, got %d bytes",
			MinAdminAPIKeyLength, len(cfg.AdminAPIKey))
	}

	if cfg.CacheTTL < 0 {
		return nil, fmt.Errorf("OFORUM_CACHE_TTL must not be negative")
	}

	return cfg, nil
}
