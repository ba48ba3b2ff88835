// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"time"
)

type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type ApiKey struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	KeyHash     string        `json:"key_hash"`
	KeyPrefix   string        `json:"key_prefix"`
	Permissions string        `json:"permissions"`
	UserID      sql.NullInt64 `json:"user_id"`
	IsActive    bool          `json:"is_active"`
	LastUsedAt  sql.NullTime  `json:"last_used_at"`
	ExpiresAt   sql.NullTime  `json:"expires_at"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type Category struct {
	ID             int64         `json:"id"`
	ParentID       sql.NullInt64 `json:"parent_id"`
	Name           string        `json:"name"`
	Slug           string        `json:"slug"`
	Description    string        `json:"description"`
	Archived       bool          `json:"archived"`
	ViewPermission string        `json:"view_permission"`
	SortOrder      int64         `json:"sort_order"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

type Discussion struct {
	ID         int64     `json:"id"`
	CategoryID int64     `json:"category_id"`
	UserID     int64     `json:"user_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Format     string    `json:"format"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type DiscussionTag struct {
	DiscussionID int64 `json:"discussion_id"`
	TagID        int64 `json:"tag_id"`
}

type Theme struct {
	ID                int64         `json:"id"`
	Name              string        `json:"name"`
	ParentKey         string        `json:"parent_key"`
	CurrentRevisionID sql.NullInt64 `json:"current_revision_id"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

type ThemeRevision struct {
	ID        int64     `json:"id"`
	ThemeID   int64     `json:"theme_id"`
	CreatedAt time.Time `json:"created_at"`
}

type ThemeAsset struct {
	ID         int64  `json:"id"`
	RevisionID int64  `json:"revision_id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Body       string `json:"body"`
}

type SiteConfig struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Event struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Metadata  string    `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}
