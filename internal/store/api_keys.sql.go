// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const apiKeyColumns = `id, name, key_hash, key_prefix, permissions, user_id, is_active,
	last_used_at, expires_at, created_at, updated_at`

func scanAPIKey(row interface{ Scan(...any) error }) (ApiKey, error) {
	var i ApiKey
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.KeyHash,
		&i.KeyPrefix,
		&i.Permissions,
		&i.UserID,
		&i.IsActive,
		&i.LastUsedAt,
		&i.ExpiresAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

type CreateAPIKeyParams struct {
	Name        string        `json:"name"`
	KeyHash     string        `json:"key_hash"`
	KeyPrefix   string        `json:"key_prefix"`
	Permissions string        `json:"permissions"`
	UserID      sql.NullInt64 `json:"user_id"`
	IsActive    bool          `json:"is_active"`
	ExpiresAt   sql.NullTime  `json:"expires_at"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (q *Queries) CreateAPIKey(ctx context.Context, arg CreateAPIKeyParams) (ApiKey, error) {
	id, err := insertID(q.db.ExecContext(ctx, `
		INSERT INTO api_keys (name, key_hash, key_prefix, permissions, user_id, is_active,
			expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.Name,
		arg.KeyHash,
		arg.KeyPrefix,
		arg.Permissions,
		arg.UserID,
		arg.IsActive,
		arg.ExpiresAt,
		arg.CreatedAt,
		arg.UpdatedAt,
	))
	if err != nil {
		return ApiKey{}, err
	}
	return q.GetAPIKey(ctx, id)
}

func (q *Queries) GetAPIKey(ctx context.Context, id int64) (ApiKey, error) {
	return scanAPIKey(q.db.QueryRowContext(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = ?`, id))
}

func (q *Queries) GetAPIKeyByHash(ctx context.Context, keyHash string) (ApiKey, error) {
	return scanAPIKey(q.db.QueryRowContext(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = ?`, keyHash))
}

type UpdateAPIKeyLastUsedParams struct {
	LastUsedAt sql.NullTime `json:"last_used_at"`
	ID         int64        `json:"id"`
}

func (q *Queries) UpdateAPIKeyLastUsed(ctx context.Context, arg UpdateAPIKeyLastUsedParams) error {
	_, err := q.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = ? WHERE id = ?`, arg.LastUsedAt, arg.ID)
	return err
}

func (q *Queries) DeactivateAPIKey(ctx context.Context, id int64, updatedAt time.Time) error {
	_, err := q.db.ExecContext(ctx, `UPDATE api_keys SET is_active = ?, updated_at = ? WHERE id = ?`, false, updatedAt, id)
	return err
}
