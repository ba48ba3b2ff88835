// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Config keys.
const (
	ConfigKeyCurrentTheme = "theme.current"
)

func (q *Queries) GetConfig(ctx context.Context, key string) (SiteConfig, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT config_key, config_value, updated_at FROM site_config WHERE config_key = ?`, key)
	var i SiteConfig
	err := row.Scan(&i.Key, &i.Value, &i.UpdatedAt)
	return i, err
}

type SetConfigParams struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetConfig inserts or updates a config value.
// Upsert syntax differs between SQLite and MySQL, so this reads first.
func (q *Queries) SetConfig(ctx context.Context, arg SetConfigParams) error {
	_, err := q.GetConfig(ctx, arg.Key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = q.db.ExecContext(ctx,
			`INSERT INTO site_config (config_key, config_value, updated_at) VALUES (?, ?, ?)`,
			arg.Key, arg.Value, arg.UpdatedAt)
		return err
	case err != nil:
		return err
	}

	_, err = q.db.ExecContext(ctx,
		`UPDATE site_config SET config_value = ?, updated_at = ? WHERE config_key = ?`,
		arg.Value, arg.UpdatedAt, arg.Key)
	return err
}
