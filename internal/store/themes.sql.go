// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const themeColumns = `id, name, parent_key, current_revision_id, created_at, updated_at`

func scanTheme(row interface{ Scan(...any) error }) (Theme, error) {
	var i Theme
	err := row.Scan(&i.ID, &i.Name, &i.ParentKey, &i.CurrentRevisionID, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

type CreateThemeParams struct {
	Name      string    `json:"name"`
	ParentKey string    `json:"parent_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (q *Queries) CreateTheme(ctx context.Context, arg CreateThemeParams) (Theme, error) {
	id, err := insertID(q.db.ExecContext(ctx,
		`INSERT INTO themes (name, parent_key, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		arg.Name, arg.ParentKey, arg.CreatedAt, arg.UpdatedAt,
	))
	if err != nil {
		return Theme{}, err
	}
	return Theme{
		ID:        id,
		Name:      arg.Name,
		ParentKey: arg.ParentKey,
		CreatedAt: arg.CreatedAt,
		UpdatedAt: arg.UpdatedAt,
	}, nil
}

func (q *Queries) GetTheme(ctx context.Context, id int64) (Theme, error) {
	return scanTheme(q.db.QueryRowContext(ctx, `SELECT `+themeColumns+` FROM themes WHERE id = ?`, id))
}

func (q *Queries) ListThemes(ctx context.Context) ([]Theme, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+themeColumns+` FROM themes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []Theme{}
	for rows.Next() {
		i, err := scanTheme(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type UpdateThemeParams struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ParentKey string    `json:"parent_key"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (q *Queries) UpdateTheme(ctx context.Context, arg UpdateThemeParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE themes SET name = ?, parent_key = ?, updated_at = ? WHERE id = ?`,
		arg.Name, arg.ParentKey, arg.UpdatedAt, arg.ID)
	return err
}

type SetThemeRevisionParams struct {
	ID                int64         `json:"id"`
	CurrentRevisionID sql.NullInt64 `json:"current_revision_id"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

func (q *Queries) SetThemeRevision(ctx context.Context, arg SetThemeRevisionParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE themes SET current_revision_id = ?, updated_at = ? WHERE id = ?`,
		arg.CurrentRevisionID, arg.UpdatedAt, arg.ID)
	return err
}

// DeleteTheme removes a theme with its revisions and assets.
func (q *Queries) DeleteTheme(ctx context.Context, id int64) error {
	if _, err := q.db.ExecContext(ctx, `
		DELETE FROM theme_assets WHERE revision_id IN (
			SELECT id FROM theme_revisions WHERE theme_id = ?
		)`, id); err != nil {
		return err
	}
	if _, err := q.db.ExecContext(ctx, `DELETE FROM theme_revisions WHERE theme_id = ?`, id); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx, `DELETE FROM themes WHERE id = ?`, id)
	return err
}

type CreateThemeRevisionParams struct {
	ThemeID   int64     `json:"theme_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (q *Queries) CreateThemeRevision(ctx context.Context, arg CreateThemeRevisionParams) (ThemeRevision, error) {
	id, err := insertID(q.db.ExecContext(ctx,
		`INSERT INTO theme_revisions (theme_id, created_at) VALUES (?, ?)`,
		arg.ThemeID, arg.CreatedAt,
	))
	if err != nil {
		return ThemeRevision{}, err
	}
	return ThemeRevision{ID: id, ThemeID: arg.ThemeID, CreatedAt: arg.CreatedAt}, nil
}

func (q *Queries) GetThemeRevision(ctx context.Context, id int64) (ThemeRevision, error) {
	row := q.db.QueryRowContext(ctx, `SELECT id, theme_id, created_at FROM theme_revisions WHERE id = ?`, id)
	var i ThemeRevision
	err := row.Scan(&i.ID, &i.ThemeID, &i.CreatedAt)
	return i, err
}

// ListThemeRevisions returns revisions of a theme, newest first.
func (q *Queries) ListThemeRevisions(ctx context.Context, themeID int64) ([]ThemeRevision, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, theme_id, created_at FROM theme_revisions WHERE theme_id = ? ORDER BY id DESC`,
		themeID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []ThemeRevision{}
	for rows.Next() {
		var i ThemeRevision
		if err := rows.Scan(&i.ID, &i.ThemeID, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type CreateThemeAssetParams struct {
	RevisionID int64  `json:"revision_id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Body       string `json:"body"`
}

func (q *Queries) CreateThemeAsset(ctx context.Context, arg CreateThemeAssetParams) (ThemeAsset, error) {
	id, err := insertID(q.db.ExecContext(ctx,
		`INSERT INTO theme_assets (revision_id, name, type, body) VALUES (?, ?, ?, ?)`,
		arg.RevisionID, arg.Name, arg.Type, arg.Body,
	))
	if err != nil {
		return ThemeAsset{}, err
	}
	return ThemeAsset{ID: id, RevisionID: arg.RevisionID, Name: arg.Name, Type: arg.Type, Body: arg.Body}, nil
}

func (q *Queries) ListThemeAssets(ctx context.Context, revisionID int64) ([]ThemeAsset, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, revision_id, name, type, body FROM theme_assets WHERE revision_id = ? ORDER BY name`,
		revisionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []ThemeAsset{}
	for rows.Next() {
		var i ThemeAsset
		if err := rows.Scan(&i.ID, &i.RevisionID, &i.Name, &i.Type, &i.Body); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
