// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const categoryColumns = `id, parent_id, name, slug, description, archived, view_permission,
	sort_order, created_at, updated_at`

func scanCategory(row interface{ Scan(...any) error }) (Category, error) {
	var i Category
	err := row.Scan(
		&i.ID,
		&i.ParentID,
		&i.Name,
		&i.Slug,
		&i.Description,
		&i.Archived,
		&i.ViewPermission,
		&i.SortOrder,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

type CreateCategoryParams struct {
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

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	id, err := insertID(q.db.ExecContext(ctx, `
		INSERT INTO categories (parent_id, name, slug, description, archived, view_permission,
			sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ParentID,
		arg.Name,
		arg.Slug,
		arg.Description,
		arg.Archived,
		arg.ViewPermission,
		arg.SortOrder,
		arg.CreatedAt,
		arg.UpdatedAt,
	))
	if err != nil {
		return Category{}, err
	}
	return q.GetCategory(ctx, id)
}

func (q *Queries) GetCategory(ctx context.Context, id int64) (Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
}

func (q *Queries) GetCategoryBySlug(ctx context.Context, slug string) (Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE slug = ?`, slug))
}

// ListCategories returns every category ordered for tree display.
func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY sort_order, name, id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []Category{}
	for rows.Next() {
		i, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type UpdateCategoryParams struct {
	ID             int64         `json:"id"`
	ParentID       sql.NullInt64 `json:"parent_id"`
	Name           string        `json:"name"`
	Slug           string        `json:"slug"`
	Description    string        `json:"description"`
	Archived       bool          `json:"archived"`
	ViewPermission string        `json:"view_permission"`
	SortOrder      int64         `json:"sort_order"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	_, err := q.db.ExecContext(ctx, `
		UPDATE categories SET parent_id = ?, name = ?, slug = ?, description = ?, archived = ?,
			view_permission = ?, sort_order = ?, updated_at = ?
		WHERE id = ?`,
		arg.ParentID,
		arg.Name,
		arg.Slug,
		arg.Description,
		arg.Archived,
		arg.ViewPermission,
		arg.SortOrder,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return Category{}, err
	}
	return q.GetCategory(ctx, arg.ID)
}

func (q *Queries) CountDiscussionsInCategory(ctx context.Context, categoryID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM discussions WHERE category_id = ?`, categoryID).Scan(&count)
	return count, err
}

func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	return err
}
