// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/olegiv/oforum/internal/util"
)

const discussionColumns = `id, category_id, user_id, title, body, format, created_at, updated_at`

func scanDiscussion(row interface{ Scan(...any) error }) (Discussion, error) {
	var i Discussion
	err := row.Scan(
		&i.ID,
		&i.CategoryID,
		&i.UserID,
		&i.Title,
		&i.Body,
		&i.Format,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

type CreateDiscussionParams struct {
	CategoryID int64     `json:"category_id"`
	UserID     int64     `json:"user_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Format     string    `json:"format"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (q *Queries) CreateDiscussion(ctx context.Context, arg CreateDiscussionParams) (Discussion, error) {
	id, err := insertID(q.db.ExecContext(ctx, `
		INSERT INTO discussions (category_id, user_id, title, body, format, title_search, body_search, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.CategoryID,
		arg.UserID,
		arg.Title,
		arg.Body,
		arg.Format,
		util.FoldCase(arg.Title),
		util.FoldCase(arg.Body),
		arg.CreatedAt,
		arg.UpdatedAt,
	))
	if err != nil {
		return Discussion{}, err
	}
	return Discussion{
		ID:         id,
		CategoryID: arg.CategoryID,
		UserID:     arg.UserID,
		Title:      arg.Title,
		Body:       arg.Body,
		Format:     arg.Format,
		CreatedAt:  arg.CreatedAt,
		UpdatedAt:  arg.UpdatedAt,
	}, nil
}

func (q *Queries) GetDiscussion(ctx context.Context, id int64) (Discussion, error) {
	return scanDiscussion(q.db.QueryRowContext(ctx, `SELECT `+discussionColumns+` FROM discussions WHERE id = ?`, id))
}

// GetDiscussionsByIDs returns the discussions with the given ids in id order.
func (q *Queries) GetDiscussionsByIDs(ctx context.Context, ids []int64) ([]Discussion, error) {
	if len(ids) == 0 {
		return []Discussion{}, nil
	}
	return q.listDiscussions(ctx,
		`SELECT `+discussionColumns+` FROM discussions WHERE id IN (`+Placeholders(len(ids))+`) ORDER BY id`,
		Int64Args(ids)...)
}

type ListDiscussionsParams struct {
	Limit  int64 `json:"limit"`
	Offset int64 `json:"offset"`
}

// ListDiscussions returns discussions newest first.
func (q *Queries) ListDiscussions(ctx context.Context, arg ListDiscussionsParams) ([]Discussion, error) {
	return q.listDiscussions(ctx,
		`SELECT `+discussionColumns+` FROM discussions ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		arg.Limit, arg.Offset)
}

type ListDiscussionsByCategoriesParams struct {
	CategoryIDs []int64 `json:"category_ids"`
	Limit       int64   `json:"limit"`
	Offset      int64   `json:"offset"`
}

// ListDiscussionsByCategories returns discussions in any of the categories, newest first.
func (q *Queries) ListDiscussionsByCategories(ctx context.Context, arg ListDiscussionsByCategoriesParams) ([]Discussion, error) {
	if len(arg.CategoryIDs) == 0 {
		return []Discussion{}, nil
	}
	args := append(Int64Args(arg.CategoryIDs), arg.Limit, arg.Offset)
	return q.listDiscussions(ctx,
		`SELECT `+discussionColumns+` FROM discussions
		WHERE category_id IN (`+Placeholders(len(arg.CategoryIDs))+`)
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		args...)
}

func (q *Queries) CountDiscussionsByCategories(ctx context.Context, categoryIDs []int64) (int64, error) {
	if len(categoryIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM discussions WHERE category_id IN (`+Placeholders(len(categoryIDs))+`)`,
		Int64Args(categoryIDs)...).Scan(&count)
	return count, err
}

// ListDiscussionsAfterID pages through all discussions by id, for index rebuilds.
func (q *Queries) ListDiscussionsAfterID(ctx context.Context, afterID int64, limit int64) ([]Discussion, error) {
	return q.listDiscussions(ctx,
		`SELECT `+discussionColumns+` FROM discussions WHERE id > ? ORDER BY id LIMIT ?`,
		afterID, limit)
}

func (q *Queries) CountDiscussions(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM discussions`).Scan(&count)
	return count, err
}

type UpdateDiscussionParams struct {
	ID         int64     `json:"id"`
	CategoryID int64     `json:"category_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Format     string    `json:"format"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (q *Queries) UpdateDiscussion(ctx context.Context, arg UpdateDiscussionParams) (Discussion, error) {
	_, err := q.db.ExecContext(ctx, `
		UPDATE discussions SET category_id = ?, title = ?, body = ?, format = ?,
			title_search = ?, body_search = ?, updated_at = ?
		WHERE id = ?`,
		arg.CategoryID,
		arg.Title,
		arg.Body,
		arg.Format,
		util.FoldCase(arg.Title),
		util.FoldCase(arg.Body),
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return Discussion{}, err
	}
	return q.GetDiscussion(ctx, arg.ID)
}

func (q *Queries) DeleteDiscussion(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM discussions WHERE id = ?`, id)
	return err
}

func (q *Queries) listDiscussions(ctx context.Context, query string, args ...any) ([]Discussion, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []Discussion{}
	for rows.Next() {
		i, err := scanDiscussion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
