// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const tagColumns = `id, name, slug, created_at`

type CreateTagParams struct {
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

func (q *Queries) CreateTag(ctx context.Context, arg CreateTagParams) (Tag, error) {
	id, err := insertID(q.db.ExecContext(ctx,
		`INSERT INTO tags (name, slug, created_at) VALUES (?, ?, ?)`,
		arg.Name, arg.Slug, arg.CreatedAt,
	))
	if err != nil {
		return Tag{}, err
	}
	return Tag{ID: id, Name: arg.Name, Slug: arg.Slug, CreatedAt: arg.CreatedAt}, nil
}

func (q *Queries) GetTag(ctx context.Context, id int64) (Tag, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE id = ?`, id)
	var i Tag
	err := row.Scan(&i.ID, &i.Name, &i.Slug, &i.CreatedAt)
	return i, err
}

func (q *Queries) GetTagByName(ctx context.Context, name string) (Tag, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE name = ?`, name)
	var i Tag
	err := row.Scan(&i.ID, &i.Name, &i.Slug, &i.CreatedAt)
	return i, err
}

func (q *Queries) ListTags(ctx context.Context) ([]Tag, error) {
	return q.listTags(ctx, `SELECT `+tagColumns+` FROM tags ORDER BY name`)
}

// GetTagsByNames returns the tags matching names; unknown names are skipped.
func (q *Queries) GetTagsByNames(ctx context.Context, names []string) ([]Tag, error) {
	if len(names) == 0 {
		return []Tag{}, nil
	}
	return q.listTags(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE name IN (`+Placeholders(len(names))+`) ORDER BY name`,
		StringArgs(names)...)
}

func (q *Queries) listTags(ctx context.Context, query string, args ...any) ([]Tag, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []Tag{}
	for rows.Next() {
		var i Tag
		if err := rows.Scan(&i.ID, &i.Name, &i.Slug, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type DiscussionTagRow struct {
	DiscussionID int64 `json:"discussion_id"`
	Tag          Tag   `json:"tag"`
}

// GetTagsForDiscussions returns the tags attached to each of the given discussions.
func (q *Queries) GetTagsForDiscussions(ctx context.Context, discussionIDs []int64) ([]DiscussionTagRow, error) {
	if len(discussionIDs) == 0 {
		return []DiscussionTagRow{}, nil
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT dt.discussion_id, t.id, t.name, t.slug, t.created_at
		FROM discussion_tags dt
		INNER JOIN tags t ON t.id = dt.tag_id
		WHERE dt.discussion_id IN (`+Placeholders(len(discussionIDs))+`)
		ORDER BY dt.discussion_id, t.name`,
		Int64Args(discussionIDs)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []DiscussionTagRow{}
	for rows.Next() {
		var i DiscussionTagRow
		if err := rows.Scan(&i.DiscussionID, &i.Tag.ID, &i.Tag.Name, &i.Tag.Slug, &i.Tag.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (q *Queries) AddTagToDiscussion(ctx context.Context, arg DiscussionTag) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO discussion_tags (discussion_id, tag_id) VALUES (?, ?)`,
		arg.DiscussionID, arg.TagID)
	return err
}

func (q *Queries) ClearDiscussionTags(ctx context.Context, discussionID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM discussion_tags WHERE discussion_id = ?`, discussionID)
	return err
}
