// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package search

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/olegiv/oforum/internal/model"
	"github.com/olegiv/oforum/internal/store"
	"github.com/olegiv/oforum/internal/util"
)

// DiscussionRecordType is the record type key of discussions.
const DiscussionRecordType = "discussion"

const documentBatchSize = 500

// DiscussionType makes discussions searchable.
type DiscussionType struct {
	queries *store.Queries
}

// NewDiscussionType creates the discussion record type.
func NewDiscussionType(db store.DBTX) *DiscussionType {
	return &DiscussionType{queries: store.New(db)}
}

// Key returns DiscussionRecordType.
func (d *DiscussionType) Key() string {
	return DiscussionRecordType
}

// discussionFilter is a query with its names resolved to IDs. A nil
// categoryIDs allows every category.
type discussionFilter struct {
	categoryIDs []int64
	tagIDs      []int64
	allTags     bool
	userIDs     []int64
}

func (d *DiscussionType) resolve(ctx context.Context, q Query, caller model.Caller) (discussionFilter, error) {
	var f discussionFilter

	categories, err := d.queries.ListCategories(ctx)
	if err != nil {
		return f, fmt.Errorf("listing categories: %w", err)
	}
	if f.categoryIDs, err = newCategoryTree(categories).searchable(q, caller); err != nil {
		return f, err
	}

	if len(q.Tags) > 0 {
		tags, err := d.queries.GetTagsByNames(ctx, q.Tags)
		if err != nil {
			return f, fmt.Errorf("resolving tags: %w", err)
		}
		if len(tags) == 0 {
			return f, ErrNoMatches
		}
		if q.TagOperator == TagOperatorAnd {
			if len(tags) < len(q.Tags) {
				return f, ErrNoMatches
			}
			f.allTags = true
		}
		for _, t := range tags {
			f.tagIDs = append(f.tagIDs, t.ID)
		}
	}

	if len(q.InsertUserIDs) > 0 || len(q.InsertUserNames) > 0 {
		seen := make(map[int64]bool)
		addUser := func(id int64) {
			if !seen[id] {
				seen[id] = true
				f.userIDs = append(f.userIDs, id)
			}
		}
		for _, id := range q.InsertUserIDs {
			addUser(id)
		}
		if len(q.InsertUserNames) > 0 {
			users, err := d.queries.GetUsersByNames(ctx, q.InsertUserNames)
			if err != nil {
				return f, fmt.Errorf("resolving users: %w", err)
			}
			for _, u := range users {
				addUser(u.ID)
			}
		}
		if len(f.userIDs) == 0 {
			return f, ErrNoMatches
		}
	}

	return f, nil
}

// ApplyToIndex restricts an index search to the discussions q selects.
func (d *DiscussionType) ApplyToIndex(ctx context.Context, q Query, caller model.Caller, idx *IndexFilter) error {
	f, err := d.resolve(ctx, q, caller)
	if err != nil {
		return err
	}

	if f.categoryIDs != nil {
		idx.AnyNumber(FieldCategoryID, f.categoryIDs...)
	}
	if q.DiscussionID != 0 {
		idx.AnyNumber(FieldRecordID, q.DiscussionID)
	}
	if len(f.userIDs) > 0 {
		idx.AnyNumber(FieldInsertUserID, f.userIDs...)
	}
	if len(f.tagIDs) > 0 {
		if f.allTags {
			idx.AllNumbers(FieldTagIDs, f.tagIDs...)
		} else {
			idx.AnyNumber(FieldTagIDs, f.tagIDs...)
		}
	}
	idx.DateRange(FieldDateInserted, q.DateInserted)
	if terms := q.Terms(); len(terms) > 0 {
		idx.MatchAll([]string{FieldName, FieldBody}, terms)
	}
	if terms := q.NameTerms(); len(terms) > 0 {
		idx.MatchAll([]string{FieldName}, terms)
	}
	return nil
}

// ApplyToSQL restricts a SQL search to the discussions q selects.
func (d *DiscussionType) ApplyToSQL(ctx context.Context, q Query, caller model.Caller, s *SQLQuery) error {
	f, err := d.resolve(ctx, q, caller)
	if err != nil {
		return err
	}

	s.Table("discussions d", "d.id", "d.created_at")
	if f.categoryIDs != nil {
		s.WhereIn("d.category_id", f.categoryIDs)
	}
	if q.DiscussionID != 0 {
		s.Where("d.id = ?", q.DiscussionID)
	}
	if len(f.userIDs) > 0 {
		s.WhereIn("d.user_id", f.userIDs)
	}
	if len(f.tagIDs) > 0 {
		sub := "SELECT dt.discussion_id FROM discussion_tags dt WHERE dt.tag_id IN (" +
			store.Placeholders(len(f.tagIDs)) + ")"
		args := store.Int64Args(f.tagIDs)
		if f.allTags {
			sub += " GROUP BY dt.discussion_id HAVING COUNT(DISTINCT dt.tag_id) = ?"
			args = append(args, len(f.tagIDs))
		}
		s.Where("d.id IN ("+sub+")", args...)
	}
	if !q.DateInserted.From.IsZero() {
		s.Where("d.created_at >= ?", q.DateInserted.From)
	}
	if !q.DateInserted.To.IsZero() {
		s.Where("d.created_at < ?", q.DateInserted.To)
	}
	if terms := q.Terms(); len(terms) > 0 {
		s.WhereContainsAll([]string{"d.title_search", "d.body_search"}, terms)
	}
	if terms := q.NameTerms(); len(terms) > 0 {
		s.WhereContainsAll([]string{"d.title_search"}, terms)
	}
	return nil
}

// Hydrate loads discussions as search results.
func (d *DiscussionType) Hydrate(ctx context.Context, q Query, ids []int64) (map[int64]model.SearchResultItem, error) {
	out := make(map[int64]model.SearchResultItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := d.queries.GetDiscussionsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading discussions: %w", err)
	}
	categories, err := d.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	tree := newCategoryTree(categories)

	tagRows, err := d.queries.GetTagsForDiscussions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading tags: %w", err)
	}
	tags := make(map[int64][]model.Tag)
	for _, r := range tagRows {
		tags[r.DiscussionID] = append(tags[r.DiscussionID], model.Tag{
			TagID:   r.Tag.ID,
			Name:    r.Tag.Name,
			URLCode: r.Tag.Slug,
		})
	}

	var userIDs []int64
	seenUser := make(map[int64]bool)
	for _, r := range rows {
		if !seenUser[r.UserID] {
			seenUser[r.UserID] = true
			userIDs = append(userIDs, r.UserID)
		}
	}
	users, err := d.queries.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	userNames := make(map[int64]string, len(users))
	for _, u := range users {
		userNames[u.ID] = u.Name
	}

	terms := append(q.Terms(), q.NameTerms()...)
	for _, r := range rows {
		out[r.ID] = model.SearchResultItem{
			RecordType:     DiscussionRecordType,
			Type:           DiscussionRecordType,
			RecordID:       r.ID,
			DiscussionID:   r.ID,
			CategoryID:     r.CategoryID,
			Name:           r.Title,
			Body:           Excerpt(PlainText(r.Body, r.Format), terms, ExcerptLength),
			URL:            model.DiscussionURL(r.ID, util.Slugify(r.Title)),
			Breadcrumbs:    tree.breadcrumbs(r.CategoryID),
			Tags:           tags[r.ID],
			InsertUserID:   r.UserID,
			InsertUserName: userNames[r.UserID],
			DateInserted:   r.CreatedAt,
			DateUpdated:    r.UpdatedAt,
		}
	}
	return out, nil
}

// Document loads the index document of one discussion.
func (d *DiscussionType) Document(ctx context.Context, id int64) (Document, error) {
	row, err := d.queries.GetDiscussion(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, model.NotFound("discussion %d", id)
	}
	if err != nil {
		return Document{}, fmt.Errorf("loading discussion %d: %w", id, err)
	}
	tagRows, err := d.queries.GetTagsForDiscussions(ctx, []int64{id})
	if err != nil {
		return Document{}, fmt.Errorf("loading tags: %w", err)
	}
	return discussionDocument(row, tagRows), nil
}

// Documents pages through every discussion in ID order.
func (d *DiscussionType) Documents(ctx context.Context, fn func(id int64, doc Document) error) error {
	var after int64
	for {
		rows, err := d.queries.ListDiscussionsAfterID(ctx, after, documentBatchSize)
		if err != nil {
			return fmt.Errorf("listing discussions: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]int64, len(rows))
		for i, r := range rows {
			ids[i] = r.ID
		}
		tagRows, err := d.queries.GetTagsForDiscussions(ctx, ids)
		if err != nil {
			return fmt.Errorf("loading tags: %w", err)
		}
		byDiscussion := make(map[int64][]store.DiscussionTagRow)
		for _, t := range tagRows {
			byDiscussion[t.DiscussionID] = append(byDiscussion[t.DiscussionID], t)
		}

		for _, r := range rows {
			if err := fn(r.ID, discussionDocument(r, byDiscussion[r.ID])); err != nil {
				return err
			}
		}
		if len(rows) < documentBatchSize {
			return nil
		}
		after = rows[len(rows)-1].ID
	}
}

func discussionDocument(row store.Discussion, tags []store.DiscussionTagRow) Document {
	doc := Document{
		Type:         DiscussionRecordType,
		RecordID:     float64(row.ID),
		Name:         row.Title,
		Body:         PlainText(row.Body, row.Format),
		CategoryID:   float64(row.CategoryID),
		InsertUserID: float64(row.UserID),
		DateInserted: row.CreatedAt,
	}
	for _, t := range tags {
		doc.TagIDs = append(doc.TagIDs, float64(t.Tag.ID))
	}
	return doc
}
