// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/olegiv/oforum/internal/model"
	"github.com/olegiv/oforum/internal/search"
	"github.com/olegiv/oforum/internal/store"
	"github.com/olegiv/oforum/internal/util"
)

// Discussion limits.
const (
	MaxDiscussionNameLength = 255
	MaxDiscussionBodyLength = 65535
	MaxDiscussionTags       = 20
	DefaultDiscussionLimit  = 30
	MaxDiscussionLimit      = 100
)

// SearchIndexer keeps a search index in step with discussion writes.
type SearchIndexer interface {
	Refresh(ctx context.Context, recordType string, id int64) error
	Remove(recordType string, id int64) error
}

// ListDiscussionsInput selects a page of discussions.
type ListDiscussionsInput struct {
	CategoryID int64
	Page       int
	Limit      int
}

// DiscussionList is one page of discussions.
type DiscussionList struct {
	Items []model.Discussion `json:"items"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// CreateDiscussionInput holds the fields of a new discussion.
type CreateDiscussionInput struct {
	CategoryID int64    `json:"categoryID"`
	Name       string   `json:"name"`
	Body       string   `json:"body"`
	Format     string   `json:"format"`
	Tags       []string `json:"tags"`
}

// UpdateDiscussionInput holds the fields to change. Nil fields are kept.
type UpdateDiscussionInput struct {
	CategoryID *int64    `json:"categoryID"`
	Name       *string   `json:"name"`
	Body       *string   `json:"body"`
	Format     *string   `json:"format"`
	Tags       *[]string `json:"tags"`
}

// DiscussionService manages discussions.
type DiscussionService struct {
	db       *sql.DB
	queries  *store.Queries
	indexer  SearchIndexer
	events   *EventService
	sanitize *bluemonday.Policy
	logger   *slog.Logger
}

// NewDiscussionService creates a new DiscussionService. indexer may be nil
// when the search index is not in use.
func NewDiscussionService(db *sql.DB, indexer SearchIndexer, logger *slog.Logger) *DiscussionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiscussionService{
		db:       db,
		queries:  store.New(db),
		indexer:  indexer,
		events:   NewEventService(db),
		sanitize: bluemonday.UGCPolicy(),
		logger:   logger,
	}
}

// List returns discussions newest first, limited to categories the caller
// may view.
func (s *DiscussionService) List(ctx context.Context, caller model.Caller, in ListDiscussionsInput) (DiscussionList, error) {
	verr := &model.ValidationError{}
	if in.Page == 0 {
		in.Page = 1
	}
	if in.Limit == 0 {
		in.Limit = DefaultDiscussionLimit
	}
	if in.Page < 1 {
		verr.Add("page", "must be positive")
	}
	if in.Limit < 1 || in.Limit > MaxDiscussionLimit {
		verr.Add("limit", fmt.Sprintf("must be between 1 and %d", MaxDiscussionLimit))
	}
	if err := verr.OrNil(); err != nil {
		return DiscussionList{}, err
	}

	visible, err := s.visibleCategories(ctx, caller)
	if err != nil {
		return DiscussionList{}, err
	}

	var categoryIDs []int64
	if in.CategoryID != 0 {
		if !visible[in.CategoryID] {
			return DiscussionList{}, model.NotFound("category %d", in.CategoryID)
		}
		categoryIDs = []int64{in.CategoryID}
	} else {
		for id := range visible {
			categoryIDs = append(categoryIDs, id)
		}
		slices.Sort(categoryIDs)
	}

	list := DiscussionList{Items: []model.Discussion{}, Page: in.Page, Limit: in.Limit}
	if list.Total, err = s.queries.CountDiscussionsByCategories(ctx, categoryIDs); err != nil {
		return DiscussionList{}, fmt.Errorf("counting discussions: %w", err)
	}
	rows, err := s.queries.ListDiscussionsByCategories(ctx, store.ListDiscussionsByCategoriesParams{
		CategoryIDs: categoryIDs,
		Limit:       int64(in.Limit),
		Offset:      int64((in.Page - 1) * in.Limit),
	})
	if err != nil {
		return DiscussionList{}, fmt.Errorf("listing discussions: %w", err)
	}
	if list.Items, err = s.toModels(ctx, rows); err != nil {
		return DiscussionList{}, err
	}
	return list, nil
}

// Get returns one discussion. Discussions in hidden categories are
// reported as missing.
func (s *DiscussionService) Get(ctx context.Context, caller model.Caller, id int64) (model.Discussion, error) {
	row, err := s.getRow(ctx, s.queries, id)
	if err != nil {
		return model.Discussion{}, err
	}
	visible, err := s.visibleCategories(ctx, caller)
	if err != nil {
		return model.Discussion{}, err
	}
	if !visible[row.CategoryID] {
		return model.Discussion{}, model.NotFound("discussion %d", id)
	}
	return s.toModel(ctx, row)
}

// Create validates and stores a new discussion authored by the caller's
// user.
func (s *DiscussionService) Create(ctx context.Context, caller model.Caller, in CreateDiscussionInput) (model.Discussion, error) {
	if caller.UserID == 0 {
		return model.Discussion{}, model.Forbidden("API key is not bound to a user")
	}
	if in.Format == "" {
		in.Format = model.FormatMarkdown
	}
	in.Name = strings.TrimSpace(in.Name)

	verr := &model.ValidationError{}
	s.validateFields(verr, in.Name, in.Body, in.Format)
	if err := s.checkCategory(ctx, caller, in.CategoryID, verr); err != nil {
		return model.Discussion{}, err
	}
	tagIDs, err := s.resolveTags(ctx, in.Tags, verr)
	if err != nil {
		return model.Discussion{}, err
	}
	if err := verr.OrNil(); err != nil {
		return model.Discussion{}, err
	}

	var created store.Discussion
	now := store.Now()
	err = store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		var err error
		created, err = q.CreateDiscussion(ctx, store.CreateDiscussionParams{
			CategoryID: in.CategoryID,
			UserID:     caller.UserID,
			Title:      in.Name,
			Body:       s.cleanBody(in.Body, in.Format),
			Format:     in.Format,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			return fmt.Errorf("creating discussion: %w", err)
		}
		return setDiscussionTags(ctx, q, created.ID, tagIDs)
	})
	if err != nil {
		return model.Discussion{}, err
	}

	s.refreshIndex(ctx, created.ID)
	s.audit(ctx, "Discussion created", map[string]any{"discussion_id": created.ID, "name": created.Title})
	return s.toModel(ctx, created)
}

// Update changes a discussion. Only the fields set in the input change.
func (s *DiscussionService) Update(ctx context.Context, caller model.Caller, id int64, in UpdateDiscussionInput) (model.Discussion, error) {
	current, err := s.Get(ctx, caller, id)
	if err != nil {
		return model.Discussion{}, err
	}

	params := store.UpdateDiscussionParams{
		ID:         id,
		CategoryID: current.CategoryID,
		Title:      current.Name,
		Body:       current.Body,
		Format:     current.Format,
		UpdatedAt:  store.Now(),
	}
	if in.Name != nil {
		params.Title = strings.TrimSpace(*in.Name)
	}
	if in.Body != nil {
		params.Body = *in.Body
	}
	if in.Format != nil {
		params.Format = *in.Format
	}

	verr := &model.ValidationError{}
	s.validateFields(verr, params.Title, params.Body, params.Format)
	if in.CategoryID != nil && *in.CategoryID != current.CategoryID {
		if err := s.checkCategory(ctx, caller, *in.CategoryID, verr); err != nil {
			return model.Discussion{}, err
		}
		params.CategoryID = *in.CategoryID
	}
	var tagIDs []int64
	if in.Tags != nil {
		if tagIDs, err = s.resolveTags(ctx, *in.Tags, verr); err != nil {
			return model.Discussion{}, err
		}
	}
	if err := verr.OrNil(); err != nil {
		return model.Discussion{}, err
	}
	params.Body = s.cleanBody(params.Body, params.Format)

	var updated store.Discussion
	err = store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		var err error
		if updated, err = q.UpdateDiscussion(ctx, params); err != nil {
			return fmt.Errorf("updating discussion: %w", err)
		}
		if in.Tags == nil {
			return nil
		}
		return setDiscussionTags(ctx, q, id, tagIDs)
	})
	if err != nil {
		return model.Discussion{}, err
	}

	s.refreshIndex(ctx, id)
	s.audit(ctx, "Discussion updated", map[string]any{"discussion_id": id})
	return s.toModel(ctx, updated)
}

// Delete removes a discussion and its tag links.
func (s *DiscussionService) Delete(ctx context.Context, caller model.Caller, id int64) error {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return err
	}

	err := store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		if err := q.ClearDiscussionTags(ctx, id); err != nil {
			return fmt.Errorf("clearing tags: %w", err)
		}
		if err := q.DeleteDiscussion(ctx, id); err != nil {
			return fmt.Errorf("deleting discussion: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.indexer != nil {
		if err := s.indexer.Remove(search.DiscussionRecordType, id); err != nil {
			s.logger.Warn("failed to remove discussion from search index", "discussion_id", id, "error", err)
		}
	}
	s.audit(ctx, "Discussion deleted", map[string]any{"discussion_id": id})
	return nil
}

func (s *DiscussionService) validateFields(verr *model.ValidationError, name, body, format string) {
	switch {
	case name == "":
		verr.Add("name", "is required")
	case len(name) > MaxDiscussionNameLength:
		verr.Add("name", fmt.Sprintf("must be at most %d characters", MaxDiscussionNameLength))
	}
	switch {
	case strings.TrimSpace(body) == "":
		verr.Add("body", "is required")
	case len(body) > MaxDiscussionBodyLength:
		verr.Add("body", fmt.Sprintf("must be at most %d bytes", MaxDiscussionBodyLength))
	}
	if !model.ValidFormat(format) {
		verr.Add("format", fmt.Sprintf("must be one of %s, %s, %s", model.FormatMarkdown, model.FormatHTML, model.FormatText))
	}
}

// checkCategory records a validation failure unless the caller may post
// into the category.
func (s *DiscussionService) checkCategory(ctx context.Context, caller model.Caller, id int64, verr *model.ValidationError) error {
	if id == 0 {
		verr.Add("categoryID", "is required")
		return nil
	}
	rows, err := s.queries.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("listing categories: %w", err)
	}
	if !search.VisibleCategories(rows, caller)[id] {
		verr.Add("categoryID", "does not exist")
		return nil
	}
	for _, c := range rows {
		if c.ID == id && c.Archived {
			verr.Add("categoryID", "is archived")
		}
	}
	return nil
}

// resolveTags maps tag names to IDs. Unknown names are a validation error.
func (s *DiscussionService) resolveTags(ctx context.Context, names []string, verr *model.ValidationError) ([]int64, error) {
	var clean []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" && !slices.Contains(clean, n) {
			clean = append(clean, n)
		}
	}
	if len(clean) == 0 {
		return nil, nil
	}
	if len(clean) > MaxDiscussionTags {
		verr.Add("tags", fmt.Sprintf("at most %d tags are allowed", MaxDiscussionTags))
		return nil, nil
	}

	tags, err := s.queries.GetTagsByNames(ctx, clean)
	if err != nil {
		return nil, fmt.Errorf("resolving tags: %w", err)
	}
	known := make(map[string]int64, len(tags))
	for _, t := range tags {
		known[t.Name] = t.ID
	}
	var unknown []string
	ids := make([]int64, 0, len(clean))
	for _, n := range clean {
		id, ok := known[n]
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		ids = append(ids, id)
	}
	if len(unknown) > 0 {
		verr.Add("tags", "unknown tags: "+strings.Join(unknown, ", "))
	}
	return ids, nil
}

func setDiscussionTags(ctx context.Context, q *store.Queries, discussionID int64, tagIDs []int64) error {
	if err := q.ClearDiscussionTags(ctx, discussionID); err != nil {
		return fmt.Errorf("clearing tags: %w", err)
	}
	for _, tagID := range tagIDs {
		if err := q.AddTagToDiscussion(ctx, store.DiscussionTag{DiscussionID: discussionID, TagID: tagID}); err != nil {
			return fmt.Errorf("adding tag %d: %w", tagID, err)
		}
	}
	return nil
}

// cleanBody sanitizes HTML bodies; other formats are stored as written and
// rendered safely on output.
func (s *DiscussionService) cleanBody(body, format string) string {
	if format == model.FormatHTML {
		return s.sanitize.Sanitize(body)
	}
	return body
}

func (s *DiscussionService) visibleCategories(ctx context.Context, caller model.Caller) (map[int64]bool, error) {
	rows, err := s.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return search.VisibleCategories(rows, caller), nil
}

func (s *DiscussionService) getRow(ctx context.Context, q *store.Queries, id int64) (store.Discussion, error) {
	row, err := q.GetDiscussion(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Discussion{}, model.NotFound("discussion %d", id)
	}
	if err != nil {
		return store.Discussion{}, fmt.Errorf("loading discussion %d: %w", id, err)
	}
	return row, nil
}

func (s *DiscussionService) refreshIndex(ctx context.Context, id int64) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.Refresh(ctx, search.DiscussionRecordType, id); err != nil {
		s.logger.Warn("failed to update search index", "discussion_id", id, "error", err)
	}
}

func (s *DiscussionService) audit(ctx context.Context, message string, metadata map[string]any) {
	if err := s.events.LogContentEvent(ctx, message, metadata); err != nil {
		s.logger.Warn("failed to record discussion event", "error", err)
	}
}

func (s *DiscussionService) toModel(ctx context.Context, row store.Discussion) (model.Discussion, error) {
	items, err := s.toModels(ctx, []store.Discussion{row})
	if err != nil {
		return model.Discussion{}, err
	}
	return items[0], nil
}

// toModels converts rows, loading their tags and author names in bulk.
func (s *DiscussionService) toModels(ctx context.Context, rows []store.Discussion) ([]model.Discussion, error) {
	out := make([]model.Discussion, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]int64, len(rows))
	var userIDs []int64
	for i, r := range rows {
		ids[i] = r.ID
		if !slices.Contains(userIDs, r.UserID) {
			userIDs = append(userIDs, r.UserID)
		}
	}

	tagRows, err := s.queries.GetTagsForDiscussions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading tags: %w", err)
	}
	tags := make(map[int64][]model.Tag)
	for _, t := range tagRows {
		tags[t.DiscussionID] = append(tags[t.DiscussionID], toModelTag(t.Tag))
	}

	users, err := s.queries.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	for _, r := range rows {
		d := model.Discussion{
			DiscussionID:   r.ID,
			CategoryID:     r.CategoryID,
			Name:           r.Title,
			Body:           r.Body,
			Format:         r.Format,
			InsertUserID:   r.UserID,
			InsertUserName: names[r.UserID],
			Tags:           tags[r.ID],
			URL:            model.DiscussionURL(r.ID, util.Slugify(r.Title)),
			DateInserted:   r.CreatedAt,
			DateUpdated:    r.UpdatedAt,
		}
		if d.Tags == nil {
			d.Tags = []model.Tag{}
		}
		out = append(out, d)
	}
	return out, nil
}
