// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/olegiv/oforum/internal/model"
	"github.com/olegiv/oforum/internal/search"
	"github.com/olegiv/oforum/internal/store"
	"github.com/olegiv/oforum/internal/util"
)

// Taxonomy limits.
const (
	MaxCategoryNameLength = 255
	MaxTagNameLength      = 100
)

// CategoryNode is a category with its visible subcategories.
type CategoryNode struct {
	model.Category
	Children []CategoryNode `json:"children"`
}

// CreateCategoryInput holds the fields of a new category.
type CreateCategoryInput struct {
	Name             string `json:"name"`
	URLCode          string `json:"urlcode"`
	Description      string `json:"description"`
	ParentCategoryID *int64 `json:"parentCategoryID"`
	Archived         bool   `json:"isArchived"`
	ViewPermission   string `json:"viewPermission"`
	Sort             int64  `json:"sort"`
}

// CreateTagInput holds the fields of a new tag.
type CreateTagInput struct {
	Name    string `json:"name"`
	URLCode string `json:"urlcode"`
}

// TaxonomyService manages categories and tags.
type TaxonomyService struct {
	db      *sql.DB
	queries *store.Queries
	events  *EventService
	logger  *slog.Logger
}

// NewTaxonomyService creates a new TaxonomyService.
func NewTaxonomyService(db *sql.DB, logger *slog.Logger) *TaxonomyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaxonomyService{
		db:      db,
		queries: store.New(db),
		events:  NewEventService(db),
		logger:  logger,
	}
}

// Categories returns the categories caller may view, in display order.
func (s *TaxonomyService) Categories(ctx context.Context, caller model.Caller) ([]model.Category, error) {
	rows, err := s.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	visible := search.VisibleCategories(rows, caller)

	out := []model.Category{}
	for _, c := range rows {
		if visible[c.ID] {
			out = append(out, toModelCategory(c))
		}
	}
	return out, nil
}

// CategoryTree returns the visible categories nested under their parents.
func (s *TaxonomyService) CategoryTree(ctx context.Context, caller model.Caller) ([]CategoryNode, error) {
	categories, err := s.Categories(ctx, caller)
	if err != nil {
		return nil, err
	}
	return buildCategoryTree(categories), nil
}

// Category returns one category. Hidden categories are reported as missing.
func (s *TaxonomyService) Category(ctx context.Context, caller model.Caller, id int64) (model.Category, error) {
	rows, err := s.queries.ListCategories(ctx)
	if err != nil {
		return model.Category{}, fmt.Errorf("listing categories: %w", err)
	}
	if !search.VisibleCategories(rows, caller)[id] {
		return model.Category{}, model.NotFound("category %d", id)
	}
	for _, c := range rows {
		if c.ID == id {
			return toModelCategory(c), nil
		}
	}
	return model.Category{}, model.NotFound("category %d", id)
}

// CreateCategory validates and stores a new category.
func (s *TaxonomyService) CreateCategory(ctx context.Context, in CreateCategoryInput) (model.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	verr := &model.ValidationError{}
	switch {
	case in.Name == "":
		verr.Add("name", "is required")
	case len(in.Name) > MaxCategoryNameLength:
		verr.Add("name", fmt.Sprintf("must be at most %d characters", MaxCategoryNameLength))
	}

	slug := util.Slugify(in.URLCode)
	if strings.TrimSpace(in.URLCode) == "" {
		slug = util.Slugify(in.Name)
	}
	if slug == "" && in.Name != "" {
		verr.Add("urlcode", "must contain letters or digits")
	} else if slug != "" {
		_, err := s.queries.GetCategoryBySlug(ctx, slug)
		switch {
		case err == nil:
			verr.Add("urlcode", "is already in use")
		case !errors.Is(err, sql.ErrNoRows):
			return model.Category{}, fmt.Errorf("checking category slug: %w", err)
		}
	}

	var parent sql.NullInt64
	if in.ParentCategoryID != nil {
		_, err := s.queries.GetCategory(ctx, *in.ParentCategoryID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			verr.Add("parentCategoryID", "does not exist")
		case err != nil:
			return model.Category{}, fmt.Errorf("loading parent category: %w", err)
		default:
			parent = util.NullInt64FromPtr(in.ParentCategoryID)
		}
	}

	if err := verr.OrNil(); err != nil {
		return model.Category{}, err
	}

	now := store.Now()
	c, err := s.queries.CreateCategory(ctx, store.CreateCategoryParams{
		ParentID:       parent,
		Name:           in.Name,
		Slug:           slug,
		Description:    strings.TrimSpace(in.Description),
		Archived:       in.Archived,
		ViewPermission: strings.TrimSpace(in.ViewPermission),
		SortOrder:      in.Sort,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return model.Category{}, fmt.Errorf("creating category: %w", err)
	}

	s.audit(ctx, "Category created", map[string]any{"category_id": c.ID, "name": c.Name})
	return toModelCategory(c), nil
}

// Tags returns every tag by name.
func (s *TaxonomyService) Tags(ctx context.Context) ([]model.Tag, error) {
	rows, err := s.queries.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	out := make([]model.Tag, 0, len(rows))
	for _, t := range rows {
		out = append(out, toModelTag(t))
	}
	return out, nil
}

// Tag returns one tag.
func (s *TaxonomyService) Tag(ctx context.Context, id int64) (model.Tag, error) {
	t, err := s.queries.GetTag(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Tag{}, model.NotFound("tag %d", id)
	}
	if err != nil {
		return model.Tag{}, fmt.Errorf("loading tag %d: %w", id, err)
	}
	return toModelTag(t), nil
}

// CreateTag validates and stores a new tag.
func (s *TaxonomyService) CreateTag(ctx context.Context, in CreateTagInput) (model.Tag, error) {
	in.Name = strings.TrimSpace(in.Name)
	verr := &model.ValidationError{}
	switch {
	case in.Name == "":
		verr.Add("name", "is required")
	case len(in.Name) > MaxTagNameLength:
		verr.Add("name", fmt.Sprintf("must be at most %d characters", MaxTagNameLength))
	case strings.Contains(in.Name, ","):
		verr.Add("name", "must not contain commas")
	default:
		_, err := s.queries.GetTagByName(ctx, in.Name)
		switch {
		case err == nil:
			verr.Add("name", "is already in use")
		case !errors.Is(err, sql.ErrNoRows):
			return model.Tag{}, fmt.Errorf("checking tag name: %w", err)
		}
	}

	slug := util.Slugify(in.URLCode)
	if strings.TrimSpace(in.URLCode) == "" {
		slug = util.Slugify(in.Name)
	}
	if slug == "" && in.Name != "" {
		verr.Add("urlcode", "must contain letters or digits")
	}

	if err := verr.OrNil(); err != nil {
		return model.Tag{}, err
	}

	t, err := s.queries.CreateTag(ctx, store.CreateTagParams{Name: in.Name, Slug: slug, CreatedAt: store.Now()})
	if err != nil {
		return model.Tag{}, fmt.Errorf("creating tag: %w", err)
	}

	s.audit(ctx, "Tag created", map[string]any{"tag_id": t.ID, "name": t.Name})
	return toModelTag(t), nil
}

func (s *TaxonomyService) audit(ctx context.Context, message string, metadata map[string]any) {
	if err := s.events.LogContentEvent(ctx, message, metadata); err != nil {
		s.logger.Warn("failed to record taxonomy event", "error", err)
	}
}

// buildCategoryTree converts the flat list to a nested tree. Categories
// whose parent is not in the list become roots.
func buildCategoryTree(categories []model.Category) []CategoryNode {
	nodes := make(map[int64]*CategoryNode, len(categories))
	for _, c := range categories {
		nodes[c.CategoryID] = &CategoryNode{Category: c, Children: []CategoryNode{}}
	}

	children := make(map[int64][]int64)
	var rootIDs []int64
	for _, c := range categories {
		if c.ParentCategoryID != nil && nodes[*c.ParentCategoryID] != nil {
			children[*c.ParentCategoryID] = append(children[*c.ParentCategoryID], c.CategoryID)
		} else {
			rootIDs = append(rootIDs, c.CategoryID)
		}
	}

	// Copy recursively so grandchildren are populated.
	var build func(id int64, depth int) CategoryNode
	build = func(id int64, depth int) CategoryNode {
		n := *nodes[id]
		n.Children = []CategoryNode{}
		if depth > len(categories) {
			return n
		}
		for _, child := range children[id] {
			n.Children = append(n.Children, build(child, depth+1))
		}
		sortCategoryNodes(n.Children)
		return n
	}

	roots := make([]CategoryNode, 0, len(rootIDs))
	for _, id := range rootIDs {
		roots = append(roots, build(id, 0))
	}
	sortCategoryNodes(roots)
	return roots
}

func sortCategoryNodes(nodes []CategoryNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].SortOrder != nodes[j].SortOrder {
			return nodes[i].SortOrder < nodes[j].SortOrder
		}
		return nodes[i].Name < nodes[j].Name
	})
}

func toModelCategory(c store.Category) model.Category {
	return model.Category{
		CategoryID:       c.ID,
		Name:             c.Name,
		URLCode:          c.Slug,
		Description:      c.Description,
		Archived:         c.Archived,
		ViewPermission:   c.ViewPermission,
		SortOrder:        c.SortOrder,
		URL:              model.CategoryURL(c.Slug),
		DateInserted:     c.CreatedAt,
		ParentCategoryID: util.PtrFromNullInt64(c.ParentID),
	}
}

func toModelTag(t store.Tag) model.Tag {
	return model.Tag{TagID: t.ID, Name: t.Name, URLCode: t.Slug}
}
