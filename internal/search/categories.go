// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package search

import (
	"slices"

	"github.com/olegiv/oforum/internal/model"
	"github.com/olegiv/oforum/internal/store"
)

// categoryTree indexes categories by ID and by parent.
type categoryTree struct {
	byID     map[int64]store.Category
	children map[int64][]int64
}

func newCategoryTree(categories []store.Category) categoryTree {
	t := categoryTree{
		byID:     make(map[int64]store.Category, len(categories)),
		children: make(map[int64][]int64),
	}
	for _, c := range categories {
		t.byID[c.ID] = c
		if c.ParentID.Valid {
			t.children[c.ParentID.Int64] = append(t.children[c.ParentID.Int64], c.ID)
		}
	}
	return t
}

// VisibleCategories returns the IDs of the categories caller may view.
func VisibleCategories(categories []store.Category, caller model.Caller) map[int64]bool {
	t := newCategoryTree(categories)
	out := make(map[int64]bool, len(categories))
	for _, c := range categories {
		if t.visible(c.ID, caller) {
			out[c.ID] = true
		}
	}
	return out
}

// ancestors returns the category and its parents, root first.
func (t categoryTree) ancestors(id int64) []store.Category {
	var chain []store.Category
	for depth := 0; depth <= len(t.byID); depth++ {
		c, ok := t.byID[id]
		if !ok {
			break
		}
		chain = append(chain, c)
		if !c.ParentID.Valid {
			break
		}
		id = c.ParentID.Int64
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// visible reports whether the caller may view the category. A category is
// hidden when it or any of its ancestors requires a permission the caller
// lacks.
func (t categoryTree) visible(id int64, caller model.Caller) bool {
	chain := t.ancestors(id)
	if len(chain) == 0 {
		return false
	}
	for _, c := range chain {
		if !caller.Has(c.ViewPermission) {
			return false
		}
	}
	return true
}

// descendants returns every category below id, breadth first.
func (t categoryTree) descendants(id int64) []int64 {
	var out []int64
	seen := map[int64]bool{id: true}
	queue := []int64{id}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, child := range t.children[next] {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

// breadcrumbs returns the location of a record filed in category id.
func (t categoryTree) breadcrumbs(id int64) []model.Breadcrumb {
	chain := t.ancestors(id)
	crumbs := make([]model.Breadcrumb, 0, len(chain))
	for _, c := range chain {
		crumbs = append(crumbs, model.Breadcrumb{Name: c.Name, URL: model.CategoryURL(c.Slug)})
	}
	return crumbs
}

// searchable returns the categories a query may return records from, or
// nil when every category is allowed. Explicitly requested categories are
// kept even when archived; archived children and, without a category
// filter, archived categories are left out unless the query includes them.
func (t categoryTree) searchable(q Query, caller model.Caller) ([]int64, error) {
	var ids []int64
	seen := make(map[int64]bool)
	add := func(id int64) {
		if !seen[id] && t.visible(id, caller) {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if len(q.CategoryIDs) > 0 {
		for _, id := range q.CategoryIDs {
			if _, ok := t.byID[id]; !ok {
				continue
			}
			add(id)
			if !q.IncludeChildCategories {
				continue
			}
			for _, child := range t.descendants(id) {
				if t.byID[child].Archived && !q.IncludeArchivedCategories {
					continue
				}
				add(child)
			}
		}
		if len(ids) == 0 {
			return nil, ErrNoMatches
		}
		return ids, nil
	}

	for id, c := range t.byID {
		if c.Archived && !q.IncludeArchivedCategories {
			continue
		}
		add(id)
	}
	if len(ids) == len(t.byID) {
		return nil, nil
	}
	if len(ids) == 0 {
		return nil, ErrNoMatches
	}
	slices.Sort(ids)
	return ids, nil
}
