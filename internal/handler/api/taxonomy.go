// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/olegiv/oforum/internal/middleware"
	"github.com/olegiv/oforum/internal/service"
)

// ListCategories handles GET /api/v1/categories.
// With ?tree=true the categories are nested under their parents.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r)

	if r.URL.Query().Get("tree") == "true" {
		tree, err := h.svc.Taxonomy.CategoryTree(r.Context(), caller)
		if err != nil {
			h.writeServiceError(w, r, err, "list categories")
			return
		}
		WriteSuccess(w, tree, nil)
		return
	}

	categories, err := h.svc.Taxonomy.Categories(r.Context(), caller)
	if err != nil {
		h.writeServiceError(w, r, err, "list categories")
		return
	}
	WriteSuccess(w, categories, nil)
}

// GetCategory handles GET /api/v1/categories/{id}.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id", "category")
	if !ok {
		return
	}

	category, err := h.svc.Taxonomy.Category(r.Context(), middleware.GetCaller(r), id)
	if err != nil {
		h.writeServiceError(w, r, err, "get category")
		return
	}
	WriteSuccess(w, category, nil)
}

// CreateCategory handles POST /api/v1/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in service.CreateCategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}

	category, err := h.svc.Taxonomy.CreateCategory(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err, "create category")
		return
	}
	WriteCreated(w, category)
}

// ListTags handles GET /api/v1/tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Taxonomy.Tags(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "list tags")
		return
	}
	WriteSuccess(w, tags, nil)
}

// GetTag handles GET /api/v1/tags/{id}.
func (h *Handler) GetTag(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id", "tag")
	if !ok {
		return
	}

	tag, err := h.svc.Taxonomy.Tag(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "get tag")
		return
	}
	WriteSuccess(w, tag, nil)
}

// CreateTag handles POST /api/v1/tags.
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var in service.CreateTagInput
	if !decodeJSON(w, r, &in) {
		return
	}

	tag, err := h.svc.Taxonomy.CreateTag(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err, "create tag")
		return
	}
	WriteCreated(w, tag)
}
