// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"strconv"

	"github.com/olegiv/oforum/internal/middleware"
	"github.com/olegiv/oforum/internal/model"
	"github.com/olegiv/oforum/internal/search"
	"github.com/olegiv/oforum/internal/service"
)

// ListDiscussions handles GET /api/v1/discussions.
// Query parameters: categoryID, page, limit.
func (h *Handler) ListDiscussions(w http.ResponseWriter, r *http.Request) {
	verr := &model.ValidationError{}
	in := service.ListDiscussionsInput{
		Page:  queryInt(r, "page", verr),
		Limit: queryInt(r, "limit", verr),
	}
	if v := r.URL.Query().Get("categoryID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			verr.Add("categoryID", "must be a positive integer")
		}
		in.CategoryID = id
	}
	if verr.HasErrors() {
		WriteValidationError(w, verr.Fields)
		return
	}

	list, err := h.svc.Discussions.List(r.Context(), middleware.GetCaller(r), in)
	if err != nil {
		h.writeServiceError(w, r, err, "list discussions")
		return
	}
	WriteSuccess(w, list.Items, newMeta(list.Total, list.Page, list.Limit))
}

// SearchDiscussions handles GET /api/v1/discussions/search. It accepts the
// same parameters as /search, restricted to discussions.
func (h *Handler) SearchDiscussions(w http.ResponseWriter, r *http.Request) {
	q, err := search.ParseQuery(r.URL.Query())
	if err != nil {
		h.writeServiceError(w, r, err, "search discussions")
		return
	}
	q.RecordTypes = []string{search.DiscussionRecordType}
	h.runSearch(w, r, q)
}

// GetDiscussion handles GET /api/v1/discussions/{id}.
func (h *Handler) GetDiscussion(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id", "discussion")
	if !ok {
		return
	}

	d, err := h.svc.Discussions.Get(r.Context(), middleware.GetCaller(r), id)
	if err != nil {
		h.writeServiceError(w, r, err, "get discussion")
		return
	}
	WriteSuccess(w, d, nil)
}

// CreateDiscussion handles POST /api/v1/discussions.
func (h *Handler) CreateDiscussion(w http.ResponseWriter, r *http.Request) {
	var in service.CreateDiscussionInput
	if !decodeJSON(w, r, &in) {
		return
	}

	d, err := h.svc.Discussions.Create(r.Context(), middleware.GetCaller(r), in)
	if err != nil {
		h.writeServiceError(w, r, err, "create discussion")
		return
	}
	WriteCreated(w, d)
}

// UpdateDiscussion handles PATCH /api/v1/discussions/{id}.
func (h *Handler) UpdateDiscussion(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id", "discussion")
	if !ok {
		return
	}

	var in service.UpdateDiscussionInput
	if !decodeJSON(w, r, &in) {
		return
	}

	d, err := h.svc.Discussions.Update(r.Context(), middleware.GetCaller(r), id, in)
	if err != nil {
		h.writeServiceError(w, r, err, "update discussion")
		return
	}
	WriteSuccess(w, d, nil)
}

// DeleteDiscussion handles DELETE /api/v1/discussions/{id}.
func (h *Handler) DeleteDiscussion(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id", "discussion")
	if !ok {
		return
	}

	if err := h.svc.Discussions.Delete(r.Context(), middleware.GetCaller(r), id); err != nil {
		h.writeServiceError(w, r, err, "delete discussion")
		return
	}
	WriteNoContent(w)
}
