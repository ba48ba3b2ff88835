// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/olegiv/oforum/internal/model"
	"github.com/olegiv/oforum/internal/store"
)

const (
	defaultEventsLimit = 25
	maxEventsLimit     = 100
)

// EventView is an event log entry as returned by the API.
type EventView struct {
	ID        int64           `json:"id"`
	Level     string          `json:"level"`
	Category  string          `json:"category"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func toEventView(e store.Event) EventView {
	v := EventView{
		ID:        e.ID,
		Level:     e.Level,
		Category:  e.Category,
		Message:   e.Message,
		CreatedAt: e.CreatedAt,
	}
	if e.Metadata != "" && e.Metadata != "{}" && json.Valid([]byte(e.Metadata)) {
		v.Metadata = json.RawMessage(e.Metadata)
	}
	return v
}

// ListEvents handles GET /api/v1/events, newest first.
// Query parameters: page, limit.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	verr := &model.ValidationError{}
	page := queryInt(r, "page", verr)
	limit := queryInt(r, "limit", verr)
	if limit > maxEventsLimit {
		verr.Add("limit", "must not exceed 100")
	}
	if verr.HasErrors() {
		WriteValidationError(w, verr.Fields)
		return
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = defaultEventsLimit
	}

	total, err := h.queries.CountEvents(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "count events")
		return
	}
	events, err := h.queries.ListEvents(r.Context(), store.ListEventsParams{
		Limit:  int64(limit),
		Offset: int64((page - 1) * limit),
	})
	if err != nil {
		h.writeServiceError(w, r, err, "list events")
		return
	}

	views := make([]EventView, len(events))
	for i, e := range events {
		views[i] = toEventView(e)
	}
	WriteSuccess(w, views, newMeta(total, page, limit))
}
