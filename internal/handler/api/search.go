// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/olegiv/oforum/internal/middleware"
	"github.com/olegiv/oforum/internal/search"
)

// Search handles GET /api/v1/search across every registered record type.
// recordTypes narrows the search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q, err := search.ParseQuery(r.URL.Query())
	if err != nil {
		h.writeServiceError(w, r, err, "search")
		return
	}
	h.runSearch(w, r, q)
}

func (h *Handler) runSearch(w http.ResponseWriter, r *http.Request, q search.Query) {
	results, err := h.svc.Search.Search(r.Context(), q, middleware.GetCaller(r))
	if err != nil {
		h.writeServiceError(w, r, err, "search")
		return
	}
	WriteSuccess(w, results.Items, newMeta(results.Total, results.Page, results.Limit))
}
