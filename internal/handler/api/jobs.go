// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/oforum/internal/model"
)

// ListJobs handles GET /api/v1/jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, h.svc.Jobs.List(), nil)
}

// GetJob handles GET /api/v1/jobs/{name}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Jobs.Get(chi.URLParam(r, "name"))
	if err != nil {
		h.writeServiceError(w, r, err, "get job")
		return
	}
	WriteSuccess(w, info, nil)
}

// RunJob handles POST /api/v1/jobs/{name}/run. The job runs synchronously;
// a failing job is reported through lastError rather than the status code.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.svc.Jobs.TriggerNow(r.Context(), name); err != nil {
		var cerr *model.ClientError
		if errors.Is(err, model.ErrNotFound) || errors.As(err, &cerr) {
			h.writeServiceError(w, r, err, "run job")
			return
		}
	}
	h.GetJob(w, r)
}

// UpdateJobScheduleRequest is the body of PUT /api/v1/jobs/{name}/schedule.
type UpdateJobScheduleRequest struct {
	Schedule string `json:"schedule"`
}

// UpdateJobSchedule handles PUT /api/v1/jobs/{name}/schedule.
func (h *Handler) UpdateJobSchedule(w http.ResponseWriter, r *http.Request) {
	var req UpdateJobScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.svc.Jobs.UpdateSchedule(r.Context(), chi.URLParam(r, "name"), req.Schedule); err != nil {
		h.writeServiceError(w, r, err, "update job schedule")
		return
	}
	h.GetJob(w, r)
}

// ResetJobSchedule handles DELETE /api/v1/jobs/{name}/schedule.
func (h *Handler) ResetJobSchedule(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Jobs.ResetSchedule(r.Context(), chi.URLParam(r, "name")); err != nil {
		h.writeServiceError(w, r, err, "reset job schedule")
		return
	}
	h.GetJob(w, r)
}
