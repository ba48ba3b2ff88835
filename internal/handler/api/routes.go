// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/oforum/internal/middleware"
	"github.com/olegiv/oforum/internal/model"
)

// AssetMaxAge is the Cache-Control max-age of raw theme assets, in seconds.
const AssetMaxAge = 300

// RouteOptions configures Routes.
type RouteOptions struct {
	// RateLimit is requests per second per client IP and per API key.
	// Zero disables rate limiting.
	RateLimit float64
	RateBurst int
}

// Routes registers the v1 API on r, which is expected to be mounted at
// /api/v1. Reads accept an optional API key; writes require one holding
// the matching permission.
func (h *Handler) Routes(r chi.Router, opts RouteOptions) {
	if opts.RateLimit > 0 {
		r.Use(middleware.NewGlobalRateLimiter(opts.RateLimit, opts.RateBurst).Middleware())
	}

	r.Get("/status", h.Status)

	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAPIKeyAuth(h.db))

		r.Get("/themes", h.ListThemes)
		r.Get("/themes/current", h.GetCurrentTheme)
		r.Get("/themes/{themeKey}", h.GetTheme)
		r.Get("/themes/{themeKey}/revisions", h.ListThemeRevisions)
		r.With(middleware.CacheControl(AssetMaxAge)).Get("/themes/{themeKey}/assets/{asset}", h.GetThemeAsset)

		r.Get("/discussions", h.ListDiscussions)
		r.Get("/discussions/search", h.SearchDiscussions)
		r.Get("/discussions/{id}", h.GetDiscussion)

		r.Get("/categories", h.ListCategories)
		r.Get("/categories/{id}", h.GetCategory)
		r.Get("/tags", h.ListTags)
		r.Get("/tags/{id}", h.GetTag)

		r.Get("/search", h.Search)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(h.db))
		if opts.RateLimit > 0 {
			r.Use(middleware.APIRateLimit(opts.RateLimit, opts.RateBurst))
		}

		r.Get("/auth", h.AuthInfo)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(model.PermissionThemesWrite))
			r.Post("/themes", h.CreateTheme)
			r.Put("/themes/current", h.SetCurrentTheme)
			r.Put("/themes/preview", h.SetThemePreview)
			r.Delete("/themes/preview/{previewID}", h.ClearThemePreview)
			r.Patch("/themes/{themeKey}", h.UpdateTheme)
			r.Delete("/themes/{themeKey}", h.DeleteTheme)
			r.Put("/themes/{themeKey}/assets/{asset}", h.PutThemeAsset)
			r.Patch("/themes/{themeKey}/assets/{asset}", h.PatchThemeAsset)
			r.Delete("/themes/{themeKey}/assets/{asset}", h.DeleteThemeAsset)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(model.PermissionDiscussionsWrite))
			r.Post("/discussions", h.CreateDiscussion)
			r.Patch("/discussions/{id}", h.UpdateDiscussion)
			r.Delete("/discussions/{id}", h.DeleteDiscussion)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(model.PermissionTaxonomyWrite))
			r.Post("/categories", h.CreateCategory)
			r.Post("/tags", h.CreateTag)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(model.PermissionAdmin))
			r.Get("/events", h.ListEvents)
			if h.svc.Jobs != nil {
				r.Get("/jobs", h.ListJobs)
				r.Get("/jobs/{name}", h.GetJob)
				r.Post("/jobs/{name}/run", h.RunJob)
				r.Put("/jobs/{name}/schedule", h.UpdateJobSchedule)
				r.Delete("/jobs/{name}/schedule", h.ResetJobSchedule)
			}
		})
	})
}
