// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/oforum/internal/model"
	"github.com/olegiv/oforum/internal/service"
)

// expandParam returns the expand query values. Each value may itself be a
// comma separated list.
func expandParam(r *http.Request) []string {
	return r.URL.Query()["expand"]
}

// ListThemes handles GET /api/v1/themes.
func (h *Handler) ListThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := h.svc.Themes.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "list themes")
		return
	}
	WriteSuccess(w, themes, nil)
}

// GetTheme handles GET /api/v1/themes/{themeKey}.
// Query parameters: expand, revisionID.
func (h *Handler) GetTheme(w http.ResponseWriter, r *http.Request) {
	opts := service.GetThemeOptions{Expand: expandParam(r)}
	if v := r.URL.Query().Get("revisionID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			WriteValidationError(w, map[string]string{"revisionID": "must be a positive integer"})
			return
		}
		opts.RevisionID = id
	}

	t, err := h.svc.Themes.Get(r.Context(), chi.URLParam(r, "themeKey"), opts)
	if err != nil {
		h.writeServiceError(w, r, err, "get theme")
		return
	}
	WriteSuccess(w, t, nil)
}

// GetCurrentTheme handles GET /api/v1/themes/current.
// Query parameters: expand, previewID.
func (h *Handler) GetCurrentTheme(w http.ResponseWriter, r *http.Request) {
	previewID := strings.TrimSpace(r.URL.Query().Get("previewID"))
	t, err := h.svc.Themes.Current(r.Context(), previewID, expandParam(r))
	if err != nil {
		h.writeServiceError(w, r, err, "get current theme")
		return
	}
	WriteSuccess(w, t, nil)
}

// SetCurrentThemeRequest is the body of PUT /api/v1/themes/current.
type SetCurrentThemeRequest struct {
	ThemeID string `json:"themeID"`
}

// SetCurrentTheme handles PUT /api/v1/themes/current.
func (h *Handler) SetCurrentTheme(w http.ResponseWriter, r *http.Request) {
	var req SetCurrentThemeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ThemeID) == "" {
		WriteValidationError(w, map[string]string{"themeID": "is required"})
		return
	}

	t, err := h.svc.Themes.SetCurrent(r.Context(), strings.TrimSpace(req.ThemeID))
	if err != nil {
		h.writeServiceError(w, r, err, "set current theme")
		return
	}
	WriteSuccess(w, t, nil)
}

// CreateTheme handles POST /api/v1/themes.
func (h *Handler) CreateTheme(w http.ResponseWriter, r *http.Request) {
	var in service.CreateThemeInput
	if !decodeJSON(w, r, &in) {
		return
	}

	t, err := h.svc.Themes.Create(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err, "create theme")
		return
	}
	WriteCreated(w, t)
}

// UpdateTheme handles PATCH /api/v1/themes/{themeKey}.
func (h *Handler) UpdateTheme(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateThemeInput
	if !decodeJSON(w, r, &in) {
		return
	}

	t, err := h.svc.Themes.Update(r.Context(), chi.URLParam(r, "themeKey"), in)
	if err != nil {
		h.writeServiceError(w, r, err, "update theme")
		return
	}
	WriteSuccess(w, t, nil)
}

// DeleteTheme handles DELETE /api/v1/themes/{themeKey}.
func (h *Handler) DeleteTheme(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Themes.Delete(r.Context(), chi.URLParam(r, "themeKey")); err != nil {
		h.writeServiceError(w, r, err, "delete theme")
		return
	}
	WriteNoContent(w)
}

// ListThemeRevisions handles GET /api/v1/themes/{themeKey}/revisions.
func (h *Handler) ListThemeRevisions(w http.ResponseWriter, r *http.Request) {
	revisions, err := h.svc.Themes.Revisions(r.Context(), chi.URLParam(r, "themeKey"))
	if err != nil {
		h.writeServiceError(w, r, err, "list theme revisions")
		return
	}
	WriteSuccess(w, revisions, nil)
}

// GetThemeAsset handles GET /api/v1/themes/{themeKey}/assets/{asset}.
// The body is written raw with the asset's content type; "name.json" on a
// non-JSON asset returns the JSON envelope instead.
func (h *Handler) GetThemeAsset(w http.ResponseWriter, r *http.Request) {
	content, err := h.svc.Themes.Asset(r.Context(), chi.URLParam(r, "themeKey"), chi.URLParam(r, "asset"))
	if err != nil {
		h.writeServiceError(w, r, err, "get theme asset")
		return
	}

	w.Header().Set("Content-Type", content.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content.Body)
}

// assetNameParam returns the asset name from the URL. Writes accept either
// the bare name or name.ext.
func assetNameParam(r *http.Request) (string, error) {
	asset := chi.URLParam(r, "asset")
	if !strings.Contains(asset, ".") {
		return asset, nil
	}
	p, err := model.ParseAssetPath(asset)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

// PutThemeAsset handles PUT /api/v1/themes/{themeKey}/assets/{asset}.
func (h *Handler) PutThemeAsset(w http.ResponseWriter, r *http.Request) {
	h.writeThemeAsset(w, r, h.svc.Themes.PutAsset, "replace theme asset")
}

// PatchThemeAsset handles PATCH /api/v1/themes/{themeKey}/assets/{asset}.
// JSON assets are merged with the stored body; others are replaced.
func (h *Handler) PatchThemeAsset(w http.ResponseWriter, r *http.Request) {
	h.writeThemeAsset(w, r, h.svc.Themes.PatchAsset, "patch theme asset")
}

// writeThemeAsset decodes an asset body and applies write to it.
func (h *Handler) writeThemeAsset(
	w http.ResponseWriter,
	r *http.Request,
	write func(ctx context.Context, key, name string, in service.AssetInput) (model.ThemeAsset, error),
	action string,
) {
	name, err := assetNameParam(r)
	if err != nil {
		h.writeServiceError(w, r, err, action)
		return
	}

	var in service.AssetInput
	if !decodeJSON(w, r, &in) {
		return
	}

	asset, err := write(r.Context(), chi.URLParam(r, "themeKey"), name, in)
	if err != nil {
		h.writeServiceError(w, r, err, action)
		return
	}
	WriteSuccess(w, asset, nil)
}

// DeleteThemeAsset handles DELETE /api/v1/themes/{themeKey}/assets/{asset}.
// The theme falls back to its parent's asset afterwards.
func (h *Handler) DeleteThemeAsset(w http.ResponseWriter, r *http.Request) {
	name, err := assetNameParam(r)
	if err == nil {
		err = h.svc.Themes.DeleteAsset(r.Context(), chi.URLParam(r, "themeKey"), name)
	}
	if err != nil {
		h.writeServiceError(w, r, err, "delete theme asset")
		return
	}
	WriteNoContent(w)
}

// SetThemePreview handles PUT /api/v1/themes/preview.
func (h *Handler) SetThemePreview(w http.ResponseWriter, r *http.Request) {
	var in service.PreviewInput
	if !decodeJSON(w, r, &in) {
		return
	}

	preview, err := h.svc.Themes.SetPreview(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err, "start theme preview")
		return
	}
	WriteSuccess(w, preview, nil)
}

// ClearThemePreview handles DELETE /api/v1/themes/preview/{previewID}.
func (h *Handler) ClearThemePreview(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Themes.ClearPreview(r.Context(), chi.URLParam(r, "previewID")); err != nil {
		h.writeServiceError(w, r, err, "clear theme preview")
		return
	}
	WriteNoContent(w)
}
