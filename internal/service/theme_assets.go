// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/google/uuid"

	"github.com/olegiv/oforum/internal/model"
	"github.com/olegiv/oforum/internal/store"
)

// AssetContent is a rendered asset ready to be written to a response.
type AssetContent struct {
	ContentType string
	Body        []byte
}

// Asset renders the asset at assetPath ("styles.css", "header.json") of
// the theme named by key.
func (s *ThemeService) Asset(ctx context.Context, key, assetPath string) (AssetContent, error) {
	p, err := model.ParseAssetPath(assetPath)
	if err != nil {
		return AssetContent{}, err
	}

	if key == model.ThemeKeyCurrent {
		if key, err = s.currentKey(ctx); err != nil {
			return AssetContent{}, err
		}
	}
	rt, err := s.load(ctx, key, 0)
	if err != nil {
		return AssetContent{}, err
	}

	if p.Envelope() {
		body, err := json.Marshal(rt.asset(p.Name, true))
		if err != nil {
			return AssetContent{}, err
		}
		return AssetContent{ContentType: model.AssetTypeJSON.ContentType(), Body: body}, nil
	}
	return AssetContent{ContentType: p.Type.ContentType(), Body: []byte(rt.Assets[p.Name])}, nil
}

// PutAsset replaces one asset of a database theme.
func (s *ThemeService) PutAsset(ctx context.Context, key, name string, input AssetInput) (model.ThemeAsset, error) {
	body, err := decodeAssetBody(name, input.Data)
	if err != nil {
		return model.ThemeAsset{}, err
	}
	return s.editAsset(ctx, key, name, func(assets map[string]string) error {
		assets[name] = body
		return nil
	})
}

// PatchAsset updates one asset of a database theme. JSON assets are
// deep-merged with the theme's own body; other assets are replaced.
func (s *ThemeService) PatchAsset(ctx context.Context, key, name string, input AssetInput) (model.ThemeAsset, error) {
	t, ok := model.AssetTypeFor(name)
	if !ok {
		return model.ThemeAsset{}, model.NotFound("asset %q", name)
	}
	if t != model.AssetTypeJSON {
		return s.PutAsset(ctx, key, name, input)
	}
	if len(input.Data) == 0 || !json.Valid(input.Data) {
		return model.ThemeAsset{}, model.NewValidationError("data", "must be valid JSON")
	}
	if name == model.AssetVariables {
		if err := model.ValidateVariableKeys(string(input.Data)); err != nil {
			return model.ThemeAsset{}, err
		}
	}

	return s.editAsset(ctx, key, name, func(assets map[string]string) error {
		base, ok := assets[name]
		if !ok {
			base = model.DefaultBody(name)
		}
		merged, err := mergeJSON(base, string(input.Data))
		if err != nil {
			return model.NewValidationError("data", err.Error())
		}
		if err := model.ValidateAssetBody(name, merged); err != nil {
			return err
		}
		assets[name] = merged
		return nil
	})
}

// DeleteAsset removes an asset from a database theme, which then falls
// back to its parent's.
func (s *ThemeService) DeleteAsset(ctx context.Context, key, name string) error {
	if _, ok := model.AssetTypeFor(name); !ok {
		return model.NotFound("asset %q", name)
	}
	_, err := s.editAsset(ctx, key, name, func(assets map[string]string) error {
		if _, ok := assets[name]; !ok {
			return model.NotFound("asset %q is not defined by theme %s", name, key)
		}
		delete(assets, name)
		return nil
	})
	return err
}

// editAsset applies edit to a copy of the active revision's assets and
// stores the result as a new revision.
func (s *ThemeService) editAsset(ctx context.Context, key, name string, edit func(assets map[string]string) error) (model.ThemeAsset, error) {
	if _, ok := model.AssetTypeFor(name); !ok {
		return model.ThemeAsset{}, model.NotFound("asset %q", name)
	}
	id, err := s.writableThemeID(ctx, key)
	if err != nil {
		return model.ThemeAsset{}, err
	}

	var revisionID int64
	err = store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		row, err := getThemeRow(ctx, q, id)
		if err != nil {
			return err
		}
		current, err := revisionAssets(ctx, q, row.CurrentRevisionID)
		if err != nil {
			return err
		}
		assets := maps.Clone(current)
		if err := edit(assets); err != nil {
			return err
		}
		revisionID, err = writeRevision(ctx, q, id, assets)
		return err
	})
	if err != nil {
		return model.ThemeAsset{}, err
	}

	s.invalidate(ctx)
	s.audit(ctx, s.events.LogThemeEvent, "Theme asset changed", map[string]any{
		"theme_id":    id,
		"asset":       name,
		"revision_id": revisionID,
	})

	row, err := getThemeRow(ctx, s.queries, id)
	if err != nil {
		return model.ThemeAsset{}, err
	}
	rt, err := s.resolveDB(ctx, row, 0)
	if err != nil {
		return model.ThemeAsset{}, err
	}
	return rt.asset(name, true), nil
}

// PreviewInput selects the theme, revision and variable overrides to
// preview.
type PreviewInput struct {
	ThemeID    string          `json:"themeID"`
	RevisionID int64           `json:"revisionID"`
	Variables  json.RawMessage `json:"variables"`
}

// SetPreview stores a preview and returns its token.
func (s *ThemeService) SetPreview(ctx context.Context, input PreviewInput) (model.ThemePreview, error) {
	key := strings.TrimSpace(input.ThemeID)
	if key == "" {
		return model.ThemePreview{}, model.NewValidationError("themeID", "is required")
	}
	if key == model.ThemeKeyCurrent {
		current, err := s.currentKey(ctx)
		if err != nil {
			return model.ThemePreview{}, err
		}
		key = current
	}

	var variables json.RawMessage
	if len(input.Variables) > 0 && string(input.Variables) != "null" {
		if err := model.ValidateAssetBody(model.AssetVariables, string(input.Variables)); err != nil {
			var verr *model.ValidationError
			if errors.As(err, &verr) {
				return model.ThemePreview{}, model.NewValidationError("variables", verr.Fields["data"])
			}
			return model.ThemePreview{}, err
		}
		variables = input.Variables
	}

	rt, err := s.load(ctx, key, input.RevisionID)
	if err != nil {
		return model.ThemePreview{}, err
	}

	preview := model.ThemePreview{
		PreviewID:  uuid.NewString(),
		ThemeKey:   rt.Key,
		RevisionID: input.RevisionID,
		Variables:  variables,
		ExpiresAt:  store.Now().Add(PreviewTTL),
	}
	if err := s.previews.Set(ctx, preview.PreviewID, &preview); err != nil {
		return model.ThemePreview{}, fmt.Errorf("storing preview: %w", err)
	}

	s.logger.Debug("theme preview started", "preview_id", preview.PreviewID, "theme", rt.Key)
	return preview, nil
}

// ClearPreview ends a preview.
func (s *ThemeService) ClearPreview(ctx context.Context, previewID string) error {
	if _, ok := s.previews.Get(ctx, previewID); !ok {
		return model.NotFound("preview %q", previewID)
	}
	if err := s.previews.Delete(ctx, previewID); err != nil {
		return fmt.Errorf("clearing preview: %w", err)
	}
	return nil
}

// previewTheme loads the theme of a live preview. ok is false when the
// preview is unknown, expired or points at a theme that no longer exists.
func (s *ThemeService) previewTheme(ctx context.Context, previewID string, expand []string) (model.Theme, bool, error) {
	p, found := s.previews.Get(ctx, previewID)
	if !found {
		return model.Theme{}, false, nil
	}

	rt, err := s.load(ctx, p.ThemeKey, p.RevisionID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Theme{}, false, nil
	}
	if err != nil {
		return model.Theme{}, false, err
	}

	if len(p.Variables) > 0 {
		merged, err := mergeJSON(rt.Assets[model.AssetVariables], string(p.Variables))
		if err != nil {
			return model.Theme{}, false, err
		}
		assets := maps.Clone(rt.Assets)
		assets[model.AssetVariables] = merged
		rt.Assets = assets
	}

	current, err := s.currentKey(ctx)
	if err != nil {
		return model.Theme{}, false, err
	}
	t := rt.toModel(current, parseExpand(expand))
	t.PreviewID = p.PreviewID
	return t, true, nil
}
