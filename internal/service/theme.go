// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/olegiv/oforum/internal/cache"
	"github.com/olegiv/oforum/internal/model"
	"github.com/olegiv/oforum/internal/store"
	"github.com/olegiv/oforum/internal/theme"
	"github.com/olegiv/oforum/internal/util"
)

// Cache settings for themes.
const (
	themeCachePrefix   = "theme:"
	previewCachePrefix = "theme-preview:"
	themeCacheTTL      = 10 * time.Minute

	// PreviewTTL is how long a preview token stays valid.
	PreviewTTL = time.Hour

	// MaxThemeNameLength bounds database theme names.
	MaxThemeNameLength = 100
)

// resolvedTheme is a theme with every catalogue asset resolved against
// its parent. It is what gets cached.
type resolvedTheme struct {
	Key          string            `json:"key"`
	Type         string            `json:"type"`
	Name         string            `json:"name"`
	Version      string            `json:"version,omitempty"`
	Description  string            `json:"description,omitempty"`
	ParentKey    string            `json:"parentKey,omitempty"`
	RevisionID   int64             `json:"revisionID,omitempty"`
	DateInserted *time.Time        `json:"dateInserted,omitempty"`
	DateUpdated  *time.Time        `json:"dateUpdated,omitempty"`
	Own          []string          `json:"own"`
	Assets       map[string]string `json:"assets"`
}

// GetThemeOptions controls how a theme is loaded.
type GetThemeOptions struct {
	// Expand lists the assets whose data is included: "all", "assets" or
	// "assets.<name>" (a bare asset name works too).
	Expand []string

	// RevisionID loads a specific revision of a database theme.
	RevisionID int64
}

// ThemeService manages file and database themes.
type ThemeService struct {
	db       *sql.DB
	queries  *store.Queries
	files    *theme.Manager
	resolved *cache.TypedCache[resolvedTheme]
	previews *cache.TypedCache[model.ThemePreview]
	events   *EventService
	logger   *slog.Logger
}

// NewThemeService creates a new ThemeService.
func NewThemeService(db *sql.DB, files *theme.Manager, c cache.Cache, logger *slog.Logger) *ThemeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ThemeService{
		db:       db,
		queries:  store.New(db),
		files:    files,
		resolved: cache.NewTypedCache[resolvedTheme](c, themeCachePrefix, themeCacheTTL),
		previews: cache.NewTypedCache[model.ThemePreview](c, previewCachePrefix, PreviewTTL),
		events:   NewEventService(db),
		logger:   logger,
	}
}

// dbThemeID parses a database theme key.
func dbThemeID(key string) (int64, bool) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// List returns file themes followed by database themes.
func (s *ThemeService) List(ctx context.Context) ([]model.Theme, error) {
	current, err := s.currentKey(ctx)
	if err != nil {
		return nil, err
	}

	themes := make([]model.Theme, 0, s.files.ThemeCount())
	for _, ft := range s.files.ListThemes() {
		rt, err := s.loadFile(ctx, ft.Key)
		if err != nil {
			return nil, err
		}
		themes = append(themes, rt.toModel(current, nil))
	}

	rows, err := s.queries.ListThemes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing themes: %w", err)
	}
	for _, row := range rows {
		rt, err := s.resolveDB(ctx, row, 0)
		if err != nil {
			return nil, err
		}
		themes = append(themes, rt.toModel(current, nil))
	}

	return themes, nil
}

// Get returns a theme by key. The key is a database theme ID, a file theme
// key or "current".
func (s *ThemeService) Get(ctx context.Context, key string, opts GetThemeOptions) (model.Theme, error) {
	current, err := s.currentKey(ctx)
	if err != nil {
		return model.Theme{}, err
	}
	if key == model.ThemeKeyCurrent {
		key = current
	}

	rt, err := s.load(ctx, key, opts.RevisionID)
	if err != nil {
		return model.Theme{}, err
	}
	return rt.toModel(current, parseExpand(opts.Expand)), nil
}

// Current returns the current theme. When previewID names a live preview
// the previewed theme is returned instead, with the preview variables
// merged into its variables asset.
func (s *ThemeService) Current(ctx context.Context, previewID string, expand []string) (model.Theme, error) {
	if previewID != "" {
		t, ok, err := s.previewTheme(ctx, previewID, expand)
		if err != nil || ok {
			return t, err
		}
		s.logger.Debug("ignoring unknown theme preview", "preview_id", previewID)
	}
	return s.Get(ctx, model.ThemeKeyCurrent, GetThemeOptions{Expand: expand})
}

// SetCurrent makes key the current theme.
func (s *ThemeService) SetCurrent(ctx context.Context, key string) (model.Theme, error) {
	if key == model.ThemeKeyCurrent || key == "" {
		return model.Theme{}, model.NewValidationError("themeID", "must name a theme")
	}
	rt, err := s.load(ctx, key, 0)
	if err != nil {
		return model.Theme{}, err
	}

	if err := s.queries.SetConfig(ctx, store.SetConfigParams{
		Key:       store.ConfigKeyCurrentTheme,
		Value:     rt.Key,
		UpdatedAt: store.Now(),
	}); err != nil {
		return model.Theme{}, fmt.Errorf("setting current theme: %w", err)
	}

	s.logger.Info("current theme changed", "theme", rt.Key)
	s.audit(ctx, s.events.LogConfigEvent, "Current theme changed", map[string]any{"theme": rt.Key})

	return rt.toModel(rt.Key, nil), nil
}

// AssetInput is an asset body as submitted through the API. HTML, CSS and
// JS assets carry a JSON string; JSON assets carry the document itself.
type AssetInput struct {
	Data json.RawMessage `json:"data"`
}

// CreateThemeInput is the input for creating a database theme.
type CreateThemeInput struct {
	Name        string                `json:"name"`
	ParentTheme string                `json:"parentTheme"`
	Assets      map[string]AssetInput `json:"assets"`
}

// Create creates a database theme with its first revision.
func (s *ThemeService) Create(ctx context.Context, input CreateThemeInput) (model.Theme, error) {
	verr := &model.ValidationError{}
	name := strings.TrimSpace(input.Name)
	s.validateName(verr, name)

	parent := input.ParentTheme
	if parent == "" {
		parent = theme.DefaultThemeKey
	}
	if !s.files.HasTheme(parent) {
		verr.Add("parentTheme", fmt.Sprintf("unknown file theme %q", parent))
	}

	assets := decodeAssets(verr, input.Assets)
	if err := verr.OrNil(); err != nil {
		return model.Theme{}, err
	}

	var id int64
	err := store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		now := store.Now()
		row, err := q.CreateTheme(ctx, store.CreateThemeParams{
			Name:      name,
			ParentKey: parent,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("creating theme: %w", err)
		}
		id = row.ID
		_, err = writeRevision(ctx, q, id, assets)
		return err
	})
	if err != nil {
		return model.Theme{}, err
	}

	s.invalidate(ctx)
	s.logger.Info("theme created", "theme_id", id, "name", name)
	s.audit(ctx, s.events.LogThemeEvent, "Theme created", map[string]any{"theme_id": id, "name": name})

	return s.Get(ctx, strconv.FormatInt(id, 10), GetThemeOptions{})
}

// UpdateThemeInput is a partial update of a database theme. RevisionID
// restores an earlier revision; Assets are applied on top of the
// resulting revision as a new one.
type UpdateThemeInput struct {
	Name        *string               `json:"name"`
	ParentTheme *string               `json:"parentTheme"`
	RevisionID  *int64                `json:"revisionID"`
	Assets      map[string]AssetInput `json:"assets"`
}

// Update updates a database theme.
func (s *ThemeService) Update(ctx context.Context, key string, input UpdateThemeInput) (model.Theme, error) {
	id, err := s.writableThemeID(ctx, key)
	if err != nil {
		return model.Theme{}, err
	}

	verr := &model.ValidationError{}
	if input.Name != nil {
		s.validateName(verr, strings.TrimSpace(*input.Name))
	}
	if input.ParentTheme != nil && !s.files.HasTheme(*input.ParentTheme) {
		verr.Add("parentTheme", fmt.Sprintf("unknown file theme %q", *input.ParentTheme))
	}
	assets := decodeAssets(verr, input.Assets)
	if err := verr.OrNil(); err != nil {
		return model.Theme{}, err
	}

	err = store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		row, err := getThemeRow(ctx, q, id)
		if err != nil {
			return err
		}

		if input.Name != nil || input.ParentTheme != nil {
			params := store.UpdateThemeParams{ID: id, Name: row.Name, ParentKey: row.ParentKey, UpdatedAt: store.Now()}
			if input.Name != nil {
				params.Name = strings.TrimSpace(*input.Name)
			}
			if input.ParentTheme != nil {
				params.ParentKey = *input.ParentTheme
			}
			if err := q.UpdateTheme(ctx, params); err != nil {
				return fmt.Errorf("updating theme: %w", err)
			}
		}

		if input.RevisionID != nil {
			if err := checkRevision(ctx, q, id, *input.RevisionID); err != nil {
				return err
			}
			if err := q.SetThemeRevision(ctx, store.SetThemeRevisionParams{
				ID:                id,
				CurrentRevisionID: util.NullInt64FromValue(*input.RevisionID),
				UpdatedAt:         store.Now(),
			}); err != nil {
				return fmt.Errorf("restoring revision: %w", err)
			}
			row.CurrentRevisionID = util.NullInt64FromValue(*input.RevisionID)
		}

		if len(assets) > 0 {
			merged, err := revisionAssets(ctx, q, row.CurrentRevisionID)
			if err != nil {
				return err
			}
			maps.Copy(merged, assets)
			if _, err := writeRevision(ctx, q, id, merged); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.Theme{}, err
	}

	s.invalidate(ctx)
	s.audit(ctx, s.events.LogThemeEvent, "Theme updated", map[string]any{"theme_id": id})

	return s.Get(ctx, strconv.FormatInt(id, 10), GetThemeOptions{})
}

// Delete deletes a database theme. File themes and the current theme
// cannot be deleted.
func (s *ThemeService) Delete(ctx context.Context, key string) error {
	id, err := s.writableThemeID(ctx, key)
	if err != nil {
		return err
	}

	current, err := s.currentKey(ctx)
	if err != nil {
		return err
	}
	if current == strconv.FormatInt(id, 10) {
		return model.NewClientError("the current theme cannot be deleted")
	}

	err = store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		if _, err := getThemeRow(ctx, q, id); err != nil {
			return err
		}
		return q.DeleteTheme(ctx, id)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	s.logger.Info("theme deleted", "theme_id", id)
	s.audit(ctx, s.events.LogThemeEvent, "Theme deleted", map[string]any{"theme_id": id})
	return nil
}

// Revisions lists the revisions of a database theme, newest first.
// File themes have no revisions.
func (s *ThemeService) Revisions(ctx context.Context, key string) ([]model.ThemeRevision, error) {
	if key == model.ThemeKeyCurrent {
		current, err := s.currentKey(ctx)
		if err != nil {
			return nil, err
		}
		key = current
	}

	id, ok := dbThemeID(key)
	if !ok {
		if !s.files.HasTheme(key) {
			return nil, model.NotFound("theme %q", key)
		}
		return []model.ThemeRevision{}, nil
	}

	row, err := getThemeRow(ctx, s.queries, id)
	if err != nil {
		return nil, err
	}
	revs, err := s.queries.ListThemeRevisions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing revisions: %w", err)
	}

	out := make([]model.ThemeRevision, 0, len(revs))
	for _, r := range revs {
		out = append(out, model.ThemeRevision{
			RevisionID:   r.ID,
			ThemeID:      key,
			Name:         row.Name,
			Active:       row.CurrentRevisionID.Valid && row.CurrentRevisionID.Int64 == r.ID,
			DateInserted: r.CreatedAt,
		})
	}
	return out, nil
}

// currentKey returns the key of the current theme. A missing or dangling
// setting resolves to the default theme.
func (s *ThemeService) currentKey(ctx context.Context) (string, error) {
	cfg, err := s.queries.GetConfig(ctx, store.ConfigKeyCurrentTheme)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && cfg.Value == "") {
		return theme.DefaultThemeKey, nil
	}
	if err != nil {
		return "", fmt.Errorf("reading current theme: %w", err)
	}

	if id, ok := dbThemeID(cfg.Value); ok {
		_, err := s.queries.GetTheme(ctx, id)
		if err == nil {
			return cfg.Value, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("reading current theme: %w", err)
		}
	} else if s.files.HasTheme(cfg.Value) {
		return cfg.Value, nil
	}

	s.logger.Warn("current theme is missing, using default", "theme", cfg.Value)
	return theme.DefaultThemeKey, nil
}

// writableThemeID resolves key to a database theme ID. File themes are
// read-only.
func (s *ThemeService) writableThemeID(ctx context.Context, key string) (int64, error) {
	if key == model.ThemeKeyCurrent {
		current, err := s.currentKey(ctx)
		if err != nil {
			return 0, err
		}
		key = current
	}
	if id, ok := dbThemeID(key); ok {
		return id, nil
	}
	if s.files.HasTheme(key) {
		return 0, model.Forbidden("file theme %q is read-only", key)
	}
	return 0, model.NotFound("theme %q", key)
}

func (s *ThemeService) validateName(verr *model.ValidationError, name string) {
	switch {
	case name == "":
		verr.Add("name", "is required")
	case len(name) > MaxThemeNameLength:
		verr.Add("name", fmt.Sprintf("must be at most %d characters", MaxThemeNameLength))
	}
}

// load resolves a theme by key, which must not be "current".
func (s *ThemeService) load(ctx context.Context, key string, revisionID int64) (*resolvedTheme, error) {
	if id, ok := dbThemeID(key); ok {
		row, err := getThemeRow(ctx, s.queries, id)
		if err != nil {
			return nil, err
		}
		return s.resolveDB(ctx, row, revisionID)
	}
	if revisionID != 0 {
		return nil, model.NewClientError("file theme %q has no revisions", key)
	}
	return s.loadFile(ctx, key)
}

func (s *ThemeService) loadFile(ctx context.Context, key string) (*resolvedTheme, error) {
	return s.resolved.GetOrSet(ctx, "file:"+key, func() (*resolvedTheme, error) {
		ft, err := s.files.GetTheme(key)
		if err != nil {
			return nil, err
		}

		own := make(map[string]string)
		for _, name := range ft.AssetNames() {
			own[name], _ = ft.Asset(name)
		}

		// File themes inherit from the default theme.
		parent := map[string]string{}
		if key != theme.DefaultThemeKey {
			if def, err := s.files.GetTheme(theme.DefaultThemeKey); err == nil {
				for _, name := range def.AssetNames() {
					parent[name], _ = def.Asset(name)
				}
			}
		}

		assets, err := resolveAssets(own, parent)
		if err != nil {
			return nil, fmt.Errorf("resolving theme %q: %w", key, err)
		}

		return &resolvedTheme{
			Key:         ft.Key,
			Type:        model.ThemeTypeFile,
			Name:        ft.DisplayName(),
			Version:     ft.Config.Version,
			Description: ft.Config.Description,
			Own:         ft.AssetNames(),
			Assets:      assets,
		}, nil
	})
}

// resolveDB resolves a database theme at revisionID, or at its active
// revision when revisionID is 0.
func (s *ThemeService) resolveDB(ctx context.Context, row store.Theme, revisionID int64) (*resolvedTheme, error) {
	if revisionID == 0 {
		revisionID = row.CurrentRevisionID.Int64
	} else if err := checkRevision(ctx, s.queries, row.ID, revisionID); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("db:%d:%d", row.ID, revisionID)
	return s.resolved.GetOrSet(ctx, cacheKey, func() (*resolvedTheme, error) {
		own, err := revisionAssets(ctx, s.queries, util.NullInt64FromValue(revisionID))
		if err != nil {
			return nil, err
		}

		parent, err := s.loadFile(ctx, row.ParentKey)
		if errors.Is(err, model.ErrNotFound) && row.ParentKey != theme.DefaultThemeKey {
			s.logger.Warn("parent theme is missing, using default", "theme_id", row.ID, "parent", row.ParentKey)
			parent, err = s.loadFile(ctx, theme.DefaultThemeKey)
		}
		parentAssets := map[string]string{}
		if err == nil {
			parentAssets = parent.Assets
		} else if !errors.Is(err, model.ErrNotFound) {
			return nil, err
		}

		assets, err := resolveAssets(own, parentAssets)
		if err != nil {
			return nil, fmt.Errorf("resolving theme %d: %w", row.ID, err)
		}

		ownNames := make([]string, 0, len(own))
		for _, name := range model.AssetNames() {
			if _, ok := own[name]; ok {
				ownNames = append(ownNames, name)
			}
		}

		return &resolvedTheme{
			Key:          strconv.FormatInt(row.ID, 10),
			Type:         model.ThemeTypeDB,
			Name:         row.Name,
			ParentKey:    row.ParentKey,
			RevisionID:   revisionID,
			DateInserted: util.PtrFromTime(row.CreatedAt),
			DateUpdated:  util.PtrFromTime(row.UpdatedAt),
			Own:          ownNames,
			Assets:       assets,
		}, nil
	})
}

// resolveAssets fills in every catalogue asset. Variables are the parent's
// deep-merged with the theme's own; other assets fall back to the parent
// and then to an empty default.
func resolveAssets(own, parent map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(model.AssetNames()))
	for _, name := range model.AssetNames() {
		ownBody, hasOwn := own[name]
		parentBody, hasParent := parent[name]

		if name == model.AssetVariables {
			base := model.DefaultBody(name)
			if hasParent {
				base = parentBody
			}
			if hasOwn {
				merged, err := mergeJSON(base, ownBody)
				if err != nil {
					return nil, err
				}
				base = merged
			}
			out[name] = base
			continue
		}

		switch {
		case hasOwn:
			out[name] = ownBody
		case hasParent:
			out[name] = parentBody
		default:
			out[name] = model.DefaultBody(name)
		}
	}
	return out, nil
}

func (s *ThemeService) invalidate(ctx context.Context) {
	if err := s.resolved.Invalidate(ctx); err != nil {
		s.logger.Warn("failed to invalidate theme cache", "error", err)
	}
}

func (s *ThemeService) audit(ctx context.Context, log func(context.Context, string, map[string]any) error, message string, metadata map[string]any) {
	if err := log(ctx, message, metadata); err != nil {
		s.logger.Error("failed to record theme event", "error", err)
	}
}

func getThemeRow(ctx context.Context, q *store.Queries, id int64) (store.Theme, error) {
	row, err := q.GetTheme(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Theme{}, model.NotFound("theme %d", id)
	}
	if err != nil {
		return store.Theme{}, fmt.Errorf("loading theme %d: %w", id, err)
	}
	return row, nil
}

func checkRevision(ctx context.Context, q *store.Queries, themeID, revisionID int64) error {
	rev, err := q.GetThemeRevision(ctx, revisionID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && rev.ThemeID != themeID) {
		return model.NotFound("revision %d of theme %d", revisionID, themeID)
	}
	if err != nil {
		return fmt.Errorf("loading revision %d: %w", revisionID, err)
	}
	return nil
}

// revisionAssets returns the asset bodies stored for a revision.
func revisionAssets(ctx context.Context, q *store.Queries, revisionID sql.NullInt64) (map[string]string, error) {
	assets := make(map[string]string)
	if !revisionID.Valid || revisionID.Int64 == 0 {
		return assets, nil
	}
	rows, err := q.ListThemeAssets(ctx, revisionID.Int64)
	if err != nil {
		return nil, fmt.Errorf("loading assets: %w", err)
	}
	for _, a := range rows {
		assets[a.Name] = a.Body
	}
	return assets, nil
}

// writeRevision stores assets as a new revision and makes it active.
func writeRevision(ctx context.Context, q *store.Queries, themeID int64, assets map[string]string) (int64, error) {
	now := store.Now()
	rev, err := q.CreateThemeRevision(ctx, store.CreateThemeRevisionParams{ThemeID: themeID, CreatedAt: now})
	if err != nil {
		return 0, fmt.Errorf("creating revision: %w", err)
	}

	for _, name := range model.AssetNames() {
		body, ok := assets[name]
		if !ok {
			continue
		}
		t, _ := model.AssetTypeFor(name)
		if _, err := q.CreateThemeAsset(ctx, store.CreateThemeAssetParams{
			RevisionID: rev.ID,
			Name:       name,
			Type:       string(t),
			Body:       body,
		}); err != nil {
			return 0, fmt.Errorf("storing asset %s: %w", name, err)
		}
	}

	if err := q.SetThemeRevision(ctx, store.SetThemeRevisionParams{
		ID:                themeID,
		CurrentRevisionID: util.NullInt64FromValue(rev.ID),
		UpdatedAt:         now,
	}); err != nil {
		return 0, fmt.Errorf("activating revision: %w", err)
	}
	return rev.ID, nil
}

// decodeAssets validates submitted assets and returns their bodies.
func decodeAssets(verr *model.ValidationError, in map[string]AssetInput) map[string]string {
	out := make(map[string]string, len(in))
	for name, a := range in {
		body, err := decodeAssetBody(name, a.Data)
		if err != nil {
			var fe *model.ValidationError
			if errors.As(err, &fe) {
				for _, msg := range fe.Fields {
					verr.Add("assets."+name, msg)
				}
				continue
			}
			verr.Add("assets."+name, err.Error())
			continue
		}
		out[name] = body
	}
	return out
}

// decodeAssetBody turns submitted asset data into the stored body.
func decodeAssetBody(name string, data json.RawMessage) (string, error) {
	t, ok := model.AssetTypeFor(name)
	if !ok {
		return "", model.NewValidationError("name", fmt.Sprintf("unknown asset %q", name))
	}
	if len(data) == 0 || string(data) == "null" {
		return "", model.NewValidationError("data", "is required")
	}

	if t == model.AssetTypeJSON {
		body := string(data)
		if err := model.ValidateAssetBody(name, body); err != nil {
			return "", err
		}
		return body, nil
	}

	var body string
	if err := json.Unmarshal(data, &body); err != nil {
		return "", model.NewValidationError("data", "must be a string")
	}
	return body, nil
}

// expandSet is the parsed form of GetThemeOptions.Expand.
type expandSet map[string]bool

func parseExpand(values []string) expandSet {
	set := expandSet{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			switch part {
			case "all", "assets", "true":
				set["*"] = true
			default:
				name := strings.TrimPrefix(part, "assets.")
				if _, ok := model.AssetTypeFor(name); ok {
					set[name] = true
				}
			}
		}
	}
	return set
}

func (e expandSet) has(name string) bool {
	return e["*"] || e[name]
}

func assetURL(key, name string, t model.AssetType) string {
	return fmt.Sprintf("/api/v1/themes/%s/assets/%s.%s", key, name, t.Extensions()[0])
}

// assetData encodes a body as the envelope's data field.
func assetData(t model.AssetType, body string) json.RawMessage {
	if t == model.AssetTypeJSON {
		return json.RawMessage(body)
	}
	b, _ := json.Marshal(body)
	return b
}

func (rt *resolvedTheme) asset(name string, expand bool) model.ThemeAsset {
	t, _ := model.AssetTypeFor(name)
	a := model.ThemeAsset{Type: t, URL: assetURL(rt.Key, name, t)}
	if expand {
		a.Data = assetData(t, rt.Assets[name])
	}
	return a
}

func (rt *resolvedTheme) toModel(current string, expand expandSet) model.Theme {
	t := model.Theme{
		ThemeID:      rt.Key,
		Type:         rt.Type,
		Name:         rt.Name,
		Version:      rt.Version,
		Description:  rt.Description,
		ParentTheme:  rt.ParentKey,
		Current:      rt.Key == current,
		RevisionID:   rt.RevisionID,
		DateInserted: rt.DateInserted,
		DateUpdated:  rt.DateUpdated,
		Assets:       make(map[string]model.ThemeAsset, len(rt.Assets)),
	}
	for _, name := range model.AssetNames() {
		t.Assets[name] = rt.asset(name, expand.has(name))
	}
	return t
}
