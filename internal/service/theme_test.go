// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/olegiv/oforum/internal/model"
	"github.com/olegiv/oforum/internal/store"
)

func jsonString(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

func createCustomTheme(t *testing.T, svc *ThemeService) model.Theme {
	t.Helper()
	th, err := svc.Create(context.Background(), CreateThemeInput{
		Name:        "Custom",
		ParentTheme: "dark",
		Assets: map[string]AssetInput{
			model.AssetHeader:    {Data: jsonString("<header>custom</header>")},
			model.AssetVariables: {Data: json.RawMessage(`{"global":{"size":16}}`)},
		},
	})
	require.NoError(t, err)
	return th
}

func TestThemeService_ListAndCurrent(t *testing.T) {
	svc, _ := newTestThemeService(t)
	ctx := context.Background()

	themes, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, themes, 2)
	assert.Equal(t, "default", themes[0].ThemeID)
	assert.True(t, themes[0].Current)
	assert.Equal(t, "dark", themes[1].ThemeID)
	assert.False(t, themes[1].Current)
	assert.Equal(t, model.ThemeTypeFile, themes[1].Type)

	// Listed assets carry no data.
	assert.Empty(t, themes[0].Assets[model.AssetHeader].Data)
	assert.Equal(t, "/api/v1/themes/default/assets/header.html", themes[0].Assets[model.AssetHeader].URL)

	custom := createCustomTheme(t, svc)
	themes, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, themes, 3)
	assert.Equal(t, custom.ThemeID, themes[2].ThemeID)
	assert.Equal(t, model.ThemeTypeDB, themes[2].Type)

	current, err := svc.Get(ctx, model.ThemeKeyCurrent, GetThemeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "default", current.ThemeID)
	assert.Equal(t, "1.0.0", current.Version)
}

func TestThemeService_FileThemeInheritsDefault(t *testing.T) {
	svc, _ := newTestThemeService(t)

	dark, err := svc.Get(context.Background(), "dark", GetThemeOptions{Expand: []string{"all"}})
	require.NoError(t, err)

	var header string
	require.NoError(t, json.Unmarshal(dark.Assets[model.AssetHeader].Data, &header))
	assert.Equal(t, "<header>default</header>", header)

	vars := dark.Assets[model.AssetVariables].Data
	assert.Equal(t, "#fff", gjson.GetBytes(vars, "global.color").String())
	assert.Equal(t, int64(14), gjson.GetBytes(vars, "global.size").Int())
	assert.Equal(t, int64(48), gjson.GetBytes(vars, "titleBar.height").Int())

	// Assets nobody defines resolve to empty defaults.
	assert.JSONEq(t, `[]`, string(dark.Assets[model.AssetFonts].Data))
	assert.JSONEq(t, `""`, string(dark.Assets[model.AssetFooter].Data))
}

func TestThemeService_Expand(t *testing.T) {
	svc, _ := newTestThemeService(t)
	ctx := context.Background()

	th, err := svc.Get(ctx, "default", GetThemeOptions{Expand: []string{"assets.styles,variables"}})
	require.NoError(t, err)
	assert.NotEmpty(t, th.Assets[model.AssetStyles].Data)
	assert.NotEmpty(t, th.Assets[model.AssetVariables].Data)
	assert.Empty(t, th.Assets[model.AssetHeader].Data)

	th, err = svc.Get(ctx, "default", GetThemeOptions{Expand: []string{"assets"}})
	require.NoError(t, err)
	for _, name := range model.AssetNames() {
		assert.NotEmpty(t, th.Assets[name].Data, name)
	}
}

func TestThemeService_CreateResolvesVariables(t *testing.T) {
	svc, _ := newTestThemeService(t)
	custom := createCustomTheme(t, svc)

	assert.Equal(t, model.ThemeTypeDB, custom.Type)
	assert.Equal(t, "Custom", custom.Name)
	assert.Equal(t, "dark", custom.ParentTheme)
	assert.NotZero(t, custom.RevisionID)
	assert.NotNil(t, custom.DateInserted)

	th, err := svc.Get(context.Background(), custom.ThemeID, GetThemeOptions{Expand: []string{"all"}})
	require.NoError(t, err)

	vars := th.Assets[model.AssetVariables].Data
	assert.Equal(t, "#fff", gjson.GetBytes(vars, "global.color").String(), "from parent")
	assert.Equal(t, int64(16), gjson.GetBytes(vars, "global.size").Int(), "own override")
	assert.Equal(t, int64(48), gjson.GetBytes(vars, "titleBar.height").Int(), "from default")

	var header, styles string
	require.NoError(t, json.Unmarshal(th.Assets[model.AssetHeader].Data, &header))
	require.NoError(t, json.Unmarshal(th.Assets[model.AssetStyles].Data, &styles))
	assert.Equal(t, "<header>custom</header>", header)
	assert.Equal(t, "body{color:black}", styles)
}

func TestThemeService_CreateValidation(t *testing.T) {
	svc, _ := newTestThemeService(t)

	_, err := svc.Create(context.Background(), CreateThemeInput{
		Name:        " ",
		ParentTheme: "missing",
		Assets: map[string]AssetInput{
			"bogus":              {Data: jsonString("x")},
			model.AssetVariables: {Data: json.RawMessage(`[1,2]`)},
			model.AssetStyles:    {Data: json.RawMessage(`{"not":"a string"}`)},
		},
	})

	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "parentTheme")
	assert.Contains(t, verr.Fields, "assets.bogus")
	assert.Contains(t, verr.Fields, "assets.variables")
	assert.Contains(t, verr.Fields, "assets.styles")
}

func TestThemeService_AssetWritesCreateRevisions(t *testing.T) {
	svc, _ := newTestThemeService(t)
	ctx := context.Background()
	custom := createCustomTheme(t, svc)

	// Warm the cache so the writes below must invalidate it.
	_, err := svc.Get(ctx, custom.ThemeID, GetThemeOptions{Expand: []string{"all"}})
	require.NoError(t, err)

	asset, err := svc.PutAsset(ctx, custom.ThemeID, model.AssetStyles, AssetInput{Data: jsonString("body{}")})
	require.NoError(t, err)
	assert.Equal(t, model.AssetTypeCSS, asset.Type)
	assert.JSONEq(t, `"body{}"`, string(asset.Data))

	asset, err = svc.PatchAsset(ctx, custom.ThemeID, model.AssetVariables, AssetInput{
		Data: json.RawMessage(`{"global":{"radius":4},"titleBar":{"height":60}}`),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(16), gjson.GetBytes(asset.Data, "global.size").Int())
	assert.Equal(t, int64(4), gjson.GetBytes(asset.Data, "global.radius").Int())
	assert.Equal(t, int64(60), gjson.GetBytes(asset.Data, "titleBar.height").Int())

	require.NoError(t, svc.DeleteAsset(ctx, custom.ThemeID, model.AssetHeader))

	err = svc.DeleteAsset(ctx, custom.ThemeID, model.AssetHeader)
	assert.ErrorIs(t, err, model.ErrNotFound)

	revs, err := svc.Revisions(ctx, custom.ThemeID)
	require.NoError(t, err)
	require.Len(t, revs, 4)
	assert.True(t, revs[0].Active)
	for _, r := range revs[1:] {
		assert.False(t, r.Active)
	}
	assert.Greater(t, revs[0].RevisionID, revs[3].RevisionID)

	th, err := svc.Get(ctx, custom.ThemeID, GetThemeOptions{Expand: []string{"all"}})
	require.NoError(t, err)
	assert.Equal(t, revs[0].RevisionID, th.RevisionID)
	assert.JSONEq(t, `"body{}"`, string(th.Assets[model.AssetStyles].Data))
	assert.JSONEq(t, `"<header>default</header>"`, string(th.Assets[model.AssetHeader].Data))

	// The first revision is still readable as it was.
	old, err := svc.Get(ctx, custom.ThemeID, GetThemeOptions{RevisionID: revs[3].RevisionID, Expand: []string{"header"}})
	require.NoError(t, err)
	assert.JSONEq(t, `"<header>custom</header>"`, string(old.Assets[model.AssetHeader].Data))
}

func TestThemeService_PatchAssetValidation(t *testing.T) {
	svc, _ := newTestThemeService(t)
	ctx := context.Background()
	custom := createCustomTheme(t, svc)

	_, err := svc.PatchAsset(ctx, custom.ThemeID, model.AssetFonts, AssetInput{Data: json.RawMessage(`[{"name":"x"}]`)})
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.PatchAsset(ctx, custom.ThemeID, model.AssetVariables, AssetInput{Data: json.RawMessage(`{broken`)})
	assert.ErrorAs(t, err, &verr)

	_, err = svc.PatchAsset(ctx, custom.ThemeID, "logo", AssetInput{Data: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, model.ErrNotFound)

	// A failed write leaves no revision behind.
	revs, err := svc.Revisions(ctx, custom.ThemeID)
	require.NoError(t, err)
	assert.Len(t, revs, 1)
}

func TestThemeService_VariablesKeys(t *testing.T) {
	svc, _ := newTestThemeService(t)
	ctx := context.Background()
	custom := createCustomTheme(t, svc)
	var verr *model.ValidationError

	_, err := svc.PutAsset(ctx, custom.ThemeID, model.AssetVariables, AssetInput{Data: json.RawMessage(`{"":"x"}`)})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "data")

	_, err = svc.PatchAsset(ctx, custom.ThemeID, model.AssetVariables, AssetInput{Data: json.RawMessage(`{"global":{"":1}}`)})
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Create(ctx, CreateThemeInput{
		Name: "Broken",
		Assets: map[string]AssetInput{
			model.AssetVariables: {Data: json.RawMessage(`{"titleBar":[{"":1}]}`)},
		},
	})
	assert.ErrorAs(t, err, &verr)

	_, err = svc.SetPreview(ctx, PreviewInput{ThemeID: custom.ThemeID, Variables: json.RawMessage(`{"":1}`)})
	assert.ErrorAs(t, err, &verr)

	// Rejected writes leave the theme readable.
	themes, err := svc.List(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, themes)
	th, err := svc.Get(ctx, custom.ThemeID, GetThemeOptions{Expand: []string{"variables"}})
	require.NoError(t, err)
	assert.Equal(t, int64(16), gjson.GetBytes(th.Assets[model.AssetVariables].Data, "global.size").Int())

	// Keys that are path syntax elsewhere are stored literally.
	asset, err := svc.PatchAsset(ctx, custom.ThemeID, model.AssetVariables, AssetInput{
		Data: json.RawMessage(`{"a.b":{"*":1},"?":"q"}`),
	})
	require.NoError(t, err)
	var vars map[string]any
	require.NoError(t, json.Unmarshal(asset.Data, &vars))
	assert.Equal(t, map[string]any{"*": float64(1)}, vars["a.b"])
	assert.Equal(t, "q", vars["?"])
	assert.Contains(t, vars, "global")

	revs, err := svc.Revisions(ctx, custom.ThemeID)
	require.NoError(t, err)
	assert.Len(t, revs, 2)
}

func TestThemeService_UpdateRestoresRevision(t *testing.T) {
	svc, _ := newTestThemeService(t)
	ctx := context.Background()
	custom := createCustomTheme(t, svc)
	first := custom.RevisionID

	_, err := svc.PutAsset(ctx, custom.ThemeID, model.AssetHeader, AssetInput{Data: jsonString("<header>v2</header>")})
	require.NoError(t, err)

	name := "Renamed"
	th, err := svc.Update(ctx, custom.ThemeID, UpdateThemeInput{Name: &name, RevisionID: &first})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", th.Name)
	assert.Equal(t, first, th.RevisionID)

	th, err = svc.Get(ctx, custom.ThemeID, GetThemeOptions{Expand: []string{"header"}})
	require.NoError(t, err)
	assert.JSONEq(t, `"<header>custom</header>"`, string(th.Assets[model.AssetHeader].Data))

	revs, err := svc.Revisions(ctx, custom.ThemeID)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.False(t, revs[0].Active)
	assert.True(t, revs[1].Active)
	assert.Equal(t, "Renamed", revs[1].Name)

	// Assets in an update land on top of the restored revision.
	th, err = svc.Update(ctx, custom.ThemeID, UpdateThemeInput{
		Assets: map[string]AssetInput{model.AssetFooter: {Data: jsonString("<footer/>")}},
	})
	require.NoError(t, err)
	th, err = svc.Get(ctx, th.ThemeID, GetThemeOptions{Expand: []string{"all"}})
	require.NoError(t, err)
	assert.JSONEq(t, `"<footer/>"`, string(th.Assets[model.AssetFooter].Data))
	assert.JSONEq(t, `"<header>custom</header>"`, string(th.Assets[model.AssetHeader].Data))
}

func TestThemeService_RevisionOfAnotherTheme(t *testing.T) {
	svc, _ := newTestThemeService(t)
	ctx := context.Background()
	a := createCustomTheme(t, svc)
	b := createCustomTheme(t, svc)

	_, err := svc.Get(ctx, a.ThemeID, GetThemeOptions{RevisionID: b.RevisionID})
	assert.ErrorIs(t, err, model.ErrNotFound)

	rev := b.RevisionID
	_, err = svc.Update(ctx, a.ThemeID, UpdateThemeInput{RevisionID: &rev})
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = svc.Get(ctx, "default", GetThemeOptions{RevisionID: 1})
	var cerr *model.ClientError
	assert.ErrorAs(t, err, &cerr)
}

func TestThemeService_FileThemesAreReadOnly(t *testing.T) {
	svc, _ := newTestThemeService(t)
	ctx := context.Background()

	_, err := svc.PutAsset(ctx, "default", model.AssetStyles, AssetInput{Data: jsonString("x")})
	assert.ErrorIs(t, err, model.ErrForbidden)

	name := "x"
	_, err = svc.Update(ctx, "dark", UpdateThemeInput{Name: &name})
	assert.ErrorIs(t, err, model.ErrForbidden)

	assert.ErrorIs(t, svc.Delete(ctx, "dark"), model.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, "missing"), model.ErrNotFound)

	revs, err := svc.Revisions(ctx, "dark")
	require.NoError(t, err)
	assert.Empty(t, revs)
}

func TestThemeService_SetCurrentAndDelete(t *testing.T) {
	svc, _ := newTestThemeService(t)
	ctx := context.Background()
	custom := createCustomTheme(t, svc)

	th, err := svc.SetCurrent(ctx, custom.ThemeID)
	require.NoError(t, err)
	assert.True(t, th.Current)

	current, err := svc.Get(ctx, model.ThemeKeyCurrent, GetThemeOptions{})
	require.NoError(t, err)
	assert.Equal(t, custom.ThemeID, current.ThemeID)

	err = svc.Delete(ctx, custom.ThemeID)
	var cerr *model.ClientError
	require.ErrorAs(t, err, &cerr)

	_, err = svc.SetCurrent(ctx, "dark")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, custom.ThemeID))

	_, err = svc.Get(ctx, custom.ThemeID, GetThemeOptions{})
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = svc.SetCurrent(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = svc.SetCurrent(ctx, model.ThemeKeyCurrent)
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestThemeService_DanglingCurrentFallsBackToDefault(t *testing.T) {
	svc, db := newTestThemeService(t)
	ctx := context.Background()

	require.NoError(t, store.New(db).SetConfig(ctx, store.SetConfigParams{
		Key:       store.ConfigKeyCurrentTheme,
		Value:     "999",
		UpdatedAt: store.Now(),
	}))

	th, err := svc.Get(ctx, model.ThemeKeyCurrent, GetThemeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "default", th.ThemeID)
}

func TestThemeService_Asset(t *testing.T) {
	svc, _ := newTestThemeService(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		key         string
		path        string
		contentType string
		body        string
		envelope    bool
	}{
		{name: "raw css", key: "default", path: "styles.css", contentType: "text/css; charset=utf-8", body: "body{color:black}"},
		{name: "raw html via current", key: "current", path: "header.html", contentType: "text/html; charset=utf-8", body: "<header>default</header>"},
		{name: "inherited html", key: "dark", path: "header.html", contentType: "text/html; charset=utf-8", body: "<header>default</header>"},
		{name: "json asset", key: "dark", path: "variables.json", contentType: "application/json; charset=utf-8", body: `{"global":{"color":"#fff","size":14},"titleBar":{"height":48}}`},
		{name: "envelope", key: "default", path: "styles.json", contentType: "application/json; charset=utf-8", envelope: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Asset(ctx, tt.key, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.contentType, got.ContentType)
			if tt.envelope {
				assert.Equal(t, "css", gjson.GetBytes(got.Body, "type").String())
				assert.Equal(t, "body{color:black}", gjson.GetBytes(got.Body, "data").String())
				assert.Equal(t, "/api/v1/themes/default/assets/styles.css", gjson.GetBytes(got.Body, "url").String())
				return
			}
			if got.ContentType == "application/json; charset=utf-8" {
				assert.JSONEq(t, tt.body, string(got.Body))
				return
			}
			assert.Equal(t, tt.body, string(got.Body))
		})
	}

	for _, path := range []string{"styles", "variables.css", "styles.html", "logo.png", "missing.json"} {
		_, err := svc.Asset(ctx, "default", path)
		assert.ErrorIs(t, err, model.ErrNotFound, path)
	}

	_, err := svc.Asset(ctx, "nope", "styles.css")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestThemeService_Preview(t *testing.T) {
	svc, _ := newTestThemeService(t)
	ctx := context.Background()

	preview, err := svc.SetPreview(ctx, PreviewInput{
		ThemeID:   "dark",
		Variables: json.RawMessage(`{"global":{"color":"#f00"}}`),
	})
	require.NoError(t, err)
	require.NotEmpty(t, preview.PreviewID)
	assert.Equal(t, "dark", preview.ThemeKey)
	assert.False(t, preview.ExpiresAt.IsZero())

	th, err := svc.Current(ctx, preview.PreviewID, []string{"variables"})
	require.NoError(t, err)
	assert.Equal(t, "dark", th.ThemeID)
	assert.Equal(t, preview.PreviewID, th.PreviewID)
	assert.False(t, th.Current)
	vars := th.Assets[model.AssetVariables].Data
	assert.Equal(t, "#f00", gjson.GetBytes(vars, "global.color").String())
	assert.Equal(t, int64(14), gjson.GetBytes(vars, "global.size").Int())

	// The preview does not leak into the theme itself.
	dark, err := svc.Get(ctx, "dark", GetThemeOptions{Expand: []string{"variables"}})
	require.NoError(t, err)
	assert.Equal(t, "#fff", gjson.GetBytes(dark.Assets[model.AssetVariables].Data, "global.color").String())

	require.NoError(t, svc.ClearPreview(ctx, preview.PreviewID))
	assert.ErrorIs(t, svc.ClearPreview(ctx, preview.PreviewID), model.ErrNotFound)

	th, err = svc.Current(ctx, preview.PreviewID, nil)
	require.NoError(t, err)
	assert.Equal(t, "default", th.ThemeID)
	assert.Empty(t, th.PreviewID)
}

func TestThemeService_PreviewValidation(t *testing.T) {
	svc, _ := newTestThemeService(t)
	ctx := context.Background()

	_, err := svc.SetPreview(ctx, PreviewInput{ThemeID: "dark", Variables: json.RawMessage(`[1]`)})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "variables")

	_, err = svc.SetPreview(ctx, PreviewInput{})
	require.ErrorAs(t, err, &verr)

	_, err = svc.SetPreview(ctx, PreviewInput{ThemeID: "missing"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestThemeService_PreviewRevision(t *testing.T) {
	svc, _ := newTestThemeService(t)
	ctx := context.Background()
	custom := createCustomTheme(t, svc)

	_, err := svc.PutAsset(ctx, custom.ThemeID, model.AssetHeader, AssetInput{Data: jsonString("<header>v2</header>")})
	require.NoError(t, err)

	preview, err := svc.SetPreview(ctx, PreviewInput{ThemeID: custom.ThemeID, RevisionID: custom.RevisionID})
	require.NoError(t, err)

	th, err := svc.Current(ctx, preview.PreviewID, []string{"header"})
	require.NoError(t, err)
	assert.Equal(t, custom.RevisionID, th.RevisionID)
	assert.JSONEq(t, `"<header>custom</header>"`, string(th.Assets[model.AssetHeader].Data))

	// Deleting the previewed theme turns the preview into a no-op.
	require.NoError(t, svc.Delete(ctx, custom.ThemeID))
	th, err = svc.Current(ctx, preview.PreviewID, nil)
	require.NoError(t, err)
	assert.Equal(t, "default", th.ThemeID)
}

func TestThemeService_EventsRecorded(t *testing.T) {
	svc, db := newTestThemeService(t)
	ctx := context.Background()
	custom := createCustomTheme(t, svc)
	_, err := svc.SetCurrent(ctx, custom.ThemeID)
	require.NoError(t, err)

	events, err := store.New(db).ListEvents(ctx, store.ListEventsParams{Limit: 10})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.EventCategoryConfig, events[0].Category)
	assert.Equal(t, model.EventCategoryTheme, events[1].Category)
	assert.Equal(t, custom.ThemeID, gjson.Get(events[1].Metadata, "theme_id").String())
}

func TestDBThemeID(t *testing.T) {
	id, ok := dbThemeID("12")
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)

	for _, key := range []string{"default", "0", "-1", "", "1x"} {
		_, ok := dbThemeID(key)
		assert.False(t, ok, key)
	}
}
