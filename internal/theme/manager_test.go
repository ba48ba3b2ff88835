// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package theme

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/olegiv/oforum/internal/model"
	"github.com/olegiv/oforum/internal/themes"
)

// testLogger returns a logger configured for tests (errors only).
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// writeTheme creates a theme directory with the given files.
func writeTheme(t *testing.T, dir, key string, files map[string]string) {
	t.Helper()
	themeDir := filepath.Join(dir, key)
	if err := os.MkdirAll(themeDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(themeDir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestManager_EmbeddedThemes(t *testing.T) {
	m := NewManager(themes.FS, "", testLogger())
	if err := m.LoadThemes(); err != nil {
		t.Fatalf("LoadThemes: %v", err)
	}

	def, err := m.GetTheme(DefaultThemeKey)
	if err != nil {
		t.Fatalf("GetTheme(default): %v", err)
	}
	if !def.IsEmbedded {
		t.Error("default theme should be embedded")
	}
	for _, name := range model.AssetNames() {
		if _, ok := def.Asset(name); !ok {
			t.Errorf("default theme missing asset %q", name)
		}
	}

	dark, err := m.GetTheme("dark")
	if err != nil {
		t.Fatalf("GetTheme(dark): %v", err)
	}
	if _, ok := dark.Asset(model.AssetHeader); ok {
		t.Error("dark theme should not define a header")
	}

	list := m.ListThemes()
	if len(list) != 2 || list[0].Key != DefaultThemeKey {
		t.Errorf("ListThemes should start with default, got %d themes", len(list))
	}
}

func TestManager_FilesystemThemes(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "brand", map[string]string{
		"theme.json":     `{"name":"Brand","version":"2.0.0","assets":{"header":"header.html","variables":"variables.json"}}`,
		"header.html":    `<header>Brand</header>`,
		"variables.json": `{"global":{"mainColors":{"primary":"#ff0000"}}}`,
	})
	writeTheme(t, dir, "broken", map[string]string{
		"theme.json":     `{"name":"Broken","assets":{"variables":"variables.json"}}`,
		"variables.json": `[1, 2]`,
	})
	writeTheme(t, dir, "escape", map[string]string{
		"theme.json": `{"name":"Escape","assets":{"header":"../brand/header.html"}}`,
	})
	writeTheme(t, dir, "Bad_Name", map[string]string{
		"theme.json": `{"name":"Bad"}`,
	})
	writeTheme(t, dir, "42", map[string]string{
		"theme.json": `{"name":"Numeric"}`,
	})

	m := NewManager(nil, dir, testLogger())
	if err := m.LoadThemes(); err != nil {
		t.Fatalf("LoadThemes: %v", err)
	}

	brand, err := m.GetTheme("brand")
	if err != nil {
		t.Fatalf("GetTheme(brand): %v", err)
	}
	if brand.IsEmbedded {
		t.Error("filesystem theme should not be embedded")
	}
	if brand.DisplayName() != "Brand" || brand.Config.Version != "2.0.0" {
		t.Errorf("unexpected config: %+v", brand.Config)
	}
	if header, _ := brand.Asset(model.AssetHeader); header != "<header>Brand</header>" {
		t.Errorf("header = %q", header)
	}
	if got := brand.AssetNames(); len(got) != 2 || got[0] != "header" || got[1] != "variables" {
		t.Errorf("AssetNames = %v", got)
	}

	for _, key := range []string{"broken", "escape", "Bad_Name", "42"} {
		if m.HasTheme(key) {
			t.Errorf("theme %q should have been skipped", key)
		}
	}
	if m.ThemeCount() != 1 {
		t.Errorf("ThemeCount = %d, want 1", m.ThemeCount())
	}
}

func TestManager_FilesystemOverridesEmbedded(t *testing.T) {
	embedded := fstest.MapFS{
		"default/theme.json": {Data: []byte(`{"name":"Embedded","assets":{"styles":"styles.css"}}`)},
		"default/styles.css": {Data: []byte(`body{color:red}`)},
		"extra/theme.json":   {Data: []byte(`{"name":"Extra"}`)},
		"not-a-dir.txt":      {Data: []byte(`ignored`)},
		"invalid/theme.json": {Data: []byte(`{`)},
		"invalid/styles.css": {Data: []byte(``)},
		"missing/theme.json": {Data: []byte(`{"assets":{"footer":"footer.html"}}`)},
	}

	dir := t.TempDir()
	writeTheme(t, dir, "default", map[string]string{
		"theme.json": `{"name":"Custom Default","assets":{"styles":"styles.css"}}`,
		"styles.css": `body{color:blue}`,
	})

	m := NewManager(embedded, dir, testLogger())
	if err := m.LoadThemes(); err != nil {
		t.Fatalf("LoadThemes: %v", err)
	}

	def, err := m.GetTheme(DefaultThemeKey)
	if err != nil {
		t.Fatalf("GetTheme: %v", err)
	}
	if def.DisplayName() != "Custom Default" || def.IsEmbedded {
		t.Errorf("filesystem theme should replace embedded, got %+v", def.Config)
	}
	if !m.HasTheme("extra") {
		t.Error("extra embedded theme should be loaded")
	}
	if m.HasTheme("invalid") || m.HasTheme("missing") {
		t.Error("invalid embedded themes should be skipped")
	}
}

func TestManager_GetThemeNotFound(t *testing.T) {
	m := NewManager(nil, "", testLogger())
	if err := m.LoadThemes(); err != nil {
		t.Fatalf("LoadThemes: %v", err)
	}
	if _, err := m.GetTheme("nope"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("GetTheme(nope) error = %v, want ErrNotFound", err)
	}
}

func TestManager_MissingDirectory(t *testing.T) {
	m := NewManager(nil, filepath.Join(t.TempDir(), "does-not-exist"), testLogger())
	if err := m.LoadThemes(); err != nil {
		t.Fatalf("LoadThemes should tolerate a missing directory: %v", err)
	}
	if m.ThemeCount() != 0 {
		t.Errorf("ThemeCount = %d, want 0", m.ThemeCount())
	}
}
