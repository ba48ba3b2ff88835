// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"database/sql"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/olegiv/oforum/internal/cache"
	"github.com/olegiv/oforum/internal/testutil"
	"github.com/olegiv/oforum/internal/theme"
)

// newTestDB returns a migrated SQLite database in a temp directory.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	return testutil.TestDB(t)
}

func newTestCache(t *testing.T) cache.Cache {
	t.Helper()
	return testutil.TestCache(t)
}

var testThemeFS = fstest.MapFS{
	"default/theme.json": {Data: []byte(`{
		"name": "Default",
		"version": "1.0.0",
		"description": "Stock theme",
		"assets": {
			"header": "header.html",
			"styles": "styles.css",
			"variables": "variables.json"
		}
	}`)},
	"default/header.html":    {Data: []byte("<header>default</header>")},
	"default/styles.css":     {Data: []byte("body{color:black}")},
	"default/variables.json": {Data: []byte(`{"global":{"color":"#000","size":14},"titleBar":{"height":48}}`)},
	"dark/theme.json":        {Data: []byte(`{"name":"Dark","assets":{"variables":"variables.json"}}`)},
	"dark/variables.json":    {Data: []byte(`{"global":{"color":"#fff"}}`)},
}

func newTestThemeService(t *testing.T) (*ThemeService, *sql.DB) {
	t.Helper()

	files := theme.NewManager(testThemeFS, "", slog.New(slog.DiscardHandler))
	require.NoError(t, files.LoadThemes())

	db := newTestDB(t)
	return NewThemeService(db, files, newTestCache(t), slog.New(slog.DiscardHandler)), db
}
