// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package theme loads read-only file themes: the core themes embedded in
// the binary and any custom themes found in the themes directory.
package theme

import (
	"maps"
	"slices"
)

// Config represents the configuration loaded from theme.json.
type Config struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Author      string `json:"author"`
	Description string `json:"description"`
	// Assets maps an asset name to a file relative to the theme directory.
	Assets map[string]string `json:"assets"`
}

// Theme is a loaded file theme.
type Theme struct {
	Key        string            // directory name (used as identifier)
	Path       string            // filesystem path to theme directory (empty for embedded)
	Config     Config            // parsed theme.json
	IsEmbedded bool              // true if theme is embedded in binary
	assets     map[string]string // asset name -> body
}

// Asset returns the body of a named asset defined by the theme.
func (t *Theme) Asset(name string) (string, bool) {
	body, ok := t.assets[name]
	return body, ok
}

// AssetNames returns the names of the assets the theme defines, sorted.
func (t *Theme) AssetNames() []string {
	return slices.Sorted(maps.Keys(t.assets))
}

// DisplayName returns the configured name, falling back to the key.
func (t *Theme) DisplayName() string {
	if t.Config.Name != "" {
		return t.Config.Name
	}
	return t.Key
}
