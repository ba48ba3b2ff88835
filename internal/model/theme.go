// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// AssetType is the body format of a theme asset.
type AssetType string

const (
	AssetTypeHTML AssetType = "html"
	AssetTypeCSS  AssetType = "css"
	AssetTypeJS   AssetType = "js"
	AssetTypeJSON AssetType = "json"
)

// Asset names.
const (
	AssetHeader     = "header"
	AssetFooter     = "footer"
	AssetStyles     = "styles"
	AssetJavascript = "javascript"
	AssetVariables  = "variables"
	AssetFonts      = "fonts"
	AssetScripts    = "scripts"
)

// Theme types.
const (
	ThemeTypeFile = "themeFile"
	ThemeTypeDB   = "themeDB"
)

// ThemeKeyCurrent resolves to whichever theme is currently active.
const ThemeKeyCurrent = "current"

var assetCatalogue = map[string]AssetType{
	AssetHeader:     AssetTypeHTML,
	AssetFooter:     AssetTypeHTML,
	AssetStyles:     AssetTypeCSS,
	AssetJavascript: AssetTypeJS,
	AssetVariables:  AssetTypeJSON,
	AssetFonts:      AssetTypeJSON,
	AssetScripts:    AssetTypeJSON,
}

// AssetNames returns every known asset name in display order.
func AssetNames() []string {
	return []string{
		AssetHeader,
		AssetFooter,
		AssetVariables,
		AssetFonts,
		AssetScripts,
		AssetStyles,
		AssetJavascript,
	}
}

// AssetTypeFor returns the type of a named asset.
func AssetTypeFor(name string) (AssetType, bool) {
	t, ok := assetCatalogue[name]
	return t, ok
}

// ContentType returns the HTTP content type for raw asset bodies.
func (t AssetType) ContentType() string {
	switch t {
	case AssetTypeHTML:
		return "text/html; charset=utf-8"
	case AssetTypeCSS:
		return "text/css; charset=utf-8"
	case AssetTypeJS:
		return "application/javascript; charset=utf-8"
	default:
		return "application/json; charset=utf-8"
	}
}

// Extensions returns the render extensions an asset of this type may be
// requested with. The native extension comes first.
func (t AssetType) Extensions() []string {
	if t == AssetTypeJSON {
		return []string{"json"}
	}
	return []string{string(t), "json"}
}

// AllowsExtension reports whether ext is a valid render extension.
func (t AssetType) AllowsExtension(ext string) bool {
	return slices.Contains(t.Extensions(), ext)
}

// DefaultBody is the body of an asset nobody has defined.
func DefaultBody(name string) string {
	switch name {
	case AssetVariables:
		return "{}"
	case AssetFonts, AssetScripts:
		return "[]"
	default:
		return ""
	}
}

// AssetPath is a parsed "name.ext" asset reference.
type AssetPath struct {
	Name      string
	Extension string
	Type      AssetType
}

// Envelope reports whether the path asks for the JSON envelope rather
// than the raw body.
func (p AssetPath) Envelope() bool {
	return p.Type != AssetTypeJSON && p.Extension == "json"
}

// ParseAssetPath parses "styles.css" style asset paths. Unknown assets and
// disallowed extensions yield ErrNotFound.
func ParseAssetPath(assetPath string) (AssetPath, error) {
	ext := strings.TrimPrefix(path.Ext(assetPath), ".")
	name := strings.TrimSuffix(assetPath, path.Ext(assetPath))

	t, ok := AssetTypeFor(name)
	if !ok {
		return AssetPath{}, NotFound("asset %q", name)
	}
	if ext == "" || !t.AllowsExtension(ext) {
		return AssetPath{}, NotFound("asset %q cannot be rendered as %q", name, ext)
	}

	return AssetPath{Name: name, Extension: ext, Type: t}, nil
}

// ValidateVariableKeys rejects empty object keys at any depth of a
// variables document. Variables are merged by key path, and an empty key
// has no path.
func ValidateVariableKeys(body string) error {
	if path, ok := emptyKeyPath(gjson.Parse(body), ""); ok {
		return NewValidationError("data", fmt.Sprintf("variables must not contain an empty key (in %q)", path))
	}
	return nil
}

// emptyKeyPath finds the first empty object key under v and returns the
// dotted path of the object holding it.
func emptyKeyPath(v gjson.Result, path string) (string, bool) {
	var (
		found string
		ok    bool
	)
	v.ForEach(func(key, item gjson.Result) bool {
		if v.IsObject() && key.String() == "" {
			found, ok = path, true
			return false
		}
		if item.IsObject() || item.IsArray() {
			found, ok = emptyKeyPath(item, joinKeyPath(path, key.String()))
		}
		return !ok
	})
	return found, ok
}

func joinKeyPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// ValidateAssetBody checks an asset body against its type.
func ValidateAssetBody(name, body string) error {
	t, ok := AssetTypeFor(name)
	if !ok {
		return NewValidationError("name", fmt.Sprintf("unknown asset %q", name))
	}
	if t != AssetTypeJSON {
		return nil
	}

	if !gjson.Valid(body) {
		return NewValidationError("data", "must be valid JSON")
	}

	doc := gjson.Parse(body)
	switch name {
	case AssetVariables:
		if !doc.IsObject() {
			return NewValidationError("data", "variables must be a JSON object")
		}
		return ValidateVariableKeys(doc.Raw)
	case AssetFonts, AssetScripts:
		if !doc.IsArray() {
			return NewValidationError("data", name+" must be a JSON array")
		}
		var itemErr error
		doc.ForEach(func(key, item gjson.Result) bool {
			if !item.IsObject() || item.Get("url").String() == "" {
				itemErr = NewValidationError("data", fmt.Sprintf("%s[%d] must be an object with a url", name, key.Int()))
				return false
			}
			if name == AssetFonts && item.Get("name").String() == "" {
				itemErr = NewValidationError("data", fmt.Sprintf("fonts[%d] must have a name", key.Int()))
				return false
			}
			return true
		})
		return itemErr
	}
	return nil
}

// ThemeAsset is an asset as exposed by the API. Data is only present
// when the asset was expanded.
type ThemeAsset struct {
	Type AssetType       `json:"type"`
	URL  string          `json:"url"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Theme is a theme document as exposed by the API.
type Theme struct {
	ThemeID      string                `json:"themeID"`
	Type         string                `json:"type"`
	Name         string                `json:"name"`
	Version      string                `json:"version,omitempty"`
	Description  string                `json:"description,omitempty"`
	ParentTheme  string                `json:"parentTheme,omitempty"`
	Current      bool                  `json:"current"`
	RevisionID   int64                 `json:"revisionID,omitempty"`
	PreviewID    string                `json:"previewID,omitempty"`
	DateInserted *time.Time            `json:"dateInserted,omitempty"`
	DateUpdated  *time.Time            `json:"dateUpdated,omitempty"`
	Assets       map[string]ThemeAsset `json:"assets"`
}

// ThemeRevision describes one saved revision of a database theme.
type ThemeRevision struct {
	RevisionID   int64     `json:"revisionID"`
	ThemeID      string    `json:"themeID"`
	Name         string    `json:"name"`
	Active       bool      `json:"active"`
	DateInserted time.Time `json:"dateInserted"`
}

// ThemePreview is the state held for a preview token.
type ThemePreview struct {
	PreviewID  string          `json:"previewID"`
	ThemeKey   string          `json:"themeID"`
	RevisionID int64           `json:"revisionID,omitempty"`
	Variables  json.RawMessage `json:"variables,omitempty"`
	ExpiresAt  time.Time       `json:"expiresAt"`
}
