// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"errors"
	"testing"
)

func TestParseAssetPath(t *testing.T) {
	tests := []struct {
		path     string
		wantName string
		wantType AssetType
		envelope bool
		wantErr  bool
	}{
		{"styles.css", AssetStyles, AssetTypeCSS, false, false},
		{"styles.json", AssetStyles, AssetTypeCSS, true, false},
		{"header.html", AssetHeader, AssetTypeHTML, false, false},
		{"javascript.js", AssetJavascript, AssetTypeJS, false, false},
		{"variables.json", AssetVariables, AssetTypeJSON, false, false},
		{"fonts.json", AssetFonts, AssetTypeJSON, false, false},
		{"styles.html", "", "", false, true},
		{"variables.css", "", "", false, true},
		{"header", "", "", false, true},
		{"logo.png", "", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := ParseAssetPath(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrNotFound) {
					t.Fatalf("ParseAssetPath(%q) error = %v, want ErrNotFound", tt.path, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAssetPath(%q) error = %v", tt.path, err)
			}
			if got.Name != tt.wantName || got.Type != tt.wantType {
				t.Errorf("ParseAssetPath(%q) = %+v", tt.path, got)
			}
			if got.Envelope() != tt.envelope {
				t.Errorf("Envelope() = %v, want %v", got.Envelope(), tt.envelope)
			}
		})
	}
}

func TestValidateAssetBody(t *testing.T) {
	tests := []struct {
		name    string
		asset   string
		body    string
		wantErr bool
	}{
		{"html anything", AssetHeader, "<div>", false},
		{"css anything", AssetStyles, "body{", false},
		{"unknown asset", "logo", "", true},
		{"variables object", AssetVariables, `{"global":{"mainColors":{"primary":"#000"}}}`, false},
		{"variables array", AssetVariables, `[]`, true},
		{"variables invalid", AssetVariables, `{`, true},
		{"variables empty key", AssetVariables, `{"":"x"}`, true},
		{"variables nested empty key", AssetVariables, `{"global":{"colors":{"":"#000"}}}`, true},
		{"variables empty key inside array", AssetVariables, `{"list":[{"":1}]}`, true},
		{"variables special keys", AssetVariables, `{"a.b":{"*":1,"#":[1,2]},"?":"x"}`, false},
		{"variables empty string value", AssetVariables, `{"global":""}`, false},
		{"fonts ok", AssetFonts, `[{"name":"Open Sans","url":"https://fonts.example/os.css"}]`, false},
		{"fonts missing name", AssetFonts, `[{"url":"https://fonts.example/os.css"}]`, true},
		{"fonts object", AssetFonts, `{}`, true},
		{"scripts ok", AssetScripts, `[{"url":"https://cdn.example/a.js"}]`, false},
		{"scripts missing url", AssetScripts, `[{"type":"module"}]`, true},
		{"scripts empty", AssetScripts, `[]`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAssetBody(tt.asset, tt.body)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateAssetBody(%q) error = %v, wantErr %v", tt.asset, err, tt.wantErr)
			}
			if err != nil {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("expected *ValidationError, got %T", err)
				}
			}
		})
	}
}

func TestAssetType_ContentType(t *testing.T) {
	tests := map[AssetType]string{
		AssetTypeHTML: "text/html; charset=utf-8",
		AssetTypeCSS:  "text/css; charset=utf-8",
		AssetTypeJS:   "application/javascript; charset=utf-8",
		AssetTypeJSON: "application/json; charset=utf-8",
	}
	for typ, want := range tests {
		if got := typ.ContentType(); got != want {
			t.Errorf("%s.ContentType() = %q, want %q", typ, got, want)
		}
	}
}

func TestDefaultBody(t *testing.T) {
	for _, name := range AssetNames() {
		body := DefaultBody(name)
		if err := ValidateAssetBody(name, body); err != nil {
			t.Errorf("DefaultBody(%q) = %q fails validation: %v", name, body, err)
		}
	}
}
