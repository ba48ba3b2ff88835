// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"path/filepath"
	"testing"
)

func TestSafeJoinPath(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name       string
		components []string
		wantErr    bool
	}{
		{"simple file", []string{"header.html"}, false},
		{"nested", []string{"assets", "styles.css"}, false},
		{"traversal", []string{"..", "etc", "passwd"}, true},
		{"embedded traversal", []string{"assets/../../secret"}, true},
		{"base itself", []string{"."}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SafeJoinPath(base, tt.components...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SafeJoinPath(%v) error = %v, wantErr %v", tt.components, err, tt.wantErr)
			}
			if err == nil {
				want := filepath.Join(append([]string{base}, tt.components...)...)
				if got != want {
					t.Errorf("SafeJoinPath(%v) = %q, want %q", tt.components, got, want)
				}
			}
		})
	}
}

func TestValidatePathWithinBase_SiblingPrefix(t *testing.T) {
	base := filepath.Join(t.TempDir(), "themes")
	if err := ValidatePathWithinBase(base, base+"-evil/x"); err == nil {
		t.Error("sibling directory sharing a prefix should be rejected")
	}
}
