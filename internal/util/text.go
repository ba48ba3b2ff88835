// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FoldCase lowercases s with full Unicode rules. SQLite's LOWER only folds
// ASCII, so text that is searched case-insensitively is stored folded.
func FoldCase(s string) string {
	return cases.Lower(language.Und).String(s)
}
