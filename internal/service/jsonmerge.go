// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// mergeJSON applies patch on top of base with merge-patch semantics:
// objects merge recursively, null removes a key and any other value
// (arrays included) replaces what was there. A patch that is not an
// object replaces base entirely. Empty keys in patch are dropped.
func mergeJSON(base, patch string) (string, error) {
	p := gjson.Parse(patch)
	if !p.IsObject() {
		return patch, nil
	}
	if !gjson.Parse(base).IsObject() {
		base = "{}"
	}

	out := base
	var err error
	p.ForEach(func(key, value gjson.Result) bool {
		// sjson cannot address an empty key; rows written before such
		// keys were rejected still have to resolve.
		if key.String() == "" {
			return true
		}
		path := escapePathKey(key.String())
		switch {
		case value.Type == gjson.Null:
			out, err = sjson.Delete(out, path)
		case value.IsObject():
			current := gjson.Get(out, path)
			var merged string
			merged, err = mergeJSON(current.Raw, value.Raw)
			if err == nil {
				out, err = sjson.SetRaw(out, path, merged)
			}
		default:
			out, err = sjson.SetRaw(out, path, value.Raw)
		}
		return err == nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// escapePathKey escapes a literal object key for use as a gjson/sjson path.
func escapePathKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', ':', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
