// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package search

import (
	"bytes"
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/olegiv/oforum/internal/model"
)

// ExcerptLength is the length in characters of result body excerpts.
const ExcerptLength = 200

var (
	markdown    = goldmark.New()
	stripPolicy = newStripPolicy()
)

func newStripPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}

// PlainText renders a body in its format and reduces it to plain text
// with normalized whitespace.
func PlainText(body, format string) string {
	switch format {
	case model.FormatMarkdown:
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(body), &buf); err == nil {
			body = buf.String()
		}
		body = stripHTMLTags(body)
	case model.FormatHTML:
		body = stripHTMLTags(body)
	}
	return strings.Join(strings.Fields(body), " ")
}

// stripHTMLTags removes tags (and script/style content) and unescapes
// entities.
func stripHTMLTags(s string) string {
	return html.UnescapeString(stripPolicy.Sanitize(s))
}

// Excerpt cuts about maxLen characters out of text, centred on the first
// occurrence of any term. Without a match it takes the beginning.
func Excerpt(text string, terms []string, maxLen int) string {
	if text == "" {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}

	// Lowercase rune by rune so indexes line up with runes.
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}
	lowerText := string(lower)

	firstMatch := -1
	for _, term := range terms {
		if term == "" {
			continue
		}
		if idx := strings.Index(lowerText, strings.ToLower(term)); idx != -1 {
			pos := utf8.RuneCountInString(lowerText[:idx])
			if firstMatch == -1 || pos < firstMatch {
				firstMatch = pos
			}
		}
	}

	if firstMatch == -1 {
		return strings.TrimSpace(string(runes[:maxLen])) + "..."
	}

	start := max(firstMatch-maxLen/3, 0)
	end := min(start+maxLen, len(runes))
	if end-start < maxLen {
		start = max(end-maxLen, 0)
	}

	excerpt := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		excerpt = "..." + excerpt
	}
	if end < len(runes) {
		excerpt += "..."
	}
	return excerpt
}
