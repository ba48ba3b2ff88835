// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that copies warnings and errors
// into the database-backed event log.
package logging

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/sjson"

	"github.com/olegiv/oforum/internal/model"
	"github.com/olegiv/oforum/internal/store"
)

// CategoryKey is the attribute that sets an event's category explicitly.
const CategoryKey = "category"

// writeTimeout bounds a single event insert.
const writeTimeout = 5 * time.Second

// pathAttr is an attribute together with the groups that were open when it
// was added.
type pathAttr struct {
	groups []string
	attr   slog.Attr
}

// EventLogHandler is a slog.Handler that wraps another handler and also
// writes records at or above its level to the events table.
type EventLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level
	groups  []string
	attrs   []pathAttr
}

// NewEventLogHandler wraps inner and records WARN and above.
func NewEventLogHandler(inner slog.Handler, db *sql.DB) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, db, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel creates an EventLogHandler with a custom minimum level.
func NewEventLogHandlerWithLevel(inner slog.Handler, db *sql.DB, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level) || level >= h.level
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.inner.Enabled(ctx, r.Level) {
		if err := h.inner.Handle(ctx, r); err != nil {
			return err
		}
	}

	if r.Level >= h.level {
		h.writeToEventLog(r)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.inner = h.inner.WithAttrs(attrs)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, pathAttr{groups: h.groups, attr: a})
	}
	return clone
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.inner = h.inner.WithGroup(name)
	clone.groups = append(append([]string{}, h.groups...), name)
	return clone
}

func (h *EventLogHandler) clone() *EventLogHandler {
	return &EventLogHandler{
		inner:   h.inner,
		queries: h.queries,
		level:   h.level,
		groups:  h.groups,
		attrs:   append([]pathAttr{}, h.attrs...),
	}
}

// writeToEventLog inserts the record. It runs on a fresh context so events
// are kept when the request that logged them is cancelled.
func (h *EventLogHandler) writeToEventLog(r slog.Record) {
	attrs := append([]pathAttr{}, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, pathAttr{groups: h.groups, attr: a})
		return true
	})

	createdAt := r.Time.UTC().Truncate(time.Second)
	if r.Time.IsZero() {
		createdAt = store.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	_, _ = h.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     eventLevel(r.Level),
		Category:  extractCategory(r.Message, attrs),
		Message:   r.Message,
		Metadata:  extractMetadata(attrs),
		CreatedAt: createdAt,
	})
}

// eventLevel converts a slog.Level to an event log level.
func eventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// extractCategory returns the top-level "category" attribute, or infers a
// category from the message.
func extractCategory(message string, attrs []pathAttr) string {
	for i := len(attrs) - 1; i >= 0; i-- {
		a := attrs[i]
		if len(a.groups) == 0 && a.attr.Key == CategoryKey {
			if c := a.attr.Value.Resolve().String(); c != "" {
				return c
			}
		}
	}

	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "api key") || strings.Contains(msg, "auth") || strings.Contains(msg, "rate limit"):
		return model.EventCategoryAuth
	case strings.Contains(msg, "theme") || strings.Contains(msg, "asset") || strings.Contains(msg, "revision"):
		return model.EventCategoryTheme
	case strings.Contains(msg, "search") || strings.Contains(msg, "index"):
		return model.EventCategorySearch
	case strings.Contains(msg, "discussion") || strings.Contains(msg, "category") || strings.Contains(msg, "tag"):
		return model.EventCategoryContent
	case strings.Contains(msg, "config") || strings.Contains(msg, "setting"):
		return model.EventCategoryConfig
	case strings.Contains(msg, "cache"):
		return model.EventCategoryCache
	default:
		return model.EventCategorySystem
	}
}

// extractMetadata renders the attributes as a JSON object. Groups become
// nested objects; the top-level category attribute is left out.
func extractMetadata(attrs []pathAttr) string {
	doc := "{}"
	for _, a := range attrs {
		if len(a.groups) == 0 && a.attr.Key == CategoryKey {
			continue
		}
		doc = setAttr(doc, a.groups, a.attr)
	}
	return doc
}

func setAttr(doc string, groups []string, a slog.Attr) string {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		path := groups
		if a.Key != "" {
			path = append(append([]string{}, groups...), a.Key)
		}
		for _, ga := range v.Group() {
			doc = setAttr(doc, path, ga)
		}
		return doc
	}
	if a.Key == "" {
		return doc
	}

	parts := make([]string, 0, len(groups)+1)
	for _, g := range groups {
		parts = append(parts, escapePath(g))
	}
	parts = append(parts, escapePath(a.Key))

	var value any
	switch v.Kind() {
	case slog.KindInt64:
		value = v.Int64()
	case slog.KindUint64:
		value = v.Uint64()
	case slog.KindFloat64:
		value = v.Float64()
	case slog.KindBool:
		value = v.Bool()
	default:
		value = v.String()
	}

	if out, err := sjson.Set(doc, strings.Join(parts, "."), value); err == nil {
		return out
	}
	return doc
}

// pathEscaper escapes the characters sjson treats as path syntax.
var pathEscaper = strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`, "!", `\!`)

func escapePath(key string) string {
	return pathEscaper.Replace(key)
}
