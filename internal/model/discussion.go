// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"fmt"
	"time"
)

// Discussion body formats.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatText     = "text"
)

// ValidFormat reports whether f is a supported body format.
func ValidFormat(f string) bool {
	switch f {
	case FormatMarkdown, FormatHTML, FormatText:
		return true
	}
	return false
}

// Category is a discussion category.
type Category struct {
	CategoryID       int64     `json:"categoryID"`
	ParentCategoryID *int64    `json:"parentCategoryID"`
	Name             string    `json:"name"`
	URLCode          string    `json:"urlcode"`
	Description      string    `json:"description"`
	Archived         bool      `json:"isArchived"`
	ViewPermission   string    `json:"viewPermission,omitempty"`
	SortOrder        int64     `json:"sort"`
	URL              string    `json:"url"`
	DateInserted     time.Time `json:"dateInserted"`
}

// CategoryURL returns the public URL of a category.
func CategoryURL(slug string) string {
	return "/categories/" + slug
}

// Tag is a discussion tag.
type Tag struct {
	TagID   int64  `json:"tagID"`
	Name    string `json:"name"`
	URLCode string `json:"urlcode"`
}

// Discussion is a discussion as exposed by the API.
type Discussion struct {
	DiscussionID   int64     `json:"discussionID"`
	CategoryID     int64     `json:"categoryID"`
	Name           string    `json:"name"`
	Body           string    `json:"body"`
	Format         string    `json:"format"`
	InsertUserID   int64     `json:"insertUserID"`
	InsertUserName string    `json:"insertUserName"`
	Tags           []Tag     `json:"tags"`
	URL            string    `json:"url"`
	DateInserted   time.Time `json:"dateInserted"`
	DateUpdated    time.Time `json:"dateUpdated"`
}

// DiscussionURL returns the public URL of a discussion.
func DiscussionURL(id int64, slug string) string {
	if slug == "" {
		return fmt.Sprintf("/discussion/%d", id)
	}
	return fmt.Sprintf("/discussion/%d/%s", id, slug)
}

// Breadcrumb is one step of a record's location.
type Breadcrumb struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// SearchResultItem is a record returned by a search.
type SearchResultItem struct {
	RecordType     string       `json:"recordType"`
	Type           string       `json:"type"`
	RecordID       int64        `json:"recordID"`
	DiscussionID   int64        `json:"discussionID,omitempty"`
	CategoryID     int64        `json:"categoryID"`
	Name           string       `json:"name"`
	Body           string       `json:"body"`
	URL            string       `json:"url"`
	Breadcrumbs    []Breadcrumb `json:"breadcrumbs"`
	Tags           []Tag        `json:"tags,omitempty"`
	InsertUserID   int64        `json:"insertUserID"`
	InsertUserName string       `json:"insertUserName,omitempty"`
	DateInserted   time.Time    `json:"dateInserted"`
	DateUpdated    time.Time    `json:"dateUpdated"`
	Score          float64      `json:"score,omitempty"`
}
