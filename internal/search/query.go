// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package search runs record searches against either the SQL database or
// a bleve full-text index. Record types translate a Query into the
// constraints each backend understands.
package search

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olegiv/oforum/internal/model"
	"github.com/olegiv/oforum/internal/util"
)

// Pagination limits.
const (
	DefaultLimit = 30
	MaxLimit     = 100
	MaxPage      = 1000
)

// TagOperator decides whether a record needs all or any of the tags.
type TagOperator string

const (
	TagOperatorAnd TagOperator = "and"
	TagOperatorOr  TagOperator = "or"
)

// Sort orders search results.
type Sort string

const (
	SortRelevance        Sort = "relevance"
	SortDateInserted     Sort = "dateInserted"
	SortDateInsertedDesc Sort = "-dateInserted"
)

const (
	dateLayout      = "2006-01-02"
	day             = 24 * time.Hour
	maxSearchTerms  = 10
	maxFilterValues = 100
)

// DateRange is a half-open time interval. A zero bound is open.
type DateRange struct {
	From time.Time // inclusive
	To   time.Time // exclusive
}

// IsZero reports whether the range has no bounds at all.
func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// Contains reports whether t lies inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// Query is a validated search request.
type Query struct {
	Query                     string
	Name                      string
	DiscussionID              int64
	CategoryIDs               []int64
	IncludeChildCategories    bool
	IncludeArchivedCategories bool
	Tags                      []string
	TagOperator               TagOperator
	InsertUserIDs             []int64
	InsertUserNames           []string
	DateInserted              DateRange
	RecordTypes               []string
	Sort                      Sort
	Page                      int
	Limit                     int
}

// Offset returns the number of results skipped before the current page.
func (q Query) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Terms returns the words of the free-text query.
func (q Query) Terms() []string {
	return searchTerms(q.Query)
}

// NameTerms returns the words of the title-only query.
func (q Query) NameTerms() []string {
	return searchTerms(q.Name)
}

// WantsType reports whether the query includes records of type key.
func (q Query) WantsType(key string) bool {
	if len(q.RecordTypes) == 0 {
		return true
	}
	for _, t := range q.RecordTypes {
		if t == key {
			return true
		}
	}
	return false
}

var termCleaner = regexp.MustCompile(`[^\p{L}\p{N}\s_-]`)

// searchTerms splits free text into lowercase words, dropping punctuation
// that neither backend can match literally.
func searchTerms(s string) []string {
	s = termCleaner.ReplaceAllString(util.FoldCase(s), " ")
	words := strings.Fields(s)
	if len(words) > maxSearchTerms {
		words = words[:maxSearchTerms]
	}
	return words
}

// ParseQuery builds a Query from URL query parameters.
func ParseQuery(values url.Values) (Query, error) {
	verr := &model.ValidationError{}
	q := Query{
		Query:       strings.TrimSpace(values.Get("query")),
		Name:        strings.TrimSpace(values.Get("name")),
		TagOperator: TagOperatorOr,
		Page:        1,
		Limit:       DefaultLimit,
	}

	if v := values.Get("discussionID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			verr.Add("discussionID", "must be a positive integer")
		}
		q.DiscussionID = id
	}

	var err error
	if q.CategoryIDs, err = parseIDs(values["categoryID"]); err != nil {
		verr.Add("categoryID", err.Error())
	}
	if q.InsertUserIDs, err = parseIDs(values["insertUserIDs"]); err != nil {
		verr.Add("insertUserIDs", err.Error())
	}
	if q.InsertUserNames, err = parseList(values["insertUserNames"]); err != nil {
		verr.Add("insertUserNames", err.Error())
	}
	if q.Tags, err = parseList(values["tags"]); err != nil {
		verr.Add("tags", err.Error())
	}
	if q.RecordTypes, err = parseList(values["recordTypes"]); err != nil {
		verr.Add("recordTypes", err.Error())
	}

	if q.IncludeChildCategories, err = parseBool(values.Get("includeChildCategories")); err != nil {
		verr.Add("includeChildCategories", err.Error())
	}
	if q.IncludeArchivedCategories, err = parseBool(values.Get("includeArchivedCategories")); err != nil {
		verr.Add("includeArchivedCategories", err.Error())
	}

	switch op := TagOperator(strings.ToLower(values.Get("tagOperator"))); op {
	case "":
	case TagOperatorAnd, TagOperatorOr:
		q.TagOperator = op
	default:
		verr.Add("tagOperator", `must be "and" or "or"`)
	}

	if v := values.Get("dateInserted"); v != "" {
		r, err := ParseDateRange(v)
		if err != nil {
			verr.Add("dateInserted", err.Error())
		}
		q.DateInserted = r
	}

	switch s := Sort(values.Get("sort")); s {
	case "":
		q.Sort = SortDateInsertedDesc
		if q.Query != "" || q.Name != "" {
			q.Sort = SortRelevance
		}
	case SortRelevance, SortDateInserted, SortDateInsertedDesc:
		q.Sort = s
	default:
		verr.Add("sort", fmt.Sprintf("must be one of %s, %s, %s", SortRelevance, SortDateInserted, SortDateInsertedDesc))
	}

	if v := values.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 || page > MaxPage {
			verr.Add("page", fmt.Sprintf("must be between 1 and %d", MaxPage))
		}
		q.Page = page
	}
	if v := values.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > MaxLimit {
			verr.Add("limit", fmt.Sprintf("must be between 1 and %d", MaxLimit))
		}
		q.Limit = limit
	}

	if err := verr.OrNil(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// parseList accepts repeated parameters and comma separated values.
func parseList(values []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" || seen[part] {
				continue
			}
			seen[part] = true
			out = append(out, part)
		}
	}
	if len(out) > maxFilterValues {
		return nil, fmt.Errorf("at most %d values are allowed", maxFilterValues)
	}
	return out, nil
}

func parseIDs(values []string) ([]int64, error) {
	parts, err := parseList(values)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%q is not a valid ID", p)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return ids, nil
}

func parseBool(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.New("must be a boolean")
	}
	return b, nil
}

// ParseDateRange parses a date filter. Accepted forms are a single day
// ("2024-05-01"), a comparison (">=2024-05-01", ">", "<", "<=") and an
// inclusive range ("[2024-05-01,2024-05-31]"). RFC 3339 timestamps are
// accepted wherever a day is and are used as exact instants.
func ParseDateRange(s string) (DateRange, error) {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		from, to, ok := strings.Cut(s[1:len(s)-1], ",")
		if !ok {
			return DateRange{}, errors.New("range must have the form [from,to]")
		}
		var r DateRange
		var err error
		if r.From, _, err = parseDateBound(from); err != nil {
			return DateRange{}, err
		}
		var exact bool
		if r.To, exact, err = parseDateBound(to); err != nil {
			return DateRange{}, err
		}
		if exact {
			r.To = r.To.Add(time.Second)
		} else {
			r.To = r.To.Add(day)
		}
		if !r.To.After(r.From) {
			return DateRange{}, errors.New("range end must be after its start")
		}
		return r, nil
	}

	for _, op := range []string{">=", "<=", ">", "<"} {
		rest, ok := strings.CutPrefix(s, op)
		if !ok {
			continue
		}
		t, exact, err := parseDateBound(rest)
		if err != nil {
			return DateRange{}, err
		}
		switch op {
		case ">=":
			return DateRange{From: t}, nil
		case ">":
			if exact {
				return DateRange{From: t.Add(time.Second)}, nil
			}
			return DateRange{From: t.Add(day)}, nil
		case "<=":
			if exact {
				return DateRange{To: t.Add(time.Second)}, nil
			}
			return DateRange{To: t.Add(day)}, nil
		default:
			return DateRange{To: t}, nil
		}
	}

	t, exact, err := parseDateBound(s)
	if err != nil {
		return DateRange{}, err
	}
	if exact {
		return DateRange{From: t, To: t.Add(time.Second)}, nil
	}
	return DateRange{From: t, To: t.Add(day)}, nil
}

// parseDateBound parses a day or an RFC 3339 timestamp. exact is true for
// timestamps.
func parseDateBound(s string) (t time.Time, exact bool, err error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.UTC(), false, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Truncate(time.Second), true, nil
	}
	return time.Time{}, false, fmt.Errorf("%q is not a valid date", s)
}
