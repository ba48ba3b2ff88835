// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package search

import (
	"context"
	"errors"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/olegiv/oforum/internal/model"
)

// ErrNoMatches is returned by a record type when the query cannot match
// any of its records, e.g. a required tag does not exist.
var ErrNoMatches = errors.New("search: query cannot match any records")

// RecordType plugs a kind of record into the search engines.
type RecordType interface {
	// Key identifies the type in queries and results.
	Key() string

	// ApplyToIndex adds the type's constraints to an index search.
	ApplyToIndex(ctx context.Context, q Query, caller model.Caller, f *IndexFilter) error

	// ApplyToSQL fills in the SQL search for the type: its table, its
	// ID and date columns, and its conditions.
	ApplyToSQL(ctx context.Context, q Query, caller model.Caller, s *SQLQuery) error

	// Hydrate loads result items by record ID. Missing records are left
	// out of the map.
	Hydrate(ctx context.Context, q Query, ids []int64) (map[int64]model.SearchResultItem, error)

	// Document loads the index document of one record. A missing record
	// is reported with model.ErrNotFound.
	Document(ctx context.Context, id int64) (Document, error)

	// Documents calls fn with every record of the type, for index rebuilds.
	Documents(ctx context.Context, fn func(id int64, doc Document) error) error
}

// IndexFilter collects the constraints a record type puts on an index
// search. All constraints must hold.
type IndexFilter struct {
	must []query.Query
}

// Query returns the conjunction of every constraint.
func (f *IndexFilter) Query() query.Query {
	if len(f.must) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(f.must) == 1 {
		return f.must[0]
	}
	return bleve.NewConjunctionQuery(f.must...)
}

// Add adds an arbitrary constraint.
func (f *IndexFilter) Add(q query.Query) {
	f.must = append(f.must, q)
}

// Term requires field to equal value exactly.
func (f *IndexFilter) Term(field, value string) {
	tq := bleve.NewTermQuery(value)
	tq.SetField(field)
	f.Add(tq)
}

// AnyNumber requires field to equal one of values.
func (f *IndexFilter) AnyNumber(field string, values ...int64) {
	if len(values) == 1 {
		f.Add(numberQuery(field, values[0]))
		return
	}
	qs := make([]query.Query, len(values))
	for i, v := range values {
		qs[i] = numberQuery(field, v)
	}
	f.Add(bleve.NewDisjunctionQuery(qs...))
}

// AllNumbers requires field to hold every one of values.
func (f *IndexFilter) AllNumbers(field string, values ...int64) {
	for _, v := range values {
		f.Add(numberQuery(field, v))
	}
}

// DateRange requires field to fall inside r.
func (f *IndexFilter) DateRange(field string, r DateRange) {
	if r.IsZero() {
		return
	}
	inclusive, exclusive := true, false
	dq := bleve.NewDateRangeInclusiveQuery(r.From, r.To, &inclusive, &exclusive)
	dq.SetField(field)
	f.Add(dq)
}

// MatchAll requires every term to match at least one of fields. Terms
// that analyze to no tokens are skipped.
func (f *IndexFilter) MatchAll(fields []string, terms []string) {
	for _, term := range terms {
		if !hasTokens(term) {
			continue
		}
		qs := make([]query.Query, len(fields))
		for i, field := range fields {
			mq := bleve.NewMatchQuery(term)
			mq.SetField(field)
			qs[i] = mq
		}
		if len(qs) == 1 {
			f.Add(qs[0])
			continue
		}
		f.Add(bleve.NewDisjunctionQuery(qs...))
	}
}

func numberQuery(field string, v int64) query.Query {
	n := float64(v)
	inclusive := true
	nq := bleve.NewNumericRangeInclusiveQuery(&n, &n, &inclusive, &inclusive)
	nq.SetField(field)
	return nq
}
