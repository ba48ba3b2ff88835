// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package search

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/olegiv/oforum/internal/model"
)

// Engine drivers.
const (
	DriverSQL   = "sql"
	DriverIndex = "index"
)

// Page is one page of hits across record types.
type Page struct {
	Hits  []Hit
	Total int64
}

// Engine runs a query over a set of record types.
type Engine interface {
	Name() string
	Search(ctx context.Context, q Query, caller model.Caller, types []RecordType) (Page, error)
}

// SQLEngine searches the database directly. Relevance is not available,
// so every sort falls back to date order.
type SQLEngine struct {
	db *sql.DB
}

// NewSQLEngine creates a SQL search engine.
func NewSQLEngine(db *sql.DB) *SQLEngine {
	return &SQLEngine{db: db}
}

// Name returns DriverSQL.
func (e *SQLEngine) Name() string { return DriverSQL }

type datedHit struct {
	Hit
	date time.Time
}

// Search counts and selects matches per record type, then merges the
// types by date and cuts out the requested page.
func (e *SQLEngine) Search(ctx context.Context, q Query, caller model.Caller, types []RecordType) (Page, error) {
	ascending := q.Sort == SortDateInserted
	need := q.Offset() + q.Limit

	var total int64
	var all []datedHit
	for _, t := range types {
		s := &SQLQuery{}
		err := t.ApplyToSQL(ctx, q, caller, s)
		if errors.Is(err, ErrNoMatches) {
			continue
		}
		if err != nil {
			return Page{}, fmt.Errorf("%s: %w", t.Key(), err)
		}

		stmt, args := s.CountSQL()
		var n int64
		if err := e.db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
			return Page{}, fmt.Errorf("%s: counting: %w", t.Key(), err)
		}
		total += n
		if n == 0 {
			continue
		}

		hits, err := e.selectHits(ctx, t.Key(), s, ascending, need)
		if err != nil {
			return Page{}, err
		}
		all = append(all, hits...)
	}

	slices.SortStableFunc(all, func(a, b datedHit) int {
		c := a.date.Compare(b.date)
		if c == 0 {
			c = cmp.Compare(a.RecordID, b.RecordID)
		}
		if !ascending {
			c = -c
		}
		return c
	})

	page := Page{Hits: []Hit{}, Total: total}
	for i := q.Offset(); i < len(all) && i < need; i++ {
		page.Hits = append(page.Hits, all[i].Hit)
	}
	return page, nil
}

func (e *SQLEngine) selectHits(ctx context.Context, recordType string, s *SQLQuery, ascending bool, limit int) ([]datedHit, error) {
	stmt, args := s.SelectSQL(ascending, limit)
	rows, err := e.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: selecting: %w", recordType, err)
	}
	defer func() { _ = rows.Close() }()

	var hits []datedHit
	for rows.Next() {
		h := datedHit{Hit: Hit{RecordType: recordType}}
		if err := rows.Scan(&h.RecordID, &h.date); err != nil {
			return nil, fmt.Errorf("%s: scanning: %w", recordType, err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// IndexEngine searches the bleve index.
type IndexEngine struct {
	index *Index
}

// NewIndexEngine creates an index search engine.
func NewIndexEngine(index *Index) *IndexEngine {
	return &IndexEngine{index: index}
}

// Name returns DriverIndex.
func (e *IndexEngine) Name() string { return DriverIndex }

// Search ORs together one constraint set per record type, each limited to
// documents of that type.
func (e *IndexEngine) Search(ctx context.Context, q Query, caller model.Caller, types []RecordType) (Page, error) {
	var perType []query.Query
	for _, t := range types {
		f := &IndexFilter{}
		f.Term(FieldType, t.Key())
		err := t.ApplyToIndex(ctx, q, caller, f)
		if errors.Is(err, ErrNoMatches) {
			continue
		}
		if err != nil {
			return Page{}, fmt.Errorf("%s: %w", t.Key(), err)
		}
		perType = append(perType, f.Query())
	}
	if len(perType) == 0 {
		return Page{Hits: []Hit{}}, nil
	}

	root := perType[0]
	if len(perType) > 1 {
		root = bleve.NewDisjunctionQuery(perType...)
	}
	hits, total, err := e.index.Search(root, q.Sort, q.Limit, q.Offset())
	if err != nil {
		return Page{}, err
	}
	return Page{Hits: hits, Total: total}, nil
}
