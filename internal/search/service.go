// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/olegiv/oforum/internal/model"
)

// Results is one page of search results.
type Results struct {
	Items []model.SearchResultItem `json:"items"`
	Total int64                    `json:"total"`
	Page  int                      `json:"page"`
	Limit int                      `json:"limit"`
}

// Service runs searches over the registered record types.
type Service struct {
	engine Engine
	types  []RecordType
	logger *slog.Logger
}

// NewService creates a search service that runs queries on engine.
func NewService(engine Engine, logger *slog.Logger, types ...RecordType) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{engine: engine, types: types, logger: logger}
}

// Engine returns the name of the engine in use.
func (s *Service) Engine() string {
	return s.engine.Name()
}

// RecordTypes returns the keys of the registered record types.
func (s *Service) RecordTypes() []string {
	keys := make([]string, len(s.types))
	for i, t := range s.types {
		keys[i] = t.Key()
	}
	return keys
}

// Search runs q and hydrates the hits in engine order. Hits whose records
// disappeared since they were indexed are dropped from the page.
func (s *Service) Search(ctx context.Context, q Query, caller model.Caller) (Results, error) {
	types, err := s.selectTypes(q)
	if err != nil {
		return Results{}, err
	}

	page, err := s.engine.Search(ctx, q, caller, types)
	if err != nil {
		return Results{}, fmt.Errorf("search: %w", err)
	}

	ids := make(map[string][]int64)
	for _, h := range page.Hits {
		ids[h.RecordType] = append(ids[h.RecordType], h.RecordID)
	}
	hydrated := make(map[string]map[int64]model.SearchResultItem, len(ids))
	for _, t := range types {
		if len(ids[t.Key()]) == 0 {
			continue
		}
		items, err := t.Hydrate(ctx, q, ids[t.Key()])
		if err != nil {
			return Results{}, fmt.Errorf("hydrating %s: %w", t.Key(), err)
		}
		hydrated[t.Key()] = items
	}

	res := Results{Items: []model.SearchResultItem{}, Total: page.Total, Page: q.Page, Limit: q.Limit}
	for _, h := range page.Hits {
		item, ok := hydrated[h.RecordType][h.RecordID]
		if !ok {
			s.logger.Warn("search hit without record", "record_type", h.RecordType, "record_id", h.RecordID)
			continue
		}
		item.Score = h.Score
		res.Items = append(res.Items, item)
	}
	return res, nil
}

func (s *Service) selectTypes(q Query) ([]RecordType, error) {
	if len(q.RecordTypes) == 0 {
		return s.types, nil
	}

	var selected []RecordType
	var unknown []string
	for _, key := range q.RecordTypes {
		found := false
		for _, t := range s.types {
			if t.Key() == key {
				selected = append(selected, t)
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		return nil, model.NewValidationError("recordTypes",
			fmt.Sprintf("unknown record types: %s", strings.Join(unknown, ", ")))
	}
	return selected, nil
}
