// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/olegiv/oforum/internal/model"
)

// Indexer keeps the index in step with the database.
type Indexer struct {
	index  *Index
	types  map[string]RecordType
	logger *slog.Logger

	// mu serializes rebuilds with single-record updates.
	mu sync.Mutex
}

// NewIndexer creates an indexer for the given record types.
func NewIndexer(index *Index, logger *slog.Logger, types ...RecordType) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	x := &Indexer{index: index, types: make(map[string]RecordType, len(types)), logger: logger}
	for _, t := range types {
		x.types[t.Key()] = t
	}
	return x
}

// Refresh re-indexes one record, or removes it when it no longer exists.
func (x *Indexer) Refresh(ctx context.Context, recordType string, id int64) error {
	t, ok := x.types[recordType]
	if !ok {
		return fmt.Errorf("unknown record type %q", recordType)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	doc, err := t.Document(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return x.index.Delete(DocID(recordType, id))
	}
	if err != nil {
		return err
	}
	return x.index.Put(DocID(recordType, id), doc)
}

// Remove drops a record from the index.
func (x *Indexer) Remove(recordType string, id int64) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.index.Delete(DocID(recordType, id))
}

// Rebuild re-indexes every record of every type and returns the number of
// documents written.
func (x *Indexer) Rebuild(ctx context.Context) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	total := 0
	for key, t := range x.types {
		docs := make(map[string]Document)
		err := t.Documents(ctx, func(id int64, doc Document) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			docs[DocID(key, id)] = doc
			return nil
		})
		if err != nil {
			return total, fmt.Errorf("collecting %s documents: %w", key, err)
		}
		if err := x.index.Replace(key, docs); err != nil {
			return total, fmt.Errorf("indexing %s documents: %w", key, err)
		}
		x.logger.Info("search index rebuilt", "record_type", key, "documents", len(docs))
		total += len(docs)
	}
	return total, nil
}
