// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package search

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Index field names.
const (
	FieldType         = "type"
	FieldName         = "name"
	FieldBody         = "body"
	FieldRecordID     = "recordID"
	FieldCategoryID   = "categoryID"
	FieldTagIDs       = "tagIDs"
	FieldInsertUserID = "insertUserID"
	FieldDateInserted = "dateInserted"
)

// Document is a record as stored in the full-text index.
type Document struct {
	Type         string    `json:"type"`
	RecordID     float64   `json:"recordID"`
	Name         string    `json:"name"`
	Body         string    `json:"body"`
	CategoryID   float64   `json:"categoryID"`
	TagIDs       []float64 `json:"tagIDs"`
	InsertUserID float64   `json:"insertUserID"`
	DateInserted time.Time `json:"dateInserted"`
}

// DocID returns the index document ID of a record.
func DocID(recordType string, id int64) string {
	return recordType + ":" + strconv.FormatInt(id, 10)
}

// ParseDocID splits an index document ID into record type and ID.
func ParseDocID(docID string) (string, int64, error) {
	recordType, rawID, ok := strings.Cut(docID, ":")
	if !ok {
		return "", 0, fmt.Errorf("malformed document id %q", docID)
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed document id %q: %w", docID, err)
	}
	return recordType, id, nil
}

// Index wraps a bleve index.
type Index struct {
	index bleve.Index
}

// OpenIndex opens or creates the index at path. An empty path creates an
// in-memory index.
func OpenIndex(path string) (*Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		return &Index{index: idx}, nil
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &Index{index: idx}, nil
}

// textAnalyzer analyzes the name and body fields.
const textAnalyzer = "en"

// textMapping resolves textAnalyzer without an open index.
var textMapping = buildIndexMapping()

// hasTokens reports whether term survives text analysis. Stop words such
// as "on" analyze to nothing, and a match query on them matches nothing.
func hasTokens(term string) bool {
	analyzer := textMapping.AnalyzerNamed(textAnalyzer)
	if analyzer == nil {
		return true
	}
	return len(analyzer.Analyze([]byte(term))) > 0
}

func buildIndexMapping() mapping.IndexMapping {
	nameMapping := bleve.NewTextFieldMapping()
	nameMapping.Analyzer = textAnalyzer

	bodyMapping := bleve.NewTextFieldMapping()
	bodyMapping.Analyzer = textAnalyzer
	bodyMapping.Store = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt(FieldType, bleve.NewKeywordFieldMapping())
	docMapping.AddFieldMappingsAt(FieldName, nameMapping)
	docMapping.AddFieldMappingsAt(FieldBody, bodyMapping)
	docMapping.AddFieldMappingsAt(FieldRecordID, bleve.NewNumericFieldMapping())
	docMapping.AddFieldMappingsAt(FieldCategoryID, bleve.NewNumericFieldMapping())
	docMapping.AddFieldMappingsAt(FieldTagIDs, bleve.NewNumericFieldMapping())
	docMapping.AddFieldMappingsAt(FieldInsertUserID, bleve.NewNumericFieldMapping())
	docMapping.AddFieldMappingsAt(FieldDateInserted, bleve.NewDateTimeFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = textAnalyzer
	return indexMapping
}

// Close closes the index.
func (i *Index) Close() error {
	return i.index.Close()
}

// Put adds or replaces a document.
func (i *Index) Put(id string, doc Document) error {
	return i.index.Index(id, doc)
}

// Delete removes a document.
func (i *Index) Delete(id string) error {
	return i.index.Delete(id)
}

// Count returns the number of documents in the index.
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

// Replace makes docs the complete set of documents of recordType: stale
// documents of that type are removed and the rest are written in batches.
func (i *Index) Replace(recordType string, docs map[string]Document) error {
	stale, err := i.docIDs(recordType)
	if err != nil {
		return err
	}

	batch := i.index.NewBatch()
	flush := func() error {
		if batch.Size() == 0 {
			return nil
		}
		if err := i.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		batch.Reset()
		return nil
	}

	for _, id := range stale {
		if _, keep := docs[id]; !keep {
			batch.Delete(id)
		}
	}
	for id, doc := range docs {
		if err := batch.Index(id, doc); err != nil {
			return fmt.Errorf("batch index %s: %w", id, err)
		}
		if batch.Size() >= 500 {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// docIDs lists the IDs of every document of recordType.
func (i *Index) docIDs(recordType string) ([]string, error) {
	const pageSize = 1000

	tq := bleve.NewTermQuery(recordType)
	tq.SetField(FieldType)

	var ids []string
	for from := 0; ; from += pageSize {
		req := bleve.NewSearchRequestOptions(tq, pageSize, from, false)
		req.SortBy([]string{"_id"})
		res, err := i.index.Search(req)
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		for _, hit := range res.Hits {
			ids = append(ids, hit.ID)
		}
		if len(res.Hits) < pageSize {
			return ids, nil
		}
	}
}

// Hit is one matching document.
type Hit struct {
	RecordType string
	RecordID   int64
	Score      float64
}

// Search runs q and returns one page of hits plus the total match count.
func (i *Index) Search(q query.Query, sort Sort, size, from int) ([]Hit, int64, error) {
	req := bleve.NewSearchRequestOptions(q, size, from, false)
	switch sort {
	case SortDateInserted:
		req.SortBy([]string{FieldDateInserted, "_id"})
	case SortDateInsertedDesc:
		req.SortBy([]string{"-" + FieldDateInserted, "-_id"})
	default:
		req.SortBy([]string{"-_score", "-" + FieldDateInserted})
	}

	res, err := i.index.Search(req)
	if err != nil {
		return nil, 0, fmt.Errorf("search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		recordType, id, err := ParseDocID(h.ID)
		if err != nil {
			return nil, 0, err
		}
		hits = append(hits, Hit{RecordType: recordType, RecordID: id, Score: h.Score})
	}
	return hits, int64(res.Total), nil
}
