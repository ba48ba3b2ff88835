// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package search

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/oforum/internal/model"
	"github.com/olegiv/oforum/internal/store"
)

func TestService_Search(t *testing.T) {
	f := newFixture(t)
	svc := NewService(NewSQLEngine(f.db), nil, f.recordTypes()...)

	assert.Equal(t, DriverSQL, svc.Engine())
	assert.Equal(t, []string{DiscussionRecordType}, svc.RecordTypes())

	q, err := ParseQuery(url.Values{"tags": {"feature"}, "sort": {"dateInserted"}})
	require.NoError(t, err)

	res, err := svc.Search(context.Background(), q, model.Anonymous())
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, int64(2), res.Total)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, DefaultLimit, res.Limit)

	item := res.Items[0]
	assert.Equal(t, f.darkTheme.ID, item.RecordID)
	assert.Equal(t, f.darkTheme.ID, item.DiscussionID)
	assert.Equal(t, DiscussionRecordType, item.RecordType)
	assert.Equal(t, DiscussionRecordType, item.Type)
	assert.Equal(t, f.sub.ID, item.CategoryID)
	assert.Equal(t, "Feature request: dark theme", item.Name)
	assert.Equal(t, "Please add a darker palette.", item.Body)
	assert.Equal(t, "/discussion/"+itoa(f.darkTheme.ID)+"/feature-request-dark-theme", item.URL)
	assert.Equal(t, []model.Breadcrumb{
		{Name: "general", URL: "/categories/general"},
		{Name: "sub", URL: "/categories/sub"},
	}, item.Breadcrumbs)
	assert.Equal(t, []model.Tag{{TagID: f.feature.ID, Name: "feature", URLCode: "feature"}}, item.Tags)
	assert.Equal(t, f.bob.ID, item.InsertUserID)
	assert.Equal(t, "bob", item.InsertUserName)
	assert.True(t, item.DateInserted.Equal(f.darkTheme.CreatedAt))

	combined := res.Items[1]
	assert.Equal(t, f.combined.ID, combined.RecordID)
	assert.Len(t, combined.Tags, 2)
}

func TestService_MarkdownExcerpt(t *testing.T) {
	f := newFixture(t)
	svc := NewService(NewSQLEngine(f.db), nil, f.recordTypes()...)

	q, err := ParseQuery(url.Values{"discussionID": {itoa(f.login.ID)}})
	require.NoError(t, err)

	res, err := svc.Search(context.Background(), q, model.Anonymous())
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "The remember me feature of the login form fails on phones.", res.Items[0].Body)
}

func TestService_UnknownRecordType(t *testing.T) {
	f := newFixture(t)
	svc := NewService(NewSQLEngine(f.db), nil, f.recordTypes()...)

	q, err := ParseQuery(url.Values{"recordTypes": {"discussion,comment"}})
	require.NoError(t, err)

	_, err = svc.Search(context.Background(), q, model.Anonymous())
	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields["recordTypes"], "comment")
}

func TestService_IndexEngineDropsStaleHits(t *testing.T) {
	f := newFixture(t)
	engine, _ := f.newIndexEngine(t)
	svc := NewService(engine, nil, f.recordTypes()...)
	ctx := context.Background()

	// Delete a discussion behind the index's back.
	require.NoError(t, f.queries.DeleteDiscussion(ctx, f.darkTheme.ID))

	q, err := ParseQuery(url.Values{})
	require.NoError(t, err)
	res, err := svc.Search(ctx, q, model.Anonymous())
	require.NoError(t, err)

	var got []int64
	for _, item := range res.Items {
		got = append(got, item.RecordID)
	}
	assert.Equal(t, []int64{f.combined.ID, f.login.ID}, got)
}

func TestDiscussionType_Document(t *testing.T) {
	f := newFixture(t)
	dt := NewDiscussionType(f.db)
	ctx := context.Background()

	doc, err := dt.Document(ctx, f.combined.ID)
	require.NoError(t, err)
	assert.Equal(t, DiscussionRecordType, doc.Type)
	assert.Equal(t, float64(f.combined.ID), doc.RecordID)
	assert.Equal(t, float64(f.general.ID), doc.CategoryID)
	assert.ElementsMatch(t, []float64{float64(f.bug.ID), float64(f.feature.ID)}, doc.TagIDs)

	_, err = dt.Document(ctx, 9999)
	assert.ErrorIs(t, err, model.ErrNotFound)

	count := 0
	require.NoError(t, dt.Documents(ctx, func(id int64, doc Document) error {
		count++
		assert.Equal(t, float64(id), doc.RecordID)
		return nil
	}))
	total, err := f.queries.CountDiscussions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int(total), count)
}

func TestIndexer(t *testing.T) {
	f := newFixture(t)
	engine, idx := f.newIndexEngine(t)
	indexer := NewIndexer(idx, nil, f.recordTypes()...)
	ctx := context.Background()

	n, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), n)

	search := func(params url.Values) []int64 {
		t.Helper()
		q, err := ParseQuery(params)
		require.NoError(t, err)
		page, err := engine.Search(ctx, q, model.Anonymous(), f.recordTypes())
		require.NoError(t, err)
		return hitIDs(page.Hits)
	}

	d, err := f.queries.CreateDiscussion(ctx, store.CreateDiscussionParams{
		CategoryID: f.general.ID,
		UserID:     f.alice.ID,
		Title:      "Printer catches fire",
		Body:       "Smoke everywhere.",
		Format:     model.FormatText,
		CreatedAt:  mayDay(10, 9),
		UpdatedAt:  mayDay(10, 9),
	})
	require.NoError(t, err)
	assert.Empty(t, search(url.Values{"query": {"printer"}}))

	require.NoError(t, indexer.Refresh(ctx, DiscussionRecordType, d.ID))
	assert.Equal(t, []int64{d.ID}, search(url.Values{"query": {"printer"}}))

	require.NoError(t, f.queries.DeleteDiscussion(ctx, d.ID))
	require.NoError(t, indexer.Refresh(ctx, DiscussionRecordType, d.ID))
	assert.Empty(t, search(url.Values{"query": {"printer"}}))

	require.NoError(t, indexer.Remove(DiscussionRecordType, f.login.ID))
	assert.Equal(t, []int64{f.combined.ID}, search(url.Values{"tags": {"bug"}}))

	written, err := indexer.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, written)
	assert.Equal(t, []int64{f.combined.ID, f.login.ID}, search(url.Values{"tags": {"bug"}}))

	assert.Error(t, indexer.Refresh(ctx, "comment", 1))
}

func TestIndex_ReplaceRemovesStale(t *testing.T) {
	idx, err := OpenIndex("")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	require.NoError(t, idx.Put(DocID("discussion", 1), Document{Type: "discussion", RecordID: 1, Name: "one"}))
	require.NoError(t, idx.Put(DocID("discussion", 2), Document{Type: "discussion", RecordID: 2, Name: "two"}))
	require.NoError(t, idx.Put(DocID("comment", 1), Document{Type: "comment", RecordID: 1, Name: "other type"}))

	require.NoError(t, idx.Replace("discussion", map[string]Document{
		DocID("discussion", 2): {Type: "discussion", RecordID: 2, Name: "two"},
		DocID("discussion", 3): {Type: "discussion", RecordID: 3, Name: "three"},
	}))

	ids, err := idx.docIDs("discussion")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"discussion:2", "discussion:3"}, ids)

	ids, err = idx.docIDs("comment")
	require.NoError(t, err)
	assert.Equal(t, []string{"comment:1"}, ids)
}

func TestParseDocID(t *testing.T) {
	recordType, id, err := ParseDocID(DocID("discussion", 42))
	require.NoError(t, err)
	assert.Equal(t, "discussion", recordType)
	assert.Equal(t, int64(42), id)

	_, _, err = ParseDocID("discussion")
	assert.Error(t, err)
	_, _, err = ParseDocID("discussion:x")
	assert.Error(t, err)
}
