// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/oforum/internal/model"
	"github.com/olegiv/oforum/internal/search"
	"github.com/olegiv/oforum/internal/store"
)

type forumFixture struct {
	db          *sql.DB
	taxonomy    *TaxonomyService
	discussions *DiscussionService
	index       *search.Index
	author      model.Caller
	general     model.Category
	private     model.Category
	attic       model.Category
}

func newForumFixture(t *testing.T) *forumFixture {
	t.Helper()
	ctx := context.Background()

	db := newTestDB(t)
	user, err := store.New(db).CreateUser(ctx, store.CreateUserParams{Name: "alice", Email: "alice@example.com", CreatedAt: store.Now()})
	require.NoError(t, err)

	idx, err := search.OpenIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	indexer := search.NewIndexer(idx, nil, search.NewDiscussionType(db))

	f := &forumFixture{
		db:          db,
		taxonomy:    NewTaxonomyService(db, nil),
		discussions: NewDiscussionService(db, indexer, nil),
		index:       idx,
		author:      model.Caller{KeyID: 1, UserID: user.ID, Permissions: []string{model.PermissionDiscussionsWrite}},
	}

	f.general, err = f.taxonomy.CreateCategory(ctx, CreateCategoryInput{Name: "General"})
	require.NoError(t, err)
	f.private, err = f.taxonomy.CreateCategory(ctx, CreateCategoryInput{Name: "Private", ViewPermission: "private:view"})
	require.NoError(t, err)
	f.attic, err = f.taxonomy.CreateCategory(ctx, CreateCategoryInput{Name: "Attic", Archived: true})
	require.NoError(t, err)

	for _, name := range []string{"bug", "idea"} {
		_, err := f.taxonomy.CreateTag(ctx, CreateTagInput{Name: name})
		require.NoError(t, err)
	}
	return f
}

func (f *forumFixture) indexed(t *testing.T, query string) []int64 {
	t.Helper()
	q, err := search.ParseQuery(url.Values{"query": {query}})
	require.NoError(t, err)
	page, err := search.NewIndexEngine(f.index).Search(context.Background(), q, model.Anonymous(),
		[]search.RecordType{search.NewDiscussionType(f.db)})
	require.NoError(t, err)

	ids := []int64{}
	for _, h := range page.Hits {
		ids = append(ids, h.RecordID)
	}
	return ids
}

func TestDiscussionService_Lifecycle(t *testing.T) {
	f := newForumFixture(t)
	ctx := context.Background()

	d, err := f.discussions.Create(ctx, f.author, CreateDiscussionInput{
		CategoryID: f.general.CategoryID,
		Name:       "  Crash on startup ",
		Body:       "It **crashes**.",
		Tags:       []string{"bug", "bug", " "},
	})
	require.NoError(t, err)
	assert.Equal(t, "Crash on startup", d.Name)
	assert.Equal(t, model.FormatMarkdown, d.Format)
	assert.Equal(t, "alice", d.InsertUserName)
	assert.Equal(t, "/discussion/"+itoa(d.DiscussionID)+"/crash-on-startup", d.URL)
	require.Len(t, d.Tags, 1)
	assert.Equal(t, "bug", d.Tags[0].Name)
	assert.Equal(t, []int64{d.DiscussionID}, f.indexed(t, "crashes"))

	name := "Crash when saving"
	tags := []string{"idea"}
	updated, err := f.discussions.Update(ctx, f.author, d.DiscussionID, UpdateDiscussionInput{Name: &name, Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, "It **crashes**.", updated.Body)
	require.Len(t, updated.Tags, 1)
	assert.Equal(t, "idea", updated.Tags[0].Name)
	assert.Equal(t, []int64{d.DiscussionID}, f.indexed(t, "saving"))

	got, err := f.discussions.Get(ctx, model.Anonymous(), d.DiscussionID)
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)

	require.NoError(t, f.discussions.Delete(ctx, f.author, d.DiscussionID))
	_, err = f.discussions.Get(ctx, model.Anonymous(), d.DiscussionID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Empty(t, f.indexed(t, "saving"))

	assert.ErrorIs(t, f.discussions.Delete(ctx, f.author, d.DiscussionID), model.ErrNotFound)
}

func TestDiscussionService_CreateValidation(t *testing.T) {
	f := newForumFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		in     CreateDiscussionInput
		fields []string
	}{
		{"empty", CreateDiscussionInput{}, []string{"name", "body", "categoryID"}},
		{"bad format", CreateDiscussionInput{CategoryID: f.general.CategoryID, Name: "x", Body: "y", Format: "bbcode"}, []string{"format"}},
		{"unknown category", CreateDiscussionInput{CategoryID: 999, Name: "x", Body: "y"}, []string{"categoryID"}},
		{"hidden category", CreateDiscussionInput{CategoryID: f.private.CategoryID, Name: "x", Body: "y"}, []string{"categoryID"}},
		{"archived category", CreateDiscussionInput{CategoryID: f.attic.CategoryID, Name: "x", Body: "y"}, []string{"categoryID"}},
		{"unknown tag", CreateDiscussionInput{CategoryID: f.general.CategoryID, Name: "x", Body: "y", Tags: []string{"bug", "nope"}}, []string{"tags"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.discussions.Create(ctx, f.author, tt.in)
			var verr *model.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			for _, field := range tt.fields {
				assert.Contains(t, verr.Fields, field)
			}
		})
	}

	_, err := f.discussions.Create(ctx, model.Caller{KeyID: 9}, CreateDiscussionInput{})
	assert.ErrorIs(t, err, model.ErrForbidden)
}

func TestDiscussionService_SanitizesHTML(t *testing.T) {
	f := newForumFixture(t)

	d, err := f.discussions.Create(context.Background(), f.author, CreateDiscussionInput{
		CategoryID: f.general.CategoryID,
		Name:       "Markup",
		Body:       `<p onclick="x()">Hi</p><script>alert(1)</script>`,
		Format:     model.FormatHTML,
	})
	require.NoError(t, err)
	assert.Equal(t, "<p>Hi</p>", d.Body)
}

func TestDiscussionService_ListHonoursCategoryPermissions(t *testing.T) {
	f := newForumFixture(t)
	ctx := context.Background()
	admin := model.Caller{KeyID: 2, UserID: f.author.UserID, Permissions: []string{model.PermissionAdmin}}

	for i, categoryID := range []int64{f.general.CategoryID, f.general.CategoryID, f.private.CategoryID} {
		_, err := f.discussions.Create(ctx, admin, CreateDiscussionInput{
			CategoryID: categoryID,
			Name:       "Discussion " + itoa(int64(i)),
			Body:       "Body",
		})
		require.NoError(t, err)
	}

	list, err := f.discussions.List(ctx, model.Anonymous(), ListDiscussionsInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.Total)
	assert.Len(t, list.Items, 2)

	list, err = f.discussions.List(ctx, admin, ListDiscussionsInput{Limit: 1, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)
	assert.Len(t, list.Items, 1)

	_, err = f.discussions.List(ctx, model.Anonymous(), ListDiscussionsInput{CategoryID: f.private.CategoryID})
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = f.discussions.List(ctx, model.Anonymous(), ListDiscussionsInput{Limit: 500})
	var verr *model.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestDiscussionService_WithoutIndexer(t *testing.T) {
	f := newForumFixture(t)
	svc := NewDiscussionService(f.db, nil, nil)

	d, err := svc.Create(context.Background(), f.author, CreateDiscussionInput{
		CategoryID: f.general.CategoryID, Name: "No index", Body: "Plain", Format: model.FormatText,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), f.author, d.DiscussionID))
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
