// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package search

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/olegiv/oforum/internal/store"
	"github.com/olegiv/oforum/internal/testutil"
)

// fixture is a small forum:
//
//	general            public
//	  general/sub      public
//	  general/attic    archived
//	old                archived
//	staff              needs "staff:view"
//	  staff/inner      public, hidden by its parent
type fixture struct {
	db      *sql.DB
	queries *store.Queries

	alice, bob store.User

	general, sub, attic, old, staff, inner store.Category
	bug, feature, docs                     store.Tag

	// Discussions in insertion order.
	login, darkTheme, combined, attic1, announcement, staffBug, innerStaff store.Discussion
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	return testutil.TestDB(t)
}

func mayDay(d int, hour int) time.Time {
	return time.Date(2024, time.May, d, hour, 0, 0, 0, time.UTC)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	db := newTestDB(t)
	q := store.New(db)
	f := &fixture{db: db, queries: q}
	now := store.Now()

	user := func(name string) store.User {
		u, err := q.CreateUser(ctx, store.CreateUserParams{Name: name, Email: name + "@example.com", CreatedAt: now})
		require.NoError(t, err)
		return u
	}
	f.alice = user("alice")
	f.bob = user("bob")

	category := func(name string, parent *store.Category, archived bool, perm string) store.Category {
		params := store.CreateCategoryParams{
			Name:           name,
			Slug:           name,
			Archived:       archived,
			ViewPermission: perm,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if parent != nil {
			params.ParentID = sql.NullInt64{Int64: parent.ID, Valid: true}
		}
		c, err := q.CreateCategory(ctx, params)
		require.NoError(t, err)
		return c
	}
	f.general = category("general", nil, false, "")
	f.sub = category("sub", &f.general, false, "")
	f.attic = category("attic", &f.general, true, "")
	f.old = category("old", nil, true, "")
	f.staff = category("staff", nil, false, "staff:view")
	f.inner = category("inner", &f.staff, false, "")

	tag := func(name string) store.Tag {
		tg, err := q.CreateTag(ctx, store.CreateTagParams{Name: name, Slug: name, CreatedAt: now})
		require.NoError(t, err)
		return tg
	}
	f.bug = tag("bug")
	f.feature = tag("feature")
	f.docs = tag("docs")

	discussion := func(c store.Category, u store.User, title, body, format string, created time.Time, tags ...store.Tag) store.Discussion {
		d, err := q.CreateDiscussion(ctx, store.CreateDiscussionParams{
			CategoryID: c.ID,
			UserID:     u.ID,
			Title:      title,
			Body:       body,
			Format:     format,
			CreatedAt:  created,
			UpdatedAt:  created,
		})
		require.NoError(t, err)
		for _, tg := range tags {
			require.NoError(t, q.AddTagToDiscussion(ctx, store.DiscussionTag{DiscussionID: d.ID, TagID: tg.ID}))
		}
		return d
	}
	f.login = discussion(f.general, f.alice, "Login bug on mobile",
		"The **remember me** feature of the login form fails on phones.", "markdown", mayDay(1, 10), f.bug)
	f.darkTheme = discussion(f.sub, f.bob, "Feature request: dark theme",
		"<p>Please add a darker palette.</p>", "html", mayDay(2, 10), f.feature)
	f.combined = discussion(f.general, f.bob, "Bug and feature combined",
		"Both at once.", "text", mayDay(3, 10), f.bug, f.feature)
	f.attic1 = discussion(f.attic, f.alice, "Archived discussion",
		"Nothing to see.", "text", mayDay(4, 10))
	f.announcement = discussion(f.old, f.alice, "Old announcement",
		"From last month.", "text", time.Date(2024, time.April, 1, 10, 0, 0, 0, time.UTC))
	f.staffBug = discussion(f.staff, f.alice, "Staff only bug",
		"Internal.", "text", mayDay(5, 10), f.bug)
	f.innerStaff = discussion(f.inner, f.bob, "Inner staff",
		"Also internal.", "text", mayDay(6, 10))

	return f
}

func (f *fixture) recordTypes() []RecordType {
	return []RecordType{NewDiscussionType(f.db)}
}

// newIndexEngine builds an in-memory index holding every fixture record.
func (f *fixture) newIndexEngine(t *testing.T) (*IndexEngine, *Index) {
	t.Helper()

	idx, err := OpenIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	_, err = NewIndexer(idx, nil, f.recordTypes()...).Rebuild(context.Background())
	require.NoError(t, err)
	return NewIndexEngine(idx), idx
}
