// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/olegiv/oforum/internal/model"
	"github.com/olegiv/oforum/internal/util"
)

// SystemUserName owns seeded content and the bootstrap API key.
const SystemUserName = "system"

// DefaultCategorySlug is the category created on first start.
const DefaultCategorySlug = "general"

// SeedOptions controls what Seed creates.
type SeedOptions struct {
	// AdminAPIKey, when set, is stored (hashed) with the admin permission.
	AdminAPIKey string
	// SampleData adds example categories, tags and discussions.
	SampleData bool
}

// Seed creates initial data in the database. It is idempotent.
func Seed(ctx context.Context, db *sql.DB, opts SeedOptions) error {
	queries := New(db)

	system, err := ensureUser(ctx, queries, SystemUserName)
	if err != nil {
		return err
	}

	if _, err := queries.GetCategoryBySlug(ctx, DefaultCategorySlug); errors.Is(err, sql.ErrNoRows) {
		now := Now()
		if _, err := queries.CreateCategory(ctx, CreateCategoryParams{
			Name:        "General",
			Slug:        DefaultCategorySlug,
			Description: "General discussion",
			CreatedAt:   now,
			UpdatedAt:   now,
		}); err != nil {
			return fmt.Errorf("creating default category: %w", err)
		}
		slog.Info("created default category", "slug", DefaultCategorySlug)
	} else if err != nil {
		return fmt.Errorf("checking default category: %w", err)
	}

	if opts.AdminAPIKey != "" {
		if err := ensureAdminKey(ctx, queries, system.ID, opts.AdminAPIKey); err != nil {
			return err
		}
	}

	if opts.SampleData {
		if err := seedSampleData(ctx, db, system.ID); err != nil {
			return fmt.Errorf("seeding sample data: %w", err)
		}
	}

	return nil
}

func ensureUser(ctx context.Context, queries *Queries, name string) (User, error) {
	user, err := queries.GetUserByName(ctx, name)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("checking for user %q: %w", name, err)
	}

	user, err = queries.CreateUser(ctx, CreateUserParams{Name: name, CreatedAt: Now()})
	if err != nil {
		return User{}, fmt.Errorf("creating user %q: %w", name, err)
	}
	return user, nil
}

func ensureAdminKey(ctx context.Context, queries *Queries, userID int64, rawKey string) error {
	hash := model.HashAPIKey(rawKey)
	if _, err := queries.GetAPIKeyByHash(ctx, hash); err == nil {
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking admin API key: %w", err)
	}

	now := Now()
	key, err := queries.CreateAPIKey(ctx, CreateAPIKeyParams{
		Name:        "Bootstrap admin key",
		KeyHash:     hash,
		KeyPrefix:   rawKey[:model.APIKeyPrefixLength],
		Permissions: model.PermissionsToJSON([]string{model.PermissionAdmin}),
		UserID:      sql.NullInt64{Int64: userID, Valid: true},
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return fmt.Errorf("creating admin API key: %w", err)
	}

	slog.Info("created bootstrap admin API key", "id", key.ID, "prefix", key.KeyPrefix)
	return nil
}

type sampleCategory struct {
	name           string
	parent         string
	archived       bool
	viewPermission string
}

type sampleDiscussion struct {
	title    string
	body     string
	category string
	author   string
	tags     []string
}

func seedSampleData(ctx context.Context, db *sql.DB, systemID int64) error {
	queries := New(db)

	count, err := queries.CountDiscussions(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		slog.Info("discussions already exist, skipping sample data")
		return nil
	}

	categories := []sampleCategory{
		{name: "Support", parent: "General"},
		{name: "Feature Requests", parent: "General"},
		{name: "Announcements Archive", archived: true},
		{name: "Staff Room", viewPermission: "categories:staff"},
	}
	tags := []string{"bug", "question", "theming", "search"}
	authors := []string{"alice", "bob"}
	discussions := []sampleDiscussion{
		{
			title:    "Welcome to the forum",
			body:     "Introduce yourself and say **hello**.",
			category: "General",
			author:   SystemUserName,
		},
		{
			title:    "Header colors reset after upgrade",
			body:     "After upgrading, my theme *variables* no longer apply to the header.",
			category: "Support",
			author:   "alice",
			tags:     []string{"bug", "theming"},
		},
		{
			title:    "How do I search by tag?",
			body:     "Is there a way to filter search results by more than one tag?",
			category: "Support",
			author:   "bob",
			tags:     []string{"question", "search"},
		},
		{
			title:    "Dark mode preset",
			body:     "It would be great to ship a dark preset for the default theme.",
			category: "Feature Requests",
			author:   "alice",
			tags:     []string{"theming"},
		},
		{
			title:    "Moderator rota",
			body:     "Please add yourself to the rota for next month.",
			category: "Staff Room",
			author:   SystemUserName,
		},
	}

	return RunInTx(ctx, db, func(q *Queries) error {
		now := Now()

		categoryIDs := map[string]int64{}
		general, err := q.GetCategoryBySlug(ctx, DefaultCategorySlug)
		if err != nil {
			return err
		}
		categoryIDs[general.Name] = general.ID

		for i, c := range categories {
			params := CreateCategoryParams{
				Name:           c.name,
				Slug:           util.Slugify(c.name),
				Archived:       c.archived,
				ViewPermission: c.viewPermission,
				SortOrder:      int64(i + 1),
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if c.parent != "" {
				params.ParentID = sql.NullInt64{Int64: categoryIDs[c.parent], Valid: true}
			}
			created, err := q.CreateCategory(ctx, params)
			if err != nil {
				return fmt.Errorf("creating category %q: %w", c.name, err)
			}
			categoryIDs[c.name] = created.ID
		}

		tagIDs := map[string]int64{}
		for _, name := range tags {
			tag, err := q.CreateTag(ctx, CreateTagParams{Name: name, Slug: util.Slugify(name), CreatedAt: now})
			if err != nil {
				return fmt.Errorf("creating tag %q: %w", name, err)
			}
			tagIDs[name] = tag.ID
		}

		userIDs := map[string]int64{SystemUserName: systemID}
		for _, name := range authors {
			user, err := ensureUser(ctx, q, name)
			if err != nil {
				return err
			}
			userIDs[name] = user.ID
		}

		for _, d := range discussions {
			created, err := q.CreateDiscussion(ctx, CreateDiscussionParams{
				CategoryID: categoryIDs[d.category],
				UserID:     userIDs[d.author],
				Title:      d.title,
				Body:       d.body,
				Format:     model.FormatMarkdown,
				CreatedAt:  now,
				UpdatedAt:  now,
			})
			if err != nil {
				return fmt.Errorf("creating discussion %q: %w", d.title, err)
			}
			for _, tag := range d.tags {
				if err := q.AddTagToDiscussion(ctx, DiscussionTag{DiscussionID: created.ID, TagID: tagIDs[tag]}); err != nil {
					return err
				}
			}
		}

		slog.Info("seeded sample data",
			"categories", len(categories),
			"tags", len(tags),
			"discussions", len(discussions),
		)
		return nil
	})
}
