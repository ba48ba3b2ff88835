// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Job names.
const (
	JobSearchReindex = "search-reindex"
	JobEventsPrune   = "events-prune"
)

// DefaultEventsPruneSchedule runs event pruning daily at 04:00.
const DefaultEventsPruneSchedule = "0 4 * * *"

// IndexRebuilder rebuilds a search index from the database.
type IndexRebuilder interface {
	Rebuild(ctx context.Context) (int, error)
}

// EventPruner deletes event log rows older than a given age.
type EventPruner interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SearchReindexJob rebuilds the full-text index on schedule.
func SearchReindexJob(schedule string, indexer IndexRebuilder, logger *slog.Logger) Job {
	return Job{
		Name:        JobSearchReindex,
		Description: "Rebuild the full-text search index from the database",
		Schedule:    schedule,
		Run: func(ctx context.Context) error {
			n, err := indexer.Rebuild(ctx)
			if err != nil {
				return fmt.Errorf("rebuilding search index: %w", err)
			}
			logger.Info("search index rebuilt", "documents", n)
			return nil
		},
	}
}

// EventsPruneJob removes event log rows older than retentionDays.
func EventsPruneJob(schedule string, retentionDays int, events EventPruner, logger *slog.Logger) Job {
	return Job{
		Name:        JobEventsPrune,
		Description: fmt.Sprintf("Delete event log entries older than %d days", retentionDays),
		Schedule:    schedule,
		Timeout:     5 * time.Minute,
		Run: func(ctx context.Context) error {
			deleted, err := events.DeleteOldEvents(ctx, time.Duration(retentionDays)*24*time.Hour)
			if err != nil {
				return fmt.Errorf("pruning events: %w", err)
			}
			if deleted > 0 {
				logger.Info("pruned event log", "deleted", deleted, "retention_days", retentionDays)
			}
			return nil
		},
	}
}
