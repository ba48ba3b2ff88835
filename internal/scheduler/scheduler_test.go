// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/olegiv/oforum/internal/store"
)

// testDB creates a migrated SQLite database in a temp dir.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := store.NewDB(store.DriverSQLite, filepath.Join(t.TempDir(), "scheduler.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := store.Migrate(db, store.DriverSQLite); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

// testLogger creates a logger that discards output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(testDB(t), testLogger())
	if err := s.Register(context.Background(), Job{
		Name:     "noop",
		Schedule: "@every 1h",
		Run:      func(context.Context) error { return nil },
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	s.Start()
	jobs := s.Jobs().List()
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].NextRun.IsZero() {
		t.Error("running scheduler should report the next run")
	}
	s.Stop()
}

type fakeRebuilder struct {
	calls int
	err   error
}

func (f *fakeRebuilder) Rebuild(context.Context) (int, error) {
	f.calls++
	return 3, f.err
}

type fakePruner struct {
	olderThan time.Duration
}

func (f *fakePruner) DeleteOldEvents(_ context.Context, olderThan time.Duration) (int64, error) {
	f.olderThan = olderThan
	return 2, nil
}

func TestSearchReindexJob(t *testing.T) {
	rebuilder := &fakeRebuilder{}
	job := SearchReindexJob("0 3 * * *", rebuilder, testLogger())

	if job.Name != JobSearchReindex {
		t.Errorf("Name = %q, want %q", job.Name, JobSearchReindex)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rebuilder.calls != 1 {
		t.Errorf("Rebuild calls = %d, want 1", rebuilder.calls)
	}

	rebuilder.err = errors.New("disk full")
	if err := job.Run(context.Background()); !errors.Is(err, rebuilder.err) {
		t.Errorf("Run error = %v, want wrapped %v", err, rebuilder.err)
	}
}

func TestEventsPruneJob(t *testing.T) {
	pruner := &fakePruner{}
	job := EventsPruneJob(DefaultEventsPruneSchedule, 30, pruner, testLogger())

	if job.Name != JobEventsPrune {
		t.Errorf("Name = %q, want %q", job.Name, JobEventsPrune)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if pruner.olderThan != 30*24*time.Hour {
		t.Errorf("olderThan = %v, want %v", pruner.olderThan, 30*24*time.Hour)
	}
}
