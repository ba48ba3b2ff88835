// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/oforum/internal/model"
	"github.com/olegiv/oforum/internal/store"
)

// overrideKeyPrefix prefixes site_config keys holding schedule overrides.
const overrideKeyPrefix = "scheduler."

// defaultJobTimeout bounds a single job run.
const defaultJobTimeout = 30 * time.Minute

// Job describes a unit of scheduled work.
type Job struct {
	Name        string
	Description string
	// Schedule is the default cron spec: five fields or a descriptor such
	// as "@every 1h".
	Schedule string
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	DefaultSchedule string    `json:"defaultSchedule"`
	Schedule        string    `json:"schedule"`
	IsOverridden    bool      `json:"isOverridden"`
	Running         bool      `json:"running"`
	LastRun         time.Time `json:"lastRun,omitzero"`
	LastDuration    string    `json:"lastDuration,omitempty"`
	LastError       string    `json:"lastError,omitempty"`
	NextRun         time.Time `json:"nextRun,omitzero"`
}

// registeredJob holds a job together with its cron entry and run history.
type registeredJob struct {
	job      Job
	schedule string
	entryID  cron.EntryID
	running  atomic.Bool

	mu           sync.Mutex
	lastRun      time.Time
	lastDuration time.Duration
	lastErr      error
}

// Registry tracks scheduled jobs. Schedule overrides are persisted in
// site_config so they survive restarts.
type Registry struct {
	queries *store.Queries
	cron    *cron.Cron
	logger  *slog.Logger
	mu      sync.RWMutex
	jobs    map[string]*registeredJob
}

// NewRegistry creates a registry that schedules jobs on c.
func NewRegistry(db *sql.DB, c *cron.Cron, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		queries: store.New(db),
		cron:    c,
		logger:  logger,
		jobs:    make(map[string]*registeredJob),
	}
}

// ParseSchedule validates a cron spec.
func ParseSchedule(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("schedule is empty")
	}
	return cron.ParseStandard(spec)
}

// effectiveSchedule returns the persisted override, or def.
func (r *Registry) effectiveSchedule(ctx context.Context, name, def string) string {
	cfg, err := r.queries.GetConfig(ctx, overrideKeyPrefix+name)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("failed to load schedule override", "job", name, "error", err)
		}
		return def
	}
	if _, err := ParseSchedule(cfg.Value); err != nil {
		return def
	}
	return cfg.Value
}

// Register validates job and adds it to the cron instance using its
// effective schedule.
func (r *Registry) Register(ctx context.Context, job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.New("job needs a name and a run function")
	}
	if _, err := ParseSchedule(job.Schedule); err != nil {
		return fmt.Errorf("job %q: invalid schedule %q: %w", job.Name, job.Schedule, err)
	}
	if job.Timeout <= 0 {
		job.Timeout = defaultJobTimeout
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.Name]; exists {
		return fmt.Errorf("job %q already registered", job.Name)
	}

	rj := &registeredJob{job: job, schedule: r.effectiveSchedule(ctx, job.Name, job.Schedule)}
	entryID, err := r.cron.AddFunc(rj.schedule, func() { r.runScheduled(rj) })
	if err != nil {
		return fmt.Errorf("scheduling job %q: %w", job.Name, err)
	}
	rj.entryID = entryID
	r.jobs[job.Name] = rj

	r.logger.Debug("registered scheduled job", "name", job.Name, "schedule", rj.schedule)
	return nil
}

// List returns all registered jobs sorted by name.
func (r *Registry) List() []JobInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]JobInfo, 0, len(r.jobs))
	for _, rj := range r.jobs {
		result = append(result, r.info(rj))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Get returns one job.
func (r *Registry) Get(name string) (JobInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rj, ok := r.jobs[name]
	if !ok {
		return JobInfo{}, model.NotFound("job %q", name)
	}
	return r.info(rj), nil
}

func (r *Registry) info(rj *registeredJob) JobInfo {
	info := JobInfo{
		Name:            rj.job.Name,
		Description:     rj.job.Description,
		DefaultSchedule: rj.job.Schedule,
		Schedule:        rj.schedule,
		IsOverridden:    rj.schedule != rj.job.Schedule,
		NextRun:         r.cron.Entry(rj.entryID).Next,
		Running:         rj.running.Load(),
	}

	rj.mu.Lock()
	info.LastRun = rj.lastRun
	if !rj.lastRun.IsZero() {
		info.LastDuration = rj.lastDuration.Round(time.Millisecond).String()
	}
	if rj.lastErr != nil {
		info.LastError = rj.lastErr.Error()
	}
	rj.mu.Unlock()
	return info
}

// TriggerNow runs a job immediately and returns its error. A job that is
// already running is not started twice.
func (r *Registry) TriggerNow(ctx context.Context, name string) error {
	r.mu.RLock()
	rj, ok := r.jobs[name]
	r.mu.RUnlock()
	if !ok {
		return model.NotFound("job %q", name)
	}

	r.logger.Info("manually triggering job", "name", name)
	ran, err := r.run(ctx, rj)
	if !ran {
		return model.NewClientError("job %q is already running", name)
	}
	return err
}

// UpdateSchedule reschedules a job and persists the override.
func (r *Registry) UpdateSchedule(ctx context.Context, name, spec string) error {
	spec = strings.TrimSpace(spec)
	if _, err := ParseSchedule(spec); err != nil {
		return model.NewValidationError("schedule", fmt.Sprintf("invalid cron expression: %v", err))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rj, ok := r.jobs[name]
	if !ok {
		return model.NotFound("job %q", name)
	}
	if err := r.setOverride(ctx, name, spec); err != nil {
		return fmt.Errorf("persisting schedule override: %w", err)
	}
	if err := r.reschedule(rj, spec); err != nil {
		r.restoreOverride(ctx, rj)
		return err
	}

	r.logger.Info("updated job schedule", "name", name, "schedule", spec)
	return nil
}

// ResetSchedule restores the default schedule and clears the override.
func (r *Registry) ResetSchedule(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rj, ok := r.jobs[name]
	if !ok {
		return model.NotFound("job %q", name)
	}
	// An empty value is not a valid schedule, so it reads as no override.
	if err := r.setOverride(ctx, name, ""); err != nil {
		return fmt.Errorf("clearing schedule override: %w", err)
	}
	if rj.schedule != rj.job.Schedule {
		if err := r.reschedule(rj, rj.job.Schedule); err != nil {
			r.restoreOverride(ctx, rj)
			return err
		}
	}

	r.logger.Info("reset job schedule to default", "name", name, "schedule", rj.job.Schedule)
	return nil
}

func (r *Registry) setOverride(ctx context.Context, name, spec string) error {
	return r.queries.SetConfig(ctx, store.SetConfigParams{
		Key:       overrideKeyPrefix + name,
		Value:     spec,
		UpdatedAt: store.Now(),
	})
}

// restoreOverride writes back the override matching the schedule rj still
// runs on, after a persisted change could not be applied.
func (r *Registry) restoreOverride(ctx context.Context, rj *registeredJob) {
	spec := rj.schedule
	if spec == rj.job.Schedule {
		spec = ""
	}
	if err := r.setOverride(ctx, rj.job.Name, spec); err != nil {
		r.logger.Error("failed to restore schedule override", "job", rj.job.Name, "error", err)
	}
}

// reschedule swaps the cron entry. r.mu must be held.
func (r *Registry) reschedule(rj *registeredJob, spec string) error {
	newID, err := r.cron.AddFunc(spec, func() { r.runScheduled(rj) })
	if err != nil {
		return fmt.Errorf("applying schedule %q: %w", spec, err)
	}
	r.cron.Remove(rj.entryID)
	rj.entryID = newID
	rj.schedule = spec
	return nil
}

func (r *Registry) runScheduled(rj *registeredJob) {
	ran, err := r.run(context.Background(), rj)
	switch {
	case !ran:
		r.logger.Warn("skipping scheduled job, previous run still active", "name", rj.job.Name)
	case err != nil:
		r.logger.Error("scheduled job failed", "name", rj.job.Name, "error", err)
	}
}

// run executes the job unless it is already running. It reports whether
// the job ran.
func (r *Registry) run(ctx context.Context, rj *registeredJob) (bool, error) {
	if !rj.running.CompareAndSwap(false, true) {
		return false, nil
	}
	defer rj.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, rj.job.Timeout)
	defer cancel()

	start := time.Now()
	err := rj.job.Run(ctx)
	elapsed := time.Since(start)

	rj.mu.Lock()
	rj.lastRun = start.UTC()
	rj.lastDuration = elapsed
	rj.lastErr = err
	rj.mu.Unlock()

	if err == nil {
		r.logger.Debug("job finished", "name", rj.job.Name, "duration", elapsed)
	}
	return true, err
}
