// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package scheduler runs generation batches on a recurring interval. The
// schedule lives in the settings record; a ticker dispatches due batches and
// public page loads can trigger an overdue batch when the ticker is not
// running. A Valkey lease keeps batches from overlapping across triggers
// and processes.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"smeinsights/internal/ai"
	"smeinsights/internal/generator"
	"smeinsights/internal/models"
)

// ErrBatchRunning is returned when another batch holds the lock.
var ErrBatchRunning = errors.New("a generation batch is already running")

const (
	// OverdueGrace is how late a batch may be before page loads step in.
	OverdueGrace = 5 * time.Minute

	// TickInterval is how often Start checks for a due batch.
	TickInterval = time.Minute

	// MaxErrorBackoff caps the extra pause after a provider error.
	MaxErrorBackoff = 30 * time.Second
)

// Locker is a non-blocking, token-checked lease.
type Locker interface {
	TryAcquire(ctx context.Context) (token string, ok bool, err error)
	Release(ctx context.Context, token string) error
}

// DailyCounter reports how many posts were generated today.
type DailyCounter interface {
	Count(ctx context.Context, now time.Time) (int, error)
}

// SettingsStore reads generation settings and persists schedule state.
type SettingsStore interface {
	All() (models.SiteSettings, error)
	SetMany(settings map[string]string) error
	Set(key, value string) error
	Delete(keys ...string) error
}

// Assembler creates one post.
type Assembler interface {
	CreatePost(ctx context.Context) (*generator.Result, error)
}

// RunRecorder keeps the batch history.
type RunRecorder interface {
	Start(trigger models.RunTrigger, planned int) (*models.GenerationRun, error)
	Finish(r *models.GenerationRun) error
}

// RecentRunMarker is set when a page load triggers a batch; Mark returns
// false while a previous mark is still live.
type RecentRunMarker interface {
	Mark(ctx context.Context) (bool, error)
}

// Deps are the collaborators of a Scheduler. Runs and Marker may be nil.
type Deps struct {
	Settings  SettingsStore
	Lock      Locker
	Counter   DailyCounter
	Assembler Assembler
	Runs      RunRecorder
	Marker    RecentRunMarker
}

// State is the persisted schedule.
type State struct {
	Active   bool       `json:"active"`
	Interval string     `json:"interval,omitempty"`
	NextRun  *time.Time `json:"next_run,omitempty"`
	LastRun  *time.Time `json:"last_run,omitempty"`
}

// Scheduler owns the recurring generation job.
type Scheduler struct {
	deps  Deps
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a Scheduler.
func New(deps Deps) *Scheduler {
	return &Scheduler{deps: deps, now: time.Now, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Scheduler) settings() (models.SiteSettings, models.GenerationSettings, error) {
	raw, err := s.deps.Settings.All()
	if err != nil {
		return nil, models.GenerationSettings{}, fmt.Errorf("load settings: %w", err)
	}
	return raw, models.GenerationSettingsFrom(raw), nil
}

func parseUnix(v string) *time.Time {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return nil
	}
	t := time.Unix(n, 0)
	return &t
}

func formatUnix(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

func stateFrom(raw models.SiteSettings) State {
	st := State{
		Interval: raw[models.SettingScheduleInterval],
		NextRun:  parseUnix(raw[models.SettingScheduleNextRun]),
		LastRun:  parseUnix(raw[models.SettingScheduleLastRun]),
	}
	st.Active = st.NextRun != nil
	return st
}

// Status returns the persisted schedule.
func (s *Scheduler) Status() (State, error) {
	raw, err := s.deps.Settings.All()
	if err != nil {
		return State{}, fmt.Errorf("load schedule: %w", err)
	}
	return stateFrom(raw), nil
}

// Activate schedules the first batch one interval from now. An existing
// schedule is left alone.
func (s *Scheduler) Activate(ctx context.Context) (State, error) {
	raw, gs, err := s.settings()
	if err != nil {
		return State{}, err
	}
	if st := stateFrom(raw); st.Active {
		return st, nil
	}
	return s.schedule(gs)
}

// Reschedule recomputes the interval from settings and moves the next run
// to one interval from now. An inactive schedule stays inactive.
func (s *Scheduler) Reschedule(ctx context.Context) (State, error) {
	raw, gs, err := s.settings()
	if err != nil {
		return State{}, err
	}
	if st := stateFrom(raw); !st.Active {
		return st, nil
	}
	return s.schedule(gs)
}

func (s *Scheduler) schedule(gs models.GenerationSettings) (State, error) {
	minutes := int(gs.IntervalBetweenRuns / time.Minute)
	name := IntervalName(minutes)
	next := s.now().Add(gs.IntervalBetweenRuns)

	err := s.deps.Settings.SetMany(map[string]string{
		models.SettingScheduleInterval: name,
		models.SettingScheduleNextRun:  formatUnix(next),
	})
	if err != nil {
		return State{}, fmt.Errorf("store schedule: %w", err)
	}
	slog.Info("generation scheduled", "interval", name, "next_run", next.Format(time.RFC3339))
	return s.Status()
}

// Deactivate clears the pending schedule.
func (s *Scheduler) Deactivate(ctx context.Context) error {
	if err := s.deps.Settings.Delete(models.SettingScheduleInterval, models.SettingScheduleNextRun); err != nil {
		return fmt.Errorf("clear schedule: %w", err)
	}
	slog.Info("generation unscheduled")
	return nil
}

// PostsToGenerate is the batch size under the daily cap.
func PostsToGenerate(perBatch, perDay, today int) int {
	return min(perBatch, max(0, perDay-today))
}

// ErrorBackoff is the extra pause after a provider error: twice the
// post interval, capped at MaxErrorBackoff.
func ErrorBackoff(interval time.Duration) time.Duration {
	return min(MaxErrorBackoff, 2*interval)
}

// RunBatch generates up to one batch of posts under the lock. It returns
// ErrBatchRunning at once when another batch holds the lock. Per-post
// failures are counted in the returned run, never returned as errors.
func (s *Scheduler) RunBatch(ctx context.Context, trigger models.RunTrigger) (*models.GenerationRun, error) {
	token, ok, err := s.deps.Lock.TryAcquire(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		slog.Info("batch skipped, lock held", "trigger", trigger)
		return nil, ErrBatchRunning
	}
	defer s.release(ctx, token)

	_, gs, err := s.settings()
	if err != nil {
		return nil, err
	}
	today, err := s.deps.Counter.Count(ctx, s.now())
	if err != nil {
		return nil, err
	}
	planned := PostsToGenerate(gs.PostsPerBatch, gs.PostsPerDay, today)

	run := s.startRun(trigger, planned)
	slog.Info("batch started", "trigger", trigger, "planned", planned, "today", today, "per_day", gs.PostsPerDay)

	for i := 0; i < planned; i++ {
		if i > 0 {
			if err := s.sleep(ctx, gs.IntervalBetweenPosts); err != nil {
				run.Failed += planned - i
				setLastError(run, err)
				break
			}
		}

		res, err := s.deps.Assembler.CreatePost(ctx)
		if err != nil {
			run.Failed++
			setLastError(run, err)
			slog.Error("batch item failed", "trigger", trigger, "item", i+1, "error", err)

			if ai.IsProviderError(err) && i < planned-1 {
				if err := s.sleep(ctx, ErrorBackoff(gs.IntervalBetweenPosts)); err != nil {
					run.Failed += planned - i - 1
					setLastError(run, err)
					break
				}
			}
			continue
		}
		run.Generated++
		slog.Info("batch item created", "trigger", trigger, "item", i+1, "post", res.PostID, "model", res.ModelUsed)
	}

	s.finishRun(run)
	s.advance()
	slog.Info("batch finished", "trigger", trigger, "generated", run.Generated, "failed", run.Failed)
	return run, nil
}

// release returns the lease even when ctx is already cancelled.
func (s *Scheduler) release(ctx context.Context, token string) {
	if err := s.deps.Lock.Release(context.WithoutCancel(ctx), token); err != nil {
		slog.Warn("batch lock release failed", "error", err)
	}
}

func setLastError(run *models.GenerationRun, err error) {
	msg := err.Error()
	run.LastError = &msg
}

func (s *Scheduler) startRun(trigger models.RunTrigger, planned int) *models.GenerationRun {
	if s.deps.Runs != nil {
		run, err := s.deps.Runs.Start(trigger, planned)
		if err == nil {
			return run
		}
		slog.Warn("run record not stored", "error", err)
	}
	return &models.GenerationRun{Trigger: trigger, Planned: planned, StartedAt: s.now()}
}

func (s *Scheduler) finishRun(run *models.GenerationRun) {
	if s.deps.Runs == nil || run.ID == uuid.Nil {
		now := s.now()
		run.FinishedAt = &now
		return
	}
	if err := s.deps.Runs.Finish(run); err != nil {
		slog.Warn("run record not finished", "run", run.ID, "error", err)
	}
}

// advance stamps the last run and, when a schedule is still active, moves
// the next run one interval ahead. Settings are read again because the
// operator may have deactivated or changed the schedule during the batch.
func (s *Scheduler) advance() {
	raw, gs, err := s.settings()
	if err != nil {
		slog.Warn("schedule state not read", "error", err)
		return
	}
	now := s.now()
	values := map[string]string{models.SettingScheduleLastRun: formatUnix(now)}
	if stateFrom(raw).Active {
		values[models.SettingScheduleNextRun] = formatUnix(now.Add(gs.IntervalBetweenRuns))
		values[models.SettingScheduleInterval] = IntervalName(int(gs.IntervalBetweenRuns / time.Minute))
	}
	if err := s.deps.Settings.SetMany(values); err != nil {
		slog.Warn("schedule state not stored", "error", err)
	}
}

// Tick runs the batch when the schedule is due.
func (s *Scheduler) Tick(ctx context.Context) error {
	st, err := s.Status()
	if err != nil {
		return err
	}
	if !st.Active || s.now().Before(*st.NextRun) {
		return nil
	}
	_, err = s.RunBatch(ctx, models.TriggerCron)
	if errors.Is(err, ErrBatchRunning) {
		return nil
	}
	return err
}

// CheckOverdue is the page-load self-heal. When the next run is more than
// OverdueGrace in the past and no page load triggered a batch recently, it
// runs the batch and reschedules from now. It reports whether a batch ran.
func (s *Scheduler) CheckOverdue(ctx context.Context) (bool, error) {
	st, err := s.Status()
	if err != nil {
		return false, err
	}
	if !st.Active || !s.now().After(st.NextRun.Add(OverdueGrace)) {
		return false, nil
	}

	if s.deps.Marker != nil {
		fresh, err := s.deps.Marker.Mark(ctx)
		if err != nil {
			return false, err
		}
		if !fresh {
			return false, nil
		}
	}

	slog.Warn("schedule overdue, running batch from page load", "next_run", st.NextRun.Format(time.RFC3339))
	if _, err := s.RunBatch(ctx, models.TriggerSelfHeal); err != nil {
		if errors.Is(err, ErrBatchRunning) {
			return false, nil
		}
		return false, err
	}
	if _, err := s.Reschedule(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// RunNow creates a single post under the batch lock, ignoring the daily
// cap.
func (s *Scheduler) RunNow(ctx context.Context) (*generator.Result, error) {
	token, ok, err := s.deps.Lock.TryAcquire(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBatchRunning
	}
	defer s.release(ctx, token)

	run := s.startRun(models.TriggerManual, 1)
	res, err := s.deps.Assembler.CreatePost(ctx)
	if err != nil {
		run.Failed = 1
		setLastError(run, err)
	} else {
		run.Generated = 1
	}
	s.finishRun(run)
	return res, err
}

// Start calls Tick every TickInterval until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	slog.Info("scheduler started", "tick", TickInterval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				slog.Error("scheduled batch failed", "error", err)
			}
		}
	}
}
