// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"smeinsights/internal/ai"
	"smeinsights/internal/generator"
	"smeinsights/internal/middleware"
	"smeinsights/internal/models"
	"smeinsights/internal/scheduler"
)

// recentRunsLimit is how many batch runs the status endpoint lists.
const recentRunsLimit = 10

// Runner is the part of the scheduler the admin API drives.
type Runner interface {
	RunNow(ctx context.Context) (*generator.Result, error)
	Status() (scheduler.State, error)
	Activate(ctx context.Context) (scheduler.State, error)
	Reschedule(ctx context.Context) (scheduler.State, error)
	Deactivate(ctx context.Context) error
}

// TodayCounter reports how many posts were generated today.
type TodayCounter interface {
	Count(ctx context.Context, now time.Time) (int, error)
}

// RunLister reads the batch run log.
type RunLister interface {
	Recent(limit int) ([]models.GenerationRun, error)
	FindByID(id uuid.UUID) (*models.GenerationRun, error)
}

// SettingsRepo reads and writes the generation settings record.
type SettingsRepo interface {
	All() (models.SiteSettings, error)
	SetMany(settings map[string]string) error
}

// Admin groups the generation endpoints of the admin API.
type Admin struct {
	runner   Runner
	counter  TodayCounter
	runs     RunLister
	settings SettingsRepo
	now      func() time.Time
}

// NewAdmin creates a new Admin handler group.
func NewAdmin(runner Runner, counter TodayCounter, runs RunLister, settings SettingsRepo) *Admin {
	return &Admin{
		runner:   runner,
		counter:  counter,
		runs:     runs,
		settings: settings,
		now:      time.Now,
	}
}

// RunNow generates one post immediately. A batch already holding the lock
// answers 409; a provider failure answers 502 with the error envelope.
func (a *Admin) RunNow(w http.ResponseWriter, r *http.Request) {
	res, err := a.runner.RunNow(r.Context())
	switch {
	case errors.Is(err, scheduler.ErrBatchRunning):
		writeError(w, http.StatusConflict, "A generation batch is already running. Try again in a few minutes.")
		return
	case err != nil && res == nil:
		slog.Error("run now failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	case err != nil:
		code := http.StatusInternalServerError
		if ai.IsProviderError(err) {
			code = http.StatusBadGateway
		}
		slog.Warn("run now generation failed", "error", err)
		writeJSON(w, code, res)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// statusResponse is the body of GET /admin/generate/status.
type statusResponse struct {
	Schedule    scheduler.State        `json:"schedule"`
	TodayCount  int                    `json:"today_count"`
	PostsPerDay int                    `json:"posts_per_day"`
	Model       string                 `json:"model"`
	RecentRuns  []models.GenerationRun `json:"recent_runs"`
}

// Status reports the schedule, today's output against the cap and the
// most recent batch runs.
func (a *Admin) Status(w http.ResponseWriter, r *http.Request) {
	st, err := a.runner.Status()
	if err != nil {
		slog.Error("schedule status failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	raw, err := a.settings.All()
	if err != nil {
		slog.Error("load settings failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	gs := models.GenerationSettingsFrom(raw)

	today, err := a.counter.Count(r.Context(), a.now())
	if err != nil {
		slog.Warn("daily count unavailable", "error", err)
	}

	runs, err := a.runs.Recent(recentRunsLimit)
	if err != nil {
		slog.Warn("recent runs unavailable", "error", err)
	}
	if runs == nil {
		runs = []models.GenerationRun{}
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Schedule:    st,
		TodayCount:  today,
		PostsPerDay: gs.PostsPerDay,
		Model:       gs.Model,
		RecentRuns:  runs,
	})
}

// Run returns one batch run by ID.
func (a *Admin) Run(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid run ID.")
		return
	}
	run, err := a.runs.FindByID(id)
	if err != nil {
		slog.Error("load generation run failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "Run not found.")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

type scheduleRequest struct {
	Active *bool `json:"active"`
}

// Schedule turns the recurring batch on or off.
func (a *Admin) Schedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Active == nil {
		writeError(w, http.StatusBadRequest, "Field \"active\" is required.")
		return
	}

	if !*req.Active {
		if err := a.runner.Deactivate(r.Context()); err != nil {
			slog.Error("deactivate schedule failed", "error", err)
			writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
			return
		}
		writeJSON(w, http.StatusOK, scheduler.State{})
		return
	}

	st, err := a.runner.Activate(r.Context())
	if err != nil {
		slog.Error("activate schedule failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Settings returns the generation settings with credentials masked.
func (a *Admin) Settings(w http.ResponseWriter, r *http.Request) {
	raw, err := a.settings.All()
	if err != nil {
		slog.Error("load settings failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	writeJSON(w, http.StatusOK, raw.Masked())
}

// UpdateSettings validates and stores a partial settings object. Unknown
// and scheduler-owned keys are rejected as a whole.
func (a *Admin) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req) == 0 {
		writeError(w, http.StatusBadRequest, "No settings given.")
		return
	}
	// Masked keys from GET /admin/settings come back unchanged.
	for k, v := range req {
		if models.IsMaskedSecret(k, v) {
			delete(req, k)
		}
	}
	if len(req) == 0 {
		a.Settings(w, r)
		return
	}
	for k, v := range req {
		if err := models.ValidateSetting(k, v); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if err := a.settings.SetMany(req); err != nil {
		slog.Error("save settings failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	by := ""
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil {
		by = sess.Email
	}
	slog.Info("generation settings updated", "keys", len(req), "by", by)

	if _, ok := req[models.SettingIntervalBatches]; ok {
		if _, err := a.runner.Reschedule(r.Context()); err != nil {
			slog.Error("reschedule after interval change failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Settings saved but the schedule could not be updated.")
			return
		}
	}

	raw, err := a.settings.All()
	if err != nil {
		writeJSON(w, http.StatusOK, envelope{Status: "success", Message: "Settings saved."})
		return
	}
	writeJSON(w, http.StatusOK, raw.Masked())
}
