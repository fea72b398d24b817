// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"smeinsights/internal/models"
)

// GenerationRunStore records every batch the scheduler executes.
type GenerationRunStore struct {
	db *sql.DB
}

// NewGenerationRunStore returns a new GenerationRunStore.
func NewGenerationRunStore(db *sql.DB) *GenerationRunStore {
	return &GenerationRunStore{db: db}
}

const runColumns = `id, trigger, planned, generated, failed, last_error, started_at, finished_at`

func scanRun(scanner interface{ Scan(...any) error }) (*models.GenerationRun, error) {
	var r models.GenerationRun
	err := scanner.Scan(
		&r.ID, &r.Trigger, &r.Planned, &r.Generated, &r.Failed,
		&r.LastError, &r.StartedAt, &r.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Start opens a run record for a batch that is about to execute.
func (s *GenerationRunStore) Start(trigger models.RunTrigger, planned int) (*models.GenerationRun, error) {
	row := s.db.QueryRow(`
		INSERT INTO generation_runs (trigger, planned, started_at)
		VALUES ($1, $2, $3)
		RETURNING `+runColumns,
		trigger, planned, time.Now(),
	)
	r, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("start generation run: %w", err)
	}
	return r, nil
}

// Finish stores the outcome of a run and stamps finished_at.
func (s *GenerationRunStore) Finish(r *models.GenerationRun) error {
	now := time.Now()
	_, err := s.db.Exec(`
		UPDATE generation_runs
		SET generated = $1, failed = $2, last_error = $3, finished_at = $4
		WHERE id = $5
	`, r.Generated, r.Failed, r.LastError, now, r.ID)
	if err != nil {
		return fmt.Errorf("finish generation run: %w", err)
	}
	r.FinishedAt = &now
	return nil
}

// FindByID retrieves a run by ID. Returns nil if not found.
func (s *GenerationRunStore) FindByID(id uuid.UUID) (*models.GenerationRun, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM generation_runs WHERE id = $1`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find generation run: %w", err)
	}
	return r, nil
}

// Recent returns the latest runs, newest first.
func (s *GenerationRunStore) Recent(limit int) ([]models.GenerationRun, error) {
	rows, err := s.db.Query(`
		SELECT `+runColumns+`
		FROM generation_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list generation runs: %w", err)
	}
	defer rows.Close()

	var runs []models.GenerationRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan generation run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}
