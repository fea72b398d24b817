package models

import (
	"time"

	"github.com/google/uuid"
)

// RunTrigger records what started a batch.
type RunTrigger string

const (
	TriggerCron     RunTrigger = "cron"
	TriggerSelfHeal RunTrigger = "self_heal"
	TriggerManual   RunTrigger = "manual"
	TriggerCLI      RunTrigger = "cli"
)

// GenerationRun is the audit row for one batch execution: how many posts
// were planned, how many were written and how many failed.
type GenerationRun struct {
	ID         uuid.UUID  `json:"id"`
	Trigger    RunTrigger `json:"trigger"`
	Planned    int        `json:"planned"`
	Generated  int        `json:"generated"`
	Failed     int        `json:"failed"`
	LastError  *string    `json:"last_error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Done reports whether the batch has finished.
func (r *GenerationRun) Done() bool {
	return r.FinishedAt != nil
}
