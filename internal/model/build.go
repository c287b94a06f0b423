package model

import (
	"encoding/json"
	"time"
)

type BuildStatus string

const (
	BuildStatusQueued    BuildStatus = "queued"
	BuildStatusStarted   BuildStatus = "started"
	BuildStatusCompleted BuildStatus = "completed"
)

// Build is a scheduled build and what the executor reported about it.
type Build struct {
	QueuedAt    time.Time         `json:"queued_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	FinishedAt  *time.Time        `json:"finished_at,omitempty"`
	Revision    *string           `json:"revision,omitempty"`
	Description *string           `json:"description,omitempty"`
	Result      *string           `json:"result,omitempty"`
	URL         *string           `json:"url,omitempty"`
	Parameters  map[string]string `json:"parameters"`
	Cause       json.RawMessage   `json:"cause"`
	JobName     string            `json:"job_name"`
	CauseKind   string            `json:"cause_kind"`
	PendingKey  string            `json:"pending_key"`
	Status      BuildStatus       `json:"status"`
	ID          int64             `json:"id"`
}
