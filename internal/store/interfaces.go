package store

import (
	"context"
	"errors"
	"time"

	"basegraph.app/trigger/internal/model"
	"basegraph.app/trigger/internal/trigger"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrAlreadyTransitioned is returned when a build is no longer in a status
// the requested transition starts from.
var ErrAlreadyTransitioned = errors.New("build already transitioned")

// JobStore defines the contract for job data access
type JobStore interface {
	GetByName(ctx context.Context, name string) (*model.Job, error)
	List(ctx context.Context) ([]model.Job, error)
	Upsert(ctx context.Context, job *model.Job) error
	UpdateSettings(ctx context.Context, name string, settings trigger.Settings) error
}

// BuildStore defines the contract for build data access
type BuildStore interface {
	Create(ctx context.Context, build *model.Build) error
	GetByID(ctx context.Context, id int64) (*model.Build, error)
	// MarkStarted moves a queued build to started.
	MarkStarted(ctx context.Context, id int64, description *string, at time.Time) error
	// MarkCompleted moves a build that is not yet completed to completed.
	MarkCompleted(ctx context.Context, id int64, result, url string, at time.Time) error
	ListByJob(ctx context.Context, jobName string, limit int32) ([]model.Build, error)
}
