package worker

import (
	"context"
	"time"

	"basegraph.app/trigger/internal/model"
	"basegraph.app/trigger/internal/queue"
	"basegraph.app/trigger/internal/trigger"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// BuildStore is the part of the build store status handling needs.
type BuildStore interface {
	GetByID(ctx context.Context, id int64) (*model.Build, error)
	MarkStarted(ctx context.Context, id int64, description *string, at time.Time) error
	MarkCompleted(ctx context.Context, id int64, result, url string, at time.Time) error
}

// Triggers resolves the trigger service of a job.
type Triggers interface {
	Service(ctx context.Context, job string) (*trigger.Service, error)
}

// PendingReleaser clears the pending marker a scheduled build holds.
type PendingReleaser interface {
	Release(ctx context.Context, key, owner string) error
}
