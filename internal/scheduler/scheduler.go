package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"basegraph.app/trigger/common/id"
	"basegraph.app/trigger/common/logger"
	"basegraph.app/trigger/internal/model"
	"basegraph.app/trigger/internal/queue"
	"basegraph.app/trigger/internal/trigger"
)

const defaultPendingTTL = 30 * time.Minute

// BuildRecorder persists scheduled builds.
type BuildRecorder interface {
	Create(ctx context.Context, build *model.Build) error
}

type Config struct {
	// PendingTTL bounds how long a build counts as queued when the executor
	// never reports it started.
	PendingTTL time.Duration
}

// Scheduler hands builds to the executor through the build stream. A build
// whose equivalent is still pending is reported as already queued.
type Scheduler struct {
	pending  PendingSet
	builds   BuildRecorder
	producer queue.Producer
	cfg      Config
	now      func() time.Time
}

func New(pending PendingSet, builds BuildRecorder, producer queue.Producer, cfg Config) *Scheduler {
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = defaultPendingTTL
	}
	return &Scheduler{
		pending:  pending,
		builds:   builds,
		producer: producer,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *Scheduler) Enqueue(ctx context.Context, job string, cause trigger.Cause, req trigger.BuildRequest, quietPeriod time.Duration) (trigger.EnqueueResult, error) {
	key := PendingKey(job, req)
	buildID := id.New()
	owner := strconv.FormatInt(buildID, 10)

	acquired, err := s.pending.Acquire(ctx, key, owner, s.cfg.PendingTTL+quietPeriod)
	if err != nil {
		return "", err
	}
	if !acquired {
		slog.DebugContext(ctx, "equivalent build still pending", "pending_key", key)
		return trigger.EnqueueAlreadyQueued, nil
	}

	if err := s.schedule(ctx, buildID, job, key, cause, req, quietPeriod); err != nil {
		if releaseErr := s.pending.Release(context.WithoutCancel(ctx), key, owner); releaseErr != nil {
			slog.WarnContext(ctx, "failed to release pending marker", "error", releaseErr, "pending_key", key)
		}
		return "", err
	}

	return trigger.EnqueueAccepted, nil
}

func (s *Scheduler) schedule(ctx context.Context, buildID int64, job, key string, cause trigger.Cause, req trigger.BuildRequest, quietPeriod time.Duration) error {
	encoded, err := trigger.EncodeCause(cause)
	if err != nil {
		return err
	}

	build := &model.Build{
		ID:         buildID,
		JobName:    job,
		CauseKind:  string(cause.Kind()),
		Cause:      encoded,
		Parameters: req.Parameters,
		PendingKey: key,
		Status:     model.BuildStatusQueued,
	}
	if req.RevisionID != "" {
		build.Revision = logger.Ptr(req.RevisionID)
	}

	if err := s.builds.Create(ctx, build); err != nil {
		return fmt.Errorf("recording build: %w", err)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{BuildID: logger.Ptr(buildID)})

	msg := queue.BuildMessage{
		BuildID:    buildID,
		Job:        job,
		CauseKind:  build.CauseKind,
		Cause:      encoded,
		Parameters: req.Parameters,
		Revision:   req.RevisionID,
		PendingKey: key,
		NotBefore:  s.now().Add(quietPeriod),
	}
	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		msg.TraceID = logger.Ptr(traceID)
	}

	return s.producer.Enqueue(ctx, msg)
}
