package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"basegraph.app/trigger/common/logger"
	"basegraph.app/trigger/internal/model"
	"basegraph.app/trigger/internal/queue"
	"basegraph.app/trigger/internal/store"
	"basegraph.app/trigger/internal/trigger"
)

// StatusProcessor applies build lifecycle events reported by the executor:
// a started build gets its description and frees its pending marker, a
// completed build reports back to its merge request.
type StatusProcessor struct {
	builds   BuildStore
	triggers Triggers
	pending  PendingReleaser
	now      func() time.Time
}

func NewStatusProcessor(builds BuildStore, triggers Triggers, pending PendingReleaser) *StatusProcessor {
	return &StatusProcessor{
		builds:   builds,
		triggers: triggers,
		pending:  pending,
		now:      time.Now,
	}
}

// Process handles one status message. Messages for unknown builds are dropped.
func (p *StatusProcessor) Process(ctx context.Context, msg queue.Message) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		JobName:   logger.Ptr(msg.Job),
		BuildID:   logger.Ptr(msg.BuildID),
		MessageID: logger.Ptr(msg.ID),
		Component: "trigger.worker.status",
	})

	build, err := p.builds.GetByID(ctx, msg.BuildID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.WarnContext(ctx, "status for unknown build, dropping", "event", msg.Event)
			return nil
		}
		return fmt.Errorf("loading build: %w", err)
	}

	cause, err := trigger.DecodeCause(build.Cause)
	if err != nil {
		slog.ErrorContext(ctx, "build has an unreadable cause, dropping status", "error", err)
		return nil
	}

	svc, err := p.triggers.Service(ctx, build.JobName)
	if err != nil {
		return fmt.Errorf("resolving trigger: %w", err)
	}

	switch msg.Event {
	case queue.StatusStarted:
		return p.started(ctx, build, svc, cause)
	case queue.StatusCompleted:
		return p.completed(ctx, build, svc, cause, msg)
	default:
		return fmt.Errorf("unknown status event %q", msg.Event)
	}
}

func (p *StatusProcessor) started(ctx context.Context, build *model.Build, svc *trigger.Service, cause trigger.Cause) error {
	if build.Status != model.BuildStatusQueued {
		slog.DebugContext(ctx, "build already started, skipping", "status", build.Status)
		return nil
	}

	var description *string
	if desc, ok := svc.OnBuildStarted(cause); ok {
		description = &desc
	}

	if err := p.builds.MarkStarted(ctx, build.ID, description, p.now()); err != nil {
		if errors.Is(err, store.ErrAlreadyTransitioned) {
			slog.DebugContext(ctx, "build started by another delivery, skipping")
			return nil
		}
		return fmt.Errorf("marking build started: %w", err)
	}

	if err := p.pending.Release(ctx, build.PendingKey, strconv.FormatInt(build.ID, 10)); err != nil {
		// The marker expires on its own.
		slog.WarnContext(ctx, "failed to release pending marker", "error", err, "pending_key", build.PendingKey)
	}

	slog.InfoContext(ctx, "build started", "description", description)
	return nil
}

func (p *StatusProcessor) completed(ctx context.Context, build *model.Build, svc *trigger.Service, cause trigger.Cause, msg queue.Message) error {
	if build.Status == model.BuildStatusCompleted {
		slog.DebugContext(ctx, "build already completed, skipping")
		return nil
	}

	result, err := trigger.ParseBuildResult(msg.Result)
	if err != nil {
		slog.ErrorContext(ctx, "unknown build result, dropping status", "error", err)
		return nil
	}

	// Only the delivery that performs the transition releases the marker and
	// posts the note.
	if err := p.builds.MarkCompleted(ctx, build.ID, string(result), msg.BuildURL, p.now()); err != nil {
		if errors.Is(err, store.ErrAlreadyTransitioned) {
			slog.DebugContext(ctx, "build completed by another delivery, skipping")
			return nil
		}
		return fmt.Errorf("marking build completed: %w", err)
	}

	if build.Status == model.BuildStatusQueued {
		// Completed without a started event, e.g. aborted in the queue.
		if err := p.pending.Release(ctx, build.PendingKey, strconv.FormatInt(build.ID, 10)); err != nil {
			slog.WarnContext(ctx, "failed to release pending marker", "error", err, "pending_key", build.PendingKey)
		}
	}

	_, noted := svc.OnBuildCompleted(ctx, cause, result, msg.BuildURL)
	slog.InfoContext(ctx, "build completed", "result", string(result), "merge_request_noted", noted)
	return nil
}
