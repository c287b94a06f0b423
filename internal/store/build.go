package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"basegraph.app/trigger/core/db/sqlc"
	"basegraph.app/trigger/internal/model"
)

type buildStore struct {
	queries *sqlc.Queries
}

func newBuildStore(queries *sqlc.Queries) BuildStore {
	return &buildStore{queries: queries}
}

func (s *buildStore) Create(ctx context.Context, build *model.Build) error {
	params, err := json.Marshal(build.Parameters)
	if err != nil {
		return fmt.Errorf("marshal parameters: %w", err)
	}
	if build.Status == "" {
		build.Status = model.BuildStatusQueued
	}

	row, err := s.queries.CreateBuild(ctx, sqlc.CreateBuildParams{
		ID:         build.ID,
		JobName:    build.JobName,
		CauseKind:  build.CauseKind,
		Cause:      []byte(build.Cause),
		Parameters: params,
		Revision:   build.Revision,
		PendingKey: build.PendingKey,
		Status:     string(build.Status),
	})
	if err != nil {
		return err
	}

	saved, err := toBuildModel(row)
	if err != nil {
		return err
	}
	*build = *saved
	return nil
}

func (s *buildStore) GetByID(ctx context.Context, id int64) (*model.Build, error) {
	row, err := s.queries.GetBuild(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toBuildModel(row)
}

func (s *buildStore) MarkStarted(ctx context.Context, id int64, description *string, at time.Time) error {
	affected, err := s.queries.MarkBuildStarted(ctx, sqlc.MarkBuildStartedParams{
		Description: description,
		StartedAt:   timestamptz(at),
		ID:          id,
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return s.transitionMiss(ctx, id)
	}
	return nil
}

func (s *buildStore) MarkCompleted(ctx context.Context, id int64, result, url string, at time.Time) error {
	affected, err := s.queries.MarkBuildCompleted(ctx, sqlc.MarkBuildCompletedParams{
		Result:     &result,
		URL:        &url,
		FinishedAt: timestamptz(at),
		ID:         id,
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return s.transitionMiss(ctx, id)
	}
	return nil
}

// transitionMiss tells a missing build apart from one another delivery
// already moved on.
func (s *buildStore) transitionMiss(ctx context.Context, id int64) error {
	exists, err := s.queries.BuildExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrAlreadyTransitioned
}

func (s *buildStore) ListByJob(ctx context.Context, jobName string, limit int32) ([]model.Build, error) {
	rows, err := s.queries.ListBuildsByJob(ctx, sqlc.ListBuildsByJobParams{
		JobName: jobName,
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}
	builds := make([]model.Build, 0, len(rows))
	for _, row := range rows {
		build, err := toBuildModel(row)
		if err != nil {
			return nil, err
		}
		builds = append(builds, *build)
	}
	return builds, nil
}

func toBuildModel(row sqlc.Build) (*model.Build, error) {
	build := &model.Build{
		ID:          row.ID,
		JobName:     row.JobName,
		CauseKind:   row.CauseKind,
		Cause:       json.RawMessage(row.Cause),
		Revision:    row.Revision,
		PendingKey:  row.PendingKey,
		Status:      model.BuildStatus(row.Status),
		Description: row.Description,
		Result:      row.Result,
		URL:         row.URL,
		QueuedAt:    row.QueuedAt.Time,
		StartedAt:   optionalTime(row.StartedAt),
		FinishedAt:  optionalTime(row.FinishedAt),
	}
	if len(row.Parameters) > 0 {
		if err := json.Unmarshal(row.Parameters, &build.Parameters); err != nil {
			return nil, fmt.Errorf("unmarshal parameters for build %d: %w", row.ID, err)
		}
	}
	return build, nil
}

func timestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalTime(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}
