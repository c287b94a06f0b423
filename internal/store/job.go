package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"basegraph.app/trigger/common/id"
	"basegraph.app/trigger/core/db/sqlc"
	"basegraph.app/trigger/internal/model"
	"basegraph.app/trigger/internal/trigger"
)

type jobStore struct {
	queries *sqlc.Queries
}

func newJobStore(queries *sqlc.Queries) JobStore {
	return &jobStore{queries: queries}
}

func (s *jobStore) GetByName(ctx context.Context, name string) (*model.Job, error) {
	row, err := s.queries.GetJobByName(ctx, name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toJobModel(row)
}

func (s *jobStore) List(ctx context.Context) ([]model.Job, error) {
	rows, err := s.queries.ListJobs(ctx)
	if err != nil {
		return nil, err
	}
	jobs := make([]model.Job, 0, len(rows))
	for _, row := range rows {
		job, err := toJobModel(row)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

func (s *jobStore) Upsert(ctx context.Context, job *model.Job) error {
	settings, err := json.Marshal(job.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if job.ID == 0 {
		job.ID = id.New()
	}
	if job.SCM == "" {
		job.SCM = model.SCMGit
	}

	row, err := s.queries.UpsertJob(ctx, sqlc.UpsertJobParams{
		ID:                 job.ID,
		Name:               job.Name,
		SCM:                job.SCM,
		RepoName:           job.RepoName,
		RepoURL:            job.RepoURL,
		Settings:           settings,
		QuietPeriodSeconds: job.QuietPeriodSeconds,
	})
	if err != nil {
		return err
	}

	saved, err := toJobModel(row)
	if err != nil {
		return err
	}
	*job = *saved
	return nil
}

func (s *jobStore) UpdateSettings(ctx context.Context, name string, settings trigger.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	affected, err := s.queries.UpdateJobSettings(ctx, sqlc.UpdateJobSettingsParams{
		Name:     name,
		Settings: data,
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// toJobModel fills settings the stored document does not mention with defaults.
func toJobModel(row sqlc.Job) (*model.Job, error) {
	settings := trigger.DefaultSettings()
	if len(row.Settings) > 0 {
		if err := json.Unmarshal(row.Settings, &settings); err != nil {
			return nil, fmt.Errorf("unmarshal settings for job %s: %w", row.Name, err)
		}
	}

	return &model.Job{
		ID:                 row.ID,
		Name:               row.Name,
		SCM:                row.SCM,
		RepoName:           row.RepoName,
		RepoURL:            row.RepoURL,
		Settings:           settings,
		QuietPeriodSeconds: row.QuietPeriodSeconds,
		CreatedAt:          row.CreatedAt.Time,
		UpdatedAt:          row.UpdatedAt.Time,
	}, nil
}
