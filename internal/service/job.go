package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"basegraph.app/trigger/internal/gitlabclient"
	"basegraph.app/trigger/internal/model"
	"basegraph.app/trigger/internal/store"
	"basegraph.app/trigger/internal/trigger"
)

// BranchLister lists the branches of the GitLab project cloned from repoURL.
type BranchLister interface {
	ProjectBranches(ctx context.Context, repoURL string) ([]string, error)
}

// ConnectionChecker verifies GitLab credentials and returns the token's user.
type ConnectionChecker func(ctx context.Context, cfg gitlabclient.Config) (string, error)

type JobDetails struct {
	Job        *model.Job
	WebhookURL string
}

type JobService interface {
	Get(ctx context.Context, name string) (*JobDetails, error)
	Save(ctx context.Context, job *model.Job) (*JobDetails, error)
	Branches(ctx context.Context, name string) ([]string, error)
	UpdatePolicy(ctx context.Context, name string, settings trigger.Settings) (*JobDetails, error)
	TestConnection(ctx context.Context, cfg gitlabclient.Config) (string, error)
}

type jobService struct {
	jobs     store.JobStore
	registry *Registry
	branches BranchLister
	check    ConnectionChecker
	rootURL  string
}

// NewJobService creates the job API service. branches may be nil when no
// GitLab host is configured.
func NewJobService(jobs store.JobStore, registry *Registry, branches BranchLister, check ConnectionChecker, rootURL string) JobService {
	if check == nil {
		check = gitlabclient.CheckConnection
	}
	return &jobService{
		jobs:     jobs,
		registry: registry,
		branches: branches,
		check:    check,
		rootURL:  strings.TrimSuffix(rootURL, "/"),
	}
}

// WebhookURL is the address GitLab should post hooks of job to.
func WebhookURL(rootURL, job string) string {
	return strings.TrimSuffix(rootURL, "/") + "/project/" + url.PathEscape(job)
}

func (s *jobService) Get(ctx context.Context, name string) (*JobDetails, error) {
	job, err := s.jobs.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, name)
		}
		return nil, err
	}
	return s.details(job), nil
}

func (s *jobService) Save(ctx context.Context, job *model.Job) (*JobDetails, error) {
	if job.Name == "" {
		return nil, fmt.Errorf("%w: job name is required", trigger.ErrConfiguration)
	}
	if err := s.jobs.Upsert(ctx, job); err != nil {
		return nil, fmt.Errorf("saving job %s: %w", job.Name, err)
	}

	// Repository or quiet period may have changed.
	s.registry.Forget(job.Name)

	slog.InfoContext(ctx, "job saved", "job", job.Name, "webhook_url", WebhookURL(s.rootURL, job.Name))
	return s.details(job), nil
}

// Branches lists the branches of the job's repository for the allow-list
// picker. Lookup failures yield an empty list.
func (s *jobService) Branches(ctx context.Context, name string) ([]string, error) {
	details, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if s.branches == nil {
		return []string{}, nil
	}

	repo, err := RepoDefaults(details.Job)
	if err != nil {
		slog.WarnContext(ctx, "cannot list branches of job", "error", err, "job", name)
		return []string{}, nil
	}

	branches, err := s.branches.ProjectBranches(ctx, repo.URL)
	if err != nil {
		slog.WarnContext(ctx, "failed to fetch project branches from gitlab", "error", err, "job", name, "repo_url", repo.URL)
		return []string{}, nil
	}
	if branches == nil {
		slog.WarnContext(ctx, "no gitlab project matches the job repository", "job", name, "repo_url", repo.URL)
		return []string{}, nil
	}
	return branches, nil
}

func (s *jobService) UpdatePolicy(ctx context.Context, name string, settings trigger.Settings) (*JobDetails, error) {
	if _, err := s.registry.Reconfigure(ctx, name, settings); err != nil {
		return nil, err
	}
	return s.Get(ctx, name)
}

func (s *jobService) TestConnection(ctx context.Context, cfg gitlabclient.Config) (string, error) {
	return s.check(ctx, cfg)
}

func (s *jobService) details(job *model.Job) *JobDetails {
	return &JobDetails{Job: job, WebhookURL: WebhookURL(s.rootURL, job.Name)}
}
