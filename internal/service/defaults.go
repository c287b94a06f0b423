package service

import (
	"context"
	"errors"
	"fmt"

	"basegraph.app/trigger/internal/model"
	"basegraph.app/trigger/internal/store"
	"basegraph.app/trigger/internal/trigger"
)

// jobRepoDefaults reads the job's repository on every call so repository
// edits apply to the next event.
type jobRepoDefaults struct {
	jobs store.JobStore
	name string
}

func (d jobRepoDefaults) DefaultRepo(ctx context.Context) (trigger.RepoInfo, error) {
	job, err := d.jobs.GetByName(ctx, d.name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return trigger.RepoInfo{}, fmt.Errorf("%w: job %s no longer exists", trigger.ErrConfiguration, d.name)
		}
		return trigger.RepoInfo{}, fmt.Errorf("loading job %s: %w", d.name, err)
	}
	return RepoDefaults(job)
}

// RepoDefaults returns the job's repository, or ErrConfiguration when the job
// is not built from a git repository.
func RepoDefaults(job *model.Job) (trigger.RepoInfo, error) {
	if job.SCM != model.SCMGit {
		return trigger.RepoInfo{}, fmt.Errorf("%w: job %s uses %q, git is required", trigger.ErrConfiguration, job.Name, job.SCM)
	}
	if job.RepoURL == "" {
		return trigger.RepoInfo{}, fmt.Errorf("%w: job %s has no repository url", trigger.ErrConfiguration, job.Name)
	}
	return trigger.RepoInfo{Name: job.RepoName, URL: job.RepoURL}, nil
}
