package model

import (
	"time"

	"basegraph.app/trigger/internal/trigger"
)

// SCMGit is the only source control a trigger can derive build defaults from.
const SCMGit = "git"

// Job is a build job that GitLab hooks can trigger.
type Job struct {
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	Name               string           `json:"name"`
	SCM                string           `json:"scm"`
	RepoName           string           `json:"repo_name"`
	RepoURL            string           `json:"repo_url"`
	Settings           trigger.Settings `json:"settings"`
	ID                 int64            `json:"id"`
	QuietPeriodSeconds int32            `json:"quiet_period_seconds"`
}

// QuietPeriod returns the job's own quiet period, or fallback when unset.
func (j *Job) QuietPeriod(fallback time.Duration) time.Duration {
	if j.QuietPeriodSeconds <= 0 {
		return fallback
	}
	return time.Duration(j.QuietPeriodSeconds) * time.Second
}
