package dto

import (
	"time"

	"basegraph.app/trigger/internal/model"
	"basegraph.app/trigger/internal/service"
	"basegraph.app/trigger/internal/trigger"
)

type SaveJobRequest struct {
	SCM                string            `json:"scm" binding:"omitempty,oneof=git svn none"`
	RepoName           string            `json:"repo_name" binding:"max=255"`
	RepoURL            string            `json:"repo_url" binding:"required,max=2048"`
	QuietPeriodSeconds int32             `json:"quiet_period_seconds" binding:"min=0,max=86400"`
	Settings           *trigger.Settings `json:"settings,omitempty"`
}

// ToJob builds the job to persist. Settings default to a fresh trigger's.
func (r SaveJobRequest) ToJob(name string) *model.Job {
	settings := trigger.DefaultSettings()
	if r.Settings != nil {
		settings = *r.Settings
	}
	return &model.Job{
		Name:               name,
		SCM:                r.SCM,
		RepoName:           r.RepoName,
		RepoURL:            r.RepoURL,
		QuietPeriodSeconds: r.QuietPeriodSeconds,
		Settings:           settings,
	}
}

type UpdatePolicyRequest struct {
	trigger.Settings
}

type JobResponse struct {
	ID                 int64            `json:"id,string"`
	Name               string           `json:"name"`
	SCM                string           `json:"scm"`
	RepoName           string           `json:"repo_name"`
	RepoURL            string           `json:"repo_url"`
	QuietPeriodSeconds int32            `json:"quiet_period_seconds"`
	Settings           trigger.Settings `json:"settings"`
	WebhookURL         string           `json:"webhook_url"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

func ToJobResponse(d *service.JobDetails) *JobResponse {
	job := d.Job
	return &JobResponse{
		ID:                 job.ID,
		Name:               job.Name,
		SCM:                job.SCM,
		RepoName:           job.RepoName,
		RepoURL:            job.RepoURL,
		QuietPeriodSeconds: job.QuietPeriodSeconds,
		Settings:           job.Settings,
		WebhookURL:         d.WebhookURL,
		CreatedAt:          job.CreatedAt,
		UpdatedAt:          job.UpdatedAt,
	}
}

type BranchesResponse struct {
	Branches []string `json:"branches"`
}
