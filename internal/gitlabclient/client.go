package gitlabclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"basegraph.app/trigger/internal/domain"
	"basegraph.app/trigger/internal/trigger"
)

const (
	mergeRequestStateOpened = "opened"
	pageSize                = 100
)

type Config struct {
	HostURL                 string
	APIToken                string
	IgnoreCertificateErrors bool
}

// Client adapts the GitLab REST API to the lookups and notes a trigger needs.
type Client struct {
	api *gitlab.Client
}

func NewClient(cfg Config) (*Client, error) {
	api, err := newAPIClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

func newAPIClient(cfg Config) (*gitlab.Client, error) {
	if cfg.HostURL == "" {
		return nil, fmt.Errorf("gitlab host url is required")
	}

	baseURL := strings.TrimSuffix(cfg.HostURL, "/") + "/api/v4"
	opts := []gitlab.ClientOptionFunc{gitlab.WithBaseURL(baseURL)}
	if cfg.IgnoreCertificateErrors {
		opts = append(opts, gitlab.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
			},
		}))
	}

	client, err := gitlab.NewClient(cfg.APIToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}
	return client, nil
}

// CheckConnection verifies that token is accepted by the GitLab instance.
func CheckConnection(ctx context.Context, cfg Config) (string, error) {
	api, err := newAPIClient(cfg)
	if err != nil {
		return "", err
	}

	user, _, err := api.Users.CurrentUser(gitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("fetching current user: %w", err)
	}
	return user.Username, nil
}

// ResolveSourceProject returns the path and SSH URL of a project.
func (c *Client) ResolveSourceProject(ctx context.Context, projectID int64) (trigger.RepoInfo, error) {
	project, _, err := c.api.Projects.GetProject(projectID, nil, gitlab.WithContext(ctx))
	if err != nil {
		return trigger.RepoInfo{}, fmt.Errorf("fetching project %d: %w", projectID, err)
	}
	return trigger.RepoInfo{
		Name: project.PathWithNamespace,
		URL:  project.SSHURLToRepo,
	}, nil
}

func (c *Client) PostMergeRequestNote(ctx context.Context, projectID, mergeRequestIID int64, body string) error {
	_, _, err := c.api.Notes.CreateMergeRequestNote(projectID, mergeRequestIID, &gitlab.CreateMergeRequestNoteOptions{
		Body: gitlab.Ptr(body),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("creating note on merge request !%d of project %d: %w", mergeRequestIID, projectID, err)
	}
	return nil
}

// OpenMergeRequests lists open merge requests of a project coming from branch.
func (c *Client) OpenMergeRequests(ctx context.Context, projectID int64, branch string) ([]*domain.MergeRequestEvent, error) {
	opts := &gitlab.ListProjectMergeRequestsOptions{
		State:        gitlab.Ptr(mergeRequestStateOpened),
		SourceBranch: gitlab.Ptr(branch),
		ListOptions: gitlab.ListOptions{
			Page:    1,
			PerPage: pageSize,
		},
	}

	var events []*domain.MergeRequestEvent
	for {
		mrs, resp, err := c.api.MergeRequests.ListProjectMergeRequests(projectID, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("listing open merge requests of project %d: %w", projectID, err)
		}

		for _, mr := range mrs {
			events = append(events, &domain.MergeRequestEvent{ObjectAttributes: domain.MergeRequestAttributes{
				ID:              mr.ID,
				IID:             mr.IID,
				SourceBranch:    mr.SourceBranch,
				TargetBranch:    mr.TargetBranch,
				SourceProjectID: mr.SourceProjectID,
				TargetProjectID: mr.TargetProjectID,
			}})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return events, nil
}

// ProjectBranches lists the branch names of the project whose SSH or HTTP
// clone URL equals repoURL, ignoring case. It returns nil when no visible
// project matches.
func (c *Client) ProjectBranches(ctx context.Context, repoURL string) ([]string, error) {
	project, err := c.findProjectByURL(ctx, repoURL)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, nil
	}

	opts := &gitlab.ListBranchesOptions{
		ListOptions: gitlab.ListOptions{
			Page:    1,
			PerPage: pageSize,
		},
	}

	var names []string
	for {
		branches, resp, err := c.api.Branches.ListBranches(project.ID, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("listing branches of %s: %w", project.PathWithNamespace, err)
		}
		for _, b := range branches {
			names = append(names, b.Name)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return names, nil
}

func (c *Client) findProjectByURL(ctx context.Context, repoURL string) (*gitlab.Project, error) {
	opts := &gitlab.ListProjectsOptions{
		Membership: gitlab.Ptr(true),
		ListOptions: gitlab.ListOptions{
			Page:    1,
			PerPage: pageSize,
		},
	}

	for {
		projects, resp, err := c.api.Projects.ListProjects(opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("listing projects: %w", err)
		}
		for _, p := range projects {
			if strings.EqualFold(p.SSHURLToRepo, repoURL) || strings.EqualFold(p.HTTPURLToRepo, repoURL) {
				return p, nil
			}
		}

		if resp.NextPage == 0 {
			return nil, nil
		}
		opts.Page = resp.NextPage
	}
}
