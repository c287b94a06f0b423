package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"basegraph.app/trigger/internal/domain"
)

// Build parameter names handed to the scheduler.
const (
	ParamSourceBranch   = "gitlabSourceBranch"
	ParamTargetBranch   = "gitlabTargetBranch"
	ParamBranch         = "gitlabBranch"
	ParamSourceRepoName = "gitlabSourceRepoName"
	ParamSourceRepoURL  = "gitlabSourceRepoURL"
)

const defaultLookupTimeout = 5 * time.Second

// BuildRequest is what the scheduler receives besides the cause.
type BuildRequest struct {
	Parameters map[string]string
	RevisionID string
}

// Revision returns the commit to build. Pushes that only create a branch
// have none; callers must check before depending on it.
func (r BuildRequest) Revision() (string, error) {
	if r.RevisionID == "" {
		return "", ErrMissingRevision
	}
	return r.RevisionID, nil
}

// RepoInfo names a repository the way build parameters expect it.
type RepoInfo struct {
	Name string
	URL  string
}

// RepoDefaults supplies the job's own repository, used for pushes and as
// the fallback for merge requests.
type RepoDefaults interface {
	DefaultRepo(ctx context.Context) (RepoInfo, error)
}

// SourceProjectResolver looks up the repository a merge request comes from.
type SourceProjectResolver interface {
	ResolveSourceProject(ctx context.Context, projectID int64) (RepoInfo, error)
}

// RequestBuilder assembles build parameters for both event kinds.
type RequestBuilder struct {
	defaults      RepoDefaults
	resolver      SourceProjectResolver
	lookupTimeout time.Duration
}

// NewRequestBuilder creates a builder. resolver may be nil when no GitLab
// host is configured, in which case merge requests use the job defaults.
func NewRequestBuilder(defaults RepoDefaults, resolver SourceProjectResolver, lookupTimeout time.Duration) *RequestBuilder {
	if lookupTimeout <= 0 {
		lookupTimeout = defaultLookupTimeout
	}
	return &RequestBuilder{
		defaults:      defaults,
		resolver:      resolver,
		lookupTimeout: lookupTimeout,
	}
}

// Build dispatches on the event kind.
func (b *RequestBuilder) Build(ctx context.Context, event domain.Event) (BuildRequest, error) {
	switch e := event.(type) {
	case *domain.PushEvent:
		return b.ForPush(ctx, e)
	case *domain.MergeRequestEvent:
		return b.ForMergeRequest(ctx, e)
	default:
		return BuildRequest{}, fmt.Errorf("unsupported event %T", event)
	}
}

func (b *RequestBuilder) ForPush(ctx context.Context, push *domain.PushEvent) (BuildRequest, error) {
	repo, err := b.defaults.DefaultRepo(ctx)
	if err != nil {
		return BuildRequest{}, fmt.Errorf("resolving default repository: %w", err)
	}

	branch := push.Branch()
	req := BuildRequest{
		Parameters: map[string]string{
			ParamSourceBranch:   branch,
			ParamTargetBranch:   branch,
			ParamBranch:         branch,
			ParamSourceRepoName: repo.Name,
			ParamSourceRepoURL:  repo.URL,
		},
	}
	if commit, ok := push.LastCommit(); ok {
		req.RevisionID = commit.ID
	}
	return req, nil
}

func (b *RequestBuilder) ForMergeRequest(ctx context.Context, mr *domain.MergeRequestEvent) (BuildRequest, error) {
	fallback, err := b.defaults.DefaultRepo(ctx)
	if err != nil {
		return BuildRequest{}, fmt.Errorf("resolving default repository: %w", err)
	}

	repo := b.SourceRepo(ctx, mr, fallback)

	return BuildRequest{
		Parameters: map[string]string{
			ParamSourceBranch:   mr.ObjectAttributes.SourceBranch,
			ParamTargetBranch:   mr.ObjectAttributes.TargetBranch,
			ParamSourceRepoName: repo.Name,
			ParamSourceRepoURL:  repo.URL,
		},
	}, nil
}

// SourceRepo returns the merge request's source repository, or fallback when
// no resolver is configured or the lookup fails within the lookup timeout.
// Missing fields of a successful lookup are taken from fallback.
func (b *RequestBuilder) SourceRepo(ctx context.Context, mr *domain.MergeRequestEvent, fallback RepoInfo) RepoInfo {
	if b.resolver == nil {
		return fallback
	}

	projectID := mr.ObjectAttributes.SourceProjectID
	if projectID == 0 {
		projectID = mr.ObjectAttributes.TargetProjectID
	}

	lookupCtx, cancel := context.WithTimeout(ctx, b.lookupTimeout)
	defer cancel()

	repo, err := b.resolver.ResolveSourceProject(lookupCtx, projectID)
	if err != nil {
		err = errors.Join(ErrLookupFailure, err)
		slog.WarnContext(ctx, "could not fetch source project data from gitlab, using job defaults",
			"error", err,
			"project_id", projectID,
			"fallback_repo", fallback.Name)
		return fallback
	}

	if repo.Name == "" {
		repo.Name = fallback.Name
	}
	if repo.URL == "" {
		repo.URL = fallback.URL
	}
	return repo
}

