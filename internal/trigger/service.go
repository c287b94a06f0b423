package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"basegraph.app/trigger/common/logger"
	"basegraph.app/trigger/internal/domain"
)

type EnqueueResult string

const (
	// EnqueueAccepted means no equivalent build was pending and a new one was queued.
	EnqueueAccepted EnqueueResult = "accepted"
	// EnqueueAlreadyQueued means an equivalent build is still pending.
	EnqueueAlreadyQueued EnqueueResult = "already_queued"
)

// Scheduler hands builds to the executor.
type Scheduler interface {
	Enqueue(ctx context.Context, job string, cause Cause, req BuildRequest, quietPeriod time.Duration) (EnqueueResult, error)
}

// NotePoster comments on a merge request.
type NotePoster interface {
	PostMergeRequestNote(ctx context.Context, projectID, mergeRequestIID int64, body string) error
}

// OpenMergeRequestFinder lists the open merge requests whose source branch is branch.
type OpenMergeRequestFinder interface {
	OpenMergeRequests(ctx context.Context, projectID int64, branch string) ([]*domain.MergeRequestEvent, error)
}

type Config struct {
	JobName     string
	QuietPeriod time.Duration
	ServerName  string
}

type Dependencies struct {
	Requests  *RequestBuilder
	Scheduler Scheduler

	// Optional collaborators. Nil disables notes and open merge request builds.
	Notes             NotePoster
	OpenMergeRequests OpenMergeRequestFinder
}

// Result reports what Handle did with one event.
type Result struct {
	Decision
	Enqueue EnqueueResult

	// MergeRequests holds the results for open merge requests built because of a push.
	MergeRequests []*Result
}

// Service is the trigger of a single job. It owns the job's policy and its
// sequential queue.
type Service struct {
	cfg               Config
	policy            atomic.Pointer[Policy]
	evaluator         *Evaluator
	scheduler         Scheduler
	notes             NotePoster
	openMergeRequests OpenMergeRequestFinder
	queue             *SerialQueue
}

func NewService(cfg Config, policy Policy, deps Dependencies) *Service {
	if cfg.ServerName == "" {
		cfg.ServerName = "Jenkins"
	}
	s := &Service{
		cfg:               cfg,
		evaluator:         NewEvaluator(deps.Requests),
		scheduler:         deps.Scheduler,
		notes:             deps.Notes,
		openMergeRequests: deps.OpenMergeRequests,
		queue:             NewSerialQueue(),
	}
	s.policy.Store(&policy)
	return s
}

func (s *Service) JobName() string {
	return s.cfg.JobName
}

// Policy returns the policy new events are evaluated against.
func (s *Service) Policy() Policy {
	return *s.policy.Load()
}

// Reconfigure replaces the policy. Events already being evaluated keep the
// policy they started with.
func (s *Service) Reconfigure(policy Policy) {
	s.policy.Store(&policy)
}

// Close stops the sequential queue after the running event finishes.
func (s *Service) Close() {
	s.queue.Stop()
}

// Evaluate runs the decision for event against the current policy without scheduling.
func (s *Service) Evaluate(ctx context.Context, event domain.Event) (Decision, error) {
	return s.evaluator.Evaluate(ctx, event, s.Policy())
}

// Handle evaluates event and, when eligible, schedules a build through the
// job's sequential queue. Skipped events have no side effects.
func (s *Service) Handle(ctx context.Context, event domain.Event) (*Result, error) {
	branch := domain.SourceBranch(event)
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		JobName:   logger.Ptr(s.cfg.JobName),
		EventKind: logger.Ptr(string(event.Kind())),
		Branch:    logger.Ptr(branch),
		Component: "trigger.service",
	})

	sc := logger.StartSpan(ctx, "trigger.handle")
	defer sc.End()
	ctx = sc.Context()

	policy := s.Policy()

	result, err := s.schedule(ctx, event, policy)
	if err != nil {
		sc.RecordError(err)
		return nil, err
	}

	if push, ok := event.(*domain.PushEvent); ok && result.Outcome == OutcomeEnqueued {
		result.MergeRequests = s.buildOpenMergeRequests(ctx, push, policy)
	}

	return result, nil
}

func (s *Service) schedule(ctx context.Context, event domain.Event, policy Policy) (*Result, error) {
	if ok, reason := policy.Eligible(event); !ok {
		slog.InfoContext(ctx, "gitlab event skipped", "reason", reason)
		return &Result{Decision: Decision{Outcome: OutcomeSkipped, Reason: reason}}, nil
	}

	var (
		result  *Result
		taskErr error
	)

	err := s.queue.Do(ctx, func(ctx context.Context) {
		result, taskErr = s.enqueue(ctx, event)
	})
	if err != nil {
		return nil, err
	}
	if taskErr != nil {
		return nil, taskErr
	}
	return result, nil
}

// enqueue runs on the queue goroutine.
func (s *Service) enqueue(ctx context.Context, event domain.Event) (*Result, error) {
	decision, err := s.evaluator.Prepare(ctx, event)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "build prepared",
		"cause", decision.Cause.ShortDescription(),
		"parameters", decision.Request.Parameters,
		"revision", decision.Request.RevisionID)

	enqueued, err := s.scheduler.Enqueue(ctx, s.cfg.JobName, decision.Cause, decision.Request, s.cfg.QuietPeriod)
	if err != nil {
		return nil, fmt.Errorf("scheduling build: %w", err)
	}

	switch enqueued {
	case EnqueueAlreadyQueued:
		slog.InfoContext(ctx, "gitlab event detected, job is already in the queue")
	default:
		slog.InfoContext(ctx, "gitlab event detected, build triggered", "cause", decision.Cause.ShortDescription())
	}

	return &Result{Decision: decision, Enqueue: enqueued}, nil
}

// buildOpenMergeRequests schedules the open merge requests of a pushed
// branch. Only called for a push that was itself scheduled; each merge
// request is then subject to the merge request toggle. Failures are logged.
func (s *Service) buildOpenMergeRequests(ctx context.Context, push *domain.PushEvent, policy Policy) []*Result {
	if !policy.TriggerOpenMergeRequestOnPush || s.openMergeRequests == nil || push.ProjectID == 0 {
		return nil
	}

	mergeRequests, err := s.openMergeRequests.OpenMergeRequests(ctx, push.ProjectID, push.Branch())
	if err != nil {
		slog.WarnContext(ctx, "could not list open merge requests for pushed branch",
			"error", errors.Join(ErrLookupFailure, err),
			"project_id", push.ProjectID)
		return nil
	}

	var results []*Result
	for _, mr := range mergeRequests {
		mrCtx := logger.WithLogFields(ctx, logger.LogFields{
			EventKind:       logger.Ptr(string(domain.EventKindMergeRequest)),
			MergeRequestIID: logger.Ptr(mr.NoteTarget()),
		})
		result, err := s.schedule(mrCtx, mr, policy)
		if err != nil {
			slog.WarnContext(mrCtx, "could not schedule open merge request", "error", err)
			continue
		}
		results = append(results, result)
	}
	return results
}

// OnBuildStarted returns the description to show on a starting build. When
// the build carries both a push and a merge cause, the merge cause wins.
func (s *Service) OnBuildStarted(causes ...Cause) (string, bool) {
	if !s.Policy().SetBuildDescription {
		return "", false
	}

	var pushDesc, mergeDesc string
	for _, cause := range causes {
		switch c := cause.(type) {
		case PushCause:
			pushDesc = c.ShortDescription()
		case MergeCause:
			mergeDesc = c.ShortDescription()
		}
	}

	if mergeDesc != "" {
		return mergeDesc, true
	}
	return pushDesc, pushDesc != ""
}

// OnBuildCompleted comments on the originating merge request when the build
// was caused by one. It returns the note text. A failed post is logged and
// does not change the outcome.
func (s *Service) OnBuildCompleted(ctx context.Context, cause Cause, result BuildResult, buildURL string) (string, bool) {
	mc, ok := cause.(MergeCause)
	if !ok || mc.Event == nil || !s.Policy().AddNoteOnMergeRequest {
		return "", false
	}

	attrs := mc.Event.ObjectAttributes
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		JobName:         logger.Ptr(s.cfg.JobName),
		MergeRequestIID: logger.Ptr(mc.Event.NoteTarget()),
		Component:       "trigger.service",
	})

	note := MergeRequestNote(s.cfg.ServerName, result, buildURL)

	if s.notes == nil {
		slog.DebugContext(ctx, "no gitlab client configured, merge request note not posted")
		return note, true
	}

	if err := s.notes.PostMergeRequestNote(ctx, attrs.TargetProjectID, mc.Event.NoteTarget(), note); err != nil {
		slog.WarnContext(ctx, "failed to add note on merge request",
			"error", errors.Join(ErrNotePost, err),
			"project_id", attrs.TargetProjectID)
		return note, true
	}

	slog.InfoContext(ctx, "merge request note added", "result", string(result))
	return note, true
}
