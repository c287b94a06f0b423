package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"basegraph.app/trigger/internal/domain"
	"basegraph.app/trigger/internal/model"
	"basegraph.app/trigger/internal/store"
	"basegraph.app/trigger/internal/trigger"
)

var ErrJobNotFound = errors.New("job not found")

type RegistryConfig struct {
	QuietPeriod   time.Duration
	ServerName    string
	LookupTimeout time.Duration

	// ReloadPolicy re-reads the stored settings whenever a cached trigger is
	// looked up. Processes that do not receive policy updates directly set it.
	ReloadPolicy bool
}

// RegistryDeps are shared by every job's trigger. Resolver, Notes and
// OpenMergeRequests are nil when no GitLab host is configured.
type RegistryDeps struct {
	Jobs              store.JobStore
	Scheduler         trigger.Scheduler
	Resolver          trigger.SourceProjectResolver
	Notes             trigger.NotePoster
	OpenMergeRequests trigger.OpenMergeRequestFinder
}

// Registry owns one trigger service, and so one sequential queue, per job.
// Services are created on first use from the stored job.
type Registry struct {
	cfg  RegistryConfig
	deps RegistryDeps

	mu       sync.Mutex
	services map[string]*trigger.Service
	closed   bool
}

func NewRegistry(cfg RegistryConfig, deps RegistryDeps) *Registry {
	return &Registry{
		cfg:      cfg,
		deps:     deps,
		services: make(map[string]*trigger.Service),
	}
}

// Service returns the trigger of job. The job is loaded without holding the
// registry lock, so a slow lookup for one job does not hold up the others.
func (r *Registry) Service(ctx context.Context, job string) (*trigger.Service, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, trigger.ErrQueueStopped
	}
	svc, cached := r.services[job]
	r.mu.Unlock()

	if cached && !r.cfg.ReloadPolicy {
		return svc, nil
	}

	stored, err := r.deps.Jobs.GetByName(ctx, job)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, job)
		}
		return nil, fmt.Errorf("loading job %s: %w", job, err)
	}

	if cached {
		svc.Reconfigure(trigger.NewPolicy(stored.Settings))
		return svc, nil
	}

	created := r.newService(stored)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		created.Close()
		return nil, trigger.ErrQueueStopped
	}
	if existing, ok := r.services[job]; ok {
		// Another lookup for the same job won; its queue must stay the only one.
		r.mu.Unlock()
		created.Close()
		return existing, nil
	}
	r.services[job] = created
	r.mu.Unlock()

	slog.InfoContext(ctx, "trigger started for job", "job", job)
	return created, nil
}

func (r *Registry) newService(stored *model.Job) *trigger.Service {
	return trigger.NewService(
		trigger.Config{
			JobName:     stored.Name,
			QuietPeriod: stored.QuietPeriod(r.cfg.QuietPeriod),
			ServerName:  r.cfg.ServerName,
		},
		trigger.NewPolicy(stored.Settings),
		trigger.Dependencies{
			Requests:          trigger.NewRequestBuilder(jobRepoDefaults{jobs: r.deps.Jobs, name: stored.Name}, r.deps.Resolver, r.cfg.LookupTimeout),
			Scheduler:         r.deps.Scheduler,
			Notes:             r.deps.Notes,
			OpenMergeRequests: r.deps.OpenMergeRequests,
		},
	)
}

// Handle routes event to the trigger of job.
func (r *Registry) Handle(ctx context.Context, job string, event domain.Event) (*trigger.Result, error) {
	svc, err := r.Service(ctx, job)
	if err != nil {
		return nil, err
	}
	return svc.Handle(ctx, event)
}

// Reconfigure persists settings and applies them to later events of job.
func (r *Registry) Reconfigure(ctx context.Context, job string, settings trigger.Settings) (trigger.Policy, error) {
	if err := r.deps.Jobs.UpdateSettings(ctx, job, settings); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return trigger.Policy{}, fmt.Errorf("%w: %s", ErrJobNotFound, job)
		}
		return trigger.Policy{}, fmt.Errorf("saving settings of job %s: %w", job, err)
	}

	policy := trigger.NewPolicy(settings)

	r.mu.Lock()
	svc, ok := r.services[job]
	r.mu.Unlock()
	if ok {
		svc.Reconfigure(policy)
	}

	slog.InfoContext(ctx, "trigger policy updated", "job", job)
	return policy, nil
}

// Forget drops the cached trigger of job so the next event reloads it.
func (r *Registry) Forget(job string) {
	r.mu.Lock()
	svc, ok := r.services[job]
	delete(r.services, job)
	r.mu.Unlock()

	if ok {
		svc.Close()
	}
}

// Close stops every trigger. Running evaluations finish first.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	services := r.services
	r.services = make(map[string]*trigger.Service)
	r.mu.Unlock()

	for _, svc := range services {
		svc.Close()
	}
}
