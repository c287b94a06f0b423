package service_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/trigger/internal/domain"
	"basegraph.app/trigger/internal/model"
	"basegraph.app/trigger/internal/service"
	"basegraph.app/trigger/internal/trigger"
)

var _ = Describe("Registry", func() {
	var (
		ctx       context.Context
		jobs      *mockJobStore
		scheduler *mockScheduler
		registry  *service.Registry
	)

	push := func(ref string) *domain.PushEvent {
		return &domain.PushEvent{Ref: ref, UserName: "alice", Commits: []domain.Commit{{ID: "abc", Message: "fix"}}}
	}

	BeforeEach(func() {
		ctx = context.Background()
		svnJob := gitJob("legacy")
		svnJob.SCM = "svn"
		quietJob := gitJob("slow")
		quietJob.QuietPeriodSeconds = 60

		jobs = newMockJobStore(gitJob("app"), svnJob, quietJob)
		scheduler = &mockScheduler{}
		registry = service.NewRegistry(
			service.RegistryConfig{QuietPeriod: 5 * time.Second, ServerName: "Jenkins"},
			service.RegistryDeps{Jobs: jobs, Scheduler: scheduler},
		)
		DeferCleanup(registry.Close)
	})

	It("reuses one trigger per job", func() {
		first, err := registry.Service(ctx, "app")
		Expect(err).NotTo(HaveOccurred())
		second, err := registry.Service(ctx, "app")
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(BeIdenticalTo(first))
		Expect(first.JobName()).To(Equal("app"))
		Expect(jobs.getCalls).To(Equal(1))
	})

	It("picks up settings stored by another process when reloading", func() {
		reloading := service.NewRegistry(
			service.RegistryConfig{ReloadPolicy: true},
			service.RegistryDeps{Jobs: jobs},
		)
		DeferCleanup(reloading.Close)

		first, err := reloading.Service(ctx, "app")
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Policy().SetBuildDescription).To(BeTrue())

		settings := trigger.DefaultSettings()
		settings.SetBuildDescription = false
		Expect(jobs.UpdateSettings(ctx, "app", settings)).To(Succeed())

		second, err := reloading.Service(ctx, "app")
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(BeIdenticalTo(first))
		Expect(second.Policy().SetBuildDescription).To(BeFalse())
	})

	It("does not hold other jobs behind a slow job lookup", func() {
		gate := make(chan struct{})
		jobs.gates["slow"] = gate
		slowDone := make(chan error, 1)
		go func() {
			_, err := registry.Service(ctx, "slow")
			slowDone <- err
		}()

		fast := make(chan error, 1)
		go func() {
			_, err := registry.Service(ctx, "app")
			fast <- err
		}()
		Eventually(fast).Should(Receive(BeNil()))
		Consistently(slowDone, 50*time.Millisecond).ShouldNot(Receive())

		close(gate)
		Eventually(slowDone).Should(Receive(BeNil()))
	})

	It("hands concurrent first lookups the same trigger", func() {
		gate := make(chan struct{})
		jobs.gates["app"] = gate

		results := make(chan *trigger.Service, 4)
		for range 4 {
			go func() {
				defer GinkgoRecover()
				svc, err := registry.Service(ctx, "app")
				Expect(err).NotTo(HaveOccurred())
				results <- svc
			}()
		}
		close(gate)

		var first *trigger.Service
		Eventually(results).Should(Receive(&first))
		for range 3 {
			var next *trigger.Service
			Eventually(results).Should(Receive(&next))
			Expect(next).To(BeIdenticalTo(first))
		}
	})

	It("rejects unknown jobs", func() {
		_, err := registry.Handle(ctx, "missing", push("refs/heads/main"))
		Expect(err).To(MatchError(service.ErrJobNotFound))
	})

	It("schedules with the job's quiet period", func() {
		_, err := registry.Handle(ctx, "app", push("refs/heads/main"))
		Expect(err).NotTo(HaveOccurred())
		_, err = registry.Handle(ctx, "slow", push("refs/heads/main"))
		Expect(err).NotTo(HaveOccurred())

		Expect(scheduler.jobs).To(Equal([]string{"app", "slow"}))
		Expect(scheduler.quiet).To(Equal([]time.Duration{5 * time.Second, time.Minute}))
	})

	It("surfaces a job that is not built from git", func() {
		_, err := registry.Handle(ctx, "legacy", push("refs/heads/main"))
		Expect(err).To(MatchError(trigger.ErrConfiguration))
		Expect(scheduler.jobs).To(BeEmpty())
	})

	It("applies a new policy to a running trigger", func() {
		_, err := registry.Service(ctx, "app")
		Expect(err).NotTo(HaveOccurred())

		settings := trigger.DefaultSettings()
		settings.TriggerOnPush = false
		_, err = registry.Reconfigure(ctx, "app", settings)
		Expect(err).NotTo(HaveOccurred())

		result, err := registry.Handle(ctx, "app", push("refs/heads/main"))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Outcome).To(Equal(trigger.OutcomeSkipped))

		stored, err := jobs.GetByName(ctx, "app")
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Settings.TriggerOnPush).To(BeFalse())
	})

	It("reports reconfiguring an unknown job", func() {
		_, err := registry.Reconfigure(ctx, "missing", trigger.DefaultSettings())
		Expect(err).To(MatchError(service.ErrJobNotFound))
	})

	It("rejects events after Close", func() {
		registry.Close()
		_, err := registry.Handle(ctx, "app", push("refs/heads/main"))
		Expect(err).To(MatchError(trigger.ErrQueueStopped))
	})
})

var _ = Describe("RepoDefaults", func() {
	It("returns the job repository", func() {
		repo, err := service.RepoDefaults(gitJob("app"))
		Expect(err).NotTo(HaveOccurred())
		Expect(repo).To(Equal(trigger.RepoInfo{Name: "group/app", URL: "git@gitlab.example.com:group/app.git"}))
	})

	It("requires git", func() {
		_, err := service.RepoDefaults(&model.Job{Name: "x", SCM: "svn", RepoURL: "svn://x"})
		Expect(err).To(MatchError(trigger.ErrConfiguration))
	})

	It("requires a repository url", func() {
		_, err := service.RepoDefaults(&model.Job{Name: "x", SCM: model.SCMGit})
		Expect(err).To(MatchError(trigger.ErrConfiguration))
	})
})
