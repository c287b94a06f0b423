package worker_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/trigger/internal/domain"
	"basegraph.app/trigger/internal/model"
	"basegraph.app/trigger/internal/queue"
	"basegraph.app/trigger/internal/trigger"
	"basegraph.app/trigger/internal/worker"
)

func mergeCauseJSON(iid int64) []byte {
	event := &domain.MergeRequestEvent{ObjectAttributes: domain.MergeRequestAttributes{
		ID:              1000 + iid,
		IID:             iid,
		SourceBranch:    "feature",
		TargetBranch:    "master",
		SourceProjectID: 7,
		TargetProjectID: 42,
	}}
	data, err := trigger.EncodeCause(trigger.NewMergeCause(event))
	Expect(err).NotTo(HaveOccurred())
	return data
}

func pushCauseJSON() []byte {
	push := &domain.PushEvent{Ref: "refs/heads/master", UserName: "alice", Commits: []domain.Commit{{ID: "a1b2c3d"}}}
	data, err := trigger.EncodeCause(trigger.NewPushCause(push))
	Expect(err).NotTo(HaveOccurred())
	return data
}

var _ = Describe("StatusProcessor", func() {
	var (
		ctx      context.Context
		builds   *mockBuildStore
		pending  *mockPending
		notes    *mockNotePoster
		triggers *mockTriggers
		proc     *worker.StatusProcessor
		settings trigger.Settings
	)

	newBuild := func(id int64, cause []byte, status model.BuildStatus) *model.Build {
		return &model.Build{
			ID:         id,
			JobName:    "app",
			Cause:      cause,
			Status:     status,
			PendingKey: "trigger:pending:app:abc",
		}
	}

	setup := func(b ...*model.Build) {
		builds = newMockBuildStore(b...)
		svc := trigger.NewService(trigger.Config{JobName: "app"}, trigger.NewPolicy(settings), trigger.Dependencies{Notes: notes})
		DeferCleanup(svc.Close)
		triggers = &mockTriggers{svc: svc}
		proc = worker.NewStatusProcessor(builds, triggers, pending)
	}

	BeforeEach(func() {
		ctx = context.Background()
		pending = &mockPending{}
		notes = &mockNotePoster{}
		settings = trigger.DefaultSettings()
	})

	Describe("started", func() {
		It("sets the merge request description and releases the pending marker", func() {
			setup(newBuild(11, mergeCauseJSON(5), model.BuildStatusQueued))

			err := proc.Process(ctx, queue.Message{ID: "1-0", BuildID: 11, Job: "app", Event: queue.StatusStarted})

			Expect(err).NotTo(HaveOccurred())
			Expect(builds.started).To(Equal([]int64{11}))
			Expect(*builds.builds[11].Description).To(Equal("GitLab Merge Request #5 : feature => master"))
			Expect(pending.calls).To(Equal([]releaseCall{{Key: "trigger:pending:app:abc", Owner: "11"}}))
		})

		It("leaves the description empty when descriptions are disabled", func() {
			settings.SetBuildDescription = false
			setup(newBuild(12, pushCauseJSON(), model.BuildStatusQueued))

			Expect(proc.Process(ctx, queue.Message{BuildID: 12, Event: queue.StatusStarted})).To(Succeed())

			Expect(builds.builds[12].Description).To(BeNil())
			Expect(builds.started).To(HaveLen(1))
		})

		It("ignores a duplicate started event", func() {
			setup(newBuild(13, pushCauseJSON(), model.BuildStatusStarted))

			Expect(proc.Process(ctx, queue.Message{BuildID: 13, Event: queue.StatusStarted})).To(Succeed())

			Expect(builds.started).To(BeEmpty())
			Expect(pending.calls).To(BeEmpty())
		})

		It("skips a build another delivery started after the read", func() {
			setup(newBuild(14, mergeCauseJSON(5), model.BuildStatusQueued))
			builds.afterGet = func(id int64) { builds.setStatus(id, model.BuildStatusStarted) }

			Expect(proc.Process(ctx, queue.Message{BuildID: 14, Event: queue.StatusStarted})).To(Succeed())

			Expect(builds.started).To(BeEmpty())
			Expect(pending.calls).To(BeEmpty())
		})
	})

	Describe("completed", func() {
		It("records the result and notes the merge request", func() {
			setup(newBuild(21, mergeCauseJSON(5), model.BuildStatusStarted))

			err := proc.Process(ctx, queue.Message{
				BuildID:  21,
				Event:    queue.StatusCompleted,
				Result:   "success",
				BuildURL: "https://ci.example.com/job/app/3/",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(*builds.builds[21].Result).To(Equal("SUCCESS"))
			Expect(notes.calls).To(HaveLen(1))
			Expect(notes.calls[0].ProjectID).To(Equal(int64(42)))
			Expect(notes.calls[0].IID).To(Equal(int64(5)))
			Expect(notes.calls[0].Body).To(ContainSubstring("Jenkins Build Success"))
			Expect(pending.calls).To(BeEmpty())
		})

		It("does not note push builds", func() {
			setup(newBuild(22, pushCauseJSON(), model.BuildStatusStarted))

			Expect(proc.Process(ctx, queue.Message{BuildID: 22, Event: queue.StatusCompleted, Result: "FAILURE"})).To(Succeed())

			Expect(builds.completed).To(Equal([]int64{22}))
			Expect(notes.calls).To(BeEmpty())
		})

		It("releases the marker of a build that never started", func() {
			setup(newBuild(23, pushCauseJSON(), model.BuildStatusQueued))

			Expect(proc.Process(ctx, queue.Message{BuildID: 23, Event: queue.StatusCompleted, Result: "ABORTED"})).To(Succeed())

			Expect(pending.calls).To(HaveLen(1))
		})

		It("drops an unknown result", func() {
			setup(newBuild(24, mergeCauseJSON(5), model.BuildStatusStarted))

			Expect(proc.Process(ctx, queue.Message{BuildID: 24, Event: queue.StatusCompleted, Result: "EXPLODED"})).To(Succeed())

			Expect(builds.completed).To(BeEmpty())
			Expect(notes.calls).To(BeEmpty())
		})

		It("does not note twice", func() {
			setup(newBuild(25, mergeCauseJSON(5), model.BuildStatusCompleted))

			Expect(proc.Process(ctx, queue.Message{BuildID: 25, Event: queue.StatusCompleted, Result: "SUCCESS"})).To(Succeed())

			Expect(notes.calls).To(BeEmpty())
		})

		It("does not note when another delivery completed the build after the read", func() {
			setup(newBuild(26, mergeCauseJSON(5), model.BuildStatusQueued))
			builds.afterGet = func(id int64) { builds.setStatus(id, model.BuildStatusCompleted) }

			Expect(proc.Process(ctx, queue.Message{BuildID: 26, Event: queue.StatusCompleted, Result: "SUCCESS"})).To(Succeed())

			Expect(builds.completed).To(BeEmpty())
			Expect(notes.calls).To(BeEmpty())
			Expect(pending.calls).To(BeEmpty())
		})

		It("notes once when the same completion is processed twice", func() {
			setup(newBuild(27, mergeCauseJSON(5), model.BuildStatusStarted))
			msg := queue.Message{BuildID: 27, Event: queue.StatusCompleted, Result: "SUCCESS"}

			Expect(proc.Process(ctx, msg)).To(Succeed())
			Expect(proc.Process(ctx, msg)).To(Succeed())

			Expect(builds.completed).To(Equal([]int64{27}))
			Expect(notes.calls).To(HaveLen(1))
		})
	})

	It("drops events for unknown builds", func() {
		setup()

		Expect(proc.Process(ctx, queue.Message{BuildID: 99, Event: queue.StatusStarted})).To(Succeed())
	})

	It("returns store errors for retry", func() {
		setup()
		builds.getErr = errors.New("connection reset")

		Expect(proc.Process(ctx, queue.Message{BuildID: 1, Event: queue.StatusStarted})).To(MatchError(ContainSubstring("loading build")))
	})

	It("returns trigger lookup errors for retry", func() {
		setup(newBuild(31, pushCauseJSON(), model.BuildStatusQueued))
		triggers.err = errors.New("job gone")

		Expect(proc.Process(ctx, queue.Message{BuildID: 31, Event: queue.StatusStarted})).To(HaveOccurred())
		Expect(builds.started).To(BeEmpty())
	})

	It("rejects unknown events", func() {
		setup(newBuild(32, pushCauseJSON(), model.BuildStatusQueued))

		Expect(proc.Process(ctx, queue.Message{BuildID: 32, Event: queue.StatusEvent("paused")})).To(MatchError(ContainSubstring("unknown status event")))
	})
})
