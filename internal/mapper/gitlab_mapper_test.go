package mapper_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	"basegraph.app/trigger/internal/domain"
	"basegraph.app/trigger/internal/mapper"
)

const pushPayload = `{
	"object_kind": "push",
	"ref": "refs/heads/feature-x",
	"user_name": "alice",
	"project_id": 42,
	"commits": [
		{"id": "a1", "message": "first"},
		{"id": "b2", "message": "WIP: second"}
	]
}`

const mergeRequestPayload = `{
	"object_kind": "merge_request",
	"object_attributes": {
		"id": 1005,
		"iid": 5,
		"source_branch": "feature",
		"target_branch": "main",
		"source_project_id": 7,
		"target_project_id": 42
	}
}`

var _ = Describe("GitLabEventMapper", func() {
	var m mapper.EventMapper

	BeforeEach(func() {
		m = mapper.NewGitLabEventMapper()
	})

	It("maps a push hook", func() {
		event, err := m.Map(gitlab.EventTypePush, []byte(pushPayload))
		Expect(err).NotTo(HaveOccurred())

		push, ok := event.(*domain.PushEvent)
		Expect(ok).To(BeTrue())
		Expect(push.Ref).To(Equal("refs/heads/feature-x"))
		Expect(push.UserName).To(Equal("alice"))
		Expect(push.ProjectID).To(Equal(int64(42)))
		Expect(push.Commits).To(Equal([]domain.Commit{
			{ID: "a1", Message: "first"},
			{ID: "b2", Message: "WIP: second"},
		}))
	})

	It("maps a merge request hook", func() {
		event, err := m.Map(gitlab.EventTypeMergeRequest, []byte(mergeRequestPayload))
		Expect(err).NotTo(HaveOccurred())

		mr, ok := event.(*domain.MergeRequestEvent)
		Expect(ok).To(BeTrue())
		Expect(mr.ObjectAttributes).To(Equal(domain.MergeRequestAttributes{
			ID:              1005,
			IID:             5,
			SourceBranch:    "feature",
			TargetBranch:    "main",
			SourceProjectID: 7,
			TargetProjectID: 42,
		}))
	})

	It("falls back to object_kind without a header", func() {
		event, err := m.Map("", []byte(mergeRequestPayload))
		Expect(err).NotTo(HaveOccurred())
		Expect(event.Kind()).To(Equal(domain.EventKindMergeRequest))
	})

	It("maps a branch creation to a push without commits", func() {
		event, err := m.Map(gitlab.EventTypePush, []byte(`{"object_kind":"push","ref":"refs/heads/new","commits":[]}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(event.(*domain.PushEvent).Commits).To(BeEmpty())
	})

	It("rejects other hooks", func() {
		_, err := m.Map(gitlab.EventTypeIssue, []byte(`{"object_kind":"issue"}`))
		Expect(err).To(MatchError(mapper.ErrUnsupportedEvent))
	})

	It("rejects a payload it cannot parse", func() {
		_, err := m.Map(gitlab.EventTypePush, []byte(`{`))
		Expect(err).To(HaveOccurred())
		Expect(err).NotTo(MatchError(mapper.ErrUnsupportedEvent))
	})
})
