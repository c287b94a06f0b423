package trigger

import (
	"encoding/json"
	"fmt"

	"basegraph.app/trigger/internal/domain"
)

type CauseKind string

const (
	CauseKindPush         CauseKind = "push"
	CauseKindMergeRequest CauseKind = "merge_request"
)

// Cause explains why a build was scheduled. Only PushCause and MergeCause
// implement it.
type Cause interface {
	Kind() CauseKind
	ShortDescription() string
	isCause()
}

// PushCause is recorded on builds started by a branch push.
type PushCause struct {
	Branch      string
	description string
}

// NewPushCause describes push as "branch <b>: branch created" for a push
// without commits, or "branch <b>: by user <u>" otherwise.
func NewPushCause(push *domain.PushEvent) PushCause {
	branch := push.Branch()

	text := fmt.Sprintf("branch %s: ", branch)
	switch {
	case len(push.Commits) == 0:
		text += "branch created"
	case push.UserName != "":
		text += "by user " + push.UserName
	default:
		text += "by user"
	}

	return newPushCause(branch, text)
}

func newPushCause(branch, text string) PushCause {
	description := "Started by GitLab push"
	if text != "" {
		description = "Started by GitLab push to " + text
	}
	return PushCause{Branch: branch, description: description}
}

func (PushCause) Kind() CauseKind { return CauseKindPush }
func (PushCause) isCause()        {}

func (c PushCause) ShortDescription() string {
	if c.description == "" {
		return "Started by GitLab push"
	}
	return c.description
}

// MergeCause is recorded on builds started by a merge request. It keeps the
// originating event so completion can comment on the merge request.
type MergeCause struct {
	Event       *domain.MergeRequestEvent
	description string
}

func NewMergeCause(event *domain.MergeRequestEvent) MergeCause {
	attrs := event.ObjectAttributes
	return MergeCause{
		Event:       event,
		description: fmt.Sprintf("GitLab Merge Request #%d : %s => %s", attrs.IID, attrs.SourceBranch, attrs.TargetBranch),
	}
}

func (MergeCause) Kind() CauseKind { return CauseKindMergeRequest }
func (MergeCause) isCause()        {}

func (c MergeCause) ShortDescription() string {
	return c.description
}

// NewCause builds the cause matching event's kind.
func NewCause(event domain.Event) (Cause, error) {
	switch e := event.(type) {
	case *domain.PushEvent:
		return NewPushCause(e), nil
	case *domain.MergeRequestEvent:
		return NewMergeCause(e), nil
	default:
		return nil, fmt.Errorf("unsupported event %T", event)
	}
}

type causeEnvelope struct {
	Kind         CauseKind           `json:"kind"`
	Description  string              `json:"description"`
	Branch       string              `json:"branch,omitempty"`
	MergeRequest *mergeRequestRecord `json:"merge_request,omitempty"`
}

type mergeRequestRecord struct {
	ID              int64  `json:"id"`
	IID             int64  `json:"iid"`
	SourceBranch    string `json:"source_branch"`
	TargetBranch    string `json:"target_branch"`
	SourceProjectID int64  `json:"source_project_id"`
	TargetProjectID int64  `json:"target_project_id"`
}

// EncodeCause serializes a cause for the build queue and the build store.
func EncodeCause(cause Cause) ([]byte, error) {
	env := causeEnvelope{
		Kind:        cause.Kind(),
		Description: cause.ShortDescription(),
	}

	switch c := cause.(type) {
	case PushCause:
		env.Branch = c.Branch
	case MergeCause:
		if c.Event == nil {
			return nil, fmt.Errorf("merge cause without event")
		}
		attrs := c.Event.ObjectAttributes
		env.Branch = attrs.SourceBranch
		env.MergeRequest = &mergeRequestRecord{
			ID:              attrs.ID,
			IID:             attrs.IID,
			SourceBranch:    attrs.SourceBranch,
			TargetBranch:    attrs.TargetBranch,
			SourceProjectID: attrs.SourceProjectID,
			TargetProjectID: attrs.TargetProjectID,
		}
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal cause: %w", err)
	}
	return data, nil
}

// DecodeCause restores a cause written by EncodeCause. The stored
// description is kept as is.
func DecodeCause(data []byte) (Cause, error) {
	var env causeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal cause: %w", err)
	}

	switch env.Kind {
	case CauseKindPush:
		return PushCause{Branch: env.Branch, description: env.Description}, nil
	case CauseKindMergeRequest:
		if env.MergeRequest == nil {
			return nil, fmt.Errorf("merge request cause without merge request")
		}
		mr := env.MergeRequest
		return MergeCause{
			Event: &domain.MergeRequestEvent{ObjectAttributes: domain.MergeRequestAttributes{
				ID:              mr.ID,
				IID:             mr.IID,
				SourceBranch:    mr.SourceBranch,
				TargetBranch:    mr.TargetBranch,
				SourceProjectID: mr.SourceProjectID,
				TargetProjectID: mr.TargetProjectID,
			}},
			description: env.Description,
		}, nil
	default:
		return nil, fmt.Errorf("unknown cause kind %q", env.Kind)
	}
}
