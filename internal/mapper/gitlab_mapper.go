package mapper

import (
	"encoding/json"
	"errors"
	"fmt"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"basegraph.app/trigger/internal/domain"
)

// ErrUnsupportedEvent is returned for hooks a trigger does not react to.
var ErrUnsupportedEvent = errors.New("unsupported gitlab event")

// EventMapper turns a raw GitLab hook into a domain event.
type EventMapper interface {
	Map(eventType gitlab.EventType, body []byte) (domain.Event, error)
}

type GitLabEventMapper struct{}

func NewGitLabEventMapper() *GitLabEventMapper {
	return &GitLabEventMapper{}
}

// Map parses body as eventType. When the header is missing the body's
// object_kind decides.
func (m *GitLabEventMapper) Map(eventType gitlab.EventType, body []byte) (domain.Event, error) {
	if eventType == "" {
		eventType = eventTypeFromObjectKind(body)
	}

	switch eventType {
	case gitlab.EventTypePush, gitlab.EventTypeMergeRequest:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEvent, eventType)
	}

	parsed, err := gitlab.ParseWebhook(eventType, body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s payload: %w", eventType, err)
	}

	switch e := parsed.(type) {
	case *gitlab.PushEvent:
		return mapPushEvent(e), nil
	case *gitlab.MergeEvent:
		return mapMergeEvent(e), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedEvent, parsed)
	}
}

func mapPushEvent(e *gitlab.PushEvent) *domain.PushEvent {
	push := &domain.PushEvent{
		Ref:       e.Ref,
		UserName:  e.UserName,
		ProjectID: e.ProjectID,
		Commits:   make([]domain.Commit, 0, len(e.Commits)),
	}
	for _, c := range e.Commits {
		if c == nil {
			continue
		}
		push.Commits = append(push.Commits, domain.Commit{ID: c.ID, Message: c.Message})
	}
	return push
}

func mapMergeEvent(e *gitlab.MergeEvent) *domain.MergeRequestEvent {
	attrs := e.ObjectAttributes
	return &domain.MergeRequestEvent{ObjectAttributes: domain.MergeRequestAttributes{
		ID:              attrs.ID,
		IID:             attrs.IID,
		SourceBranch:    attrs.SourceBranch,
		TargetBranch:    attrs.TargetBranch,
		SourceProjectID: attrs.SourceProjectID,
		TargetProjectID: attrs.TargetProjectID,
	}}
}

func eventTypeFromObjectKind(body []byte) gitlab.EventType {
	var payload struct {
		ObjectKind string `json:"object_kind"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	switch payload.ObjectKind {
	case "push":
		return gitlab.EventTypePush
	case "merge_request":
		return gitlab.EventTypeMergeRequest
	}
	return ""
}
