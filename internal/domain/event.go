package domain

import "strings"

// BranchRefPrefix prefixes the ref of every branch push.
const BranchRefPrefix = "refs/heads/"

// EventKind names the two events a trigger reacts to.
type EventKind string

const (
	EventKindPush         EventKind = "push"
	EventKindMergeRequest EventKind = "merge_request"
)

// Event is implemented by *PushEvent and *MergeRequestEvent only.
type Event interface {
	Kind() EventKind
	isEvent()
}

type Commit struct {
	ID      string
	Message string
}

// PushEvent is a parsed GitLab push hook.
type PushEvent struct {
	Ref       string
	Commits   []Commit
	UserName  string
	ProjectID int64
}

func (*PushEvent) Kind() EventKind { return EventKindPush }
func (*PushEvent) isEvent()        {}

// LastCommit returns the head commit of the push. A push that only creates a
// branch carries no commits.
func (e *PushEvent) LastCommit() (Commit, bool) {
	if len(e.Commits) == 0 {
		return Commit{}, false
	}
	return e.Commits[len(e.Commits)-1], true
}

// Branch strips a single leading "refs/heads/". Occurrences later in the name are kept.
func (e *PushEvent) Branch() string {
	return strings.TrimPrefix(e.Ref, BranchRefPrefix)
}

type MergeRequestAttributes struct {
	ID              int64
	IID             int64
	SourceBranch    string
	TargetBranch    string
	SourceProjectID int64
	TargetProjectID int64
}

// MergeRequestEvent is a parsed GitLab merge request hook.
type MergeRequestEvent struct {
	ObjectAttributes MergeRequestAttributes
}

func (*MergeRequestEvent) Kind() EventKind { return EventKindMergeRequest }
func (*MergeRequestEvent) isEvent()        {}

// NoteTarget returns the merge request number to comment on. Hooks from
// GitLab carry the project-scoped iid; the global id is only a fallback for
// events built by hand.
func (e *MergeRequestEvent) NoteTarget() int64 {
	if e.ObjectAttributes.IID != 0 {
		return e.ObjectAttributes.IID
	}
	return e.ObjectAttributes.ID
}

// SourceBranch resolves the branch a build should check out.
func SourceBranch(event Event) string {
	switch e := event.(type) {
	case *PushEvent:
		return e.Branch()
	case *MergeRequestEvent:
		return e.ObjectAttributes.SourceBranch
	default:
		return ""
	}
}
