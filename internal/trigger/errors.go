package trigger

import "errors"

var (
	// ErrConfiguration means the job cannot provide repository defaults, for
	// example because it is not backed by git. It is not retried.
	ErrConfiguration = errors.New("trigger configuration error")

	// ErrLookupFailure wraps a failed source project lookup. The request
	// builder recovers from it with the job defaults.
	ErrLookupFailure = errors.New("source project lookup failed")

	// ErrNotePost wraps a failed merge request note. It never reaches the build result.
	ErrNotePost = errors.New("posting merge request note failed")

	// ErrMissingRevision is returned when a revision is requested for a push
	// that carries no commits (a branch creation).
	ErrMissingRevision = errors.New("push carries no commits to build")

	// ErrQueueStopped is returned when an event arrives after the service was closed.
	ErrQueueStopped = errors.New("trigger queue stopped")
)
