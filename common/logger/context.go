package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are attached to every record logged with the enriched context,
// so a trigger evaluation can be followed from webhook to scheduler without
// repeating job or branch at each call site.
type LogFields struct {
	JobName         *string // Job the trigger belongs to
	EventKind       *string // "push" or "merge_request"
	Branch          *string // Resolved source branch
	BuildID         *int64  // Scheduled build
	MergeRequestIID *int64  // Merge request the build reports back to
	MessageID       *string // Redis stream message ID
	Component       string  // e.g. "trigger.service", "trigger.worker.status"
}

// WithLogFields merges fields into ctx. Newer non-empty values win.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields returns the fields stored in ctx, or the zero value.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.JobName != nil {
		result.JobName = next.JobName
	}
	if next.EventKind != nil {
		result.EventKind = next.EventKind
	}
	if next.Branch != nil {
		result.Branch = next.Branch
	}
	if next.BuildID != nil {
		result.BuildID = next.BuildID
	}
	if next.MergeRequestIID != nil {
		result.MergeRequestIID = next.MergeRequestIID
	}
	if next.MessageID != nil {
		result.MessageID = next.MessageID
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr returns a pointer to v, for inline LogFields literals.
func Ptr[T any](v T) *T {
	return &v
}
