package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within
// a context. Fields flow through context enrichment, so business context
// (provider, repository, issue number) is included in every log statement a
// transition emits without threading it by hand.
type LogFields struct {
	Provider     *string // Git host provider ("github", "gitlab")
	RepositoryID *string // Host-specific repository identifier
	IssueNumber  *int    // Tracker issue number within the repository
	EventType    *string // Event type (e.g. "issue.created", "issue.closed")
	ChallengeID  *int64  // Challenge associated with the issue, once known
	MessageID    *string // Redis stream message ID
	RetryCount   *int    // Domain-level retry counter carried on the event
	Component    string  // Component name (e.g. "tcx.processor.statemachine")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking
// precedence. Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.Provider != nil {
		result.Provider = next.Provider
	}
	if next.RepositoryID != nil {
		result.RepositoryID = next.RepositoryID
	}
	if next.IssueNumber != nil {
		result.IssueNumber = next.IssueNumber
	}
	if next.EventType != nil {
		result.EventType = next.EventType
	}
	if next.ChallengeID != nil {
		result.ChallengeID = next.ChallengeID
	}
	if next.MessageID != nil {
		result.MessageID = next.MessageID
	}
	if next.RetryCount != nil {
		result.RetryCount = next.RetryCount
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{IssueNumber: logger.Ptr(n)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if
// truncated. Useful for logging potentially long error bodies.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
