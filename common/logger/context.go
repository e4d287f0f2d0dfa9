package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs
// within a context. The monitor enriches the per-source context once and
// every log line below it (fetch, detect, classify, persist) carries the
// run and source identity without touching each call site.
type LogFields struct {
	RunID        *int64  // Monitor run ID
	SourceID     *string // Registry source ID (slug)
	Jurisdiction *string // Human-readable jurisdiction label
	AlertID      *int64  // Alert ID, once one has been emitted
	Component    string  // Component name (e.g. "sentinel.monitor", "sentinel.classifier")
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

	if next.RunID != nil {
		result.RunID = next.RunID
	}
	if next.SourceID != nil {
		result.SourceID = next.SourceID
	}
	if next.Jurisdiction != nil {
		result.Jurisdiction = next.Jurisdiction
	}
	if next.AlertID != nil {
		result.AlertID = next.AlertID
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value, for setting LogFields
// inline: logger.WithLogFields(ctx, logger.LogFields{RunID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}
