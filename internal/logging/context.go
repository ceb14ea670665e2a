package logging

import (
	"context"
	"log/slog"

	"mangadrop/internal/services"
)

const (
	// FieldComponent is the structured logging key for component names.
	FieldComponent = "component"
	// FieldBatchID identifies one checkout or flush run.
	FieldBatchID = "batch_id"
	// FieldUnit names the volume or chapter being processed (e.g. "3" or "3-12").
	FieldUnit = "unit"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for an operator.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldDecisionType names the routing or selection decision being logged.
	FieldDecisionType = "decision_type"
	// FieldErrorKind is the services error classification.
	FieldErrorKind = "error_kind"
	// FieldAlert flags warnings that should stand out in structured logs.
	FieldAlert = "alert"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := services.BatchIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldBatchID, id))
	}
	if unit, ok := services.UnitFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldUnit, unit))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
