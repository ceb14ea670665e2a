package services

import "context"

type contextKey string

const (
	batchIDKey contextKey = "batch_id"
	unitKey    contextKey = "unit"
)

// WithBatchID annotates context with the checkout batch identifier.
func WithBatchID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromContext extracts the batch identifier if present.
func BatchIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(batchIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithUnit annotates context with the title of the volume or chapter being
// assembled.
func WithUnit(ctx context.Context, unit string) context.Context {
	if unit == "" {
		return ctx
	}
	return context.WithValue(ctx, unitKey, unit)
}

// UnitFromContext returns the unit title if present.
func UnitFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(unitKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
