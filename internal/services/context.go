package services

import "context"

type contextKey string

const (
	itemKey      contextKey = "item"
	stageKey     contextKey = "stage"
	loopKey      contextKey = "loop"
	requestIDKey contextKey = "request_id"
)

// WithItem annotates context with the external identifier of the item being processed.
func WithItem(ctx context.Context, externalID string) context.Context {
	if externalID == "" {
		return ctx
	}
	return context.WithValue(ctx, itemKey, externalID)
}

// ItemFromContext extracts the item identifier if present.
func ItemFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(itemKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the operation stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithLoop annotates context with the background loop name (queue, poller, scanner).
func WithLoop(ctx context.Context, loop string) context.Context {
	if loop == "" {
		return ctx
	}
	return context.WithValue(ctx, loopKey, loop)
}

// LoopFromContext returns the loop name if present.
func LoopFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(loopKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
