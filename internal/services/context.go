package services

import "context"

type contextKey string

const (
	screenIDKey    contextKey = "screen_id"
	screenLabelKey contextKey = "screen"
	stageKey       contextKey = "stage"
	requestIDKey   contextKey = "request_id"
)

// WithScreenID annotates context with the queue item identifier of a screen.
func WithScreenID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, screenIDKey, id)
}

// ScreenIDFromContext extracts the screen queue item identifier if present.
func ScreenIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(screenIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithScreenLabel annotates context with the route/viewport screen label.
func WithScreenLabel(ctx context.Context, label string) context.Context {
	if label == "" {
		return ctx
	}
	return context.WithValue(ctx, screenLabelKey, label)
}

// ScreenLabelFromContext returns the screen label if present.
func ScreenLabelFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(screenLabelKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
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
