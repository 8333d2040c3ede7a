package logging

import (
	"context"
	"log/slog"

	"screenreview/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldScreenID is the standardized structured logging key for screen queue item identifiers.
	FieldScreenID = "screen_id"
	// FieldScreen is the standardized structured logging key for route/viewport screen labels.
	FieldScreen = "screen"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldBranch is the standardized structured logging key for pipeline branch names.
	FieldBranch = "branch"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldErrorHint carries the operator's suggested next step after a failure.
	FieldErrorHint = "error_hint"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.ScreenIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldScreenID, id))
	}
	if screen, ok := services.ScreenLabelFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldScreen, screen))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
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
	return logger.With(attrsToArgs(fields)...)
}
