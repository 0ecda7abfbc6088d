package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Association tuple
	FieldSource      = "source"
	FieldDestination = "destination"
	FieldNamespace   = "namespace"
	FieldType        = "type"
	FieldUnique      = "unique"
	FieldAssocID     = "assoc_id"

	// Entities and users
	FieldEntityID = "entity_id"
	FieldUserID   = "user_id"
	FieldKind     = "kind"

	// Components
	FieldComponent = "component"
	FieldBackend   = "backend"
	FieldSymbol    = "symbol"

	// Operations
	FieldOperation = "operation"
	FieldRequestID = "request_id"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount    = "count"
	FieldLimit    = "limit"
	FieldCached   = "cached"
	FieldActual   = "actual"
	FieldRemoved  = "removed"
	FieldBatchLen = "batch_size"

	// Files and paths
	FieldPath = "path"
)

type contextKey string

const (
	requestIDKey contextKey = "logger_request_id"
	componentKey contextKey = "logger_component"
)

// WithRequestID adds a request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		fields = append(fields, FieldRequestID, requestID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// FromContext returns base enriched with fields carried by ctx.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	engine := assoc.NewEngine(store, logger.ComponentLogger("assoc.engine"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
