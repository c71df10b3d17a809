// Package middleware provides HTTP middleware for the Gin framework and
// net/http handler chains.
package middleware

import "context"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ctxKeyRequestID is the context key for storing request ID in context.Context.
	ctxKeyRequestID contextKey = "request_id"

	// ctxKeyCorrelationID is the context key for storing correlation ID in context.Context.
	ctxKeyCorrelationID contextKey = "correlation_id"

	// ctxKeyIdentity carries the caller identity set by net/http middleware
	// that runs before the history boundary.
	ctxKeyIdentity contextKey = "identity"

	// ctxKeyHistoryRequest carries the *Request decorator.
	ctxKeyHistoryRequest contextKey = "history_request"
)

// RequestIDFromContext extracts the request ID from context.Context.
// Returns empty string if not set or if ctx is nil.
func RequestIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxKeyRequestID)
}

// CorrelationIDFromContext extracts the correlation ID from context.Context.
// Returns empty string if not set or if ctx is nil.
func CorrelationIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxKeyCorrelationID)
}

// ContextWithRequestID stores a request ID in the context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// ContextWithCorrelationID stores a correlation ID in the context.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyCorrelationID, id)
}

// ContextWithIdentity stores the caller identity for net/http chains.
// The history boundary reads it as the initial identity of the request.
func ContextWithIdentity(ctx context.Context, identity any) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, identity)
}

// IdentityFromContext returns the identity stored by ContextWithIdentity, or nil.
func IdentityFromContext(ctx context.Context) any {
	if ctx == nil {
		return nil
	}
	return ctx.Value(ctxKeyIdentity)
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}

	if id, ok := ctx.Value(key).(string); ok {
		return id
	}

	return ""
}
