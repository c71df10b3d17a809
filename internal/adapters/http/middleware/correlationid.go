package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/go-history-context/internal/platform/logging"
)

const (
	// HeaderCorrelationID is the header name for correlation ID.
	// Unlike request ID, it spans a whole business transaction across services.
	HeaderCorrelationID = "X-Correlation-ID"

	// ContextKeyCorrelationID is the context key for storing the correlation ID.
	ContextKeyCorrelationID = "correlation_id"
)

// CorrelationID returns middleware that propagates the correlation ID from
// the X-Correlation-ID header, or starts a new one.
func CorrelationID() gin.HandlerFunc {
	return createIDMiddleware(idMiddlewareConfig{
		headerName:       HeaderCorrelationID,
		contextKey:       ContextKeyCorrelationID,
		contextEnrichers: enrichers(ContextWithCorrelationID, logging.WithCorrelationID),
	})
}

// GetCorrelationID extracts the correlation ID from the gin.Context.
// Returns empty string if not set.
func GetCorrelationID(c *gin.Context) string {
	return getIDFromContext(c, ContextKeyCorrelationID)
}

func enrichers(fns ...func(context.Context, string) context.Context) []func(context.Context, string) context.Context {
	return fns
}
