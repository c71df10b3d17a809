package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/go-history-context/internal/platform/logging"
)

const (
	// HeaderRequestID is the header name for request ID.
	HeaderRequestID = "X-Request-ID"

	// ContextKeyRequestID is the context key for storing the request ID.
	ContextKeyRequestID = "request_id"
)

// RequestID returns middleware that extracts or generates a request ID.
// The ID is echoed in the response header, stored in the gin context and
// the request context, and added to the context logger.
func RequestID() gin.HandlerFunc {
	return createIDMiddleware(idMiddlewareConfig{
		headerName:       HeaderRequestID,
		contextKey:       ContextKeyRequestID,
		contextEnrichers: enrichers(ContextWithRequestID, logging.WithRequestID),
	})
}

// GetRequestID extracts the request ID from the gin.Context.
// Returns empty string if not set.
func GetRequestID(c *gin.Context) string {
	return getIDFromContext(c, ContextKeyRequestID)
}
