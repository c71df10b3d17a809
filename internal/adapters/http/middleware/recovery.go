package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/go-history-context/internal/adapters/http/dto"
	"github.com/jsamuelsen/go-history-context/internal/platform/logging"
)

// Recovery returns middleware that recovers from panics, logs them with the
// stack trace and responds 500 with the standard error envelope.
//
// Apply it first so it catches panics from every later middleware,
// including history scope nesting violations.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			ctx := c.Request.Context()
			traceID := traceIDFromContext(ctx)

			logging.FromContext(ctx).Error("panic recovered",
				slog.Any("error", r),
				slog.String("stack", string(debug.Stack())),
				slog.String("path", c.Request.URL.Path),
				slog.String("method", c.Request.Method),
				slog.String("trace_id", traceID),
			)

			errResp := dto.NewErrorResponse(dto.ErrorCodeInternal, "an internal error occurred")
			errResp.TraceID = traceID

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, errResp)
		}()

		c.Next()
	}
}
