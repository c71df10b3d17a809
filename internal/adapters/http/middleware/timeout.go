package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/go-history-context/internal/adapters/http/dto"
	"github.com/jsamuelsen/go-history-context/internal/platform/logging"
)

// Timeout returns middleware that runs the rest of the chain under a
// deadline and answers 503 when it expires. Paths in skipPaths run without
// a deadline.
//
// The chain keeps running in its own goroutine after a timeout; handlers
// must respect ctx.Done(). Scopes opened downstream are released when that
// goroutine returns, not when the 503 is written.
func Timeout(timeout time.Duration, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		done := make(chan struct{})
		go func() {
			defer close(done)
			c.Next()
		}()

		select {
		case <-done:
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				handleTimeout(c, timeout)
			}
		}
	}
}

// handleTimeout logs the timeout and responds with an error.
func handleTimeout(c *gin.Context, timeout time.Duration) {
	ctx := c.Request.Context()
	traceID := traceIDFromContext(ctx)

	logging.FromContext(ctx).Warn("request timeout",
		slog.String("path", c.Request.URL.Path),
		slog.String("method", c.Request.Method),
		slog.Duration("timeout", timeout),
		slog.String("trace_id", traceID),
	)

	errResp := dto.NewErrorResponse(dto.ErrorCodeTimeout, "request timeout exceeded")
	errResp.TraceID = traceID

	if c.Writer.Written() {
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, errResp)
}

// SimpleTimeout only sets the context deadline; handlers check ctx.Done()
// themselves. The chain stays on the serving goroutine.
func SimpleTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
