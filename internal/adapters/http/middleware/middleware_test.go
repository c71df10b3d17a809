package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/go-history-context/internal/platform/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// withLogger installs a context logger writing JSON into buf.
func withLogger(buf *bytes.Buffer) gin.HandlerFunc {
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))
		c.Next()
	}
}

func TestIDMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		middleware gin.HandlerFunc
		header     string
		fromGin    func(*gin.Context) string
		fromCtx    func(*gin.Context) string
		existing   string
	}{
		{
			name:       "request id generated",
			middleware: RequestID(),
			header:     HeaderRequestID,
			fromGin:    GetRequestID,
			fromCtx:    func(c *gin.Context) string { return RequestIDFromContext(c.Request.Context()) },
		},
		{
			name:       "request id passed through",
			middleware: RequestID(),
			header:     HeaderRequestID,
			fromGin:    GetRequestID,
			fromCtx:    func(c *gin.Context) string { return RequestIDFromContext(c.Request.Context()) },
			existing:   "req-123",
		},
		{
			name:       "correlation id generated",
			middleware: CorrelationID(),
			header:     HeaderCorrelationID,
			fromGin:    GetCorrelationID,
			fromCtx:    func(c *gin.Context) string { return CorrelationIDFromContext(c.Request.Context()) },
		},
		{
			name:       "correlation id passed through",
			middleware: CorrelationID(),
			header:     HeaderCorrelationID,
			fromGin:    GetCorrelationID,
			fromCtx:    func(c *gin.Context) string { return CorrelationIDFromContext(c.Request.Context()) },
			existing:   "corr-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var ginID, ctxID string

			router := gin.New()
			router.Use(tt.middleware)
			router.GET("/test", func(c *gin.Context) {
				ginID = tt.fromGin(c)
				ctxID = tt.fromCtx(c)
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.existing != "" {
				req.Header.Set(tt.header, tt.existing)
			}
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, w.Header().Get(tt.header), ginID)
			assert.Equal(t, ginID, ctxID)

			if tt.existing != "" {
				assert.Equal(t, tt.existing, ginID)
			} else {
				_, err := uuid.Parse(ginID)
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetIDFromContext(t *testing.T) {
	t.Parallel()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, getIDFromContext(c, "missing"))

	c.Set("number", 42)
	assert.Empty(t, getIDFromContext(c, "number"))

	c.Set("id", "abc")
	assert.Equal(t, "abc", getIDFromContext(c, "id"))
}

func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		path      string
		status    int
		skip      []string
		wantLevel string
		logged    bool
	}{
		{"ok request", "/api/items?limit=1", http.StatusOK, nil, "INFO", true},
		{"client error", "/api/items", http.StatusBadRequest, nil, "WARN", true},
		{"server error", "/api/items", http.StatusInternalServerError, nil, "ERROR", true},
		{"health path", "/-/live", http.StatusOK, nil, "", false},
		{"skipped path", "/metrics", http.StatusOK, []string{"/metrics"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			router := gin.New()
			router.Use(withLogger(&buf), Logging(tt.skip...))
			router.NoRoute(func(c *gin.Context) { c.Status(tt.status) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, w.Code)
			if !tt.logged {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), `"msg":"request started"`)
			assert.Contains(t, buf.String(), `"level":"`+tt.wantLevel+`","msg":"request completed"`)
			assert.Contains(t, buf.String(), tt.path)
		})
	}
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	t.Run("normal request passes through", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Recovery())
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("panicking handler returns 500 and logs", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		router := gin.New()
		router.Use(withLogger(&buf), Recovery())
		router.GET("/test", func(*gin.Context) { panic("something went wrong") })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
		assert.Contains(t, buf.String(), "panic recovered")
		assert.Contains(t, buf.String(), "something went wrong")
	})

	t.Run("panic after write keeps status", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Recovery())
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusAccepted, "partial")
			panic("late")
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, "partial", w.Body.String())
	})
}

func TestSimpleTimeout(t *testing.T) {
	t.Parallel()

	var hasDeadline bool

	router := gin.New()
	router.Use(SimpleTimeout(5 * time.Second))
	router.GET("/test", func(c *gin.Context) {
		_, hasDeadline = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, hasDeadline)
}

// Timeout runs the chain on another goroutine; only the skip path is
// exercised here to stay race-free with gin's context.
func TestTimeout_SkipPaths(t *testing.T) {
	t.Parallel()

	var hasDeadline bool

	router := gin.New()
	router.Use(Timeout(time.Second, "/uploads"))
	router.POST("/uploads", func(c *gin.Context) {
		_, hasDeadline = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/uploads", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, hasDeadline)
}
