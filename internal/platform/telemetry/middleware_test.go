package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAnnotateHistory(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "request")
	AnnotateHistory(ctx, map[string]any{
		"url":     "/items/7",
		"user":    int64(42),
		"missing": nil,
	})
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	got := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		got[kv.Key] = kv.Value
	}
	assert.Equal(t, "/items/7", got["history.url"].AsString())
	assert.Equal(t, int64(42), got["history.user"].AsInt64())
	assert.NotContains(t, got, attribute.Key("history.missing"))
}

func TestAnnotateHistory_NoSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		AnnotateHistory(context.Background(), map[string]any{"url": "/"})
	})
}

func TestHistoryAttr(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  attribute.Value
	}{
		{"string", "a", attribute.StringValue("a")},
		{"bool", true, attribute.BoolValue(true)},
		{"int64", int64(7), attribute.Int64Value(7)},
		{"float64", 1.5, attribute.Float64Value(1.5)},
		{"uint64", uint64(9), attribute.StringValue("9")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv, ok := historyAttr("k", tt.value)
			require.True(t, ok)
			assert.Equal(t, tt.want, kv.Value)
		})
	}
}

func TestMiddleware_PassesThrough(t *testing.T) {
	router := gin.New()
	router.Use(Middleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Empty(t, w.Header().Get(HeaderTraceID))
}
