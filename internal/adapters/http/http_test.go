package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/go-history-context/internal/adapters/http/dto"
	"github.com/jsamuelsen/go-history-context/internal/adapters/http/handlers"
	"github.com/jsamuelsen/go-history-context/internal/adapters/repository"
	"github.com/jsamuelsen/go-history-context/internal/app"
	"github.com/jsamuelsen/go-history-context/internal/platform/config"
	"github.com/jsamuelsen/go-history-context/internal/platform/telemetry"
	"github.com/jsamuelsen/go-history-context/internal/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testServerConfig() *config.ServerConfig {
	return &config.ServerConfig{
		Host:            "127.0.0.1",
		Port:            0,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		IdleTimeout:     time.Second,
		ShutdownTimeout: time.Second,
		MaxRequestSize:  1024,
	}
}

type routerFixture struct {
	engine *gin.Engine
	repo   *repository.Memory
}

func newRouterFixture(t *testing.T, history *config.HistoryConfig) *routerFixture {
	t.Helper()

	reg := prometheus.NewRegistry()
	metrics, err := telemetry.NewHistoryMetrics(reg)
	require.NoError(t, err)

	repo := repository.NewMemory()
	registry := ports.NewHealthRegistry()
	require.NoError(t, registry.Register(repo))

	engine := gin.New()
	SetupRouter(engine, RouterConfig{
		AppConfig:       &config.AppConfig{Name: "test"},
		HistoryConfig:   history,
		HistoryRecorder: metrics,
		HealthHandler:   handlers.NewHealthHandler(registry, reg, handlers.NewBuildInfo("1", "c", "t")),
		ItemHandler:     handlers.NewItemHandler(app.NewItemService(repo, nil)),
		Timeout:         5 * time.Second,
	})

	return &routerFixture{engine: engine, repo: repo}
}

func (f *routerFixture) do(method, path, user, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	f.engine.ServeHTTP(w, req)
	return w
}

func TestSetupRouter_BindsAuthenticatedUserLate(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, nil)

	w := f.do(http.MethodPut, "/api/v1/items/7", "user-42", `{"name":"widget","quantity":1}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp dto.ItemChangeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "user-42", resp.Event.Context["user"])
	assert.Equal(t, "/api/v1/items/7", resp.Event.Context["url"])
	assert.Equal(t, app.OpUpsertItem, resp.Event.Context["operation"])
	assert.NotEmpty(t, resp.Event.ContextID)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	// The metrics endpoint itself is a GET, so it opens a second scope.
	w = f.do(http.MethodGet, "/-/metrics", "", "")
	assert.Contains(t, w.Body.String(), `history_scopes_total{outcome="opened"} 1`)
	assert.Contains(t, w.Body.String(), "history_identity_rebinds_total 1")
}

func TestSetupRouter_RejectsAnonymousAPI(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, nil)

	w := f.do(http.MethodGet, "/api/v1/items/7", "", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrorCodeUnauthorized)
}

func TestSetupRouter_HistoryMethods(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		history  *config.HistoryConfig
		wantUser any
		wantURL  any
	}{
		{"default methods", nil, "u1", "/api/v1/items/1"},
		{"put excluded", &config.HistoryConfig{Enabled: true, Methods: []string{"GET"}}, nil, nil},
		{"disabled", &config.HistoryConfig{Enabled: false}, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newRouterFixture(t, tt.history)

			w := f.do(http.MethodPut, "/api/v1/items/1", "u1", `{"name":"a"}`)
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

			var resp dto.ItemChangeResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantUser, resp.Event.Context["user"])
			assert.Equal(t, tt.wantURL, resp.Event.Context["url"])
			// The service opens its own operation scope either way.
			assert.Equal(t, app.OpUpsertItem, resp.Event.Context["operation"])
			assert.NotEmpty(t, resp.Event.ContextID)
		})
	}
}

func TestSetupRouter_HealthRoutes(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, nil)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/-/live", "", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/-/ready", "", "").Code)

	w := f.do(http.MethodGet, "/-/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "history_scopes_total")

	require.NoError(t, f.repo.Close())
	assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodGet, "/-/ready", "", "").Code)
}

func TestServer_ServeAndShutdown(t *testing.T) {
	t.Parallel()

	srv := New(testServerConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv.Engine().GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get(fmt.Sprintf("http://%s/ping", ln.Addr()))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_Addr(t *testing.T) {
	t.Parallel()

	cfg := testServerConfig()
	cfg.Port = 8080

	srv := New(cfg, slog.Default())

	assert.Equal(t, "127.0.0.1:8080", srv.Addr())
	assert.NotNil(t, srv.Engine())
}

func TestMaxBodySize(t *testing.T) {
	t.Parallel()

	engine := gin.New()
	engine.Use(maxBodySize(8))
	engine.POST("/echo", func(c *gin.Context) {
		b, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.String(http.StatusOK, string(b))
	})

	for body, want := range map[string]int{"small": http.StatusOK, "much too large": http.StatusRequestEntityTooLarge} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(body)))
		assert.Equal(t, want, w.Code, body)
	}
}
