package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/go-history-context/internal/adapters/http/handlers"
	"github.com/jsamuelsen/go-history-context/internal/adapters/http/middleware"
	"github.com/jsamuelsen/go-history-context/internal/platform/config"
	"github.com/jsamuelsen/go-history-context/internal/platform/telemetry"
)

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	AppConfig     *config.AppConfig
	AuthConfig    *config.AuthConfig
	HistoryConfig *config.HistoryConfig

	// HistoryRecorder counts history scopes; nil disables counting.
	HistoryRecorder middleware.HistoryRecorder

	// Tracing wraps requests in OpenTelemetry spans.
	Tracing bool

	HealthHandler *handlers.HealthHandler
	ItemHandler   *handlers.ItemHandler

	// Timeout is the API request timeout; zero disables it.
	Timeout time.Duration
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Global middleware, first to last:
//  1. Recovery
//  2. Request ID
//  3. Correlation ID
//  4. OpenTelemetry tracing (when enabled) and metrics
//  5. Logging (skips health endpoints)
//  6. History scope (eligible methods only)
//
// /api/v1 additionally applies the request timeout and RequireAuth. Auth runs
// after the history scope is open, so the caller resolved there is bound
// into the scope late.
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.CorrelationID(),
	)
	if cfg.Tracing && cfg.AppConfig != nil {
		engine.Use(telemetry.TracingMiddleware(cfg.AppConfig.Name))
	}
	engine.Use(
		telemetry.Middleware(),
		middleware.Logging(),
	)
	if cfg.HistoryConfig == nil || cfg.HistoryConfig.Enabled {
		hc := middleware.HistoryConfig{Recorder: cfg.HistoryRecorder}
		if cfg.HistoryConfig != nil {
			hc.Methods = cfg.HistoryConfig.Methods
		}
		engine.Use(middleware.History(hc))
	}

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutes(engine)
	}

	apiV1 := engine.Group("/api/v1")
	if cfg.Timeout > 0 {
		apiV1.Use(middleware.SimpleTimeout(cfg.Timeout))
	}
	apiV1.Use(middleware.RequireAuth(cfg.AuthConfig))

	if cfg.ItemHandler != nil {
		cfg.ItemHandler.RegisterItemRoutes(apiV1)
	}
}
