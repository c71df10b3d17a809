// Package main is the entry point for the service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/go-history-context/internal/adapters/http"
	"github.com/jsamuelsen/go-history-context/internal/adapters/http/handlers"
	"github.com/jsamuelsen/go-history-context/internal/adapters/repository"
	"github.com/jsamuelsen/go-history-context/internal/app"
	appctx "github.com/jsamuelsen/go-history-context/internal/app/context"
	"github.com/jsamuelsen/go-history-context/internal/platform/config"
	"github.com/jsamuelsen/go-history-context/internal/platform/logging"
	"github.com/jsamuelsen/go-history-context/internal/platform/telemetry"
	"github.com/jsamuelsen/go-history-context/internal/ports"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the service.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Determine profile from environment
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	// 2. Load and validate configuration (fail fast)
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 3. Initialize logging. Every record logged with a request context
	// carries that request's history entries.
	base := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logger := slog.New(appctx.NewLogHandler(base.Handler()))
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	// 4. Initialize telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
		Insecure:     cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	historyMetrics, err := telemetry.NewHistoryMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("registering history metrics: %w", err)
	}

	// 5. Create the item store and register it as a health checker
	repo := repository.NewMemory()
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Error("closing item repository", slog.Any("error", closeErr))
		}
	}()

	healthRegistry := ports.NewHealthRegistry()
	if err := healthRegistry.Register(repo); err != nil {
		return fmt.Errorf("registering repository health check: %w", err)
	}

	// 6. Create the application service and handlers
	itemService := app.NewItemService(repo, nil)

	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime)
	healthHandler := handlers.NewHealthHandler(healthRegistry, prometheus.DefaultGatherer, buildInfo)
	itemHandler := handlers.NewItemHandler(itemService)

	// 7. Create HTTP server and wire routes
	server := http.New(&cfg.Server, logger)

	http.SetupRouter(server.Engine(), http.RouterConfig{
		AppConfig:       &cfg.App,
		AuthConfig:      &cfg.Auth,
		HistoryConfig:   &cfg.History,
		HistoryRecorder: historyMetrics,
		Tracing:         cfg.Telemetry.Enabled,
		HealthHandler:   healthHandler,
		ItemHandler:     itemHandler,
		Timeout:         cfg.Server.RequestTimeout,
	})

	// 8. Serve until SIGINT/SIGTERM, then drain in-flight requests
	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}
