package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a fully valid configuration for testing.
func validConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "test-service",
			Version:     "1.0.0",
			Environment: "local",
		},
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  30 * time.Second,
			MaxRequestSize:  1048576,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		History: HistoryConfig{
			Enabled: true,
			Methods: []string{"GET", "POST"},
		},
	}
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing app name",
			mutate:  func(c *Config) { c.App.Name = "" },
			wantErr: "app.name is required",
		},
		{
			name:    "unknown environment",
			mutate:  func(c *Config) { c.App.Environment = "staging" },
			wantErr: "app.environment must be one of",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port must be at most 65535",
		},
		{
			name:    "read timeout too small",
			mutate:  func(c *Config) { c.Server.ReadTimeout = time.Millisecond },
			wantErr: "server.readtimeout must be at least 1s",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: "log.format must be one of",
		},
		{
			name: "log file without path",
			mutate: func(c *Config) {
				c.Log.File.Enabled = true
				c.Log.File.Path = ""
			},
			wantErr: "log.file.path is required when Enabled true",
		},
		{
			name:    "telemetry without endpoint",
			mutate:  func(c *Config) { c.Telemetry = TelemetryConfig{Enabled: true, ServiceName: "svc"} },
			wantErr: "telemetry.endpoint is required when Enabled true",
		},
		{
			name:    "history enabled without methods",
			mutate:  func(c *Config) { c.History.Methods = nil },
			wantErr: "history.methods is required when Enabled true",
		},
		{
			name:    "history unknown method",
			mutate:  func(c *Config) { c.History.Methods = []string{"GET", "BREW"} },
			wantErr: "history.methods[1] must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Validate_HistoryDisabledAllowsNoMethods(t *testing.T) {
	cfg := validConfig()
	cfg.History = HistoryConfig{Enabled: false}

	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := &Config{
		App: AppConfig{Environment: "invalid"},
	}

	err := cfg.Validate()
	require.Error(t, err)

	assert.Contains(t, err.Error(), "app.name")
	assert.Contains(t, err.Error(), "app.version")
	assert.Contains(t, err.Error(), "app.environment")
}

func TestFormatFieldPath(t *testing.T) {
	tests := []struct {
		namespace string
		expected  string
	}{
		{"Config.Server.Port", "server.port"},
		{"Config.History.Methods[0]", "history.methods[0]"},
		{"Config.Log.File.Path", "log.file.path"},
		{"Port", "port"},
	}

	for _, tt := range tests {
		t.Run(tt.namespace, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatFieldPath(tt.namespace))
		})
	}
}
