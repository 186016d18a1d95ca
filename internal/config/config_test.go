package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.MetricsPort)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, SourceKindMock, cfg.Source.Kind)
	assert.Equal(t, "now-1M", cfg.Dashboard.From)
	assert.Equal(t, "now", cfg.Dashboard.To)
	assert.False(t, cfg.Dashboard.AutoRefresh)
	assert.Equal(t, 5*time.Minute, cfg.Dashboard.RefreshInterval)
	assert.Equal(t, 3, cfg.Source.Dynatrace.MaxAttempts)
	assert.Zero(t, cfg.Insights.Latency)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  port: "8181"
log:
  level: debug
  format: text
source:
  kind: dynatrace
  dynatrace:
    base_url: https://abc123.live.dynatrace.com
    api_token: dt0c01.token
    page_size: 200
dashboard:
  from: now-2h
  refresh_interval: 30s
  auto_refresh: true
insights:
  latency: 1500ms
`)

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "8181", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.MetricsPort, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, SourceKindDynatrace, cfg.Source.Kind)
	assert.Equal(t, "https://abc123.live.dynatrace.com", cfg.Source.Dynatrace.BaseURL)
	assert.Equal(t, 200, cfg.Source.Dynatrace.PageSize)
	assert.Equal(t, 30*time.Second, cfg.Source.Dynatrace.Timeout)
	assert.Equal(t, "now-2h", cfg.Dashboard.From)
	assert.Equal(t, "now", cfg.Dashboard.To)
	assert.Equal(t, 30*time.Second, cfg.Dashboard.RefreshInterval)
	assert.True(t, cfg.Dashboard.AutoRefresh)
	assert.Equal(t, 1500*time.Millisecond, cfg.Insights.Latency)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  port: "8181"
`)
	t.Setenv("DASHBOARD_SERVER__PORT", "8282")
	t.Setenv("DASHBOARD_DASHBOARD__REFRESH_INTERVAL", "1m")
	t.Setenv("DASHBOARD_CORS__ALLOWED_ORIGINS", "http://localhost:3000, https://ops.example.com")

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "8282", cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Dashboard.RefreshInterval)
	assert.Equal(t, []string{"http://localhost:3000", "https://ops.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_EnvFile(t *testing.T) {
	envFile := writeFile(t, ".env", "DASHBOARD_LOG__LEVEL=warn\nDASHBOARD_LOG__FORMAT=text\n")
	t.Setenv("DASHBOARD_LOG__FORMAT", "json")
	t.Cleanup(func() { _ = os.Unsetenv("DASHBOARD_LOG__LEVEL") })

	cfg, err := Load("", envFile)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format, "process environment wins over the env file")
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), ".env"))
	assert.NoError(t, err)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "dynatrace without credentials",
			env:  map[string]string{"DASHBOARD_SOURCE__KIND": "dynatrace"},
		},
		{
			name: "dynatrace without token",
			env: map[string]string{
				"DASHBOARD_SOURCE__KIND":               "dynatrace",
				"DASHBOARD_SOURCE__DYNATRACE__BASE_URL": "https://abc123.live.dynatrace.com",
			},
		},
		{
			name: "unknown source",
			env:  map[string]string{"DASHBOARD_SOURCE__KIND": "prometheus"},
		},
		{
			name: "unknown log level",
			env:  map[string]string{"DASHBOARD_LOG__LEVEL": "verbose"},
		},
		{
			name: "refresh interval too short",
			env:  map[string]string{"DASHBOARD_DASHBOARD__REFRESH_INTERVAL": "10ms"},
		},
		{
			name: "same port for api and metrics",
			env:  map[string]string{"DASHBOARD_SERVER__METRICS_PORT": "8080"},
		},
		{
			name: "empty time range",
			env:  map[string]string{"DASHBOARD_DASHBOARD__FROM": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("", "")
			assert.Error(t, err)
		})
	}
}

func TestEnvKey(t *testing.T) {
	key, value := envKey("DASHBOARD_SOURCE__DYNATRACE__API_TOKEN", "secret")
	assert.Equal(t, "source.dynatrace.api_token", key)
	assert.Equal(t, "secret", value)

	key, value = envKey("DASHBOARD_CORS__ALLOWED_ORIGINS", "a,,b")
	assert.Equal(t, "cors.allowed_origins", key)
	assert.Equal(t, []string{"a", "b"}, value)
}
