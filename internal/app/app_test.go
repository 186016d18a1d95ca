package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bissquit/problem-dashboard/internal/config"
	"github.com/bissquit/problem-dashboard/internal/dashboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Dashboard.AutoRefresh = false
	cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	return &cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()

	app, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = app.Shutdown(ctx)
	})
	return app
}

func serve(app *App, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, req)
	return rec
}

func TestNew_UnknownSource(t *testing.T) {
	cfg := testConfig()
	cfg.Source.Kind = "prometheus"

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestNew_DynatraceWithoutCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.Source.Kind = config.SourceKindDynatrace

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestApp_Healthz(t *testing.T) {
	app := newTestApp(t, testConfig())

	rec := serve(app, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestApp_ReadyAfterFirstFetch(t *testing.T) {
	app := newTestApp(t, testConfig())

	rec := serve(app, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	require.NoError(t, app.Store().Refresh(context.Background()))

	rec = serve(app, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestApp_ReadyWithoutFetchOnStart(t *testing.T) {
	cfg := testConfig()
	cfg.Dashboard.FetchOnStart = false
	app := newTestApp(t, cfg)

	rec := serve(app, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestApp_Version(t *testing.T) {
	app := newTestApp(t, testConfig())

	rec := serve(app, http.MethodGet, "/version")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Contains(t, body, "version")
	assert.Contains(t, body, "commit")
}

func TestApp_DashboardUsesMockSource(t *testing.T) {
	app := newTestApp(t, testConfig())
	require.NoError(t, app.Store().Refresh(context.Background()))

	rec := serve(app, http.MethodGet, "/api/v1/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data dashboard.DashboardResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 4, body.Data.ProblemCount)
	assert.Equal(t, 3, body.Data.Stats.OpenProblems)
	assert.False(t, body.Data.AutoRefresh)

	rec = serve(app, http.MethodGet, "/api/v1/insights")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "resolution-trend")
}

func TestApp_CORSPreflight(t *testing.T) {
	app := newTestApp(t, testConfig())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/filters", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestApp_ShutdownStopsPolling(t *testing.T) {
	cfg := testConfig()
	cfg.Dashboard.AutoRefresh = true
	app := newTestApp(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, app.Shutdown(ctx))

	assert.ErrorIs(t, app.Store().SetAutoRefresh(true), dashboard.ErrStoreClosed)
}

func TestInitLogger(t *testing.T) {
	assert.True(t, initLogger(config.LogConfig{Level: "debug", Format: "text"}).Enabled(context.Background(), -4))
	assert.False(t, initLogger(config.LogConfig{Level: "warn", Format: "json"}).Enabled(context.Background(), 0))
}
