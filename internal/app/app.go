// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bissquit/problem-dashboard/internal/clock"
	"github.com/bissquit/problem-dashboard/internal/config"
	"github.com/bissquit/problem-dashboard/internal/dashboard"
	"github.com/bissquit/problem-dashboard/internal/domain"
	"github.com/bissquit/problem-dashboard/internal/insights"
	"github.com/bissquit/problem-dashboard/internal/pkg/ctxlog"
	"github.com/bissquit/problem-dashboard/internal/pkg/httputil"
	"github.com/bissquit/problem-dashboard/internal/source/dynatrace"
	"github.com/bissquit/problem-dashboard/internal/source/mock"
	"github.com/bissquit/problem-dashboard/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const requestTimeout = 60 * time.Second

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	store         *dashboard.Store
	analyzer      *insights.Analyzer
	server        *http.Server
	metricsServer *http.Server

	// baseCtx outlives requests and is cancelled on shutdown.
	baseCtx    context.Context
	baseCancel context.CancelFunc
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	clk := clock.Real{}

	source, err := newSource(cfg.Source, clk)
	if err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}

	slog.Info("problem source configured",
		"kind", cfg.Source.Kind,
		"auto_refresh", cfg.Dashboard.AutoRefresh,
		"refresh_interval", cfg.Dashboard.RefreshInterval,
	)

	store := dashboard.NewStore(source, clk, dashboard.Options{
		TimeRange:       domain.TimeRange{From: cfg.Dashboard.From, To: cfg.Dashboard.To},
		AutoRefresh:     cfg.Dashboard.AutoRefresh,
		RefreshInterval: cfg.Dashboard.RefreshInterval,
	})

	analyzer := insights.NewAnalyzer(insights.Config{Latency: cfg.Insights.Latency}, clk)
	store.Subscribe(analyzer)

	baseCtx, baseCancel := context.WithCancel(ctxlog.WithLogger(context.Background(), logger))

	app := &App{
		config:     cfg,
		logger:     logger,
		store:      store,
		analyzer:   analyzer,
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           app.setupRouter(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

func newSource(cfg config.SourceConfig, clk clock.Clock) (dashboard.Source, error) {
	switch cfg.Kind {
	case config.SourceKindDynatrace:
		return dynatrace.NewClient(dynatrace.Config{
			BaseURL:        cfg.Dynatrace.BaseURL,
			APIToken:       cfg.Dynatrace.APIToken,
			Timeout:        cfg.Dynatrace.Timeout,
			PageSize:       cfg.Dynatrace.PageSize,
			RateLimit:      cfg.Dynatrace.RateLimit,
			RateBurst:      cfg.Dynatrace.RateBurst,
			MaxAttempts:    cfg.Dynatrace.MaxAttempts,
			InitialBackoff: cfg.Dynatrace.InitialBackoff,
			MaxBackoff:     cfg.Dynatrace.MaxBackoff,
		})
	case config.SourceKindMock:
		return mock.NewProvider(clk), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

// Run starts the HTTP servers and blocks until the main server stops.
func (a *App) Run() error {
	if a.config.Dashboard.FetchOnStart {
		go a.store.FetchIncidents(a.baseCtx)
	}

	// Start metrics server in background
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
		"version", version.Version,
	)

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown stops polling, cancels in-flight fetches and gracefully shuts down both servers.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	a.baseCancel()
	a.store.Close()

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	return errors.Join(errs...)
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// Store returns the problem store.
func (a *App) Store() *dashboard.Store {
	return a.store
}

func (a *App) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(httputil.RecovererMiddleware)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		http.ServeFile(w, r, "api/openapi/openapi.yaml")
	})

	r.Get("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(docsPage))
	})

	handler := dashboard.NewHandler(a.store, a.analyzer)
	r.Route("/api/v1", handler.RegisterRoutes)

	return r
}

const docsPage = `<!DOCTYPE html>
<html>
<head>
    <title>Problem Dashboard API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        SwaggerUIBundle({
            url: "/api/openapi.yaml",
            dom_id: '#swagger-ui',
            presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
            layout: "BaseLayout"
        });
    </script>
</body>
</html>`

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

// readyzHandler reports ready once problems have been loaded at least once.
// Without a fetch on start there is nothing to wait for.
func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	if !a.config.Dashboard.FetchOnStart {
		httputil.Text(w, http.StatusOK, "OK")
		return
	}

	state := a.store.Snapshot()
	if state.LastUpdated.IsZero() {
		ctxlog.FromContext(r.Context()).Warn("readiness check failed", "loading", state.Loading, "error", state.Error)
		httputil.Text(w, http.StatusServiceUnavailable, "Problems not loaded")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, version.Get())
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
