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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsdeck/incidentd/internal/command"
	"github.com/opsdeck/incidentd/internal/config"
	"github.com/opsdeck/incidentd/internal/domain"
	"github.com/opsdeck/incidentd/internal/incident"
	"github.com/opsdeck/incidentd/internal/incident/memory"
	incidentpostgres "github.com/opsdeck/incidentd/internal/incident/postgres"
	"github.com/opsdeck/incidentd/internal/oncall"
	"github.com/opsdeck/incidentd/internal/pkg/ctxlog"
	"github.com/opsdeck/incidentd/internal/pkg/httputil"
	"github.com/opsdeck/incidentd/internal/pkg/metrics"
	"github.com/opsdeck/incidentd/internal/pkg/postgres"
	"github.com/opsdeck/incidentd/internal/report"
	"github.com/opsdeck/incidentd/internal/version"
	"github.com/opsdeck/incidentd/internal/webhook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		metricsCancel: metricsCancel,
	}

	repo, err := app.setupRepository(metricsCtx)
	if err != nil {
		metricsCancel()
		return nil, err
	}

	router := app.setupRouter(repo)

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
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

// setupRepository selects the incident store. An empty database URL selects
// the volatile in-memory store, which is the reference behavior; a URL
// swaps in the durable PostgreSQL store behind the same interface.
func (a *App) setupRepository(metricsCtx context.Context) (incident.Repository, error) {
	if a.config.Database.URL == "" {
		a.logger.Info("using in-memory incident store")
		return memory.NewRepository(), nil
	}

	if err := postgres.Migrate(a.config.Database.URL); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), a.config.Database.ConnectTimeout)
	defer cancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             a.config.Database.URL,
		MaxConns:        a.config.Database.MaxConns,
		MinConns:        a.config.Database.MinConns,
		ConnMaxLifetime: a.config.Database.ConnMaxLifetime,
		ConnectAttempts: a.config.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.db = db

	go a.collectDBMetrics(metricsCtx)

	return incidentpostgres.NewRepository(db), nil
}

func (a *App) setupRouter(repo incident.Repository) *chi.Mux {
	incidentService := incident.NewService(repo)
	aggregator := report.NewAggregator(repo)
	oncallService := oncall.NewService(rosterTable(a.config.OnCall))

	prometheus.MustRegister(report.NewCollector(repo))

	incidentHandler := incident.NewHandler(incidentService)
	reportHandler := report.NewHandler(aggregator)
	oncallHandler := oncall.NewHandler(oncallService)
	webhookHandler := webhook.NewHandler(incidentService)
	commandHandler := command.NewHandler(
		command.NewExecutor(incidentService, oncallService, aggregator),
	)

	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Route("/api/v1", func(r chi.Router) {
		incidentHandler.RegisterRoutes(r)
		reportHandler.RegisterRoutes(r)
		oncallHandler.RegisterRoutes(r)
		commandHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			limiter := rate.NewLimiter(rate.Limit(a.config.Webhook.RateLimit), a.config.Webhook.Burst)
			r.Use(httputil.RateLimitMiddleware(limiter))
			webhookHandler.RegisterRoutes(r)
		})
	})

	return r
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	// Start metrics server in background
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	// Shutdown both servers in parallel
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

	if a.db != nil {
		a.db.Close()
	}

	return errors.Join(errs...)
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) collectDBMetrics(ctx context.Context) {
	// Collect immediately on start
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	if a.db == nil {
		httputil.Text(w, http.StatusOK, "OK")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func rosterTable(teams map[string]config.RosterConfig) map[string]domain.OnCallSnapshot {
	table := make(map[string]domain.OnCallSnapshot, len(teams))
	for id, roster := range teams {
		table[id] = domain.OnCallSnapshot{
			Primary:    roster.Primary,
			Secondary:  roster.Secondary,
			Escalation: roster.Escalation,
		}
	}
	return table
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
