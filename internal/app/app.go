// Package app wires the license engine together: configuration, logging,
// telemetry, collaborators, manager, services, and the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"slidecli/internal/config"
	"slidecli/internal/entitlement"
	"slidecli/internal/infrastructure"
	"slidecli/internal/license"
	"slidecli/internal/licenseapi"
	"slidecli/internal/middleware"
	"slidecli/internal/services"
	"slidecli/internal/store"
	transporthttp "slidecli/internal/transport/http"
	"slidecli/internal/updater"
)

// Version is stamped at build time.
var Version = "dev"

// Application is the composition root. It owns the manager instance and
// hands it to every consumer by reference; nothing reaches for a global.
type Application struct {
	cfg      *config.Config
	logger   *slog.Logger
	otel     *infrastructure.OTelProviders
	manager  *license.Manager
	registry *entitlement.Registry
	service  services.LicenseService
	server   *http.Server
}

// NewApplication builds the full object graph. Any failure here is fatal:
// without configuration and a license store no safe entitlement decision can
// be made.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	environment := "production"
	if cfg.License.IsDevelopment() {
		environment = "development"
	}

	otelProviders, err := infrastructure.InitializeOTel(
		infrastructure.DefaultOTelConfig(Version, environment), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	licenseStore, err := store.NewFileStore(cfg.Paths.LicenseFile, cfg.License.StoreSecret, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create license store: %w", err)
	}

	client := licenseapi.NewHTTPClient(cfg.License.BackendURL, cfg.License.RequestTimeout, logger)

	updateSvc, err := updater.New(Version, cfg.Paths.StagingDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create updater: %w", err)
	}

	registry := entitlement.NewRegistry()

	managerOpts := []license.Option{}
	if otelProviders.Meter != nil {
		metrics, err := license.InitializeMetrics(otelProviders.Meter)
		if err != nil {
			return nil, fmt.Errorf("failed to create license metrics: %w", err)
		}
		managerOpts = append(managerOpts, license.WithMetrics(metrics))
	}

	manager, err := license.NewManager(
		license.Config{
			DevelopmentMode:    cfg.License.IsDevelopment(),
			FullGraceDays:      cfg.License.FullGraceDays,
			LimitedGraceDays:   cfg.License.LimitedGraceDays,
			RevalidateInterval: cfg.License.RevalidateInterval(),
			FreeObjectCeiling:  cfg.License.FreeObjectLimit,
		},
		licenseStore,
		client,
		updateSvc,
		registry,
		logger,
		managerOpts...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create license manager: %w", err)
	}

	app := &Application{
		cfg:      cfg,
		logger:   logger,
		otel:     otelProviders,
		manager:  manager,
		registry: registry,
		service:  services.NewLicenseService(manager, registry, logger),
	}

	app.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

// Manager exposes the engine to embedding hosts.
func (a *Application) Manager() *license.Manager { return a.manager }

func (a *Application) router() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.TraceID)
	r.Use(middleware.RequestLogger(a.logger))

	healthHandler := transporthttp.NewHealthHandler(Version)
	r.Get("/healthz", healthHandler.Healthz)

	if a.otel.PrometheusHTTP != nil {
		r.Handle("/metrics", a.otel.PrometheusHTTP)
	}

	licenseHandler := transporthttp.NewLicenseHandler(a.service, a.logger)

	// Host-facing document endpoints are registered by the embedding host
	// under these prefixes; the gate denies them below the required tier.
	gate := middleware.NewFeatureGate(a.manager, map[string]string{
		"/api/export/pdf": entitlement.FeatureExportPDF,
		"/api/export/svg": entitlement.FeatureExportSVG,
		"/api/templates":  entitlement.FeatureTemplateLibrary,
		"/api/themes":     entitlement.FeatureCustomThemes,
		"/api/layout":     entitlement.FeatureSmartLayout,
		"/api/history":    entitlement.FeatureRevisionHistory,
		"/api/sharing":    entitlement.FeatureTeamSharing,
		"/api/brand":      entitlement.FeatureBrandKit,
	}, a.logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(gate.Handler)
		r.Mount("/license", licenseHandler.Routes(
			middleware.RateLimit(a.cfg.Server.ActivateRPS, a.cfg.Server.ActivateBurst),
		))
	})

	return r
}

// Run starts the engine and the HTTP server, blocking until shutdown.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The startup validation pass publishes the first status before the
	// server accepts traffic; a degraded outcome is not an error.
	outcome := a.manager.Initialize(ctx)
	a.logger.Info("license engine initialized",
		slog.String("outcome", string(outcome.Tag)),
		slog.String("level", outcome.Level.String()),
		slog.Bool("scheduler_armed", a.manager.SchedulerArmed()),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("http server listening", slog.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

func (a *Application) shutdown() error {
	a.logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("http server shutdown failed", slog.String("error", err.Error()))
	}

	if err := a.manager.Close(); err != nil {
		a.logger.Warn("license manager close failed", slog.String("error", err.Error()))
	}

	if err := a.otel.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
	}

	infrastructure.CloseLogFile()
	return nil
}
