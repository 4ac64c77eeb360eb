package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/diagreg/diagreg/internal/config"
	"github.com/diagreg/diagreg/internal/domain/patient"
	"github.com/diagreg/diagreg/internal/platform/db"
	"github.com/diagreg/diagreg/internal/platform/logging"
	"github.com/diagreg/diagreg/internal/platform/middleware"
	"github.com/diagreg/diagreg/internal/platform/openapi"
	"github.com/diagreg/diagreg/internal/platform/reporting"
	"github.com/diagreg/diagreg/internal/platform/telemetry"
)

const (
	shutdownTimeout   = 10 * time.Second
	poolStatsInterval = 15 * time.Second
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the record store API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := logging.New(os.Stdout, cfg.Env, cfg.LogLevel)
			return runServer(ctx, cfg, logger)
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	tel := telemetry.NewTelemetryProvider(telemetry.TelemetryConfig{ProcessMetrics: true})
	svc := patient.NewService(patient.NewRepoPG(pool), tel)

	e := newServer(cfg, logger, tel, svc)
	e.GET("/health/db", db.HealthHandler(pool, tel))

	return serve(ctx, e, cfg, logger, pool, tel)
}

// newServer builds the echo instance with every route except the database
// health check, which needs a live pool.
func newServer(cfg *config.Config, logger zerolog.Logger, tel *telemetry.TelemetryProvider, svc *patient.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(tel.MetricsMiddleware())
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{"Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, echo.HeaderContentDisposition},
	}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout, "/health", "/metrics"))
	e.Use(middleware.Audit(logger))

	apiV1 := e.Group("/api/v1")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/metrics", tel.PrometheusHandler())

	openapi.NewGenerator(version, fmt.Sprintf("http://localhost:%s/api/v1", cfg.Port)).RegisterRoutes(apiV1)
	reporting.NewHandler(svc, tel).RegisterRoutes(apiV1)
	patient.NewHandler(svc).RegisterRoutes(apiV1)

	return e
}

// serve runs the HTTP server and the pool gauge publisher until ctx is
// cancelled or either fails, then shuts the server down gracefully.
func serve(ctx context.Context, e *echo.Echo, cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool, tel *telemetry.TelemetryProvider) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return db.PublishPoolStats(gctx, pool, tel, poolStatsInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info().Msg("server stopped")
		return nil
	})

	return g.Wait()
}
