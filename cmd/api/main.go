package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rrraaa1/hospital-bulk-processing/internal/config"
	"github.com/rrraaa1/hospital-bulk-processing/internal/csvproc"
	"github.com/rrraaa1/hospital-bulk-processing/internal/directory"
	"github.com/rrraaa1/hospital-bulk-processing/internal/handler"
	"github.com/rrraaa1/hospital-bulk-processing/internal/observability"
	"github.com/rrraaa1/hospital-bulk-processing/internal/ratelimit"
	"github.com/rrraaa1/hospital-bulk-processing/internal/repository"
	"github.com/rrraaa1/hospital-bulk-processing/internal/service"
	"github.com/rrraaa1/hospital-bulk-processing/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()

	limiter := ratelimit.NewLocalRateLimiter(cfg.DirectoryRatePerSec)

	client, err := directory.NewRestClient(
		cfg.HospitalAPIURL,
		time.Duration(cfg.APITimeoutSeconds)*time.Second,
		directory.RetryPolicy{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   time.Duration(cfg.RetryDelaySeconds * float64(time.Second)),
		},
		limiter,
		logger,
	)
	if err != nil {
		logger.Fatal("directory client initialization failed", zap.Error(err))
	}

	store := repository.NewMemoryBatchStore(logger)

	bulkService, err := service.NewBulkService(store, client, logger)
	if err != nil {
		logger.Fatal("bulk service initialization failed", zap.Error(err))
	}
	bulkService.SetMetrics(metrics)

	sweeper, err := service.NewSweeper(
		store,
		time.Duration(cfg.SweepIntervalMinutes)*time.Minute,
		time.Duration(cfg.BatchMaxAgeHours)*time.Hour,
		logger,
	)
	if err != nil {
		logger.Fatal("sweeper initialization failed", zap.Error(err))
	}
	sweeper.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		AppName:      "hospital-bulk-processing",
		ErrorHandler: transport.ErrorHandler(logger),
		BodyLimit:    (cfg.MaxFileSizeMB + 1) << 20,
	})
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterRootRoute(app)
	handler.RegisterHealthRoutes(app, client)
	if err := handler.RegisterHospitalRoutes(app, bulkService, csvproc.NewProcessor(), handler.HospitalHandlerOptions{
		MaxHospitalsPerBatch: cfg.MaxHospitalsPerBatch,
		MaxFileSizeMB:        cfg.MaxFileSizeMB,
	}); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("hospital bulk processing api started", zap.Int("port", cfg.APIPort))
		return app.Listen(":" + strconv.Itoa(cfg.APIPort))
	})

	g.Go(func() error {
		return sweeper.Start(groupCtx)
	})

	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("service terminated", zap.Error(err))
	}

	logger.Info("shutdown complete")
}
