package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/uppalcrm/crm/api/internal/config"
	"github.com/uppalcrm/crm/api/internal/database"
	"github.com/uppalcrm/crm/api/internal/handler"
	"github.com/uppalcrm/crm/api/internal/logging"
	"github.com/uppalcrm/crm/api/internal/metrics"
	"github.com/uppalcrm/crm/api/internal/queue"
	"github.com/uppalcrm/crm/api/internal/repository"
	"github.com/uppalcrm/crm/api/internal/router"
	"github.com/uppalcrm/crm/api/internal/service"
	"github.com/uppalcrm/crm/api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("worker")
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.Init(logging.Config{Format: cfg.LogFormat, Level: cfg.LogLevel, Component: "worker"})

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer connectCancel()

	pool, err := database.Connect(connectCtx, cfg.DatabaseURL,
		database.WithMaxConns(int32(cfg.DatabaseMaxConns)),
		database.WithApplicationName("uppal-crm-worker"),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	redisClient, err := database.ConnectRedis(connectCtx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer redisClient.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	crmMetrics := metrics.NewCRMMetrics(registry)

	webhookQueue := queue.NewWebhookQueue(redisClient, cfg.WebhookQueue)
	leadsService := service.NewLeadsService(repository.NewPGXLeadsRepository(pool), service.NewDataProcessor(cfg.PhoneRegion))
	webhookService := service.NewWebhookService(repository.NewPGXWebhooksRepository(pool), leadsService, webhookQueue, crmMetrics)
	orgTrialService := service.NewOrganizationTrialService(repository.NewPGXOrganizationsRepository(pool), service.WithEntitlementMetrics(crmMetrics))

	consumer := worker.New(webhookQueue, webhookService, logger,
		worker.WithWorkerCount(4),
		worker.WithPollTimeout(cfg.WorkerPollTimeout),
		worker.WithMetrics(crmMetrics),
	)
	sweeper := worker.NewTrialSweeper(orgTrialService, logger, cfg.ExpirySweepInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var opsServer *echo.Echo
	if cfg.WorkerMetricsPort != "" {
		redisCheck := func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
		opsServer = echo.New()
		opsServer.HideBanner = true
		opsServer.HidePort = true
		router.RegisterOps(opsServer, handler.NewHealthHandler(map[string]handler.HealthCheck{"postgres": pool.Ping, "redis": redisCheck}), registry)
		go func() {
			logger.Info().Str("port", cfg.WorkerMetricsPort).Msg("metrics server listening")
			if err := opsServer.Start(":" + cfg.WorkerMetricsPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	consumer.Start(ctx)
	sweepDone := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(sweepDone)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	logger.Info().Str("signal", sig.String()).Msg("shutting down worker")
	cancel()

	waitCh := make(chan struct{})
	go func() {
		consumer.Wait()
		<-sweepDone
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info().Msg("worker stopped")
	case <-time.After(30 * time.Second):
		logger.Error().Msg("worker shutdown timed out")
	}

	if opsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown failed")
		}
	}
}
