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
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/uppalcrm/crm/api/internal/auth"
	"github.com/uppalcrm/crm/api/internal/config"
	"github.com/uppalcrm/crm/api/internal/database"
	"github.com/uppalcrm/crm/api/internal/handler"
	"github.com/uppalcrm/crm/api/internal/logging"
	"github.com/uppalcrm/crm/api/internal/metrics"
	middlewarepkg "github.com/uppalcrm/crm/api/internal/middleware"
	"github.com/uppalcrm/crm/api/internal/queue"
	"github.com/uppalcrm/crm/api/internal/ratelimit"
	"github.com/uppalcrm/crm/api/internal/repository"
	"github.com/uppalcrm/crm/api/internal/router"
	"github.com/uppalcrm/crm/api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("api")
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.Init(logging.Config{Format: cfg.LogFormat, Level: cfg.LogLevel, Component: "api"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL, database.WithMaxConns(int32(cfg.DatabaseMaxConns)))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer redisClient.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	crmMetrics := metrics.NewCRMMetrics(registry)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	usersRepo := repository.NewPGXUsersRepository(pool)
	orgsRepo := repository.NewPGXOrganizationsRepository(pool)
	contactsRepo := repository.NewPGXContactsRepository(pool)
	leadsRepo := repository.NewPGXLeadsRepository(pool)
	licensesRepo := repository.NewPGXLicensesRepository(pool)
	trialsRepo := repository.NewPGXTrialsRepository(pool)
	apiKeysRepo := repository.NewPGXAPIKeysRepository(pool)
	webhooksRepo := repository.NewPGXWebhooksRepository(pool)

	entitlementOpts := []service.EntitlementOption{
		service.WithKeyAttempts(cfg.KeyAttempts),
		service.WithEntitlementMetrics(crmMetrics),
	}

	webhookQueue := queue.NewWebhookQueue(redisClient, cfg.WebhookQueue)
	leadsService := service.NewLeadsService(leadsRepo, service.NewDataProcessor(cfg.PhoneRegion))
	authService := service.NewAuthService(usersRepo, jwtManager)
	userService := service.NewUserService(usersRepo)
	licensesService := service.NewLicensesService(licensesRepo, contactsRepo, entitlementOpts...)
	trialsService := service.NewTrialsService(trialsRepo, contactsRepo, entitlementOpts...)
	orgTrialService := service.NewOrganizationTrialService(orgsRepo, service.WithEntitlementMetrics(crmMetrics))
	apiKeyService := service.NewAPIKeyService(apiKeysRepo, orgsRepo, service.DefaultAPIKeyCost)
	webhookService := service.NewWebhookService(webhooksRepo, leadsService, webhookQueue, crmMetrics)

	redisCheck := func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	}

	handlers := router.Handlers{
		Health:       handler.NewHealthHandler(map[string]handler.HealthCheck{"postgres": pool.Ping, "redis": redisCheck}),
		Auth:         handler.NewAuthHandler(authService),
		Users:        handler.NewUserAdminHandler(userService),
		Leads:        handler.NewLeadsHandler(leadsService),
		Entitlements: handler.NewEntitlementHandler(licensesService, trialsService),
		SuperAdmin:   handler.NewSuperAdminHandler(orgTrialService),
		APIKeys:      handler.NewAPIKeyHandler(apiKeyService),
		Webhooks:     handler.NewWebhookHandler(webhookService),
	}

	deps := router.Dependencies{
		JWT:           jwtManager,
		Organizations: orgsRepo,
		APIKeys:       apiKeyService,
		Quota:         ratelimit.NewHourlyLimiter(redisClient, "ratelimit", logging.New("ratelimit")),
		Metrics:       crmMetrics,
		Gatherer:      registry,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middlewarepkg.RequestID())
	e.Use(middlewarepkg.Logging(logger))
	e.Use(middlewarepkg.Metrics(crmMetrics))
	e.Use(echoMiddleware.Recover())

	router.Register(e, cfg, deps, handlers)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("http server listening")
		serverErr <- e.Start(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
