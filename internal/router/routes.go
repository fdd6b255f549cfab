package router

import (
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uppalcrm/crm/api/internal/auth"
	"github.com/uppalcrm/crm/api/internal/config"
	"github.com/uppalcrm/crm/api/internal/handler"
	"github.com/uppalcrm/crm/api/internal/metrics"
	middlewarepkg "github.com/uppalcrm/crm/api/internal/middleware"
	"github.com/uppalcrm/crm/api/internal/service"
)

// webhookBodyLimit caps inbound integration payloads.
const webhookBodyLimit = "1M"

// Handlers aggregates HTTP handlers used by the router.
type Handlers struct {
	Health       *handler.HealthHandler
	Auth         *handler.AuthHandler
	Users        *handler.UserAdminHandler
	Leads        *handler.LeadsHandler
	Entitlements *handler.EntitlementHandler
	SuperAdmin   *handler.SuperAdminHandler
	APIKeys      *handler.APIKeyHandler
	Webhooks     *handler.WebhookHandler
}

// Dependencies carries the authentication and observability collaborators of the middleware chain.
type Dependencies struct {
	JWT           *auth.JWTManager
	Organizations middlewarepkg.OrganizationLookup
	APIKeys       middlewarepkg.APIKeyVerifier
	Quota         middlewarepkg.QuotaChecker
	Metrics       *metrics.CRMMetrics
	Gatherer      prometheus.Gatherer
}

// RegisterOps wires the health and metrics routes shared by the API and the worker. A nil gatherer
// leaves /metrics unregistered.
func RegisterOps(e *echo.Echo, health *handler.HealthHandler, gatherer prometheus.Gatherer) {
	e.GET("/healthz", health.Live)
	e.GET("/readyz", health.Ready)
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}

// Register wires all HTTP routes for the API.
func Register(e *echo.Echo, cfg *config.Config, deps Dependencies, handlers Handlers) {
	RegisterOps(e, handlers.Health, deps.Gatherer)

	e.POST("/auth/login", handlers.Auth.Login)

	orgLimiter := middlewarepkg.OrganizationRateLimiter(cfg.RateLimitOrg, deps.Metrics)

	webhooks := e.Group("/api/webhooks",
		echoMiddleware.BodyLimit(webhookBodyLimit),
		middlewarepkg.APIKeyAuth(deps.APIKeys),
		middlewarepkg.APIKeyQuota(deps.Quota, cfg.APIKeyHourlyLimit, deps.Metrics),
		orgLimiter,
	)
	canWriteLeads := middlewarepkg.RequirePermission(service.PermLeadsWrite)
	canReadWebhooks := middlewarepkg.RequirePermission(service.PermWebhooksRead)
	webhooks.POST("/leads", handlers.Webhooks.IngestLead, canWriteLeads)
	webhooks.GET("/stats", handlers.Webhooks.Stats, canReadWebhooks)
	webhooks.GET("/test/:webhookId", handlers.Webhooks.Test, canReadWebhooks)
	webhooks.POST("/:webhookId", handlers.Webhooks.Receive, canWriteLeads)

	secured := e.Group("/api", middlewarepkg.JWT(deps.JWT))

	superAdmin := secured.Group("/super-admin", middlewarepkg.RequireRole(service.RoleSuperAdmin))
	superAdmin.GET("/organizations/:id/trial", handlers.SuperAdmin.TrialStatus)
	superAdmin.PUT("/organizations/:id/trial", handlers.SuperAdmin.UpdateTrial)
	superAdmin.PUT("/organizations/:id/convert-to-paid", handlers.SuperAdmin.ConvertToPaid)
	superAdmin.GET("/expiring-trials", handlers.SuperAdmin.ExpiringTrials)

	tenantScope := middlewarepkg.TenantScope(deps.Organizations)
	tenant := []echo.MiddlewareFunc{tenantScope, orgLimiter}
	admin := []echo.MiddlewareFunc{tenantScope, orgLimiter, middlewarepkg.RequireRole(service.RoleAdmin, service.RoleSuperAdmin)}

	secured.POST("/contacts/:id/licenses", handlers.Entitlements.GenerateLicense, tenant...)
	secured.GET("/contacts/:id/licenses", handlers.Entitlements.ListLicenses, tenant...)
	secured.POST("/contacts/licenses/:id/transfer", handlers.Entitlements.TransferLicense, tenant...)
	secured.GET("/licenses/:id", handlers.Entitlements.GetLicense, tenant...)
	secured.POST("/licenses/:id/extend", handlers.Entitlements.ExtendLicense, tenant...)
	secured.POST("/licenses/:id/cancel", handlers.Entitlements.CancelLicense, tenant...)

	secured.POST("/contacts/:id/trials", handlers.Entitlements.CreateTrial, tenant...)
	secured.GET("/contacts/:id/trials", handlers.Entitlements.ListTrials, tenant...)
	secured.POST("/trials/:id/extend", handlers.Entitlements.ExtendTrial, tenant...)
	secured.POST("/trials/:id/convert", handlers.Entitlements.ConvertTrial, tenant...)
	secured.POST("/trials/:id/cancel", handlers.Entitlements.CancelTrial, tenant...)

	secured.GET("/leads", handlers.Leads.List, tenant...)
	secured.POST("/leads", handlers.Leads.Create, tenant...)
	secured.GET("/leads/:id", handlers.Leads.Get, tenant...)
	secured.POST("/leads/import", handlers.Leads.ImportCSV, admin...)

	secured.GET("/api-keys", handlers.APIKeys.List, admin...)
	secured.POST("/api-keys", handlers.APIKeys.Create, admin...)
	secured.GET("/api-keys/permissions", handlers.APIKeys.Permissions, admin...)
	secured.DELETE("/api-keys/:id", handlers.APIKeys.Revoke, admin...)

	secured.GET("/admin/users", handlers.Users.List, admin...)
	secured.POST("/admin/users", handlers.Users.Create, admin...)
	secured.PATCH("/admin/users/:id", handlers.Users.Update, admin...)
	secured.DELETE("/admin/users/:id", handlers.Users.Delete, admin...)
}
