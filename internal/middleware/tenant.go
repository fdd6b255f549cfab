package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/uppalcrm/crm/api/internal/entity"
	"github.com/uppalcrm/crm/api/internal/logging"
	"github.com/uppalcrm/crm/api/internal/repository"
	"github.com/uppalcrm/crm/api/internal/service"
)

// OrganizationLookup resolves a tenant from its slug.
type OrganizationLookup interface {
	FindBySlug(ctx context.Context, slug string) (*entity.Organization, error)
}

// APIKeyVerifier authenticates a raw X-API-Key value.
type APIKeyVerifier interface {
	Verify(ctx context.Context, raw string) (*service.APIKeyPrincipal, error)
}

var errTenantNotFound = map[string]string{"error": "organization not found"}

// TenantScope binds a JWT-authenticated request to the organization named by X-Organization-Slug.
// The header is required. A slug that differs from the token's organization, or that names an
// unknown or inactive tenant, answers 404 so other tenants cannot be probed. Super admins carry no
// organization claim and may address any active tenant.
func TenantScope(orgs OrganizationLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			slug := strings.ToLower(strings.TrimSpace(c.Request().Header.Get(HeaderOrganizationSlug)))
			if slug == "" {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing " + HeaderOrganizationSlug + " header"})
			}

			claimSlug, _ := c.Get(ContextKeyOrganizationSlug).(string)
			role, _ := c.Get(ContextKeyUserRole).(string)
			if claimSlug == "" && role != service.RoleSuperAdmin {
				return c.JSON(http.StatusNotFound, errTenantNotFound)
			}
			if claimSlug != "" && !strings.EqualFold(claimSlug, slug) {
				return c.JSON(http.StatusNotFound, errTenantNotFound)
			}

			org, err := orgs.FindBySlug(c.Request().Context(), slug)
			if err != nil {
				if errors.Is(err, repository.ErrOrganizationNotFound) {
					return c.JSON(http.StatusNotFound, errTenantNotFound)
				}
				logging.FromContext(c.Request().Context()).Error().Err(err).Str("slug", slug).Msg("resolve organization")
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to resolve organization"})
			}
			if !org.IsActive {
				return c.JSON(http.StatusNotFound, errTenantNotFound)
			}
			if claimID, _ := c.Get(ContextKeyOrganizationID).(string); claimID != "" && claimID != org.ID.String() {
				return c.JSON(http.StatusNotFound, errTenantNotFound)
			}

			bindOrganization(c, org)
			return next(c)
		}
	}
}

// APIKeyAuth authenticates integrations with X-API-Key. The organization comes from the key; an
// X-Organization-Slug header is optional but must name the same tenant.
func APIKeyAuth(verifier APIKeyVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := strings.TrimSpace(c.Request().Header.Get(HeaderAPIKey))
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing " + HeaderAPIKey + " header"})
			}

			principal, err := verifier.Verify(c.Request().Context(), raw)
			if err != nil {
				if errors.Is(err, service.ErrUnauthorized) {
					return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
				}
				logging.FromContext(c.Request().Context()).Error().Err(err).Msg("verify api key")
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to verify api key"})
			}

			if slug := strings.TrimSpace(c.Request().Header.Get(HeaderOrganizationSlug)); slug != "" &&
				!strings.EqualFold(slug, principal.Organization.Slug) {
				return c.JSON(http.StatusNotFound, errTenantNotFound)
			}

			c.Set(ContextKeyAPIKey, principal)
			org := principal.Organization
			bindOrganization(c, &org)
			return next(c)
		}
	}
}

func bindOrganization(c echo.Context, org *entity.Organization) {
	c.Set(ContextKeyOrganization, org)
	c.Set(ContextKeyOrganizationID, org.ID.String())
	c.Set(ContextKeyOrganizationSlug, org.Slug)
}
