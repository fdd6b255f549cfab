package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/uppalcrm/crm/api/internal/entity"
	"github.com/uppalcrm/crm/api/internal/service"
)

// Context keys used to store authentication and tenant metadata.
const (
	ContextKeyUserID           = "user_id"
	ContextKeyUserEmail        = "user_email"
	ContextKeyUserRole         = "user_role"
	ContextKeyRequestID        = "request_id"
	ContextKeyOrganizationID   = "organization_id"
	ContextKeyOrganizationSlug = "organization_slug"
	ContextKeyOrganization     = "organization"
	ContextKeyAPIKey           = "api_key"
)

// HeaderOrganizationSlug names the tenant header sent with every authenticated request.
const HeaderOrganizationSlug = "X-Organization-Slug"

// HeaderAPIKey carries integration credentials.
const HeaderAPIKey = "X-API-Key"

// OrganizationFromContext returns the tenant resolved by TenantScope or APIKeyAuth.
func OrganizationFromContext(c echo.Context) (*entity.Organization, bool) {
	org, ok := c.Get(ContextKeyOrganization).(*entity.Organization)
	return org, ok && org != nil
}

// OrganizationIDFromContext returns the tenant ID, or uuid.Nil when the request is not scoped.
func OrganizationIDFromContext(c echo.Context) uuid.UUID {
	if org, ok := OrganizationFromContext(c); ok {
		return org.ID
	}
	return uuid.Nil
}

// APIKeyFromContext returns the principal stored by APIKeyAuth.
func APIKeyFromContext(c echo.Context) (*service.APIKeyPrincipal, bool) {
	p, ok := c.Get(ContextKeyAPIKey).(*service.APIKeyPrincipal)
	return p, ok && p != nil
}

// UserIDFromContext returns the JWT subject.
func UserIDFromContext(c echo.Context) string {
	id, _ := c.Get(ContextKeyUserID).(string)
	return id
}

// UserEmailFromContext returns the email claim.
func UserEmailFromContext(c echo.Context) string {
	email, _ := c.Get(ContextKeyUserEmail).(string)
	return email
}
