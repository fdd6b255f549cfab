package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	authpkg "github.com/uppalcrm/crm/api/internal/auth"
)

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": msg})
}

// JWT authenticates the bearer token and stores the caller's identity and organization claims on
// the context. Tenant scoping happens later in TenantScope.
func JWT(manager *authpkg.JWTManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return unauthorized(c, "missing authorization header")
			}
			token, ok := bearerToken(header)
			if !ok {
				return unauthorized(c, "invalid authorization header")
			}

			claims, err := manager.ParseToken(token)
			if err != nil {
				return unauthorized(c, "invalid token")
			}
			if (claims.OrganizationID == "") != (claims.OrganizationSlug == "") {
				return unauthorized(c, "invalid token")
			}

			c.Set(ContextKeyUserID, claims.Subject)
			c.Set(ContextKeyUserEmail, claims.Email)
			c.Set(ContextKeyUserRole, claims.Role)
			if claims.HasOrganization() {
				c.Set(ContextKeyOrganizationID, claims.OrganizationID)
				c.Set(ContextKeyOrganizationSlug, claims.OrganizationSlug)
			}

			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
