package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/uppalcrm/crm/api/internal/dto"
	"github.com/uppalcrm/crm/api/internal/middleware"
	"github.com/uppalcrm/crm/api/internal/service"
)

// APIKeyHandler lets organization admins manage integration keys.
type APIKeyHandler struct {
	keys *service.APIKeyService
}

// NewAPIKeyHandler constructs an APIKeyHandler.
func NewAPIKeyHandler(keys *service.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{keys: keys}
}

// List handles GET /api/api-keys.
func (h *APIKeyHandler) List(c echo.Context) error {
	keys, err := h.keys.List(c.Request().Context(), middleware.OrganizationIDFromContext(c))
	if err != nil {
		return respondError(c, err, "failed to list api keys")
	}
	return Success(c, http.StatusOK, "api keys retrieved", keys)
}

// Create handles POST /api/api-keys. The plaintext key is only ever returned here.
func (h *APIKeyHandler) Create(c echo.Context) error {
	org, ok := middleware.OrganizationFromContext(c)
	if !ok {
		return Error(c, http.StatusNotFound, "organization not found")
	}

	var req dto.CreateAPIKeyRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	created, err := h.keys.Create(c.Request().Context(), org, req)
	if err != nil {
		return respondError(c, err, "failed to create api key")
	}
	return Success(c, http.StatusCreated, "api key created; store it now, it will not be shown again", created)
}

// Revoke handles DELETE /api/api-keys/:id.
func (h *APIKeyHandler) Revoke(c echo.Context) error {
	if err := h.keys.Revoke(c.Request().Context(), middleware.OrganizationIDFromContext(c), c.Param("id")); err != nil {
		return respondError(c, err, "failed to revoke api key")
	}
	return Success(c, http.StatusOK, "api key revoked", nil)
}

// Permissions handles GET /api/api-keys/permissions.
func (h *APIKeyHandler) Permissions(c echo.Context) error {
	return Success(c, http.StatusOK, "permissions retrieved", h.keys.Permissions())
}
