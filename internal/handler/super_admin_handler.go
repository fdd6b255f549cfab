package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/uppalcrm/crm/api/internal/dto"
	"github.com/uppalcrm/crm/api/internal/middleware"
	"github.com/uppalcrm/crm/api/internal/service"
)

// SuperAdminHandler manages organization trials and billing across tenants.
type SuperAdminHandler struct {
	orgTrials *service.OrganizationTrialService
}

// NewSuperAdminHandler constructs a SuperAdminHandler.
func NewSuperAdminHandler(orgTrials *service.OrganizationTrialService) *SuperAdminHandler {
	return &SuperAdminHandler{orgTrials: orgTrials}
}

// TrialStatus handles GET /api/super-admin/organizations/:id/trial.
func (h *SuperAdminHandler) TrialStatus(c echo.Context) error {
	status, err := h.orgTrials.Status(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err, "failed to load organization trial")
	}
	return Success(c, http.StatusOK, "organization trial retrieved", status)
}

// UpdateTrial handles PUT /api/super-admin/organizations/:id/trial.
func (h *SuperAdminHandler) UpdateTrial(c echo.Context) error {
	var req dto.OrganizationTrialRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	status, err := h.orgTrials.Extend(c.Request().Context(), c.Param("id"), req, actor(c))
	if err != nil {
		return respondError(c, err, "failed to update organization trial")
	}
	return Success(c, http.StatusOK, "organization trial extended", status)
}

// ConvertToPaid handles PUT /api/super-admin/organizations/:id/convert-to-paid.
func (h *SuperAdminHandler) ConvertToPaid(c echo.Context) error {
	var req dto.ConvertToPaidRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	result, err := h.orgTrials.ConvertToPaid(c.Request().Context(), c.Param("id"), req, actor(c))
	if err != nil {
		return respondError(c, err, "failed to convert organization")
	}
	return Success(c, http.StatusOK, "organization converted to paid", result)
}

// ExpiringTrials handles GET /api/super-admin/expiring-trials?days=7.
func (h *SuperAdminHandler) ExpiringTrials(c echo.Context) error {
	days := parseIntDefault(c.QueryParam("days"), 0)

	result, err := h.orgTrials.ExpiringTrials(c.Request().Context(), days)
	if err != nil {
		return respondError(c, err, "failed to list expiring trials")
	}
	return Success(c, http.StatusOK, "expiring trials retrieved", result)
}

func actor(c echo.Context) string {
	if email := middleware.UserEmailFromContext(c); email != "" {
		return email
	}
	return middleware.UserIDFromContext(c)
}
