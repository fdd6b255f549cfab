package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/uppalcrm/crm/api/internal/dto"
	"github.com/uppalcrm/crm/api/internal/middleware"
	"github.com/uppalcrm/crm/api/internal/service"
)

// EntitlementHandler exposes contact licenses and software trials. Every route is tenant scoped.
type EntitlementHandler struct {
	licenses *service.LicensesService
	trials   *service.TrialsService
}

// NewEntitlementHandler constructs an EntitlementHandler.
func NewEntitlementHandler(licenses *service.LicensesService, trials *service.TrialsService) *EntitlementHandler {
	return &EntitlementHandler{licenses: licenses, trials: trials}
}

// GenerateLicense handles POST /api/contacts/:id/licenses.
func (h *EntitlementHandler) GenerateLicense(c echo.Context) error {
	var req dto.GenerateLicenseRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	license, err := h.licenses.Generate(c.Request().Context(), middleware.OrganizationIDFromContext(c), c.Param("id"), req)
	if err != nil {
		return respondError(c, err, "failed to generate license")
	}
	return Success(c, http.StatusCreated, "license generated", license)
}

// ListLicenses handles GET /api/contacts/:id/licenses.
func (h *EntitlementHandler) ListLicenses(c echo.Context) error {
	licenses, err := h.licenses.ListForContact(c.Request().Context(), middleware.OrganizationIDFromContext(c), c.Param("id"))
	if err != nil {
		return respondError(c, err, "failed to list licenses")
	}
	return Success(c, http.StatusOK, "licenses retrieved", licenses)
}

// GetLicense handles GET /api/licenses/:id.
func (h *EntitlementHandler) GetLicense(c echo.Context) error {
	license, err := h.licenses.Get(c.Request().Context(), middleware.OrganizationIDFromContext(c), c.Param("id"))
	if err != nil {
		return respondError(c, err, "failed to load license")
	}
	return Success(c, http.StatusOK, "license retrieved", license)
}

// TransferLicense handles POST /api/contacts/licenses/:id/transfer.
func (h *EntitlementHandler) TransferLicense(c echo.Context) error {
	var req dto.TransferLicenseRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	result, err := h.licenses.Transfer(c.Request().Context(), middleware.OrganizationIDFromContext(c), c.Param("id"), req)
	if err != nil {
		return respondError(c, err, "failed to transfer license")
	}
	return Success(c, http.StatusOK, "license transferred", result)
}

// ExtendLicense handles POST /api/licenses/:id/extend.
func (h *EntitlementHandler) ExtendLicense(c echo.Context) error {
	var req dto.ExtendRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	license, err := h.licenses.Extend(c.Request().Context(), middleware.OrganizationIDFromContext(c), c.Param("id"), req.Days)
	if err != nil {
		return respondError(c, err, "failed to extend license")
	}
	return Success(c, http.StatusOK, "license extended", license)
}

// CancelLicense handles POST /api/licenses/:id/cancel.
func (h *EntitlementHandler) CancelLicense(c echo.Context) error {
	var req dto.CancelRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	license, err := h.licenses.Cancel(c.Request().Context(), middleware.OrganizationIDFromContext(c), c.Param("id"), req.Reason)
	if err != nil {
		return respondError(c, err, "failed to cancel license")
	}
	return Success(c, http.StatusOK, "license cancelled", license)
}

// CreateTrial handles POST /api/contacts/:id/trials.
func (h *EntitlementHandler) CreateTrial(c echo.Context) error {
	var req dto.CreateTrialRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	trial, err := h.trials.Create(c.Request().Context(), middleware.OrganizationIDFromContext(c), c.Param("id"), req)
	if err != nil {
		return respondError(c, err, "failed to create trial")
	}
	return Success(c, http.StatusCreated, "trial created", trial)
}

// ListTrials handles GET /api/contacts/:id/trials.
func (h *EntitlementHandler) ListTrials(c echo.Context) error {
	trials, err := h.trials.ListForContact(c.Request().Context(), middleware.OrganizationIDFromContext(c), c.Param("id"))
	if err != nil {
		return respondError(c, err, "failed to list trials")
	}
	return Success(c, http.StatusOK, "trials retrieved", trials)
}

// ExtendTrial handles POST /api/trials/:id/extend.
func (h *EntitlementHandler) ExtendTrial(c echo.Context) error {
	var req dto.ExtendRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	trial, err := h.trials.Extend(c.Request().Context(), middleware.OrganizationIDFromContext(c), c.Param("id"), req.Days)
	if err != nil {
		return respondError(c, err, "failed to extend trial")
	}
	return Success(c, http.StatusOK, "trial extended", trial)
}

// ConvertTrial handles POST /api/trials/:id/convert.
func (h *EntitlementHandler) ConvertTrial(c echo.Context) error {
	trial, err := h.trials.Convert(c.Request().Context(), middleware.OrganizationIDFromContext(c), c.Param("id"))
	if err != nil {
		return respondError(c, err, "failed to convert trial")
	}
	return Success(c, http.StatusOK, "trial converted", trial)
}

// CancelTrial handles POST /api/trials/:id/cancel.
func (h *EntitlementHandler) CancelTrial(c echo.Context) error {
	var req dto.CancelRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	trial, err := h.trials.Cancel(c.Request().Context(), middleware.OrganizationIDFromContext(c), c.Param("id"), req.Reason)
	if err != nil {
		return respondError(c, err, "failed to cancel trial")
	}
	return Success(c, http.StatusOK, "trial cancelled", trial)
}
