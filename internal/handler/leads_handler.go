package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/uppalcrm/crm/api/internal/dto"
	"github.com/uppalcrm/crm/api/internal/middleware"
	"github.com/uppalcrm/crm/api/internal/service"
)

// LeadsHandler exposes the organization's lead list and the CSV import.
type LeadsHandler struct {
	leads *service.LeadsService
}

// NewLeadsHandler creates a new handler instance.
func NewLeadsHandler(leads *service.LeadsService) *LeadsHandler {
	return &LeadsHandler{leads: leads}
}

// List handles GET /api/leads requests.
func (h *LeadsHandler) List(c echo.Context) error {
	filter := dto.LeadListFilter{
		Q:       strings.TrimSpace(c.QueryParam("q")),
		Source:  strings.TrimSpace(c.QueryParam("source")),
		Status:  strings.TrimSpace(c.QueryParam("status")),
		Page:    parseIntDefault(c.QueryParam("page"), 1),
		PerPage: parseIntDefault(c.QueryParam("per_page"), 20),
	}

	if updatedSinceStr := strings.TrimSpace(c.QueryParam("updated_since")); updatedSinceStr != "" {
		parsed, err := time.Parse(time.RFC3339, updatedSinceStr)
		if err != nil {
			return Error(c, http.StatusBadRequest, "invalid updated_since (use RFC3339)")
		}
		filter.UpdatedSince = &parsed
	}

	page, err := h.leads.List(c.Request().Context(), middleware.OrganizationIDFromContext(c), filter)
	if err != nil {
		return respondError(c, err, "failed to list leads")
	}
	return Success(c, http.StatusOK, "leads retrieved", page)
}

// Get handles GET /api/leads/:id.
func (h *LeadsHandler) Get(c echo.Context) error {
	lead, err := h.leads.Get(c.Request().Context(), middleware.OrganizationIDFromContext(c), c.Param("id"))
	if err != nil {
		return respondError(c, err, "failed to load lead")
	}
	return Success(c, http.StatusOK, "lead retrieved", lead)
}

// Create handles POST /api/leads for manually entered leads.
func (h *LeadsHandler) Create(c echo.Context) error {
	var req dto.CreateLeadRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	lead, err := h.leads.CreateDirect(c.Request().Context(), middleware.OrganizationIDFromContext(c), req)
	if err != nil {
		return respondError(c, err, "failed to create lead")
	}
	return Success(c, http.StatusCreated, "lead created", lead)
}

// ImportCSV handles POST /api/leads/import (multipart field "file").
func (h *LeadsHandler) ImportCSV(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return Error(c, http.StatusBadRequest, "missing csv file")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return Error(c, http.StatusBadRequest, "unable to open file")
	}
	defer file.Close()

	summary, err := h.leads.ImportCSV(c.Request().Context(), middleware.OrganizationIDFromContext(c), file)
	if err != nil {
		var validationErr service.CSVValidationError
		if errors.As(err, &validationErr) {
			return Error(c, http.StatusBadRequest, validationErr.Error())
		}
		return respondError(c, err, "failed to process csv")
	}

	return Success(c, http.StatusOK, "leads CSV processed", summary)
}

func parseIntDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
