package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/uppalcrm/crm/api/internal/dto"
	"github.com/uppalcrm/crm/api/internal/middleware"
	"github.com/uppalcrm/crm/api/internal/service"
)

// WebhookHandler serves the API-key authenticated integration endpoints.
type WebhookHandler struct {
	webhooks *service.WebhookService
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(webhooks *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// IngestLead handles POST /api/webhooks/leads. The lead is created synchronously.
func (h *WebhookHandler) IngestLead(c echo.Context) error {
	principal, ok := middleware.APIKeyFromContext(c)
	if !ok {
		return Error(c, http.StatusUnauthorized, "missing api key")
	}

	payload, err := decodeObject(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.WebhookErrorResponse{Error: dto.WebhookError{
			Kind:    "invalid_payload",
			Message: "request body must be a JSON object",
		}})
	}

	lead, err := h.webhooks.IngestLead(c.Request().Context(), principal.Organization.ID, payload, c.QueryParam("profile"))
	if err != nil {
		return respondWebhookError(c, err)
	}

	return c.JSON(http.StatusCreated, dto.WebhookLeadResponse{
		Success: true,
		Message: "Lead created successfully",
		Lead:    lead,
	})
}

// Receive handles POST /api/webhooks/:webhookId by queueing the payload for the worker.
func (h *WebhookHandler) Receive(c echo.Context) error {
	principal, ok := middleware.APIKeyFromContext(c)
	if !ok {
		return Error(c, http.StatusUnauthorized, "missing api key")
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return Error(c, http.StatusBadRequest, "unable to read request body")
	}

	webhookID := c.Param("webhookId")
	job, err := h.webhooks.Enqueue(c.Request().Context(), principal.Organization.ID, webhookID, json.RawMessage(body))
	if err != nil {
		return respondWebhookError(c, err)
	}

	return c.JSON(http.StatusOK, dto.WebhookAcceptedResponse{
		Success:   true,
		WebhookID: webhookID,
		JobID:     job.ID.String(),
	})
}

// Test handles GET /api/webhooks/test/:webhookId so integrators can check their credentials.
func (h *WebhookHandler) Test(c echo.Context) error {
	principal, ok := middleware.APIKeyFromContext(c)
	if !ok {
		return Error(c, http.StatusUnauthorized, "missing api key")
	}

	webhookID := c.Param("webhookId")
	endpoint, err := h.webhooks.Describe(c.Request().Context(), principal.Organization.ID, webhookID)
	if err != nil {
		return respondWebhookError(c, err)
	}

	return c.JSON(http.StatusOK, dto.WebhookTestResponse{
		Success:   true,
		WebhookID: webhookID,
		Webhook: dto.WebhookDescription{
			Name:     endpoint.Name,
			Profile:  endpoint.Profile,
			IsActive: endpoint.IsActive,
		},
		APIKey: dto.APIKeyPrincipal{
			ID:               principal.Key.ID.String(),
			Name:             principal.Key.Name,
			Organization:     principal.Organization.Slug,
			Permissions:      principal.Key.Permissions,
			RateLimitPerHour: principal.Key.RateLimitPerHour,
		},
	})
}

// Stats handles GET /api/webhooks/stats?from=&to= (RFC3339 bounds, default last 30 days).
func (h *WebhookHandler) Stats(c echo.Context) error {
	principal, ok := middleware.APIKeyFromContext(c)
	if !ok {
		return Error(c, http.StatusUnauthorized, "missing api key")
	}

	from, err := parseTimeParam(c.QueryParam("from"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid from (use RFC3339)")
	}
	to, err := parseTimeParam(c.QueryParam("to"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid to (use RFC3339)")
	}

	stats, err := h.webhooks.Stats(c.Request().Context(), principal.Organization.ID, from, to)
	if err != nil {
		return respondError(c, err, "failed to load webhook stats")
	}
	return Success(c, http.StatusOK, "webhook stats retrieved", stats)
}

func decodeObject(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, io.ErrUnexpectedEOF
	}
	return payload, nil
}

func parseTimeParam(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}
