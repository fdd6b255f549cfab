package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/uppalcrm/crm/api/internal/dto"
	"github.com/uppalcrm/crm/api/internal/logging"
	"github.com/uppalcrm/crm/api/internal/service"
	"github.com/uppalcrm/crm/api/internal/service/normalize"
)

// statusFor maps service errors onto HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	var normErr *normalize.Error
	switch {
	case errors.As(err, &normErr):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err in the shared envelope. Internal errors are logged and replaced by
// fallback so driver messages never reach clients.
func respondError(c echo.Context, err error, fallback string) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error().Err(err).Str("path", c.Path()).Msg(fallback)
		return Error(c, status, fallback)
	}
	var fieldErr *service.FieldError
	if errors.As(err, &fieldErr) {
		return FieldError(c, status, fieldErr.Field, err.Error())
	}
	return Error(c, status, err.Error())
}

// webhookError builds the machine-readable body integrations branch on.
func webhookError(err error) dto.WebhookError {
	var normErr *normalize.Error
	if errors.As(err, &normErr) {
		return dto.WebhookError{
			Kind:    string(normErr.Kind),
			Field:   normErr.Field,
			Message: normErr.Field + " is required",
		}
	}

	out := dto.WebhookError{Message: err.Error()}
	var fieldErr *service.FieldError
	if errors.As(err, &fieldErr) {
		out.Field = fieldErr.Field
	}
	switch {
	case errors.Is(err, service.ErrConflict):
		out.Kind = "duplicate"
	case errors.Is(err, service.ErrInvalidArgument):
		out.Kind = "invalid_field"
	case errors.Is(err, service.ErrNotFound):
		out.Kind = "not_found"
	default:
		out.Kind = "internal"
	}
	return out
}

// respondWebhookError writes err using the integration error body.
func respondWebhookError(c echo.Context, err error) error {
	status := statusFor(err)
	body := webhookError(err)
	if status == http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error().Err(err).Str("path", c.Path()).Msg("webhook request failed")
		body.Message = "failed to process webhook"
	}
	return c.JSON(status, dto.WebhookErrorResponse{Success: false, Error: body})
}
