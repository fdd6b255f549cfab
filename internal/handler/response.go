package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// APIResponse is the envelope of every application endpoint. Field names the offending input on
// validation errors. RequestID echoes X-Request-ID so clients can quote it in support requests.
type APIResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Field     string `json:"field,omitempty"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Success writes data in the envelope. A zero status means 200.
func Success(c echo.Context, status int, message string, data any) error {
	if status == 0 {
		status = http.StatusOK
	}
	return c.JSON(status, envelope(c, APIResponse{Status: statusSuccess, Message: message, Data: data}))
}

// Error writes message in the envelope. A zero status means 500.
func Error(c echo.Context, status int, message string) error {
	return FieldError(c, status, "", message)
}

// FieldError is Error with the name of the rejected input attached.
func FieldError(c echo.Context, status int, field, message string) error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, envelope(c, APIResponse{Status: statusError, Message: message, Field: field}))
}

func envelope(c echo.Context, resp APIResponse) APIResponse {
	resp.RequestID = c.Response().Header().Get(echo.HeaderXRequestID)
	return resp
}
