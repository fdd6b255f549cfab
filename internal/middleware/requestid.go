package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/uppalcrm/crm/api/internal/logging"
)

const maxRequestIDLength = 128

// RequestID reuses the caller's X-Request-ID when it is short and printable and generates one
// otherwise. The ID lands on the echo context, the request context and the response header.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			inbound := req.Header.Get(echo.HeaderXRequestID)
			if !validRequestID(inbound) {
				inbound = ""
			}
			ctx, rid := logging.WithRequestID(req.Context(), inbound)
			c.SetRequest(req.WithContext(ctx))

			c.Set(ContextKeyRequestID, rid)
			c.Response().Header().Set(echo.HeaderXRequestID, rid)

			return next(c)
		}
	}
}

// RequestIDFromContext extracts the request identifier if available.
func RequestIDFromContext(c echo.Context) string {
	rid, _ := c.Get(ContextKeyRequestID).(string)
	return rid
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
