package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/uppalcrm/crm/api/internal/service"
	"github.com/uppalcrm/crm/api/internal/service/normalize"
)

func TestStatusFor(t *testing.T) {
	cases := map[string]struct {
		err  error
		want int
	}{
		"normalization":      {&normalize.Error{Kind: normalize.KindMissingRequiredField, Field: "email"}, http.StatusBadRequest},
		"invalid argument":   {fmt.Errorf("%w: days", service.ErrInvalidArgument), http.StatusBadRequest},
		"field error":        {&service.FieldError{Err: service.ErrInvalidArgument, Field: "email"}, http.StatusBadRequest},
		"not found":          {fmt.Errorf("%w: license", service.ErrNotFound), http.StatusNotFound},
		"invalid state":      {fmt.Errorf("%w: cancelled", service.ErrInvalidState), http.StatusConflict},
		"conflict":           {&service.FieldError{Err: service.ErrConflict, Field: "email"}, http.StatusConflict},
		"unauthorized":       {service.ErrUnauthorized, http.StatusUnauthorized},
		"bad credentials":    {service.ErrInvalidCredentials, http.StatusUnauthorized},
		"forbidden":          {service.ErrForbidden, http.StatusForbidden},
		"rate limited":       {service.ErrRateLimited, http.StatusTooManyRequests},
		"unexpected failure": {errors.New("connection reset"), http.StatusInternalServerError},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := statusFor(tc.err); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestWebhookError(t *testing.T) {
	got := webhookError(&normalize.Error{Kind: normalize.KindMissingRequiredField, Field: "email"})
	if got.Kind != "missing_required_field" || got.Field != "email" || got.Message != "email is required" {
		t.Fatalf("unexpected normalization body: %+v", got)
	}

	got = webhookError(&service.FieldError{Err: service.ErrConflict, Field: "email", Message: "a lead with this email already exists"})
	if got.Kind != "duplicate" || got.Field != "email" {
		t.Fatalf("unexpected duplicate body: %+v", got)
	}

	got = webhookError(fmt.Errorf("%w: webhook", service.ErrNotFound))
	if got.Kind != "not_found" || got.Field != "" {
		t.Fatalf("unexpected not found body: %+v", got)
	}
}
