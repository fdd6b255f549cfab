package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var payload APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return payload
}

func TestSuccess(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.Response().Header().Set(echo.HeaderXRequestID, "req-1")

	if err := Success(c, 0, "leads retrieved", map[string]int{"total": 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	payload := decodeEnvelope(t, rec)
	if payload.Status != "success" || payload.Message != "leads retrieved" || payload.RequestID != "req-1" {
		t.Fatalf("unexpected response: %+v", payload)
	}
}

func TestError(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	if err := Error(c, 0, "boom"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected default status 500, got %d", rec.Code)
	}

	payload := decodeEnvelope(t, rec)
	if payload.Status != "error" || payload.Message != "boom" || payload.Field != "" || payload.RequestID != "" {
		t.Fatalf("unexpected response: %+v", payload)
	}
}

func TestFieldError(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	if err := FieldError(c, http.StatusBadRequest, "email", "email is invalid"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	payload := decodeEnvelope(t, rec)
	if rec.Code != http.StatusBadRequest || payload.Field != "email" {
		t.Fatalf("unexpected response: %d %+v", rec.Code, payload)
	}
}
