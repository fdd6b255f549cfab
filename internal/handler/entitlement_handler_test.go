package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/uppalcrm/crm/api/internal/dto"
	"github.com/uppalcrm/crm/api/internal/entity"
	"github.com/uppalcrm/crm/api/internal/service"
)

var entitlementNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type entitlementHarness struct {
	handler  *EntitlementHandler
	licenses *memLicensesRepo
	trials   *memTrialsRepo
	contact  entity.Contact
	second   entity.Contact
	foreign  entity.Contact
}

func newEntitlementHarness() *entitlementHarness {
	contact := entity.Contact{ID: uuid.New(), OrganizationID: handlerOrg.ID, FirstName: "Ada"}
	second := entity.Contact{ID: uuid.New(), OrganizationID: handlerOrg.ID, FirstName: "Grace"}
	foreign := entity.Contact{ID: uuid.New(), OrganizationID: uuid.New(), FirstName: "Mallory"}
	contacts := &memContactsRepo{contacts: map[uuid.UUID]entity.Contact{
		contact.ID: contact,
		second.ID:  second,
		foreign.ID: foreign,
	}}
	licenses := &memLicensesRepo{}
	trials := &memTrialsRepo{}
	clock := service.WithClock(func() time.Time { return entitlementNow })

	return &entitlementHarness{
		handler:  NewEntitlementHandler(service.NewLicensesService(licenses, contacts, clock), service.NewTrialsService(trials, contacts, clock)),
		licenses: licenses,
		trials:   trials,
		contact:  contact,
		second:   second,
		foreign:  foreign,
	}
}

func withID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	envelope := struct {
		Data any `json:"data"`
	}{Data: out}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
}

func (h *entitlementHarness) generate(t *testing.T, e *echo.Echo, contactID string, req dto.GenerateLicenseRequest) *httptest.ResponseRecorder {
	t.Helper()
	c, rec := scopedContext(e, jsonRequest(http.MethodPost, "/api/contacts/x/licenses", req))
	_ = h.handler.GenerateLicense(withID(c, contactID))
	return rec
}

func TestEntitlementHandler_GenerateLicense(t *testing.T) {
	e := echo.New()
	expires := entitlementNow.Add(10 * 24 * time.Hour)

	t.Run("success", func(t *testing.T) {
		h := newEntitlementHarness()
		rec := h.generate(t, e, h.contact.ID.String(), dto.GenerateLicenseRequest{SoftwareEdition: "pro", ExpiresAt: &expires})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		var license dto.LicenseResponse
		decodeData(t, rec, &license)
		if license.LicenseKey == "" || license.MaxDevices != 1 {
			t.Fatalf("unexpected license: %+v", license)
		}
		if license.Evaluation.EffectiveStatus != "active" || license.Evaluation.DaysUntilExpiry != 10 {
			t.Fatalf("unexpected evaluation: %+v", license.Evaluation)
		}
	})

	t.Run("contact of another organization", func(t *testing.T) {
		h := newEntitlementHarness()
		rec := h.generate(t, e, h.foreign.ID.String(), dto.GenerateLicenseRequest{SoftwareEdition: "pro", ExpiresAt: &expires})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if len(h.licenses.licenses) != 0 {
			t.Fatalf("license must not be created")
		}
	})

	t.Run("expiry in the past", func(t *testing.T) {
		h := newEntitlementHarness()
		past := entitlementNow.Add(-time.Hour)
		rec := h.generate(t, e, h.contact.ID.String(), dto.GenerateLicenseRequest{SoftwareEdition: "pro", ExpiresAt: &past})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("invalid payload", func(t *testing.T) {
		h := newEntitlementHarness()
		c, rec := scopedContext(e, jsonRequest(http.MethodPost, "/api/contacts/x/licenses", "{"))
		_ = h.handler.GenerateLicense(withID(c, h.contact.ID.String()))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestEntitlementHandler_LicenseLifecycle(t *testing.T) {
	e := echo.New()
	h := newEntitlementHarness()
	expires := entitlementNow.Add(5 * 24 * time.Hour)

	rec := h.generate(t, e, h.contact.ID.String(), dto.GenerateLicenseRequest{SoftwareEdition: "pro", ExpiresAt: &expires})
	var license dto.LicenseResponse
	decodeData(t, rec, &license)

	c, rec := scopedContext(e, jsonRequest(http.MethodPost, "/api/licenses/x/extend", dto.ExtendRequest{Days: 30}))
	_ = h.handler.ExtendLicense(withID(c, license.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("extend: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var extended dto.LicenseResponse
	decodeData(t, rec, &extended)
	if !extended.ExpiresAt.Equal(expires.Add(30 * 24 * time.Hour)) {
		t.Fatalf("expected expiry moved by 30 days, got %s", extended.ExpiresAt)
	}

	c, rec = scopedContext(e, jsonRequest(http.MethodPost, "/api/licenses/x/extend", dto.ExtendRequest{Days: 0}))
	_ = h.handler.ExtendLicense(withID(c, license.ID))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("extend by zero: expected 400, got %d", rec.Code)
	}

	c, rec = scopedContext(e, jsonRequest(http.MethodPost, "/api/contacts/licenses/x/transfer", dto.TransferLicenseRequest{NewContactID: h.second.ID.String(), Reason: "seat moved"}))
	_ = h.handler.TransferLicense(withID(c, license.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("transfer: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var transferred dto.TransferResponse
	decodeData(t, rec, &transferred)
	if transferred.License.ContactID != h.second.ID.String() || transferred.Transfer.RemainingDays != 35 {
		t.Fatalf("unexpected transfer: %+v", transferred)
	}

	c, rec = scopedContext(e, jsonRequest(http.MethodPost, "/api/contacts/licenses/x/transfer", dto.TransferLicenseRequest{NewContactID: h.foreign.ID.String()}))
	_ = h.handler.TransferLicense(withID(c, license.ID))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cross-tenant transfer: expected 404, got %d", rec.Code)
	}

	c, rec = scopedContext(e, jsonRequest(http.MethodPost, "/api/licenses/x/cancel", dto.CancelRequest{Reason: "refund"}))
	_ = h.handler.CancelLicense(withID(c, license.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", rec.Code)
	}

	c, rec = scopedContext(e, jsonRequest(http.MethodPost, "/api/licenses/x/cancel", dto.CancelRequest{}))
	_ = h.handler.CancelLicense(withID(c, license.ID))
	if rec.Code != http.StatusConflict {
		t.Fatalf("second cancel: expected 409, got %d", rec.Code)
	}

	c, rec = scopedContext(e, httptest.NewRequest(http.MethodGet, "/api/licenses/x", nil))
	_ = h.handler.GetLicense(withID(c, license.ID))
	var fetched dto.LicenseResponse
	decodeData(t, rec, &fetched)
	if fetched.Evaluation.EffectiveStatus != "cancelled" || fetched.CancelReason == nil || *fetched.CancelReason != "refund" {
		t.Fatalf("unexpected license after cancel: %+v", fetched)
	}

	c, rec = scopedContext(e, httptest.NewRequest(http.MethodGet, "/api/contacts/x/licenses", nil))
	_ = h.handler.ListLicenses(withID(c, h.second.ID.String()))
	var listed []dto.LicenseResponse
	decodeData(t, rec, &listed)
	if len(listed) != 1 {
		t.Fatalf("expected 1 license for new owner, got %d", len(listed))
	}
}

func TestEntitlementHandler_LicenseOfAnotherOrganization(t *testing.T) {
	e := echo.New()
	h := newEntitlementHarness()
	foreign := entity.License{ID: uuid.New(), OrganizationID: h.foreign.OrganizationID, ContactID: h.foreign.ID, Status: "active", ExpiresAt: entitlementNow.Add(time.Hour)}
	h.licenses.licenses = map[uuid.UUID]entity.License{foreign.ID: foreign}

	c, rec := scopedContext(e, httptest.NewRequest(http.MethodGet, "/api/licenses/x", nil))
	_ = h.handler.GetLicense(withID(c, foreign.ID.String()))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	c, rec = scopedContext(e, jsonRequest(http.MethodPost, "/api/licenses/x/extend", dto.ExtendRequest{Days: 1}))
	_ = h.handler.ExtendLicense(withID(c, foreign.ID.String()))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestEntitlementHandler_Trials(t *testing.T) {
	e := echo.New()
	h := newEntitlementHarness()

	c, rec := scopedContext(e, jsonRequest(http.MethodPost, "/api/contacts/x/trials", dto.CreateTrialRequest{SoftwareEdition: "pro"}))
	_ = h.handler.CreateTrial(withID(c, h.contact.ID.String()))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var trial dto.TrialResponse
	decodeData(t, rec, &trial)
	if trial.Evaluation.DaysUntilExpiry != service.DefaultTrialDays || trial.ProgressPercent != 0 || trial.CanExtend {
		t.Fatalf("unexpected trial: %+v", trial)
	}

	zero := 0
	c, rec = scopedContext(e, jsonRequest(http.MethodPost, "/api/contacts/x/trials", dto.CreateTrialRequest{SoftwareEdition: "pro", TrialDays: &zero}))
	_ = h.handler.CreateTrial(withID(c, h.contact.ID.String()))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("zero days: expected 400, got %d", rec.Code)
	}

	expired := -1
	c, rec = scopedContext(e, jsonRequest(http.MethodPost, "/api/contacts/x/trials", dto.CreateTrialRequest{SoftwareEdition: "pro", TrialDays: &expired}))
	_ = h.handler.CreateTrial(withID(c, h.contact.ID.String()))
	var expiredTrial dto.TrialResponse
	decodeData(t, rec, &expiredTrial)
	if expiredTrial.Evaluation.EffectiveStatus != "expired" || expiredTrial.Evaluation.Status != "active" {
		t.Fatalf("expected lazily expired trial, got %+v", expiredTrial.Evaluation)
	}

	c, rec = scopedContext(e, jsonRequest(http.MethodPost, "/api/trials/x/extend", dto.ExtendRequest{Days: 7}))
	_ = h.handler.ExtendTrial(withID(c, trial.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("extend: expected 200, got %d", rec.Code)
	}

	c, rec = scopedContext(e, httptest.NewRequest(http.MethodPost, "/api/trials/x/convert", nil))
	_ = h.handler.ConvertTrial(withID(c, trial.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("convert: expected 200, got %d", rec.Code)
	}
	var converted dto.TrialResponse
	decodeData(t, rec, &converted)
	if converted.Evaluation.Status != "converted" || converted.ConvertedAt == nil {
		t.Fatalf("unexpected converted trial: %+v", converted)
	}

	c, rec = scopedContext(e, jsonRequest(http.MethodPost, "/api/trials/x/cancel", dto.CancelRequest{}))
	_ = h.handler.CancelTrial(withID(c, trial.ID))
	if rec.Code != http.StatusConflict {
		t.Fatalf("cancel converted: expected 409, got %d", rec.Code)
	}

	c, rec = scopedContext(e, httptest.NewRequest(http.MethodGet, "/api/contacts/x/trials", nil))
	_ = h.handler.ListTrials(withID(c, h.contact.ID.String()))
	var listed []dto.TrialResponse
	decodeData(t, rec, &listed)
	if len(listed) != 2 {
		t.Fatalf("expected 2 trials, got %d", len(listed))
	}

	c, rec = scopedContext(e, httptest.NewRequest(http.MethodGet, "/api/contacts/x/trials", nil))
	_ = h.handler.ListTrials(withID(c, h.foreign.ID.String()))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign contact: expected 404, got %d", rec.Code)
	}
}
