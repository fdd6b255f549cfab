package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uppalcrm/crm/api/internal/dto"
	"github.com/uppalcrm/crm/api/internal/entity"
	"github.com/uppalcrm/crm/api/internal/metrics"
	"github.com/uppalcrm/crm/api/internal/repository"
	"github.com/uppalcrm/crm/api/internal/service/entitlement"
)

// EntitlementOption customises LicensesService and TrialsService.
type EntitlementOption func(*entitlementDeps)

type entitlementDeps struct {
	keys     entitlement.KeyGenerator
	attempts int
	metrics  *metrics.CRMMetrics
	now      func() time.Time
}

func newEntitlementDeps(opts []EntitlementOption) entitlementDeps {
	deps := entitlementDeps{
		keys:     entitlement.RandomKeyGenerator{},
		attempts: entitlement.DefaultKeyAttempts,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return deps
}

// WithKeyGenerator replaces the crypto/rand key generator.
func WithKeyGenerator(gen entitlement.KeyGenerator) EntitlementOption {
	return func(d *entitlementDeps) {
		if gen != nil {
			d.keys = gen
		}
	}
}

// WithKeyAttempts bounds key regeneration after collisions.
func WithKeyAttempts(n int) EntitlementOption {
	return func(d *entitlementDeps) {
		if n > 0 {
			d.attempts = n
		}
	}
}

// WithEntitlementMetrics records lifecycle calls.
func WithEntitlementMetrics(m *metrics.CRMMetrics) EntitlementOption {
	return func(d *entitlementDeps) { d.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) EntitlementOption {
	return func(d *entitlementDeps) {
		if now != nil {
			d.now = now
		}
	}
}

// LicensesService issues and manages software licenses.
type LicensesService struct {
	licenses repository.LicensesRepository
	contacts repository.ContactsRepository
	entitlementDeps
}

// NewLicensesService constructs a LicensesService.
func NewLicensesService(licenses repository.LicensesRepository, contacts repository.ContactsRepository, opts ...EntitlementOption) *LicensesService {
	return &LicensesService{licenses: licenses, contacts: contacts, entitlementDeps: newEntitlementDeps(opts)}
}

// Generate issues a new license with a fresh key for a contact of the organization.
func (s *LicensesService) Generate(ctx context.Context, orgID uuid.UUID, contactID string, req dto.GenerateLicenseRequest) (resp dto.LicenseResponse, err error) {
	defer func() { s.metrics.ObserveEntitlement("license", "generate", err) }()

	contact, err := findContact(ctx, s.contacts, orgID, contactID)
	if err != nil {
		return dto.LicenseResponse{}, err
	}

	now := s.now()
	edition := strings.TrimSpace(req.SoftwareEdition)
	if edition == "" {
		return dto.LicenseResponse{}, invalidField("software_edition", "software_edition is required")
	}
	if req.ExpiresAt == nil {
		return dto.LicenseResponse{}, invalidField("expires_at", "expires_at is required")
	}
	if !req.ExpiresAt.After(now) {
		return dto.LicenseResponse{}, invalidField("expires_at", "expires_at must be in the future")
	}
	maxDevices := req.MaxDevices
	if maxDevices < 0 {
		return dto.LicenseResponse{}, invalidField("max_devices", "max_devices must not be negative")
	}
	if maxDevices == 0 {
		maxDevices = 1
	}

	license := &entity.License{
		OrganizationID:  orgID,
		ContactID:       contact.ID,
		SoftwareEdition: edition,
		MaxDevices:      maxDevices,
		Features:        cleanFeatures(req.Features),
		Status:          string(entitlement.StatusActive),
		ExpiresAt:       req.ExpiresAt.UTC(),
	}
	_, err = entitlement.IssueKey(s.keys, s.attempts, func(key string) error {
		license.LicenseKey = key
		if err := s.licenses.Create(ctx, license); err != nil {
			if errors.Is(err, repository.ErrLicenseKeyDuplicate) {
				return entitlement.ErrKeyCollision
			}
			return err
		}
		return nil
	})
	if err != nil {
		return dto.LicenseResponse{}, err
	}
	return licenseResponse(license, now), nil
}

// ListForContact returns the contact's licenses with their evaluations.
func (s *LicensesService) ListForContact(ctx context.Context, orgID uuid.UUID, contactID string) ([]dto.LicenseResponse, error) {
	contact, err := findContact(ctx, s.contacts, orgID, contactID)
	if err != nil {
		return nil, err
	}
	licenses, err := s.licenses.ListByContact(ctx, orgID, contact.ID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]dto.LicenseResponse, 0, len(licenses))
	for i := range licenses {
		out = append(out, licenseResponse(&licenses[i], now))
	}
	return out, nil
}

// Get returns one license with its evaluation.
func (s *LicensesService) Get(ctx context.Context, orgID uuid.UUID, id string) (dto.LicenseResponse, error) {
	license, err := s.find(ctx, orgID, id)
	if err != nil {
		return dto.LicenseResponse{}, err
	}
	return licenseResponse(license, s.now()), nil
}

// Transfer moves a license to another contact of the same organization. Expiry and status are
// kept; devices bound to the license follow it.
func (s *LicensesService) Transfer(ctx context.Context, orgID uuid.UUID, id string, req dto.TransferLicenseRequest) (resp dto.TransferResponse, err error) {
	defer func() { s.metrics.ObserveEntitlement("license", "transfer", err) }()

	license, err := s.find(ctx, orgID, id)
	if err != nil {
		return dto.TransferResponse{}, err
	}
	if strings.TrimSpace(req.NewContactID) == "" {
		return dto.TransferResponse{}, invalidField("new_contact_id", "new_contact_id is required")
	}
	target, err := findContact(ctx, s.contacts, orgID, req.NewContactID)
	if err != nil {
		return dto.TransferResponse{}, err
	}

	now := s.now()
	moved, remaining, err := entitlement.Transfer(licenseRecord(license), target.ID.String(), now)
	if err != nil {
		return dto.TransferResponse{}, err
	}

	reason := strings.TrimSpace(req.Reason)
	transfer := entity.LicenseTransfer{
		OrganizationID: orgID,
		LicenseID:      license.ID,
		FromContactID:  license.ContactID,
		ToContactID:    target.ID,
		Reason:         reason,
		RemainingDays:  remaining,
	}
	if err := s.licenses.Transfer(ctx, license, transfer); err != nil {
		if errors.Is(err, repository.ErrLicenseNotFound) {
			return dto.TransferResponse{}, notFound("license")
		}
		return dto.TransferResponse{}, err
	}
	license.ContactID = target.ID
	license.ExpiresAt = moved.ExpiresAt

	return dto.TransferResponse{
		License:  licenseResponse(license, now),
		Transfer: dto.TransferSummary{Reason: reason, RemainingDays: remaining},
	}, nil
}

// Extend adds days to the license expiry.
func (s *LicensesService) Extend(ctx context.Context, orgID uuid.UUID, id string, days int) (resp dto.LicenseResponse, err error) {
	defer func() { s.metrics.ObserveEntitlement("license", "extend", err) }()

	return s.transition(ctx, orgID, id, func(r entitlement.Record) (entitlement.Record, error) {
		return entitlement.Extend(r, days)
	})
}

// Cancel cancels an active license.
func (s *LicensesService) Cancel(ctx context.Context, orgID uuid.UUID, id, reason string) (resp dto.LicenseResponse, err error) {
	defer func() { s.metrics.ObserveEntitlement("license", "cancel", err) }()

	return s.transition(ctx, orgID, id, func(r entitlement.Record) (entitlement.Record, error) {
		return entitlement.Cancel(r, reason)
	})
}

func (s *LicensesService) transition(ctx context.Context, orgID uuid.UUID, id string, apply func(entitlement.Record) (entitlement.Record, error)) (dto.LicenseResponse, error) {
	license, err := s.find(ctx, orgID, id)
	if err != nil {
		return dto.LicenseResponse{}, err
	}
	next, err := apply(licenseRecord(license))
	if err != nil {
		return dto.LicenseResponse{}, err
	}

	license.Status = string(next.Status)
	license.ExpiresAt = next.ExpiresAt
	license.CancelReason = normalizeString(next.CancelReason)
	if err := s.licenses.UpdateState(ctx, license); err != nil {
		if errors.Is(err, repository.ErrLicenseNotFound) {
			return dto.LicenseResponse{}, notFound("license")
		}
		return dto.LicenseResponse{}, err
	}
	return licenseResponse(license, s.now()), nil
}

func (s *LicensesService) find(ctx context.Context, orgID uuid.UUID, id string) (*entity.License, error) {
	licenseID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, notFound("license")
	}
	license, err := s.licenses.FindByID(ctx, orgID, licenseID)
	if err != nil {
		if errors.Is(err, repository.ErrLicenseNotFound) {
			return nil, notFound("license")
		}
		return nil, err
	}
	return license, nil
}

func findContact(ctx context.Context, contacts repository.ContactsRepository, orgID uuid.UUID, id string) (*entity.Contact, error) {
	contactID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, notFound("contact")
	}
	contact, err := contacts.FindByID(ctx, orgID, contactID)
	if err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			return nil, notFound("contact")
		}
		return nil, err
	}
	return contact, nil
}

func licenseRecord(l *entity.License) entitlement.Record {
	record := entitlement.Record{
		ContactID: l.ContactID.String(),
		Status:    entitlement.Status(l.Status),
		CreatedAt: l.CreatedAt,
		ExpiresAt: l.ExpiresAt,
	}
	if l.CancelReason != nil {
		record.CancelReason = *l.CancelReason
	}
	return record
}

func licenseResponse(l *entity.License, now time.Time) dto.LicenseResponse {
	return dto.LicenseResponse{
		ID:              l.ID.String(),
		ContactID:       l.ContactID.String(),
		LicenseKey:      l.LicenseKey,
		SoftwareEdition: l.SoftwareEdition,
		MaxDevices:      l.MaxDevices,
		Features:        cleanFeatures(l.Features),
		CancelReason:    l.CancelReason,
		CreatedAt:       l.CreatedAt,
		ExpiresAt:       l.ExpiresAt,
		Evaluation:      evaluationDTO(entitlement.Evaluate(licenseRecord(l), now)),
	}
}

func evaluationDTO(e entitlement.Evaluation) dto.Evaluation {
	return dto.Evaluation{
		Status:          string(e.Stored),
		EffectiveStatus: string(e.Effective),
		DaysUntilExpiry: e.DaysUntilExpiry,
		Band:            string(e.Band),
		Label:           e.Label,
	}
}

func cleanFeatures(features []string) []string {
	out := make([]string, 0, len(features))
	seen := make(map[string]struct{}, len(features))
	for _, f := range features {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
