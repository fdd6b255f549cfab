package handler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/uppalcrm/crm/api/internal/dto"
	"github.com/uppalcrm/crm/api/internal/entity"
	"github.com/uppalcrm/crm/api/internal/repository"
)

type memLeadsRepo struct {
	mu    sync.Mutex
	leads []entity.Lead
	bulk  []entity.Lead
}

func (m *memLeadsRepo) Create(ctx context.Context, lead *entity.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.leads {
		if existing.OrganizationID == lead.OrganizationID && strings.EqualFold(existing.Email, lead.Email) {
			return repository.ErrLeadEmailDuplicate
		}
	}
	lead.ID = uuid.New()
	lead.CreatedAt = time.Now()
	lead.UpdatedAt = lead.CreatedAt
	m.leads = append(m.leads, *lead)
	return nil
}

func (m *memLeadsRepo) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lead := range m.leads {
		if lead.ID == id && lead.OrganizationID == orgID {
			found := lead
			return &found, nil
		}
	}
	return nil, repository.ErrLeadNotFound
}

func (m *memLeadsRepo) List(ctx context.Context, orgID uuid.UUID, filter dto.LeadListFilter) ([]entity.Lead, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Lead
	for _, lead := range m.leads {
		if lead.OrganizationID == orgID {
			out = append(out, lead)
		}
	}
	return out, len(out), nil
}

func (m *memLeadsRepo) BulkInsert(ctx context.Context, leads []entity.Lead) (repository.BulkInsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulk = append(m.bulk, leads...)
	return repository.BulkInsertResult{Inserted: len(leads), Total: len(leads)}, nil
}

type memWebhooksRepo struct {
	mu        sync.Mutex
	endpoints map[uuid.UUID]entity.WebhookEndpoint
	logs      []entity.DeliveryLog
}

func (m *memWebhooksRepo) FindEndpoint(ctx context.Context, orgID, id uuid.UUID) (*entity.WebhookEndpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	endpoint, ok := m.endpoints[id]
	if !ok || endpoint.OrganizationID != orgID {
		return nil, repository.ErrWebhookNotFound
	}
	return &endpoint, nil
}

func (m *memWebhooksRepo) InsertDeliveryLog(ctx context.Context, log *entity.DeliveryLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *memWebhooksRepo) Stats(ctx context.Context, orgID uuid.UUID, from, to time.Time) (entity.WebhookStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats entity.WebhookStats
	for _, log := range m.logs {
		if log.OrganizationID != orgID {
			continue
		}
		stats.Total++
		switch log.Status {
		case entity.DeliveryProcessed:
			stats.Processed++
		case entity.DeliveryRejected:
			stats.Rejected++
		case entity.DeliveryFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

type memContactsRepo struct {
	contacts map[uuid.UUID]entity.Contact
}

func (m *memContactsRepo) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.Contact, error) {
	contact, ok := m.contacts[id]
	if !ok || contact.OrganizationID != orgID {
		return nil, repository.ErrContactNotFound
	}
	return &contact, nil
}

type memLicensesRepo struct {
	mu       sync.Mutex
	licenses map[uuid.UUID]entity.License
}

func (m *memLicensesRepo) Create(ctx context.Context, license *entity.License) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.licenses == nil {
		m.licenses = make(map[uuid.UUID]entity.License)
	}
	license.ID = uuid.New()
	m.licenses[license.ID] = *license
	return nil
}

func (m *memLicensesRepo) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.License, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	license, ok := m.licenses[id]
	if !ok || license.OrganizationID != orgID {
		return nil, repository.ErrLicenseNotFound
	}
	return &license, nil
}

func (m *memLicensesRepo) ListByContact(ctx context.Context, orgID, contactID uuid.UUID) ([]entity.License, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.License
	for _, license := range m.licenses {
		if license.OrganizationID == orgID && license.ContactID == contactID {
			out = append(out, license)
		}
	}
	return out, nil
}

func (m *memLicensesRepo) UpdateState(ctx context.Context, license *entity.License) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.licenses[license.ID] = *license
	return nil
}

func (m *memLicensesRepo) Transfer(ctx context.Context, license *entity.License, transfer entity.LicenseTransfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.licenses[transfer.LicenseID]
	if !ok || stored.OrganizationID != transfer.OrganizationID {
		return repository.ErrLicenseNotFound
	}
	stored.ContactID = transfer.ToContactID
	m.licenses[stored.ID] = stored
	return nil
}

type memTrialsRepo struct {
	mu     sync.Mutex
	trials map[uuid.UUID]entity.Trial
}

func (m *memTrialsRepo) Create(ctx context.Context, trial *entity.Trial) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trials == nil {
		m.trials = make(map[uuid.UUID]entity.Trial)
	}
	trial.ID = uuid.New()
	m.trials[trial.ID] = *trial
	return nil
}

func (m *memTrialsRepo) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.Trial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trial, ok := m.trials[id]
	if !ok || trial.OrganizationID != orgID {
		return nil, repository.ErrTrialNotFound
	}
	return &trial, nil
}

func (m *memTrialsRepo) ListByContact(ctx context.Context, orgID, contactID uuid.UUID) ([]entity.Trial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Trial
	for _, trial := range m.trials {
		if trial.OrganizationID == orgID && trial.ContactID == contactID {
			out = append(out, trial)
		}
	}
	return out, nil
}

func (m *memTrialsRepo) UpdateState(ctx context.Context, trial *entity.Trial) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trials[trial.ID] = *trial
	return nil
}

type memOrganizationsRepo struct {
	mu    sync.Mutex
	orgs  map[uuid.UUID]entity.Organization
	notes []entity.OrganizationNote
}

func (m *memOrganizationsRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.orgs[id]
	if !ok {
		return nil, repository.ErrOrganizationNotFound
	}
	return &org, nil
}

func (m *memOrganizationsRepo) FindBySlug(ctx context.Context, slug string) (*entity.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, org := range m.orgs {
		if org.Slug == slug {
			found := org
			return &found, nil
		}
	}
	return nil, repository.ErrOrganizationNotFound
}

func (m *memOrganizationsRepo) ExtendTrial(ctx context.Context, id uuid.UUID, endsAt time.Time, note entity.OrganizationNote) (*entity.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.orgs[id]
	if !ok {
		return nil, repository.ErrOrganizationNotFound
	}
	org.TrialEndsAt = &endsAt
	org.TrialStatus = "active"
	org.TrialExtendedCount++
	m.orgs[id] = org
	m.notes = append(m.notes, note)
	return &org, nil
}

func (m *memOrganizationsRepo) ConvertToPaid(ctx context.Context, id uuid.UUID, conv repository.PaidConversion, note entity.OrganizationNote) (*entity.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.orgs[id]
	if !ok {
		return nil, repository.ErrOrganizationNotFound
	}
	org.TrialStatus = "converted"
	org.PaymentStatus = "paid"
	org.SubscriptionPlan = &conv.SubscriptionPlan
	org.LicenseCount = conv.LicenseCount
	m.orgs[id] = org
	m.notes = append(m.notes, note)
	return &org, nil
}

func (m *memOrganizationsRepo) ListTrialsEndingBefore(ctx context.Context, before time.Time) ([]entity.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Organization
	for _, org := range m.orgs {
		if org.TrialStatus == "active" && org.TrialEndsAt != nil && org.TrialEndsAt.Before(before) {
			out = append(out, org)
		}
	}
	return out, nil
}

func (m *memOrganizationsRepo) ExpireTrials(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, org := range m.orgs {
		if org.TrialStatus == "active" && org.TrialEndsAt != nil && org.TrialEndsAt.Before(now) {
			org.TrialStatus = "expired"
			m.orgs[id] = org
			n++
		}
	}
	return n, nil
}

type memAPIKeysRepo struct {
	mu   sync.Mutex
	keys []entity.APIKey
}

func (m *memAPIKeysRepo) Create(ctx context.Context, key *entity.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key.ID = uuid.New()
	key.IsActive = true
	key.CreatedAt = time.Now()
	m.keys = append(m.keys, *key)
	return nil
}

func (m *memAPIKeysRepo) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]entity.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.APIKey
	for _, key := range m.keys {
		if key.OrganizationID == orgID {
			out = append(out, key)
		}
	}
	return out, nil
}

func (m *memAPIKeysRepo) ListUsable(ctx context.Context, orgID uuid.UUID, now time.Time) ([]entity.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.APIKey
	for _, key := range m.keys {
		if key.OrganizationID == orgID && key.IsActive && (key.ExpiresAt == nil || key.ExpiresAt.After(now)) {
			out = append(out, key)
		}
	}
	return out, nil
}

func (m *memAPIKeysRepo) Revoke(ctx context.Context, orgID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.keys {
		if m.keys[i].ID == id && m.keys[i].OrganizationID == orgID {
			m.keys[i].IsActive = false
			return nil
		}
	}
	return repository.ErrAPIKeyNotFound
}

func (m *memAPIKeysRepo) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}
