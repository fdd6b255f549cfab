package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uppalcrm/crm/api/internal/dto"
	"github.com/uppalcrm/crm/api/internal/entity"
	"github.com/uppalcrm/crm/api/internal/repository"
	"github.com/uppalcrm/crm/api/internal/service/entitlement"
)

type mockContactsRepository struct {
	contacts map[uuid.UUID]entity.Contact
}

func (m *mockContactsRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.Contact, error) {
	c, ok := m.contacts[id]
	if !ok || c.OrganizationID != orgID {
		return nil, repository.ErrContactNotFound
	}
	return &c, nil
}

type memLicensesRepository struct {
	licenses  map[uuid.UUID]*entity.License
	keys      map[string]struct{}
	transfers []entity.LicenseTransfer
}

func newMemLicensesRepository() *memLicensesRepository {
	return &memLicensesRepository{licenses: map[uuid.UUID]*entity.License{}, keys: map[string]struct{}{}}
}

func (m *memLicensesRepository) Create(ctx context.Context, license *entity.License) error {
	if _, taken := m.keys[license.LicenseKey]; taken {
		return repository.ErrLicenseKeyDuplicate
	}
	m.keys[license.LicenseKey] = struct{}{}
	license.ID = uuid.New()
	license.CreatedAt = entitlementNow
	stored := *license
	m.licenses[license.ID] = &stored
	return nil
}

func (m *memLicensesRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.License, error) {
	l, ok := m.licenses[id]
	if !ok || l.OrganizationID != orgID {
		return nil, repository.ErrLicenseNotFound
	}
	dup := *l
	return &dup, nil
}

func (m *memLicensesRepository) ListByContact(ctx context.Context, orgID, contactID uuid.UUID) ([]entity.License, error) {
	out := make([]entity.License, 0)
	for _, l := range m.licenses {
		if l.OrganizationID == orgID && l.ContactID == contactID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *memLicensesRepository) UpdateState(ctx context.Context, license *entity.License) error {
	if _, ok := m.licenses[license.ID]; !ok {
		return repository.ErrLicenseNotFound
	}
	stored := *license
	m.licenses[license.ID] = &stored
	return nil
}

func (m *memLicensesRepository) Transfer(ctx context.Context, license *entity.License, transfer entity.LicenseTransfer) error {
	stored, ok := m.licenses[license.ID]
	if !ok {
		return repository.ErrLicenseNotFound
	}
	stored.ContactID = transfer.ToContactID
	license.ContactID = transfer.ToContactID
	m.transfers = append(m.transfers, transfer)
	return nil
}

type memTrialsRepository struct {
	trials map[uuid.UUID]*entity.Trial
}

func (m *memTrialsRepository) Create(ctx context.Context, trial *entity.Trial) error {
	trial.ID = uuid.New()
	stored := *trial
	m.trials[trial.ID] = &stored
	return nil
}

func (m *memTrialsRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.Trial, error) {
	t, ok := m.trials[id]
	if !ok || t.OrganizationID != orgID {
		return nil, repository.ErrTrialNotFound
	}
	dup := *t
	return &dup, nil
}

func (m *memTrialsRepository) ListByContact(ctx context.Context, orgID, contactID uuid.UUID) ([]entity.Trial, error) {
	out := make([]entity.Trial, 0)
	for _, t := range m.trials {
		if t.OrganizationID == orgID && t.ContactID == contactID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memTrialsRepository) UpdateState(ctx context.Context, trial *entity.Trial) error {
	if _, ok := m.trials[trial.ID]; !ok {
		return repository.ErrTrialNotFound
	}
	stored := *trial
	m.trials[trial.ID] = &stored
	return nil
}

type fixedKeys struct {
	keys []string
	n    int
}

func (f *fixedKeys) Generate() (string, error) {
	key := f.keys[f.n%len(f.keys)]
	f.n++
	return key, nil
}

var (
	entitlementNow = time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	otherOrgID     = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	contactA       = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	contactB       = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002")
	foreignContact = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000001")
)

func testContacts() *mockContactsRepository {
	return &mockContactsRepository{contacts: map[uuid.UUID]entity.Contact{
		contactA:       {ID: contactA, OrganizationID: testOrgID, FirstName: "Ada"},
		contactB:       {ID: contactB, OrganizationID: testOrgID, FirstName: "Ben"},
		foreignContact: {ID: foreignContact, OrganizationID: otherOrgID, FirstName: "Eve"},
	}}
}

func newTestLicenses(repo *memLicensesRepository, opts ...EntitlementOption) *LicensesService {
	opts = append([]EntitlementOption{WithClock(func() time.Time { return entitlementNow })}, opts...)
	return NewLicensesService(repo, testContacts(), opts...)
}

func expiresIn(d time.Duration) *time.Time {
	t := entitlementNow.Add(d)
	return &t
}

func TestLicensesService_Generate(t *testing.T) {
	repo := newMemLicensesRepository()
	svc := newTestLicenses(repo)

	resp, err := svc.Generate(context.Background(), testOrgID, contactA.String(), dto.GenerateLicenseRequest{
		SoftwareEdition: " Pro ",
		ExpiresAt:       expiresIn(20 * 24 * time.Hour),
		Features:        []string{"sync", " sync", ""},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Za-z0-9]{32,}$`, resp.LicenseKey)
	assert.Equal(t, "Pro", resp.SoftwareEdition)
	assert.Equal(t, 1, resp.MaxDevices)
	assert.Equal(t, []string{"sync"}, resp.Features)
	assert.Equal(t, contactA.String(), resp.ContactID)
	assert.Equal(t, "active", resp.Evaluation.EffectiveStatus)
	assert.Equal(t, "healthy", resp.Evaluation.Band)
	assert.Equal(t, 20, resp.Evaluation.DaysUntilExpiry)
}

func TestLicensesService_Generate_RetriesKeyCollision(t *testing.T) {
	repo := newMemLicensesRepository()
	repo.keys["TAKENTAKENTAKENTAKENTAKENTAKEN12"] = struct{}{}
	gen := &fixedKeys{keys: []string{"TAKENTAKENTAKENTAKENTAKENTAKEN12", "FREEFREEFREEFREEFREEFREEFREEFREE"}}
	svc := newTestLicenses(repo, WithKeyGenerator(gen))

	resp, err := svc.Generate(context.Background(), testOrgID, contactA.String(), dto.GenerateLicenseRequest{
		SoftwareEdition: "Basic",
		ExpiresAt:       expiresIn(48 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "FREEFREEFREEFREEFREEFREEFREEFREE", resp.LicenseKey)
	assert.Equal(t, 2, gen.n)
}

func TestLicensesService_Generate_Validation(t *testing.T) {
	svc := newTestLicenses(newMemLicensesRepository())
	ctx := context.Background()

	_, err := svc.Generate(ctx, testOrgID, foreignContact.String(), dto.GenerateLicenseRequest{SoftwareEdition: "Pro", ExpiresAt: expiresIn(time.Hour)})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Generate(ctx, testOrgID, "nope", dto.GenerateLicenseRequest{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Generate(ctx, testOrgID, contactA.String(), dto.GenerateLicenseRequest{ExpiresAt: expiresIn(time.Hour)})
	assertField(t, err, ErrInvalidArgument, "software_edition")

	_, err = svc.Generate(ctx, testOrgID, contactA.String(), dto.GenerateLicenseRequest{SoftwareEdition: "Pro"})
	assertField(t, err, ErrInvalidArgument, "expires_at")

	_, err = svc.Generate(ctx, testOrgID, contactA.String(), dto.GenerateLicenseRequest{SoftwareEdition: "Pro", ExpiresAt: expiresIn(-time.Hour)})
	assertField(t, err, ErrInvalidArgument, "expires_at")

	_, err = svc.Generate(ctx, testOrgID, contactA.String(), dto.GenerateLicenseRequest{SoftwareEdition: "Pro", ExpiresAt: expiresIn(time.Hour), MaxDevices: -2})
	assertField(t, err, ErrInvalidArgument, "max_devices")
}

func assertField(t *testing.T, err error, sentinel error, field string) {
	t.Helper()
	require.ErrorIs(t, err, sentinel)
	var fieldErr *FieldError
	require.True(t, errors.As(err, &fieldErr), "expected FieldError, got %v", err)
	assert.Equal(t, field, fieldErr.Field)
}

func seedLicense(repo *memLicensesRepository, status string, expires time.Duration) *entity.License {
	l := &entity.License{
		ID:              uuid.New(),
		OrganizationID:  testOrgID,
		ContactID:       contactA,
		LicenseKey:      uuid.NewString(),
		SoftwareEdition: "Pro",
		MaxDevices:      2,
		Status:          status,
		CreatedAt:       entitlementNow.Add(-60 * 24 * time.Hour),
		ExpiresAt:       entitlementNow.Add(expires),
	}
	repo.licenses[l.ID] = l
	return l
}

func TestLicensesService_GetReportsEffectiveExpiry(t *testing.T) {
	repo := newMemLicensesRepository()
	lic := seedLicense(repo, "active", -2*24*time.Hour)
	svc := newTestLicenses(repo)

	resp, err := svc.Get(context.Background(), testOrgID, lic.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "active", resp.Evaluation.Status)
	assert.Equal(t, "expired", resp.Evaluation.EffectiveStatus)
	assert.Equal(t, "expired 2 days ago", resp.Evaluation.Label)
	assert.Equal(t, "active", repo.licenses[lic.ID].Status)

	_, err = svc.Get(context.Background(), otherOrgID, lic.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLicensesService_Transfer(t *testing.T) {
	repo := newMemLicensesRepository()
	lic := seedLicense(repo, "active", 10*24*time.Hour+time.Hour)
	svc := newTestLicenses(repo)

	resp, err := svc.Transfer(context.Background(), testOrgID, lic.ID.String(), dto.TransferLicenseRequest{
		NewContactID: contactB.String(),
		Reason:       " new owner ",
	})
	require.NoError(t, err)
	assert.Equal(t, contactB.String(), resp.License.ContactID)
	assert.Equal(t, lic.ExpiresAt, resp.License.ExpiresAt)
	assert.Equal(t, 10, resp.Transfer.RemainingDays)
	assert.Equal(t, "new owner", resp.Transfer.Reason)

	require.Len(t, repo.transfers, 1)
	assert.Equal(t, contactA, repo.transfers[0].FromContactID)
	assert.Equal(t, contactB, repo.transfers[0].ToContactID)
}

func TestLicensesService_Transfer_Rejections(t *testing.T) {
	repo := newMemLicensesRepository()
	lic := seedLicense(repo, "active", 24*time.Hour)
	svc := newTestLicenses(repo)
	ctx := context.Background()

	_, err := svc.Transfer(ctx, testOrgID, lic.ID.String(), dto.TransferLicenseRequest{NewContactID: foreignContact.String()})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Transfer(ctx, testOrgID, lic.ID.String(), dto.TransferLicenseRequest{})
	assertField(t, err, ErrInvalidArgument, "new_contact_id")

	_, err = svc.Transfer(ctx, otherOrgID, lic.ID.String(), dto.TransferLicenseRequest{NewContactID: contactB.String()})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, repo.transfers)
}

func TestLicensesService_ExtendAndCancel(t *testing.T) {
	repo := newMemLicensesRepository()
	lic := seedLicense(repo, "active", -24*time.Hour)
	svc := newTestLicenses(repo)
	ctx := context.Background()

	resp, err := svc.Extend(ctx, testOrgID, lic.ID.String(), 5)
	require.NoError(t, err)
	assert.Equal(t, "active", resp.Evaluation.EffectiveStatus)
	assert.Equal(t, 4, resp.Evaluation.DaysUntilExpiry)

	_, err = svc.Extend(ctx, testOrgID, lic.ID.String(), 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	cancelled, err := svc.Cancel(ctx, testOrgID, lic.ID.String(), "refund")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Evaluation.Status)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, "refund", *cancelled.CancelReason)

	_, err = svc.Extend(ctx, testOrgID, lic.ID.String(), 5)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = svc.Cancel(ctx, testOrgID, lic.ID.String(), "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestLicensesService_ListForContact(t *testing.T) {
	repo := newMemLicensesRepository()
	seedLicense(repo, "active", 24*time.Hour)
	seedLicense(repo, "cancelled", 24*time.Hour)
	svc := newTestLicenses(repo)

	list, err := svc.ListForContact(context.Background(), testOrgID, contactA.String())
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = svc.ListForContact(context.Background(), testOrgID, contactB.String())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func newTestTrials() (*TrialsService, *memTrialsRepository) {
	repo := &memTrialsRepository{trials: map[uuid.UUID]*entity.Trial{}}
	svc := NewTrialsService(repo, testContacts(), WithClock(func() time.Time { return entitlementNow }))
	return svc, repo
}

func TestTrialsService_Create(t *testing.T) {
	svc, _ := newTestTrials()
	ctx := context.Background()

	resp, err := svc.Create(ctx, testOrgID, contactA.String(), dto.CreateTrialRequest{SoftwareEdition: "Pro"})
	require.NoError(t, err)
	assert.Equal(t, entitlementNow.Add(30*24*time.Hour), resp.ExpiresAt)
	assert.Equal(t, "healthy", resp.Evaluation.Band)
	assert.Equal(t, 0, resp.ProgressPercent)
	assert.False(t, resp.CanExtend)
	assert.Len(t, resp.TrialKey, entitlement.MinKeyLength)

	expired := -1
	resp, err = svc.Create(ctx, testOrgID, contactA.String(), dto.CreateTrialRequest{SoftwareEdition: "Pro", TrialDays: &expired})
	require.NoError(t, err)
	assert.Equal(t, "expired", resp.Evaluation.EffectiveStatus)
	assert.Equal(t, "active", resp.Evaluation.Status)
	assert.Equal(t, 100, resp.ProgressPercent)

	zero := 0
	_, err = svc.Create(ctx, testOrgID, contactA.String(), dto.CreateTrialRequest{SoftwareEdition: "Pro", TrialDays: &zero})
	assertField(t, err, ErrInvalidArgument, "trial_days")

	_, err = svc.Create(ctx, testOrgID, foreignContact.String(), dto.CreateTrialRequest{SoftwareEdition: "Pro"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTrialsService_Lifecycle(t *testing.T) {
	svc, repo := newTestTrials()
	ctx := context.Background()

	two := 2
	created, err := svc.Create(ctx, testOrgID, contactA.String(), dto.CreateTrialRequest{SoftwareEdition: "Pro", TrialDays: &two})
	require.NoError(t, err)
	assert.True(t, created.CanExtend)
	assert.Equal(t, "critical", created.Evaluation.Band)

	extended, err := svc.Extend(ctx, testOrgID, created.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 9, extended.Evaluation.DaysUntilExpiry)

	converted, err := svc.Convert(ctx, testOrgID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "converted", converted.Evaluation.Status)
	require.NotNil(t, converted.ConvertedAt)
	assert.Empty(t, converted.Evaluation.Band)

	id := uuid.MustParse(created.ID)
	assert.Equal(t, "converted", repo.trials[id].Status)

	_, err = svc.Cancel(ctx, testOrgID, created.ID, "late")
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = svc.Convert(ctx, testOrgID, created.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Extend(ctx, otherOrgID, created.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := svc.ListForContact(ctx, testOrgID, contactA.String())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
