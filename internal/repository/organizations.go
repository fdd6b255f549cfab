package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/uppalcrm/crm/api/internal/entity"
)

// ErrOrganizationNotFound is returned when no organization matches the lookup.
var ErrOrganizationNotFound = errors.New("organization not found")

// PaidConversion holds the billing columns written when a trial organization starts paying.
type PaidConversion struct {
	SubscriptionPlan string
	LicenseCount     int
	BillingCycle     string
	MonthlyCost      float64
	LastPaymentDate  time.Time
	NextBillingDate  time.Time
}

// OrganizationsRepository describes tenant lookups and super-admin trial management.
type OrganizationsRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Organization, error)
	FindBySlug(ctx context.Context, slug string) (*entity.Organization, error)
	ExtendTrial(ctx context.Context, id uuid.UUID, endsAt time.Time, note entity.OrganizationNote) (*entity.Organization, error)
	ConvertToPaid(ctx context.Context, id uuid.UUID, conv PaidConversion, note entity.OrganizationNote) (*entity.Organization, error)
	ListTrialsEndingBefore(ctx context.Context, before time.Time) ([]entity.Organization, error)
	ExpireTrials(ctx context.Context, now time.Time) (int64, error)
}

// PGXOrganizationsRepository implements OrganizationsRepository using pgx.
type PGXOrganizationsRepository struct {
	pool pgxPool
}

// NewPGXOrganizationsRepository wires a pgx backed repository.
func NewPGXOrganizationsRepository(pool pgxPool) *PGXOrganizationsRepository {
	return &PGXOrganizationsRepository{pool: pool}
}

const organizationColumns = `id, name, slug, is_active, trial_status, trial_started_at, trial_ends_at, trial_extended_count, subscription_plan, license_count, payment_status, billing_cycle, monthly_cost, last_payment_date, next_billing_date, created_at, updated_at`

// FindByID retrieves an organization by identifier.
func (r *PGXOrganizationsRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Organization, error) {
	return r.findOne(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE id = $1`, id)
}

// FindBySlug retrieves an organization by its unique slug.
func (r *PGXOrganizationsRepository) FindBySlug(ctx context.Context, slug string) (*entity.Organization, error) {
	return r.findOne(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE slug = $1`, slug)
}

func (r *PGXOrganizationsRepository) findOne(ctx context.Context, query string, arg any) (*entity.Organization, error) {
	org, err := scanOrganization(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("query organization: %w", err)
	}
	return org, nil
}

// ExtendTrial moves trial_ends_at, bumps the extension counter and records the note atomically.
func (r *PGXOrganizationsRepository) ExtendTrial(ctx context.Context, id uuid.UUID, endsAt time.Time, note entity.OrganizationNote) (*entity.Organization, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("start extend trial tx: %w", err)
	}
	defer tx.Rollback(ctx)

	org, err := scanOrganization(tx.QueryRow(ctx, `
        UPDATE organizations
        SET trial_ends_at = $1, trial_status = 'active', trial_extended_count = trial_extended_count + 1, updated_at = NOW()
        WHERE id = $2
        RETURNING `+organizationColumns, endsAt, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("extend organization trial: %w", err)
	}
	if err := insertNote(ctx, tx, id, note); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit extend trial: %w", err)
	}
	return org, nil
}

// ConvertToPaid writes the billing columns, marks the trial converted and records the note atomically.
func (r *PGXOrganizationsRepository) ConvertToPaid(ctx context.Context, id uuid.UUID, conv PaidConversion, note entity.OrganizationNote) (*entity.Organization, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("start convert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	org, err := scanOrganization(tx.QueryRow(ctx, `
        UPDATE organizations
        SET trial_status = 'converted',
            payment_status = 'paid',
            subscription_plan = $1,
            license_count = $2,
            billing_cycle = $3,
            monthly_cost = $4,
            last_payment_date = $5,
            next_billing_date = $6,
            is_active = TRUE,
            updated_at = NOW()
        WHERE id = $7
        RETURNING `+organizationColumns,
		conv.SubscriptionPlan, conv.LicenseCount, conv.BillingCycle, conv.MonthlyCost, conv.LastPaymentDate, conv.NextBillingDate, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("convert organization: %w", err)
	}
	if err := insertNote(ctx, tx, id, note); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit convert: %w", err)
	}
	return org, nil
}

// ListTrialsEndingBefore returns organizations on an active trial that ends before the cutoff.
func (r *PGXOrganizationsRepository) ListTrialsEndingBefore(ctx context.Context, before time.Time) ([]entity.Organization, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+organizationColumns+` FROM organizations
        WHERE trial_status = 'active' AND trial_ends_at IS NOT NULL AND trial_ends_at < $1
        ORDER BY trial_ends_at ASC
    `, before)
	if err != nil {
		return nil, fmt.Errorf("list expiring trials: %w", err)
	}
	defer rows.Close()

	orgs := make([]entity.Organization, 0)
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("scan organization row: %w", err)
		}
		orgs = append(orgs, *org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate organizations: %w", err)
	}
	return orgs, nil
}

// ExpireTrials flags active trials whose end has passed and returns how many changed.
func (r *PGXOrganizationsRepository) ExpireTrials(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE organizations SET trial_status = 'expired', updated_at = NOW() WHERE trial_status = 'active' AND trial_ends_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("expire trials: %w", err)
	}
	return tag.RowsAffected(), nil
}

func insertNote(ctx context.Context, tx pgx.Tx, orgID uuid.UUID, note entity.OrganizationNote) error {
	if _, err := tx.Exec(ctx, `INSERT INTO organization_notes (organization_id, kind, body, created_by) VALUES ($1,$2,$3,$4)`,
		orgID, note.Kind, note.Body, note.CreatedBy); err != nil {
		return fmt.Errorf("insert organization note: %w", err)
	}
	return nil
}

func scanOrganization(row pgx.Row) (*entity.Organization, error) {
	var org entity.Organization
	if err := row.Scan(
		&org.ID,
		&org.Name,
		&org.Slug,
		&org.IsActive,
		&org.TrialStatus,
		&org.TrialStartedAt,
		&org.TrialEndsAt,
		&org.TrialExtendedCount,
		&org.SubscriptionPlan,
		&org.LicenseCount,
		&org.PaymentStatus,
		&org.BillingCycle,
		&org.MonthlyCost,
		&org.LastPaymentDate,
		&org.NextBillingDate,
		&org.CreatedAt,
		&org.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &org, nil
}
