package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/uppalcrm/crm/api/internal/entity"
)

var (
	// ErrTrialNotFound is returned when no trial matches inside the organization.
	ErrTrialNotFound = errors.New("trial not found")
	// ErrTrialKeyDuplicate is returned when the generated key is already taken in the organization.
	ErrTrialKeyDuplicate = errors.New("trial key already exists")
)

// TrialsRepository describes persistence operations for software trials.
type TrialsRepository interface {
	Create(ctx context.Context, trial *entity.Trial) error
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.Trial, error)
	ListByContact(ctx context.Context, orgID, contactID uuid.UUID) ([]entity.Trial, error)
	UpdateState(ctx context.Context, trial *entity.Trial) error
}

// PGXTrialsRepository implements TrialsRepository using pgx.
type PGXTrialsRepository struct {
	pool pgxPool
}

// NewPGXTrialsRepository wires a pgx backed repository.
func NewPGXTrialsRepository(pool pgxPool) *PGXTrialsRepository {
	return &PGXTrialsRepository{pool: pool}
}

const trialColumns = `id, organization_id, contact_id, trial_key, software_edition, status, cancel_reason, converted_at, created_at, expires_at, updated_at`

// Create inserts a trial. created_at is supplied by the caller so expires_at can precede it.
func (r *PGXTrialsRepository) Create(ctx context.Context, trial *entity.Trial) error {
	if trial == nil {
		return fmt.Errorf("trial payload is nil")
	}
	row := r.pool.QueryRow(ctx, `
        INSERT INTO trials (organization_id, contact_id, trial_key, software_edition, status, created_at, expires_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, updated_at
    `,
		trial.OrganizationID,
		trial.ContactID,
		trial.TrialKey,
		trial.SoftwareEdition,
		trial.Status,
		trial.CreatedAt,
		trial.ExpiresAt,
	)
	if err := row.Scan(&trial.ID, &trial.UpdatedAt); err != nil {
		if isUniqueViolation(err, "trials_organization_id_trial_key_key") {
			return ErrTrialKeyDuplicate
		}
		return fmt.Errorf("insert trial: %w", err)
	}
	return nil
}

// FindByID fetches a trial scoped to the organization.
func (r *PGXTrialsRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.Trial, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+trialColumns+` FROM trials WHERE id = $1 AND organization_id = $2`, id, orgID)
	trial, err := scanTrial(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTrialNotFound
		}
		return nil, fmt.Errorf("query trial by id: %w", err)
	}
	return trial, nil
}

// ListByContact returns the contact's trials, newest first.
func (r *PGXTrialsRepository) ListByContact(ctx context.Context, orgID, contactID uuid.UUID) ([]entity.Trial, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+trialColumns+` FROM trials WHERE organization_id = $1 AND contact_id = $2 ORDER BY created_at DESC`, orgID, contactID)
	if err != nil {
		return nil, fmt.Errorf("list trials: %w", err)
	}
	defer rows.Close()

	trials := make([]entity.Trial, 0)
	for rows.Next() {
		trial, err := scanTrial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trial row: %w", err)
		}
		trials = append(trials, *trial)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trials: %w", err)
	}
	return trials, nil
}

// UpdateState persists status, expiry, cancel reason and conversion time.
func (r *PGXTrialsRepository) UpdateState(ctx context.Context, trial *entity.Trial) error {
	row := r.pool.QueryRow(ctx, `
        UPDATE trials SET status = $1, expires_at = $2, cancel_reason = $3, converted_at = $4, updated_at = NOW()
        WHERE id = $5 AND organization_id = $6
        RETURNING updated_at
    `, trial.Status, trial.ExpiresAt, stringOrNil(trial.CancelReason), trial.ConvertedAt, trial.ID, trial.OrganizationID)
	if err := row.Scan(&trial.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTrialNotFound
		}
		return fmt.Errorf("update trial: %w", err)
	}
	return nil
}

func scanTrial(row pgx.Row) (*entity.Trial, error) {
	var trial entity.Trial
	if err := row.Scan(
		&trial.ID,
		&trial.OrganizationID,
		&trial.ContactID,
		&trial.TrialKey,
		&trial.SoftwareEdition,
		&trial.Status,
		&trial.CancelReason,
		&trial.ConvertedAt,
		&trial.CreatedAt,
		&trial.ExpiresAt,
		&trial.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &trial, nil
}
