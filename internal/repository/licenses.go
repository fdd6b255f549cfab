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
	// ErrLicenseNotFound is returned when no license matches inside the organization.
	ErrLicenseNotFound = errors.New("license not found")
	// ErrLicenseKeyDuplicate is returned when the generated key is already taken in the organization.
	ErrLicenseKeyDuplicate = errors.New("license key already exists")
)

// LicensesRepository describes persistence operations for software licenses.
type LicensesRepository interface {
	Create(ctx context.Context, license *entity.License) error
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.License, error)
	ListByContact(ctx context.Context, orgID, contactID uuid.UUID) ([]entity.License, error)
	UpdateState(ctx context.Context, license *entity.License) error
	Transfer(ctx context.Context, license *entity.License, transfer entity.LicenseTransfer) error
}

// PGXLicensesRepository implements LicensesRepository using pgx.
type PGXLicensesRepository struct {
	pool pgxPool
}

// NewPGXLicensesRepository wires a pgx backed repository.
func NewPGXLicensesRepository(pool pgxPool) *PGXLicensesRepository {
	return &PGXLicensesRepository{pool: pool}
}

const licenseColumns = `id, organization_id, contact_id, license_key, software_edition, max_devices, features, status, cancel_reason, created_at, expires_at, updated_at`

// Create inserts a license. A key clash yields ErrLicenseKeyDuplicate so callers can regenerate.
func (r *PGXLicensesRepository) Create(ctx context.Context, license *entity.License) error {
	if license == nil {
		return fmt.Errorf("license payload is nil")
	}
	row := r.pool.QueryRow(ctx, `
        INSERT INTO licenses (organization_id, contact_id, license_key, software_edition, max_devices, features, status, expires_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at
    `,
		license.OrganizationID,
		license.ContactID,
		license.LicenseKey,
		license.SoftwareEdition,
		license.MaxDevices,
		stringSliceOrEmpty(license.Features),
		license.Status,
		license.ExpiresAt,
	)
	if err := row.Scan(&license.ID, &license.CreatedAt, &license.UpdatedAt); err != nil {
		if isUniqueViolation(err, "licenses_organization_id_license_key_key") {
			return ErrLicenseKeyDuplicate
		}
		return fmt.Errorf("insert license: %w", err)
	}
	return nil
}

// FindByID fetches a license scoped to the organization.
func (r *PGXLicensesRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.License, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+licenseColumns+` FROM licenses WHERE id = $1 AND organization_id = $2`, id, orgID)
	license, err := scanLicense(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLicenseNotFound
		}
		return nil, fmt.Errorf("query license by id: %w", err)
	}
	return license, nil
}

// ListByContact returns the contact's licenses, newest first.
func (r *PGXLicensesRepository) ListByContact(ctx context.Context, orgID, contactID uuid.UUID) ([]entity.License, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+licenseColumns+` FROM licenses WHERE organization_id = $1 AND contact_id = $2 ORDER BY created_at DESC`, orgID, contactID)
	if err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	defer rows.Close()

	licenses := make([]entity.License, 0)
	for rows.Next() {
		license, err := scanLicense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan license row: %w", err)
		}
		licenses = append(licenses, *license)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate licenses: %w", err)
	}
	return licenses, nil
}

// UpdateState persists status, expiry and cancel reason.
func (r *PGXLicensesRepository) UpdateState(ctx context.Context, license *entity.License) error {
	row := r.pool.QueryRow(ctx, `
        UPDATE licenses SET status = $1, expires_at = $2, cancel_reason = $3, updated_at = NOW()
        WHERE id = $4 AND organization_id = $5
        RETURNING updated_at
    `, license.Status, license.ExpiresAt, stringOrNil(license.CancelReason), license.ID, license.OrganizationID)
	if err := row.Scan(&license.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrLicenseNotFound
		}
		return fmt.Errorf("update license: %w", err)
	}
	return nil
}

// Transfer writes the audit row, moves the license and its devices to the new contact atomically.
func (r *PGXLicensesRepository) Transfer(ctx context.Context, license *entity.License, transfer entity.LicenseTransfer) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("start transfer tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
        INSERT INTO license_transfers (organization_id, license_id, from_contact_id, to_contact_id, reason, remaining_days)
        VALUES ($1,$2,$3,$4,$5,$6)
    `, transfer.OrganizationID, transfer.LicenseID, transfer.FromContactID, transfer.ToContactID, transfer.Reason, transfer.RemainingDays); err != nil {
		return fmt.Errorf("insert license transfer: %w", err)
	}

	tag, err := tx.Exec(ctx, `UPDATE licenses SET contact_id = $1, updated_at = NOW() WHERE id = $2 AND organization_id = $3`,
		transfer.ToContactID, transfer.LicenseID, transfer.OrganizationID)
	if err != nil {
		return fmt.Errorf("reassign license: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLicenseNotFound
	}

	if _, err := tx.Exec(ctx, `UPDATE devices SET contact_id = $1 WHERE license_id = $2 AND organization_id = $3`,
		transfer.ToContactID, transfer.LicenseID, transfer.OrganizationID); err != nil {
		return fmt.Errorf("reassign license devices: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transfer: %w", err)
	}
	license.ContactID = transfer.ToContactID
	return nil
}

func scanLicense(row pgx.Row) (*entity.License, error) {
	var license entity.License
	if err := row.Scan(
		&license.ID,
		&license.OrganizationID,
		&license.ContactID,
		&license.LicenseKey,
		&license.SoftwareEdition,
		&license.MaxDevices,
		&license.Features,
		&license.Status,
		&license.CancelReason,
		&license.CreatedAt,
		&license.ExpiresAt,
		&license.UpdatedAt,
	); err != nil {
		return nil, err
	}
	license.Features = stringSliceOrEmpty(license.Features)
	return &license, nil
}
