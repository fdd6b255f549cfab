package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/uppalcrm/crm/api/internal/entity"
)

// ErrContactNotFound is returned when no contact matches inside the organization.
var ErrContactNotFound = errors.New("contact not found")

// ContactsRepository declares the contact lookups the entitlement services need.
type ContactsRepository interface {
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.Contact, error)
}

// PGXContactsRepository implements ContactsRepository with pgx.
type PGXContactsRepository struct {
	pool pgxPool
}

// NewPGXContactsRepository instantiates a contacts repository.
func NewPGXContactsRepository(pool pgxPool) *PGXContactsRepository {
	return &PGXContactsRepository{pool: pool}
}

// FindByID fetches a contact scoped to the organization.
func (r *PGXContactsRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.Contact, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, organization_id, first_name, last_name, email, created_at FROM contacts WHERE id = $1 AND organization_id = $2`, id, orgID)

	var contact entity.Contact
	if err := row.Scan(&contact.ID, &contact.OrganizationID, &contact.FirstName, &contact.LastName, &contact.Email, &contact.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("query contact by id: %w", err)
	}
	return &contact, nil
}
