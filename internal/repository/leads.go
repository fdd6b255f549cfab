package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/uppalcrm/crm/api/internal/dto"
	"github.com/uppalcrm/crm/api/internal/entity"
)

var (
	// ErrLeadNotFound is returned when no lead matches inside the organization.
	ErrLeadNotFound = errors.New("lead not found")
	// ErrLeadEmailDuplicate is returned when the organization already has a lead with the email.
	ErrLeadEmailDuplicate = errors.New("lead email already exists")
)

// LeadsRepository describes persistence operations for leads.
type LeadsRepository interface {
	Create(ctx context.Context, lead *entity.Lead) error
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.Lead, error)
	List(ctx context.Context, orgID uuid.UUID, filter dto.LeadListFilter) ([]entity.Lead, int, error)
	BulkInsert(ctx context.Context, leads []entity.Lead) (BulkInsertResult, error)
}

// BulkInsertResult summarises a CSV import. Rows whose email already exists are skipped.
type BulkInsertResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Total    int `json:"total"`
}

// PGXLeadsRepository implements LeadsRepository using pgx.
type PGXLeadsRepository struct {
	pool pgxPool
}

// NewPGXLeadsRepository wires a pgx backed repository.
func NewPGXLeadsRepository(pool pgxPool) *PGXLeadsRepository {
	return &PGXLeadsRepository{pool: pool}
}

const leadColumns = `id, organization_id, first_name, last_name, email, phone, company, title, website, notes, source, status, score, custom_fields, created_at, updated_at`

const insertLeadSQL = `
        INSERT INTO leads (organization_id, first_name, last_name, email, phone, company, title, website, notes, source, status, score, custom_fields)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13::jsonb)
    `

// Create inserts a lead and fills in its generated columns.
func (r *PGXLeadsRepository) Create(ctx context.Context, lead *entity.Lead) error {
	if lead == nil {
		return fmt.Errorf("lead payload is nil")
	}
	custom, err := marshalCustomFields(lead.CustomFields)
	if err != nil {
		return err
	}
	if lead.Status == "" {
		lead.Status = "new"
	}

	row := r.pool.QueryRow(ctx, insertLeadSQL+` RETURNING id, created_at, updated_at`,
		lead.OrganizationID,
		lead.FirstName,
		lead.LastName,
		lead.Email,
		stringOrNil(lead.Phone),
		stringOrNil(lead.Company),
		stringOrNil(lead.Title),
		stringOrNil(lead.Website),
		stringOrNil(lead.Notes),
		lead.Source,
		lead.Status,
		lead.Score,
		custom,
	)
	if err := row.Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt); err != nil {
		if isUniqueViolation(err, "leads_organization_id_email_key") {
			return fmt.Errorf("%w: %s", ErrLeadEmailDuplicate, lead.Email)
		}
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

// FindByID fetches a lead scoped to the organization.
func (r *PGXLeadsRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entity.Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1 AND organization_id = $2`, id, orgID)
	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("query lead by id: %w", err)
	}
	return lead, nil
}

// List returns one page of leads, newest first, and the total number of matches.
func (r *PGXLeadsRepository) List(ctx context.Context, orgID uuid.UUID, filter dto.LeadListFilter) ([]entity.Lead, int, error) {
	clauses := []string{"organization_id = $1"}
	args := []any{orgID}
	idx := 2

	if filter.Q != "" {
		pattern := fmt.Sprintf("%%%s%%", filter.Q)
		clauses = append(clauses, fmt.Sprintf("(email ILIKE $%d OR first_name ILIKE $%d OR last_name ILIKE $%d OR company ILIKE $%d)", idx, idx, idx, idx))
		args = append(args, pattern)
		idx++
	}
	if filter.Source != "" {
		clauses = append(clauses, fmt.Sprintf("LOWER(source) = LOWER($%d)", idx))
		args = append(args, filter.Source)
		idx++
	}
	if filter.Status != "" {
		clauses = append(clauses, fmt.Sprintf("status = $%d", idx))
		args = append(args, filter.Status)
		idx++
	}
	if filter.UpdatedSince != nil {
		clauses = append(clauses, fmt.Sprintf("updated_at >= $%d", idx))
		args = append(args, *filter.UpdatedSince)
		idx++
	}
	where := " WHERE " + strings.Join(clauses, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	limit, offset := pageBounds(filter.Page, filter.PerPage)
	query := fmt.Sprintf(`SELECT %s FROM leads%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, leadColumns, where, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]entity.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan lead row: %w", err)
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate leads: %w", err)
	}
	return leads, total, nil
}

// BulkInsert persists a batch in one transaction. Existing emails are left untouched.
func (r *PGXLeadsRepository) BulkInsert(ctx context.Context, leads []entity.Lead) (BulkInsertResult, error) {
	result := BulkInsertResult{Total: len(leads)}
	if len(leads) == 0 {
		return result, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return result, fmt.Errorf("start bulk insert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, lead := range leads {
		custom, err := marshalCustomFields(lead.CustomFields)
		if err != nil {
			return result, err
		}
		status := lead.Status
		if status == "" {
			status = "new"
		}
		tag, err := tx.Exec(ctx, insertLeadSQL+` ON CONFLICT (organization_id, email) DO NOTHING`,
			lead.OrganizationID,
			lead.FirstName,
			lead.LastName,
			lead.Email,
			stringOrNil(lead.Phone),
			stringOrNil(lead.Company),
			stringOrNil(lead.Title),
			stringOrNil(lead.Website),
			stringOrNil(lead.Notes),
			lead.Source,
			status,
			lead.Score,
			custom,
		)
		if err != nil {
			return result, fmt.Errorf("bulk insert lead %q: %w", lead.Email, err)
		}
		if tag.RowsAffected() == 0 {
			result.Skipped++
			continue
		}
		result.Inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("commit bulk insert: %w", err)
	}
	return result, nil
}

func marshalCustomFields(fields map[string]any) (string, error) {
	if len(fields) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode custom fields: %w", err)
	}
	return string(raw), nil
}

func scanLead(row pgx.Row) (*entity.Lead, error) {
	var (
		lead   entity.Lead
		custom []byte
	)
	if err := row.Scan(
		&lead.ID,
		&lead.OrganizationID,
		&lead.FirstName,
		&lead.LastName,
		&lead.Email,
		&lead.Phone,
		&lead.Company,
		&lead.Title,
		&lead.Website,
		&lead.Notes,
		&lead.Source,
		&lead.Status,
		&lead.Score,
		&custom,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return nil, err
	}
	lead.CustomFields = map[string]any{}
	if len(custom) > 0 {
		if err := json.Unmarshal(custom, &lead.CustomFields); err != nil {
			return nil, fmt.Errorf("decode custom fields: %w", err)
		}
	}
	return &lead, nil
}
