package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/uppalcrm/crm/api/internal/entity"
)

// ErrAPIKeyNotFound is returned when no key matches inside the organization.
var ErrAPIKeyNotFound = errors.New("api key not found")

// APIKeysRepository describes persistence operations for integration keys.
type APIKeysRepository interface {
	Create(ctx context.Context, key *entity.APIKey) error
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]entity.APIKey, error)
	ListUsable(ctx context.Context, orgID uuid.UUID, now time.Time) ([]entity.APIKey, error)
	Revoke(ctx context.Context, orgID, id uuid.UUID) error
	TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
}

// PGXAPIKeysRepository implements APIKeysRepository with pgx.
type PGXAPIKeysRepository struct {
	pool pgxPool
}

// NewPGXAPIKeysRepository instantiates an api keys repository.
func NewPGXAPIKeysRepository(pool pgxPool) *PGXAPIKeysRepository {
	return &PGXAPIKeysRepository{pool: pool}
}

const apiKeyColumns = `id, organization_id, name, key_hash, key_prefix, permissions, rate_limit_per_hour, is_active, expires_at, last_used_at, created_at`

// Create inserts a new key row.
func (r *PGXAPIKeysRepository) Create(ctx context.Context, key *entity.APIKey) error {
	row := r.pool.QueryRow(ctx, `
        INSERT INTO api_keys (organization_id, name, key_hash, key_prefix, permissions, rate_limit_per_hour, is_active, expires_at)
        VALUES ($1,$2,$3,$4,$5,$6,TRUE,$7)
        RETURNING id, is_active, created_at
    `, key.OrganizationID, key.Name, key.KeyHash, key.KeyPrefix, stringSliceOrEmpty(key.Permissions), key.RateLimitPerHour, key.ExpiresAt)
	if err := row.Scan(&key.ID, &key.IsActive, &key.CreatedAt); err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// ListByOrganization returns every key of the organization, newest first.
func (r *PGXAPIKeysRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]entity.APIKey, error) {
	return r.list(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE organization_id = $1 ORDER BY created_at DESC`, orgID)
}

// ListUsable returns active keys of the organization that have not expired at now.
func (r *PGXAPIKeysRepository) ListUsable(ctx context.Context, orgID uuid.UUID, now time.Time) ([]entity.APIKey, error) {
	return r.list(ctx, `
        SELECT `+apiKeyColumns+` FROM api_keys
        WHERE organization_id = $1 AND is_active = TRUE AND (expires_at IS NULL OR expires_at > $2)
    `, orgID, now)
}

func (r *PGXAPIKeysRepository) list(ctx context.Context, query string, args ...any) ([]entity.APIKey, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	keys := make([]entity.APIKey, 0)
	for rows.Next() {
		var key entity.APIKey
		if err := rows.Scan(
			&key.ID,
			&key.OrganizationID,
			&key.Name,
			&key.KeyHash,
			&key.KeyPrefix,
			&key.Permissions,
			&key.RateLimitPerHour,
			&key.IsActive,
			&key.ExpiresAt,
			&key.LastUsedAt,
			&key.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan api key row: %w", err)
		}
		key.Permissions = stringSliceOrEmpty(key.Permissions)
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate api keys: %w", err)
	}
	return keys, nil
}

// Revoke deactivates a key. Revoked keys stay listed for audit.
func (r *PGXAPIKeysRepository) Revoke(ctx context.Context, orgID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE api_keys SET is_active = FALSE WHERE id = $1 AND organization_id = $2`, id, orgID)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

// TouchLastUsed records when a key last authenticated a request.
func (r *PGXAPIKeysRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	if _, err := r.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = $1 WHERE id = $2`, at, id); err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}

