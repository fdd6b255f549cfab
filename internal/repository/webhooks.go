package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/uppalcrm/crm/api/internal/entity"
)

// ErrWebhookNotFound is returned when no endpoint matches inside the organization.
var ErrWebhookNotFound = errors.New("webhook endpoint not found")

// WebhooksRepository describes persistence for inbound webhook endpoints and their delivery logs.
type WebhooksRepository interface {
	FindEndpoint(ctx context.Context, orgID, id uuid.UUID) (*entity.WebhookEndpoint, error)
	InsertDeliveryLog(ctx context.Context, log *entity.DeliveryLog) error
	Stats(ctx context.Context, orgID uuid.UUID, from, to time.Time) (entity.WebhookStats, error)
}

// PGXWebhooksRepository implements WebhooksRepository using pgx.
type PGXWebhooksRepository struct {
	pool pgxPool
}

// NewPGXWebhooksRepository wires a pgx backed repository.
func NewPGXWebhooksRepository(pool pgxPool) *PGXWebhooksRepository {
	return &PGXWebhooksRepository{pool: pool}
}

// FindEndpoint fetches an endpoint scoped to the organization.
func (r *PGXWebhooksRepository) FindEndpoint(ctx context.Context, orgID, id uuid.UUID) (*entity.WebhookEndpoint, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT id, organization_id, name, profile, mapping, is_active, created_at
        FROM webhook_endpoints WHERE id = $1 AND organization_id = $2
    `, id, orgID)

	var (
		endpoint entity.WebhookEndpoint
		mapping  []byte
	)
	if err := row.Scan(&endpoint.ID, &endpoint.OrganizationID, &endpoint.Name, &endpoint.Profile, &mapping, &endpoint.IsActive, &endpoint.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWebhookNotFound
		}
		return nil, fmt.Errorf("query webhook endpoint: %w", err)
	}
	if len(mapping) > 0 {
		if err := json.Unmarshal(mapping, &endpoint.Mapping); err != nil {
			return nil, fmt.Errorf("decode webhook mapping: %w", err)
		}
	}
	return &endpoint, nil
}

// InsertDeliveryLog stores the outcome of one webhook call.
func (r *PGXWebhooksRepository) InsertDeliveryLog(ctx context.Context, log *entity.DeliveryLog) error {
	payload := log.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	row := r.pool.QueryRow(ctx, `
        INSERT INTO webhook_delivery_logs (organization_id, webhook_id, lead_id, status, error, payload)
        VALUES ($1,$2,$3,$4,$5,$6::jsonb)
        RETURNING id, created_at
    `, log.OrganizationID, log.WebhookID, log.LeadID, log.Status, stringOrNil(log.Error), string(payload))
	if err := row.Scan(&log.ID, &log.CreatedAt); err != nil {
		return fmt.Errorf("insert delivery log: %w", err)
	}
	return nil
}

// Stats aggregates delivery logs of the organization in [from, to).
func (r *PGXWebhooksRepository) Stats(ctx context.Context, orgID uuid.UUID, from, to time.Time) (entity.WebhookStats, error) {
	var stats entity.WebhookStats
	row := r.pool.QueryRow(ctx, `
        SELECT
            COUNT(*),
            COUNT(*) FILTER (WHERE status = 'processed'),
            COUNT(*) FILTER (WHERE status = 'rejected'),
            COUNT(*) FILTER (WHERE status = 'failed'),
            MAX(created_at)
        FROM webhook_delivery_logs
        WHERE organization_id = $1 AND created_at >= $2 AND created_at < $3
    `, orgID, from, to)
	if err := row.Scan(&stats.Total, &stats.Processed, &stats.Rejected, &stats.Failed, &stats.LastReceivedAt); err != nil {
		return stats, fmt.Errorf("query webhook stats: %w", err)
	}
	return stats, nil
}
