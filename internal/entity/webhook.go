package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WebhookEndpoint is an inbound integration endpoint owned by an organization.
// Profile names a built-in mapping; Mapping, when set, is layered over it as field -> source path pairs.
type WebhookEndpoint struct {
	ID             uuid.UUID         `json:"id"`
	OrganizationID uuid.UUID         `json:"organization_id"`
	Name           string            `json:"name"`
	Profile        string            `json:"profile"`
	Mapping        map[string]string `json:"mapping,omitempty"`
	IsActive       bool              `json:"is_active"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Delivery statuses.
const (
	DeliveryProcessed = "processed"
	DeliveryRejected  = "rejected"
	DeliveryFailed    = "failed"
)

// DeliveryLog records the outcome of one inbound webhook call.
type DeliveryLog struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	WebhookID      *uuid.UUID      `json:"webhook_id,omitempty"`
	LeadID         *uuid.UUID      `json:"lead_id,omitempty"`
	Status         string          `json:"status"`
	Error          *string         `json:"error,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// WebhookStats aggregates delivery logs for a period.
type WebhookStats struct {
	Total          int        `json:"total"`
	Processed      int        `json:"processed"`
	Rejected       int        `json:"rejected"`
	Failed         int        `json:"failed"`
	LastReceivedAt *time.Time `json:"last_received_at,omitempty"`
}
