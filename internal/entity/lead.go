package entity

import (
	"time"

	"github.com/google/uuid"
)

// Lead is a persisted prospect, usually created from a webhook payload.
type Lead struct {
	ID             uuid.UUID      `json:"id"`
	OrganizationID uuid.UUID      `json:"organization_id"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	Email          string         `json:"email"`
	Phone          *string        `json:"phone,omitempty"`
	Company        *string        `json:"company,omitempty"`
	Title          *string        `json:"title,omitempty"`
	Website        *string        `json:"website,omitempty"`
	Notes          *string        `json:"notes,omitempty"`
	Source         string         `json:"source"`
	Status         string         `json:"status"`
	Score          int            `json:"score"`
	CustomFields   map[string]any `json:"custom_fields"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
