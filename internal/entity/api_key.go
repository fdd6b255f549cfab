package entity

import (
	"time"

	"github.com/google/uuid"
)

// APIKey authenticates integrations. Only the bcrypt hash of the key is stored.
type APIKey struct {
	ID               uuid.UUID  `json:"id"`
	OrganizationID   uuid.UUID  `json:"organization_id"`
	Name             string     `json:"name"`
	KeyHash          string     `json:"-"`
	KeyPrefix        string     `json:"key_prefix"`
	Permissions      []string   `json:"permissions"`
	RateLimitPerHour int        `json:"rate_limit_per_hour"`
	IsActive         bool       `json:"is_active"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	LastUsedAt       *time.Time `json:"last_used_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
