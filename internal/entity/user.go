package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is an account that signs in with email and password. Super admins have no organization.
type User struct {
	ID               uuid.UUID  `json:"id"`
	OrganizationID   *uuid.UUID `json:"organization_id,omitempty"`
	OrganizationSlug string     `json:"organization_slug,omitempty"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"`
	Role             string     `json:"role"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
