package entity

import (
	"time"

	"github.com/google/uuid"
)

// License grants a contact access to a software edition until ExpiresAt.
type License struct {
	ID              uuid.UUID `json:"id"`
	OrganizationID  uuid.UUID `json:"organization_id"`
	ContactID       uuid.UUID `json:"contact_id"`
	LicenseKey      string    `json:"license_key"`
	SoftwareEdition string    `json:"software_edition"`
	MaxDevices      int       `json:"max_devices"`
	Features        []string  `json:"features"`
	Status          string    `json:"status"`
	CancelReason    *string   `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Trial is a time-boxed evaluation of a software edition for one contact.
type Trial struct {
	ID              uuid.UUID  `json:"id"`
	OrganizationID  uuid.UUID  `json:"organization_id"`
	ContactID       uuid.UUID  `json:"contact_id"`
	TrialKey        string     `json:"trial_key"`
	SoftwareEdition string     `json:"software_edition"`
	Status          string     `json:"status"`
	CancelReason    *string    `json:"cancel_reason,omitempty"`
	ConvertedAt     *time.Time `json:"converted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// LicenseTransfer records one change of license ownership.
type LicenseTransfer struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	LicenseID      uuid.UUID `json:"license_id"`
	FromContactID  uuid.UUID `json:"from_contact_id"`
	ToContactID    uuid.UUID `json:"to_contact_id"`
	Reason         string    `json:"reason"`
	RemainingDays  int       `json:"remaining_days"`
	CreatedAt      time.Time `json:"created_at"`
}
