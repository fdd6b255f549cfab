package entity

import (
	"time"

	"github.com/google/uuid"
)

// Contact is a qualified person that may own licenses, trials and devices.
type Contact struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          *string   `json:"email,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Device is a machine registered against a contact and optionally bound to a license.
type Device struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	ContactID      uuid.UUID  `json:"contact_id"`
	LicenseID      *uuid.UUID `json:"license_id,omitempty"`
	DeviceName     string     `json:"device_name"`
	MACAddress     *string    `json:"mac_address,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
