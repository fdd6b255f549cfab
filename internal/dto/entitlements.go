package dto

import "time"

// GenerateLicenseRequest is the body of POST /api/contacts/:id/licenses.
type GenerateLicenseRequest struct {
	SoftwareEdition string     `json:"software_edition"`
	ExpiresAt       *time.Time `json:"expires_at"`
	MaxDevices      int        `json:"max_devices"`
	Features        []string   `json:"features,omitempty"`
}

// TransferLicenseRequest is the body of POST /api/contacts/licenses/:id/transfer.
type TransferLicenseRequest struct {
	NewContactID string `json:"new_contact_id"`
	Reason       string `json:"reason,omitempty"`
}

// ExtendRequest adds whole days to an entitlement.
type ExtendRequest struct {
	Days int `json:"days"`
}

// CancelRequest carries an optional free-text reason.
type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CreateTrialRequest is the body of POST /api/contacts/:id/trials.
// TrialDays defaults to 30; -1 creates an already expired trial.
type CreateTrialRequest struct {
	SoftwareEdition string `json:"software_edition"`
	TrialDays       *int   `json:"trial_days,omitempty"`
}

// Evaluation is the read-time status of a license or trial.
type Evaluation struct {
	Status          string `json:"status"`
	EffectiveStatus string `json:"effective_status"`
	DaysUntilExpiry int    `json:"days_until_expiry"`
	Band            string `json:"band,omitempty"`
	Label           string `json:"label,omitempty"`
}

// LicenseResponse is a license together with its evaluation.
type LicenseResponse struct {
	ID              string     `json:"id"`
	ContactID       string     `json:"contact_id"`
	LicenseKey      string     `json:"license_key"`
	SoftwareEdition string     `json:"software_edition"`
	MaxDevices      int        `json:"max_devices"`
	Features        []string   `json:"features"`
	CancelReason    *string    `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
	Evaluation      Evaluation `json:"evaluation"`
}

// TransferSummary is returned alongside a transferred license.
type TransferSummary struct {
	Reason        string `json:"reason"`
	RemainingDays int    `json:"remaining_days"`
}

// TransferResponse is the body of a successful transfer.
type TransferResponse struct {
	License  LicenseResponse `json:"license"`
	Transfer TransferSummary `json:"transfer"`
}

// TrialResponse is a trial together with its evaluation.
type TrialResponse struct {
	ID              string     `json:"id"`
	ContactID       string     `json:"contact_id"`
	TrialKey        string     `json:"trial_key"`
	SoftwareEdition string     `json:"software_edition"`
	CancelReason    *string    `json:"cancel_reason,omitempty"`
	ConvertedAt     *time.Time `json:"converted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
	ProgressPercent int        `json:"progress_percent"`
	CanExtend       bool       `json:"can_extend"`
	Evaluation      Evaluation `json:"evaluation"`
}
