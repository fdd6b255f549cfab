package dto

import "time"

// OrganizationTrialRequest is the body of PUT /api/super-admin/organizations/:id/trial.
type OrganizationTrialRequest struct {
	Action string `json:"action"`
	Days   int    `json:"days"`
	Reason string `json:"reason"`
}

// ConvertToPaidRequest is the body of PUT /api/super-admin/organizations/:id/convert-to-paid.
type ConvertToPaidRequest struct {
	SubscriptionPlan string  `json:"subscriptionPlan"`
	LicenseCount     int     `json:"licenseCount"`
	PaymentAmount    float64 `json:"paymentAmount"`
	BillingCycle     string  `json:"billingCycle"`
	BillingNotes     string  `json:"billingNotes"`
}

// ConvertToPaidResponse reports the billing state after conversion.
type ConvertToPaidResponse struct {
	OrganizationID  string    `json:"organization_id"`
	PreviousStatus  string    `json:"previous_status"`
	NewStatus       string    `json:"new_status"`
	LastPaymentDate time.Time `json:"last_payment_date"`
	NextBillingDate time.Time `json:"next_billing_date"`
	MonthlyCost     float64   `json:"monthly_cost"`
}

// OrganizationTrialStatus is the evaluated trial of one organization.
type OrganizationTrialStatus struct {
	OrganizationID     string     `json:"organization_id"`
	Name               string     `json:"name"`
	Slug               string     `json:"slug"`
	TrialStatus        string     `json:"trial_status"`
	TrialEndsAt        *time.Time `json:"trial_ends_at,omitempty"`
	TrialExtendedCount int        `json:"trial_extended_count"`
	ProgressPercent    int        `json:"progress_percent"`
	CanExtend          bool       `json:"can_extend"`
	Evaluation         Evaluation `json:"evaluation"`
}

// ExpiringTrialsResponse groups trials that end within the requested window by risk.
type ExpiringTrialsResponse struct {
	WithinDays int                       `json:"within_days"`
	Total      int                       `json:"total"`
	High       []OrganizationTrialStatus `json:"high"`
	Medium     []OrganizationTrialStatus `json:"medium"`
	Low        []OrganizationTrialStatus `json:"low"`
}
