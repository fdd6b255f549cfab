package entity

import (
	"time"

	"github.com/google/uuid"
)

// Organization is a tenant. Every tenant-owned row carries its ID.
type Organization struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	Slug               string     `json:"slug"`
	IsActive           bool       `json:"is_active"`
	TrialStatus        string     `json:"trial_status"`
	TrialStartedAt     *time.Time `json:"trial_started_at,omitempty"`
	TrialEndsAt        *time.Time `json:"trial_ends_at,omitempty"`
	TrialExtendedCount int        `json:"trial_extended_count"`
	SubscriptionPlan   *string    `json:"subscription_plan,omitempty"`
	LicenseCount       int        `json:"license_count"`
	PaymentStatus      string     `json:"payment_status"`
	BillingCycle       *string    `json:"billing_cycle,omitempty"`
	MonthlyCost        *float64   `json:"monthly_cost,omitempty"`
	LastPaymentDate    *time.Time `json:"last_payment_date,omitempty"`
	NextBillingDate    *time.Time `json:"next_billing_date,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// OrganizationNote is an audit entry written by super-admin actions.
type OrganizationNote struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Kind           string    `json:"kind"`
	Body           string    `json:"body"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}
