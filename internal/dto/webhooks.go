package dto

import "time"

// WebhookError is the machine-readable error body returned to integrations.
type WebhookError struct {
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// WebhookErrorResponse wraps WebhookError so callers can branch on error.field.
type WebhookErrorResponse struct {
	Success bool         `json:"success"`
	Error   WebhookError `json:"error"`
}

// WebhookLeadResponse is returned after a lead was created from a webhook.
type WebhookLeadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Lead    any    `json:"lead"`
}

// WebhookAcceptedResponse is returned when a payload was queued for an endpoint.
type WebhookAcceptedResponse struct {
	Success   bool   `json:"success"`
	WebhookID string `json:"webhook_id"`
	JobID     string `json:"job_id,omitempty"`
}

// WebhookTestResponse answers a connectivity check.
type WebhookTestResponse struct {
	Success   bool               `json:"success"`
	WebhookID string             `json:"webhook_id"`
	Webhook   WebhookDescription `json:"webhook"`
	APIKey    APIKeyPrincipal    `json:"api_key"`
}

// WebhookDescription summarizes a configured endpoint.
type WebhookDescription struct {
	Name     string `json:"name"`
	Profile  string `json:"profile"`
	IsActive bool   `json:"is_active"`
}

// APIKeyPrincipal describes the key that authenticated a request.
type APIKeyPrincipal struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Organization     string   `json:"organization"`
	Permissions      []string `json:"permissions"`
	RateLimitPerHour int      `json:"rate_limit_per_hour"`
}

// WebhookStatsResponse reports delivery counts for a period.
type WebhookStatsResponse struct {
	From           time.Time  `json:"from"`
	To             time.Time  `json:"to"`
	Total          int        `json:"total"`
	Processed      int        `json:"processed"`
	Rejected       int        `json:"rejected"`
	Failed         int        `json:"failed"`
	SuccessRate    float64    `json:"success_rate"`
	QueueDepth     int64      `json:"queue_depth"`
	LastReceivedAt *time.Time `json:"last_received_at,omitempty"`
}
