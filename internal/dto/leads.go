package dto

import "time"

// LeadListFilter contains query parameters for lead listing endpoints.
type LeadListFilter struct {
	Q            string
	Source       string
	Status       string
	UpdatedSince *time.Time
	Page         int
	PerPage      int
}

// CreateLeadRequest is the payload for manually created leads.
type CreateLeadRequest struct {
	FirstName    string         `json:"first_name"`
	LastName     string         `json:"last_name"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone"`
	Company      string         `json:"company"`
	Title        string         `json:"title"`
	Website      string         `json:"website"`
	Notes        string         `json:"notes"`
	Source       string         `json:"source"`
	CustomFields map[string]any `json:"custom_fields"`
}

// LeadListResponse wraps a page of leads.
type LeadListResponse struct {
	Items   any `json:"items"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}
