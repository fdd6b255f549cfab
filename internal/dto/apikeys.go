package dto

import "time"

// CreateAPIKeyRequest is the body of POST /api/api-keys.
type CreateAPIKeyRequest struct {
	Name             string   `json:"name"`
	Permissions      []string `json:"permissions"`
	RateLimitPerHour int      `json:"rate_limit_per_hour"`
	ExpiresInDays    int      `json:"expires_in_days,omitempty"`
}

// APIKeyResponse describes a stored key without its secret.
type APIKeyResponse struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	KeyPrefix        string     `json:"key_prefix"`
	Permissions      []string   `json:"permissions"`
	RateLimitPerHour int        `json:"rate_limit_per_hour"`
	IsActive         bool       `json:"is_active"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	LastUsedAt       *time.Time `json:"last_used_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// CreatedAPIKeyResponse is returned once, carrying the plaintext key.
type CreatedAPIKeyResponse struct {
	APIKeyResponse
	Key string `json:"key"`
}

// PermissionInfo documents one grantable permission.
type PermissionInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
