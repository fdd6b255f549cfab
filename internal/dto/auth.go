package dto

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the access token and the tenant the client must send as
// X-Organization-Slug. Super admins get no slug.
type LoginResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int    `json:"expires_in"`
	OrganizationSlug string `json:"organization_slug,omitempty"`
	Role             string `json:"role"`
}
