package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/uppalcrm/crm/api/internal/dto"
	"github.com/uppalcrm/crm/api/internal/entity"
	"github.com/uppalcrm/crm/api/internal/logging"
	"github.com/uppalcrm/crm/api/internal/repository"
)

const (
	apiKeyScheme        = "uppal"
	apiKeyRandomBytes   = 30
	apiKeyPrefixLength  = 20
	DefaultAPIKeyLimit  = 1000
	DefaultAPIKeyCost   = 12
	maxAPIKeyNameLength = 100
)

// Permissions grantable to API keys.
const (
	PermLeadsWrite    = "leads:write"
	PermLeadsRead     = "leads:read"
	PermWebhooksRead  = "webhooks:read"
	PermContactsRead  = "contacts:read"
	PermContactsWrite = "contacts:write"
)

var permissionCatalogue = map[string]string{
	PermLeadsWrite:    "Create leads through webhooks",
	PermLeadsRead:     "Read leads",
	PermWebhooksRead:  "Inspect webhook endpoints and delivery statistics",
	PermContactsRead:  "Read contacts",
	PermContactsWrite: "Create and update contacts",
}

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// ParsedAPIKey is the structural view of an X-API-Key value.
type ParsedAPIKey struct {
	OrgSlug string
	Secret  string
}

// ParseAPIKey validates the uppal_{orgSlug}_{random} layout.
func ParseAPIKey(raw string) (ParsedAPIKey, error) {
	raw = strings.TrimSpace(raw)
	rest, ok := strings.CutPrefix(raw, apiKeyScheme+"_")
	if !ok {
		return ParsedAPIKey{}, fmt.Errorf("%w: api key has wrong prefix", ErrUnauthorized)
	}
	slug, secret, ok := strings.Cut(rest, "_")
	if !ok || secret == "" || !slugPattern.MatchString(slug) {
		return ParsedAPIKey{}, fmt.Errorf("%w: malformed api key", ErrUnauthorized)
	}
	return ParsedAPIKey{OrgSlug: slug, Secret: secret}, nil
}

// APIKeyPrincipal is the authenticated caller behind an API key.
type APIKeyPrincipal struct {
	Key          entity.APIKey
	Organization entity.Organization
}

// HasPermission reports whether the key was granted perm.
func (p APIKeyPrincipal) HasPermission(perm string) bool {
	for _, granted := range p.Key.Permissions {
		if granted == perm {
			return true
		}
	}
	return false
}

// APIKeyService issues and verifies organization API keys.
type APIKeyService struct {
	keys       repository.APIKeysRepository
	orgs       repository.OrganizationsRepository
	bcryptCost int
	now        func() time.Time
}

// NewAPIKeyService constructs an APIKeyService. bcryptCost falls back to 12 when out of range.
func NewAPIKeyService(keys repository.APIKeysRepository, orgs repository.OrganizationsRepository, bcryptCost int) *APIKeyService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = DefaultAPIKeyCost
	}
	return &APIKeyService{keys: keys, orgs: orgs, bcryptCost: bcryptCost, now: time.Now}
}

// Create issues a key for the organization. The plaintext key is only ever returned here.
func (s *APIKeyService) Create(ctx context.Context, org *entity.Organization, req dto.CreateAPIKeyRequest) (*dto.CreatedAPIKeyResponse, error) {
	if org == nil {
		return nil, notFound("organization")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidField("name", "name is required")
	}
	if len(name) > maxAPIKeyNameLength {
		return nil, invalidField("name", "name must be at most %d characters", maxAPIKeyNameLength)
	}

	perms, err := normalizePermissions(req.Permissions)
	if err != nil {
		return nil, err
	}
	limit := req.RateLimitPerHour
	if limit < 0 {
		return nil, invalidField("rate_limit_per_hour", "rate_limit_per_hour must not be negative")
	}
	if limit == 0 {
		limit = DefaultAPIKeyLimit
	}
	if req.ExpiresInDays < 0 {
		return nil, invalidField("expires_in_days", "expires_in_days must not be negative")
	}

	plaintext, secret, err := generateAPIKey(org.Slug)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash api key: %w", err)
	}

	key := &entity.APIKey{
		OrganizationID:   org.ID,
		Name:             name,
		KeyHash:          string(hash),
		KeyPrefix:        displayPrefix(plaintext),
		Permissions:      perms,
		RateLimitPerHour: limit,
	}
	if req.ExpiresInDays > 0 {
		expires := s.now().UTC().AddDate(0, 0, req.ExpiresInDays)
		key.ExpiresAt = &expires
	}
	if err := s.keys.Create(ctx, key); err != nil {
		return nil, err
	}

	return &dto.CreatedAPIKeyResponse{APIKeyResponse: apiKeyResponse(key), Key: plaintext}, nil
}

// List returns the organization's keys without secrets.
func (s *APIKeyService) List(ctx context.Context, orgID uuid.UUID) ([]dto.APIKeyResponse, error) {
	keys, err := s.keys.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.APIKeyResponse, 0, len(keys))
	for i := range keys {
		out = append(out, apiKeyResponse(&keys[i]))
	}
	return out, nil
}

// Revoke deactivates one key of the organization.
func (s *APIKeyService) Revoke(ctx context.Context, orgID uuid.UUID, id string) error {
	keyID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return notFound("api key")
	}
	if err := s.keys.Revoke(ctx, orgID, keyID); err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			return notFound("api key")
		}
		return err
	}
	return nil
}

// Verify authenticates a raw X-API-Key value. Every failure is ErrUnauthorized.
func (s *APIKeyService) Verify(ctx context.Context, raw string) (*APIKeyPrincipal, error) {
	raw = strings.TrimSpace(raw)
	parsed, err := ParseAPIKey(raw)
	if err != nil {
		return nil, err
	}

	org, err := s.orgs.FindBySlug(ctx, parsed.OrgSlug)
	if err != nil {
		if errors.Is(err, repository.ErrOrganizationNotFound) {
			return nil, fmt.Errorf("%w: unknown organization", ErrUnauthorized)
		}
		return nil, err
	}
	if !org.IsActive {
		return nil, fmt.Errorf("%w: organization is inactive", ErrUnauthorized)
	}

	now := s.now().UTC()
	candidates, err := s.keys.ListUsable(ctx, org.ID, now)
	if err != nil {
		return nil, err
	}

	prefix := displayPrefix(raw)
	for i := range candidates {
		key := candidates[i]
		if key.KeyPrefix != prefix {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(parsed.Secret)) != nil {
			continue
		}
		if err := s.keys.TouchLastUsed(ctx, key.ID, now); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Str("api_key_id", key.ID.String()).Msg("failed to record api key usage")
		} else {
			key.LastUsedAt = &now
		}
		return &APIKeyPrincipal{Key: key, Organization: *org}, nil
	}
	return nil, fmt.Errorf("%w: api key not recognised", ErrUnauthorized)
}

// Permissions lists every permission a key may be granted.
func (s *APIKeyService) Permissions() []dto.PermissionInfo {
	names := make([]string, 0, len(permissionCatalogue))
	for name := range permissionCatalogue {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]dto.PermissionInfo, 0, len(names))
	for _, name := range names {
		out = append(out, dto.PermissionInfo{Name: name, Description: permissionCatalogue[name]})
	}
	return out
}

func normalizePermissions(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return []string{PermLeadsWrite}, nil
	}
	seen := make(map[string]struct{}, len(requested))
	out := make([]string, 0, len(requested))
	for _, perm := range requested {
		perm = strings.ToLower(strings.TrimSpace(perm))
		if perm == "" {
			continue
		}
		if _, ok := permissionCatalogue[perm]; !ok {
			return nil, invalidField("permissions", "unknown permission %q", perm)
		}
		if _, dup := seen[perm]; dup {
			continue
		}
		seen[perm] = struct{}{}
		out = append(out, perm)
	}
	if len(out) == 0 {
		return []string{PermLeadsWrite}, nil
	}
	sort.Strings(out)
	return out, nil
}

// generateAPIKey returns the full key and its random part. Only the random part is hashed since
// bcrypt reads at most 72 bytes.
func generateAPIKey(slug string) (key, secret string, err error) {
	if !slugPattern.MatchString(slug) {
		return "", "", fmt.Errorf("%w: organization slug %q cannot be embedded in an api key", ErrInvalidArgument, slug)
	}
	buf := make([]byte, apiKeyRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("read random bytes: %w", err)
	}
	secret = base64.RawURLEncoding.EncodeToString(buf)
	return apiKeyScheme + "_" + slug + "_" + secret, secret, nil
}

func displayPrefix(key string) string {
	if len(key) > apiKeyPrefixLength {
		key = key[:apiKeyPrefixLength]
	}
	return key + "..."
}

func apiKeyResponse(k *entity.APIKey) dto.APIKeyResponse {
	return dto.APIKeyResponse{
		ID:               k.ID.String(),
		Name:             k.Name,
		KeyPrefix:        k.KeyPrefix,
		Permissions:      k.Permissions,
		RateLimitPerHour: k.RateLimitPerHour,
		IsActive:         k.IsActive,
		ExpiresAt:        k.ExpiresAt,
		LastUsedAt:       k.LastUsedAt,
		CreatedAt:        k.CreatedAt,
	}
}
