package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/uppalcrm/crm/api/internal/auth"
	"github.com/uppalcrm/crm/api/internal/dto"
	"github.com/uppalcrm/crm/api/internal/repository"
)

// User roles.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleUser       = "user"
)

// AuthService coordinates credential validation and token issuance.
type AuthService struct {
	users repository.UsersRepository
	jwt   *auth.JWTManager
}

// NewAuthService constructs a new AuthService.
func NewAuthService(users repository.UsersRepository, jwtManager *auth.JWTManager) *AuthService {
	return &AuthService{users: users, jwt: jwtManager}
}

// Login validates credentials and returns a JWT carrying the user's organization.
func (s *AuthService) Login(ctx context.Context, email, password string) (*dto.LoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, invalidArgument("email and password must not be empty")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	orgID := ""
	if user.OrganizationID != nil {
		orgID = user.OrganizationID.String()
	}
	token, err := s.jwt.GenerateToken(user.ID.String(), user.Email, user.Role, orgID, user.OrganizationSlug)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		AccessToken:      token,
		TokenType:        "Bearer",
		ExpiresIn:        int(s.jwt.TTL().Seconds()),
		OrganizationSlug: user.OrganizationSlug,
		Role:             user.Role,
	}, nil
}
