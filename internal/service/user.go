package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/uppalcrm/crm/api/internal/dto"
	"github.com/uppalcrm/crm/api/internal/entity"
	"github.com/uppalcrm/crm/api/internal/repository"
)

// UserService encapsulates administrative operations for the users of one organization.
type UserService struct {
	repo repository.UsersRepository
}

// NewUserService builds a new UserService instance.
func NewUserService(repo repository.UsersRepository) *UserService {
	return &UserService{repo: repo}
}

// ListUsers returns the organization's users as DTOs.
func (s *UserService) ListUsers(ctx context.Context, orgID uuid.UUID) ([]dto.UserResponse, error) {
	users, err := s.repo.List(ctx, orgID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, userResponse(&u))
	}
	return responses, nil
}

// CreateUser creates a new user of the organization with the supplied role.
func (s *UserService) CreateUser(ctx context.Context, orgID uuid.UUID, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Role = strings.TrimSpace(req.Role)

	if req.Email == "" || req.Password == "" {
		return nil, invalidArgument("email and password are required")
	}
	if req.Role == "" {
		req.Role = RoleUser
	}
	if err := validateTenantRole(req.Role); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, orgID, req.Email, string(hashed), req.Role)
	if err != nil {
		if errors.Is(err, repository.ErrEmailDuplicate) {
			return nil, &FieldError{Err: ErrConflict, Field: "email", Message: "email already exists"}
		}
		return nil, err
	}

	resp := userResponse(user)
	return &resp, nil
}

// UpdateUser mutates selected user fields.
func (s *UserService) UpdateUser(ctx context.Context, orgID uuid.UUID, id string, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, notFound("user")
	}

	var emailPtr *string
	if req.Email != nil {
		trimmed := strings.ToLower(strings.TrimSpace(*req.Email))
		emailPtr = &trimmed
		if *emailPtr == "" {
			return nil, invalidField("email", "email cannot be empty")
		}
	}

	var rolePtr *string
	if req.Role != nil {
		trimmed := strings.TrimSpace(*req.Role)
		rolePtr = &trimmed
		if err := validateTenantRole(trimmed); err != nil {
			return nil, err
		}
	}

	var passwordPtr *string
	if req.Password != nil {
		if strings.TrimSpace(*req.Password) == "" {
			return nil, invalidField("password", "password cannot be empty")
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		pwd := string(hashed)
		passwordPtr = &pwd
	}

	user, err := s.repo.Update(ctx, orgID, userID, emailPtr, passwordPtr, rolePtr)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, notFound("user")
		}
		if errors.Is(err, repository.ErrEmailDuplicate) {
			return nil, &FieldError{Err: ErrConflict, Field: "email", Message: "email already exists"}
		}
		return nil, err
	}

	resp := userResponse(user)
	return &resp, nil
}

// DeleteUser removes a user of the organization by id.
func (s *UserService) DeleteUser(ctx context.Context, orgID uuid.UUID, id string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return notFound("user")
	}
	if err := s.repo.Delete(ctx, orgID, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return notFound("user")
		}
		return err
	}
	return nil
}

// validateTenantRole rejects roles an organization admin may not hand out.
func validateTenantRole(role string) error {
	switch role {
	case RoleAdmin, RoleUser:
		return nil
	default:
		return invalidField("role", "role must be %q or %q", RoleAdmin, RoleUser)
	}
}

func userResponse(u *entity.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
