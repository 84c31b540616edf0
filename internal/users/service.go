package users

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/gatewarden/gatewarden/internal/shared"
)

// ErrSelfRoleChange indicates an administrator tried to change their own role.
var ErrSelfRoleChange = errors.New("users: cannot change own role")

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role shared.Role) (User, error)
}

// Service handles user management logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser fetches one user.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// ChangeRole assigns a new role to the user. Administrators cannot change
// their own role, which keeps at least one admin able to undo mistakes.
func (s *Service) ChangeRole(ctx context.Context, actorID, userID uuid.UUID, role shared.Role) (User, error) {
	if actorID == userID {
		return User{}, ErrSelfRoleChange
	}
	return s.repo.UpdateRole(ctx, userID, role)
}
