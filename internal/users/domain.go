package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/gatewarden/gatewarden/internal/shared"
)

// User represents a user account. Authentication lives upstream; this
// service only stores the profile and its role tier.
type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	Role      shared.Role
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
