package shared

import (
	"context"

	"github.com/google/uuid"
)

// Identity describes the already-authenticated actor attached to a request.
// Authentication itself happens upstream; the service only consumes the
// resulting user id and role.
type Identity struct {
	UserID uuid.UUID
	Role   Role
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in the context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext retrieves the identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
