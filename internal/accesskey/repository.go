package accesskey

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryPort defines data access methods for access keys and redemptions.
// No business rules live behind this interface; uniqueness is enforced by
// database constraints and surfaced as typed errors.
type RepositoryPort interface {
	CreateKey(ctx context.Context, key AccessKey) (AccessKey, error)
	GetKey(ctx context.Context, id uuid.UUID) (AccessKey, error)
	FindKeyByToken(ctx context.Context, token string) (AccessKey, error)
	ListKeys(ctx context.Context) ([]AccessKey, error)
	SetKeyActive(ctx context.Context, id uuid.UUID, active bool) (AccessKey, error)
	DeleteKey(ctx context.Context, id uuid.UUID) error

	ListPermissions(ctx context.Context) ([]Permission, error)

	CreateRedemption(ctx context.Context, userID, keyID uuid.UUID) (Redemption, error)
	FindRedemption(ctx context.Context, userID, keyID uuid.UUID) (Redemption, error)
	ListRedemptionsByUser(ctx context.Context, userID uuid.UUID) ([]Redemption, error)
	ListRedeemerIDs(ctx context.Context, keyID uuid.UUID) ([]uuid.UUID, error)
	DeleteRedemption(ctx context.Context, userID, redemptionID uuid.UUID) error
}
