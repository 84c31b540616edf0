package accesskey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// tokenGenerationAttempts bounds collision retries during issue.
const tokenGenerationAttempts = 5

// UserDirectory answers existence checks for target users.
type UserDirectory interface {
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// PathCatalog exposes the registered menu paths a key may grant directly.
type PathCatalog interface {
	Paths() map[string]struct{}
}

// GrantInvalidator drops cached permission sets after lifecycle mutations so
// the next read observes the change immediately.
type GrantInvalidator interface {
	InvalidateUsers(ctx context.Context, userIDs ...uuid.UUID)
}

// Service orchestrates the access key lifecycle: issue, activation toggling,
// redemption and revocation.
type Service struct {
	repo        RepositoryPort
	users       UserDirectory
	paths       PathCatalog
	invalidator GrantInvalidator
	logger      *slog.Logger

	now func() time.Time
}

// NewService constructs a Service. The invalidator may be nil when no
// permission cache is configured.
func NewService(repo RepositoryPort, users UserDirectory, paths PathCatalog, invalidator GrantInvalidator, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		users:       users,
		paths:       paths,
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// IssueInput carries the validated fields for creating an access key.
type IssueInput struct {
	Name         string
	ExpiresAt    time.Time
	TargetUserID *uuid.UUID
	Permissions  []string
	MenuPaths    []string
}

// Issue creates a new access key and returns it including the plaintext
// token. This is the only time the full token is ever returned; callers are
// expected to display it once.
func (s *Service) Issue(ctx context.Context, actorID uuid.UUID, in IssueInput) (AccessKey, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return AccessKey{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	if !in.ExpiresAt.After(s.now()) {
		return AccessKey{}, fmt.Errorf("%w: expiry must be in the future", ErrValidation)
	}
	if len(in.Permissions) == 0 && len(in.MenuPaths) == 0 {
		return AccessKey{}, fmt.Errorf("%w: at least one permission or menu path required", ErrValidation)
	}
	if err := s.validateGrants(ctx, in); err != nil {
		return AccessKey{}, err
	}
	if in.TargetUserID != nil {
		exists, err := s.users.UserExists(ctx, *in.TargetUserID)
		if err != nil {
			return AccessKey{}, err
		}
		if !exists {
			return AccessKey{}, fmt.Errorf("accesskey: target user %s: %w", in.TargetUserID, ErrNotFound)
		}
	}

	for attempt := 0; attempt < tokenGenerationAttempts; attempt++ {
		token, err := GenerateToken()
		if err != nil {
			return AccessKey{}, fmt.Errorf("accesskey: generate token: %w", err)
		}
		created, err := s.repo.CreateKey(ctx, AccessKey{
			ID:           uuid.New(),
			Token:        token,
			Name:         name,
			IsActive:     true,
			ExpiresAt:    in.ExpiresAt,
			TargetUserID: in.TargetUserID,
			Permissions:  in.Permissions,
			MenuPaths:    in.MenuPaths,
			CreatedBy:    actorID,
		})
		if errors.Is(err, errTokenCollision) {
			if s.logger != nil {
				s.logger.Warn("access key token collision, regenerating", slog.Int("attempt", attempt+1))
			}
			continue
		}
		if err != nil {
			return AccessKey{}, err
		}
		return created, nil
	}
	return AccessKey{}, errors.New("accesskey: could not generate a unique token")
}

func (s *Service) validateGrants(ctx context.Context, in IssueInput) error {
	if len(in.Permissions) > 0 {
		catalog, err := s.repo.ListPermissions(ctx)
		if err != nil {
			return err
		}
		known := make(map[string]struct{}, len(catalog))
		for _, p := range catalog {
			known[p.Name] = struct{}{}
		}
		for _, name := range in.Permissions {
			if _, ok := known[name]; !ok {
				return fmt.Errorf("%w: unknown permission %q", ErrValidation, name)
			}
		}
	}
	if len(in.MenuPaths) > 0 && s.paths != nil {
		registered := s.paths.Paths()
		for _, path := range in.MenuPaths {
			if _, ok := registered[path]; !ok {
				return fmt.Errorf("%w: unknown menu path %q", ErrValidation, path)
			}
		}
	}
	return nil
}

// SetActive toggles a key's active flag. Deactivation is reversible;
// permission reads observe the change on their next evaluation.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (AccessKey, error) {
	key, err := s.repo.SetKeyActive(ctx, id, active)
	if err != nil {
		return AccessKey{}, err
	}
	s.invalidateRedeemers(ctx, id)
	return key, nil
}

// Redeem binds a key to the calling user after checking the full redemption
// precondition chain. TargetUserID is enforced here as well as at read time,
// so a key scoped to someone else is rejected up front.
func (s *Service) Redeem(ctx context.Context, userID uuid.UUID, token string) (Redemption, error) {
	key, err := s.repo.FindKeyByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Redemption{}, ErrInvalidKey
		}
		return Redemption{}, err
	}
	if !key.IsActive {
		return Redemption{}, ErrKeyInactive
	}
	if key.Expired(s.now()) {
		return Redemption{}, ErrKeyExpired
	}
	if !key.TargetedAt(userID) {
		return Redemption{}, ErrWrongRecipient
	}
	red, err := s.repo.CreateRedemption(ctx, userID, key.ID)
	if err != nil {
		return Redemption{}, err
	}
	red.Key = key
	s.invalidateUsers(ctx, userID)
	return red, nil
}

// RevokeRedemption deletes the caller's own redemption. A redemption owned
// by someone else is reported as not found, never touched.
func (s *Service) RevokeRedemption(ctx context.Context, userID, redemptionID uuid.UUID) error {
	if err := s.repo.DeleteRedemption(ctx, userID, redemptionID); err != nil {
		return err
	}
	s.invalidateUsers(ctx, userID)
	return nil
}

// DeleteKey hard-deletes a key and cascades its redemptions.
func (s *Service) DeleteKey(ctx context.Context, id uuid.UUID) error {
	redeemers, err := s.repo.ListRedeemerIDs(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteKey(ctx, id); err != nil {
		return err
	}
	s.invalidateUsers(ctx, redeemers...)
	return nil
}

// GetKey fetches a key by ID.
func (s *Service) GetKey(ctx context.Context, id uuid.UUID) (AccessKey, error) {
	return s.repo.GetKey(ctx, id)
}

// ListKeys returns all issued keys.
func (s *Service) ListKeys(ctx context.Context) ([]AccessKey, error) {
	return s.repo.ListKeys(ctx)
}

// ListUserRedemptions returns the user's redemptions with keys embedded.
func (s *Service) ListUserRedemptions(ctx context.Context, userID uuid.UUID) ([]Redemption, error) {
	return s.repo.ListRedemptionsByUser(ctx, userID)
}

// ListCatalog returns the permission catalog.
func (s *Service) ListCatalog(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

func (s *Service) invalidateRedeemers(ctx context.Context, keyID uuid.UUID) {
	if s.invalidator == nil {
		return
	}
	redeemers, err := s.repo.ListRedeemerIDs(ctx, keyID)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("list redeemers for cache invalidation", slog.Any("error", err))
		}
		return
	}
	s.invalidator.InvalidateUsers(ctx, redeemers...)
}

func (s *Service) invalidateUsers(ctx context.Context, userIDs ...uuid.UUID) {
	if s.invalidator == nil || len(userIDs) == 0 {
		return
	}
	s.invalidator.InvalidateUsers(ctx, userIDs...)
}
