// Package accesskey implements issuing, redemption and revocation of
// time-limited access keys, plus their PostgreSQL persistence.
package accesskey

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("accesskey: not found")
	// ErrInvalidKey indicates the submitted token matches no key.
	ErrInvalidKey = errors.New("accesskey: invalid key")
	// ErrKeyInactive indicates the key was deactivated by an administrator.
	ErrKeyInactive = errors.New("accesskey: key deactivated")
	// ErrKeyExpired indicates the key's expiry has passed.
	ErrKeyExpired = errors.New("accesskey: key expired")
	// ErrWrongRecipient indicates the key is scoped to a different user.
	ErrWrongRecipient = errors.New("accesskey: key issued to another user")
	// ErrAlreadyRedeemed indicates the user already redeemed this key.
	ErrAlreadyRedeemed = errors.New("accesskey: already redeemed")
	// ErrValidation indicates malformed issue input.
	ErrValidation = errors.New("accesskey: validation failed")
)

// AccessKey is an issuable, expiring, revocable bearer token bundling a set
// of grants: permission names and/or direct menu paths. A key may optionally
// be scoped to a single recipient.
type AccessKey struct {
	ID           uuid.UUID
	Token        string
	Name         string
	IsActive     bool
	ExpiresAt    time.Time
	TargetUserID *uuid.UUID
	Permissions  []string
	MenuPaths    []string
	CreatedBy    uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Expired reports whether the key's expiry has passed at the given instant.
func (k AccessKey) Expired(now time.Time) bool {
	return !now.Before(k.ExpiresAt)
}

// TargetedAt reports whether the key may be used by userID. Untargeted keys
// are usable by anyone.
func (k AccessKey) TargetedAt(userID uuid.UUID) bool {
	return k.TargetUserID == nil || *k.TargetUserID == userID
}

// GrantsTo reports whether the key currently contributes its grants to the
// given user: active, unexpired and correctly targeted. Expiry is always
// evaluated at read time, so a key expiring after redemption silently stops
// contributing without any stored-state change.
func (k AccessKey) GrantsTo(userID uuid.UUID, now time.Time) bool {
	return k.IsActive && !k.Expired(now) && k.TargetedAt(userID)
}

// Permission is an entry of the immutable capability catalog. Permissions
// are created out of band by seed tooling and referenced by name from keys.
type Permission struct {
	Name        string
	DisplayName string
	Description string
}

// Redemption records one user's claim of one access key. At most one
// redemption exists per (user, key) pair.
type Redemption struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	AccessKeyID uuid.UUID
	ActivatedAt time.Time

	// Key is the underlying access key, embedded on reads.
	Key AccessKey
}
