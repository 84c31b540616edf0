package accesskey

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatewarden/gatewarden/internal/platform/db"
)

const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err carries a unique-constraint
// violation, optionally narrowed to one constraint name.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const keyColumns = `id, token, name, is_active, expires_at, target_user_id, menu_paths, created_by, created_at, updated_at`

func scanKey(row pgx.Row) (AccessKey, error) {
	var key AccessKey
	err := row.Scan(
		&key.ID, &key.Token, &key.Name, &key.IsActive, &key.ExpiresAt,
		&key.TargetUserID, &key.MenuPaths, &key.CreatedBy, &key.CreatedAt, &key.UpdatedAt,
	)
	return key, err
}

// CreateKey inserts a new access key together with its permission grants.
func (r *Repository) CreateKey(ctx context.Context, key AccessKey) (AccessKey, error) {
	created := key
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO access_keys (id, token, name, is_active, expires_at, target_user_id, menu_paths, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING `+keyColumns,
			key.ID, key.Token, key.Name, key.IsActive, key.ExpiresAt, key.TargetUserID, key.MenuPaths, key.CreatedBy,
		)
		var err error
		created, err = scanKey(row)
		if err != nil {
			return err
		}
		for _, perm := range key.Permissions {
			if _, err := tx.Exec(ctx, `
				INSERT INTO access_key_permissions (access_key_id, permission_name)
				VALUES ($1, $2)`, created.ID, perm); err != nil {
				return fmt.Errorf("accesskey: attach permission %s: %w", perm, err)
			}
		}
		created.Permissions = append([]string(nil), key.Permissions...)
		return nil
	})
	if err != nil {
		if isUniqueViolation(err, "access_keys_token_key") {
			return AccessKey{}, errTokenCollision
		}
		return AccessKey{}, err
	}
	return created, nil
}

// errTokenCollision signals that a freshly generated token already exists.
// The service retries generation; callers never observe this error.
var errTokenCollision = errors.New("accesskey: token collision")

// GetKey fetches a key by ID.
func (r *Repository) GetKey(ctx context.Context, id uuid.UUID) (AccessKey, error) {
	key, err := scanKey(r.pool.QueryRow(ctx, `SELECT `+keyColumns+` FROM access_keys WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccessKey{}, ErrNotFound
		}
		return AccessKey{}, err
	}
	if err := r.loadPermissions(ctx, &key); err != nil {
		return AccessKey{}, err
	}
	return key, nil
}

// FindKeyByToken fetches a key by its bearer token.
func (r *Repository) FindKeyByToken(ctx context.Context, token string) (AccessKey, error) {
	key, err := scanKey(r.pool.QueryRow(ctx, `SELECT `+keyColumns+` FROM access_keys WHERE token = $1`, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccessKey{}, ErrNotFound
		}
		return AccessKey{}, err
	}
	if err := r.loadPermissions(ctx, &key); err != nil {
		return AccessKey{}, err
	}
	return key, nil
}

// ListKeys returns all keys ordered by creation time, newest first.
func (r *Repository) ListKeys(ctx context.Context) ([]AccessKey, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+keyColumns+` FROM access_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []AccessKey
	for rows.Next() {
		key, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadPermissionsBulk(ctx, keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// SetKeyActive flips the active flag.
func (r *Repository) SetKeyActive(ctx context.Context, id uuid.UUID, active bool) (AccessKey, error) {
	key, err := scanKey(r.pool.QueryRow(ctx, `
		UPDATE access_keys SET is_active = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+keyColumns, id, active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccessKey{}, ErrNotFound
		}
		return AccessKey{}, err
	}
	if err := r.loadPermissions(ctx, &key); err != nil {
		return AccessKey{}, err
	}
	return key, nil
}

// DeleteKey removes a key. Grants and redemptions cascade via foreign keys.
func (r *Repository) DeleteKey(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM access_keys WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPermissions returns the permission catalog ordered by display name.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, display_name, description FROM permissions ORDER BY display_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.Name, &p.DisplayName, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// CreateRedemption records a user's claim of a key. The unique index on
// (user_id, access_key_id) makes concurrent duplicate claims lose cleanly.
func (r *Repository) CreateRedemption(ctx context.Context, userID, keyID uuid.UUID) (Redemption, error) {
	var red Redemption
	err := r.pool.QueryRow(ctx, `
		INSERT INTO user_access_keys (id, user_id, access_key_id)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, access_key_id, activated_at`,
		uuid.New(), userID, keyID,
	).Scan(&red.ID, &red.UserID, &red.AccessKeyID, &red.ActivatedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return Redemption{}, ErrAlreadyRedeemed
		}
		return Redemption{}, err
	}
	return red, nil
}

// FindRedemption fetches one (user, key) redemption.
func (r *Repository) FindRedemption(ctx context.Context, userID, keyID uuid.UUID) (Redemption, error) {
	var red Redemption
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, access_key_id, activated_at
		FROM user_access_keys WHERE user_id = $1 AND access_key_id = $2`,
		userID, keyID,
	).Scan(&red.ID, &red.UserID, &red.AccessKeyID, &red.ActivatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Redemption{}, ErrNotFound
		}
		return Redemption{}, err
	}
	return red, nil
}

// ListRedemptionsByUser returns the user's redemptions with their keys and
// permission grants embedded.
func (r *Repository) ListRedemptionsByUser(ctx context.Context, userID uuid.UUID) ([]Redemption, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.user_id, u.access_key_id, u.activated_at,
		       k.id, k.token, k.name, k.is_active, k.expires_at, k.target_user_id, k.menu_paths, k.created_by, k.created_at, k.updated_at
		FROM user_access_keys u
		JOIN access_keys k ON k.id = u.access_key_id
		WHERE u.user_id = $1
		ORDER BY u.activated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reds []Redemption
	for rows.Next() {
		var red Redemption
		if err := rows.Scan(
			&red.ID, &red.UserID, &red.AccessKeyID, &red.ActivatedAt,
			&red.Key.ID, &red.Key.Token, &red.Key.Name, &red.Key.IsActive, &red.Key.ExpiresAt,
			&red.Key.TargetUserID, &red.Key.MenuPaths, &red.Key.CreatedBy, &red.Key.CreatedAt, &red.Key.UpdatedAt,
		); err != nil {
			return nil, err
		}
		reds = append(reds, red)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	keys := make([]AccessKey, len(reds))
	for i := range reds {
		keys[i] = reds[i].Key
	}
	if err := r.loadPermissionsBulk(ctx, keys); err != nil {
		return nil, err
	}
	for i := range reds {
		reds[i].Key = keys[i]
	}
	return reds, nil
}

// ListRedeemerIDs returns the ids of users who redeemed the key.
func (r *Repository) ListRedeemerIDs(ctx context.Context, keyID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id FROM user_access_keys WHERE access_key_id = $1`, keyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteRedemption removes a redemption owned by userID. Deleting someone
// else's redemption is indistinguishable from a missing one.
func (r *Repository) DeleteRedemption(ctx context.Context, userID, redemptionID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_access_keys WHERE id = $1 AND user_id = $2`, redemptionID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) loadPermissions(ctx context.Context, key *AccessKey) error {
	rows, err := r.pool.Query(ctx, `
		SELECT permission_name FROM access_key_permissions
		WHERE access_key_id = $1 ORDER BY permission_name`, key.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	key.Permissions = nil
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		key.Permissions = append(key.Permissions, name)
	}
	return rows.Err()
}

func (r *Repository) loadPermissionsBulk(ctx context.Context, keys []AccessKey) error {
	if len(keys) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(keys))
	index := make(map[uuid.UUID]int, len(keys))
	for i, k := range keys {
		ids[i] = k.ID
		index[k.ID] = i
	}
	rows, err := r.pool.Query(ctx, `
		SELECT access_key_id, permission_name FROM access_key_permissions
		WHERE access_key_id = ANY($1) ORDER BY permission_name`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var keyID uuid.UUID
		var name string
		if err := rows.Scan(&keyID, &name); err != nil {
			return err
		}
		if i, ok := index[keyID]; ok {
			keys[i].Permissions = append(keys[i].Permissions, name)
		}
	}
	return rows.Err()
}
