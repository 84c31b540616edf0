// Package jobs hosts background housekeeping executed by the Asynq worker.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPurgeExpiredKeys removes access keys whose expiry passed long ago.
	// Purely housekeeping: expiry is enforced at read time, so correctness
	// never depends on this task running.
	TaskPurgeExpiredKeys = "accesskey:purge_expired"
)

// PurgeExpiredKeysPayload parameterises the purge task.
type PurgeExpiredKeysPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewPurgeExpiredKeysTask constructs the purge task.
func NewPurgeExpiredKeysTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(PurgeExpiredKeysPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPurgeExpiredKeys, data), nil
}

// PurgeHandler deletes long-expired access keys. Redemptions cascade with
// their keys.
type PurgeHandler struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPurgeHandler constructs a PurgeHandler.
func NewPurgeHandler(pool *pgxpool.Pool, logger *slog.Logger) *PurgeHandler {
	return &PurgeHandler{pool: pool, logger: logger}
}

// ProcessTask handles TaskPurgeExpiredKeys.
func (h *PurgeHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload PurgeExpiredKeysPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Retention <= 0 {
		payload.Retention = 30 * 24 * time.Hour
	}
	cutoff := time.Now().Add(-payload.Retention)
	tag, err := h.pool.Exec(ctx, `DELETE FROM access_keys WHERE expires_at < $1`, cutoff)
	if err != nil {
		return err
	}
	if h.logger != nil {
		h.logger.Info("purged expired access keys",
			slog.Int64("deleted", tag.RowsAffected()),
			slog.Time("cutoff", cutoff))
	}
	return nil
}
