package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"course-enrollment/internal/domain/model"
	"course-enrollment/internal/domain/ports/repository"
)

var _ repository.MailboxCheckpointRepository = (*mailboxCheckpointRepo)(nil)

// The settings table holds a single row per mailbox integration.
const mailboxSettingsID = "gmail"

type mailboxCheckpointRepo struct{ pool *pgxpool.Pool }

func NewMailboxCheckpointRepo(pool *pgxpool.Pool) *mailboxCheckpointRepo {
	return &mailboxCheckpointRepo{pool: pool}
}

func (r *mailboxCheckpointRepo) Get(ctx context.Context, tx repository.Tx) (*model.MailboxCheckpoint, error) {
	q := `SELECT enabled, watch_topic, COALESCE(last_history_id, ''), watch_expiration, updated_at FROM mailbox_settings WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", mailboxSettingsID)
	if err != nil {
		return nil, err
	}
	c := &model.MailboxCheckpoint{}
	if err := row.Scan(&c.Enabled, &c.WatchTopic, &c.LastHistoryID, &c.WatchExpiration, &c.UpdatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	return c, nil
}

func (r *mailboxCheckpointRepo) Save(ctx context.Context, tx repository.Tx, c *model.MailboxCheckpoint) error {
	const q = `
INSERT INTO mailbox_settings (id, enabled, watch_topic, last_history_id, watch_expiration, updated_at)
VALUES ($1,$2,$3,NULLIF($4, ''),$5,NOW())
ON CONFLICT (id) DO UPDATE SET
  enabled=EXCLUDED.enabled, watch_topic=EXCLUDED.watch_topic, last_history_id=EXCLUDED.last_history_id,
  watch_expiration=EXCLUDED.watch_expiration, updated_at=NOW();`
	_, err := execSQL(ctx, r.pool, tx, q, mailboxSettingsID, c.Enabled, c.WatchTopic, c.LastHistoryID, c.WatchExpiration)
	return err
}

// AdvanceHistoryID only moves the stored id forward. Ids that are not purely
// numeric replace the stored value unconditionally.
func (r *mailboxCheckpointRepo) AdvanceHistoryID(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `
INSERT INTO mailbox_settings (id, last_history_id, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (id) DO UPDATE SET last_history_id=EXCLUDED.last_history_id, updated_at=NOW()
 WHERE CASE
         WHEN mailbox_settings.last_history_id ~ '^[0-9]+$' AND EXCLUDED.last_history_id ~ '^[0-9]+$'
         THEN EXCLUDED.last_history_id::numeric >= mailbox_settings.last_history_id::numeric
         ELSE TRUE
       END;`
	if !model.CheckpointAdvances("", id) {
		return false, nil
	}
	tag, err := execSQL(ctx, r.pool, tx, q, mailboxSettingsID, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
