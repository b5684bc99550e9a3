package repository

import (
	"context"

	"course-enrollment/internal/domain/model"
)

type MailboxCheckpointRepository interface {
	// Get returns ErrNotFound when the mailbox was never watched.
	Get(ctx context.Context, tx Tx) (*model.MailboxCheckpoint, error)
	Save(ctx context.Context, tx Tx, c *model.MailboxCheckpoint) error
	// AdvanceHistoryID stores id unless the stored id is numerically greater.
	AdvanceHistoryID(ctx context.Context, tx Tx, id string) (bool, error)
}
