package adapter

import (
	"context"

	"course-enrollment/internal/domain/model"
)

// MailboxClient is the port to the remote mailbox change feed.
type MailboxClient interface {
	// ListHistory returns message ids added since startHistoryID, de-duplicated, in feed order.
	// It fails with domain.ErrHistoryExpired when startHistoryID is no longer retained.
	ListHistory(ctx context.Context, startHistoryID string) ([]string, error)
	GetMessage(ctx context.Context, id string) (*model.MailMessage, error)
	Watch(ctx context.Context, topic string) (*model.WatchResult, error)
}
