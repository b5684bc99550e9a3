package repository

import (
	"context"
	"time"

	"course-enrollment/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	Create(ctx context.Context, tx Tx, p *model.Payment) error
	// FindByID locks the row when tx is a live transaction.
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByActivationCode(ctx context.Context, tx Tx, code string) (*model.Payment, error)
	ActivationCodeExists(ctx context.Context, tx Tx, code string) (bool, error)
	// MarkActivated sets status=activated with audit fields.
	MarkActivated(ctx context.Context, tx Tx, id string, at time.Time, by *string, evidence *string) error
	// MarkRejected moves a non-terminal payment to rejected. It reports false
	// when the payment was already activated or rejected.
	MarkRejected(ctx context.Context, tx Tx, id string, at time.Time, by *string, reason *string, evidence *string) (bool, error)
	ListPage(ctx context.Context, tx Tx, f model.PaymentFilter, limit int, after *model.PaymentCursor) ([]*model.Payment, error)
}
