package repository

import (
	"context"
	"time"

	"course-enrollment/internal/domain/model"
)

// -----------------------------
// Plan steps
// -----------------------------

type StepRepository interface {
	ListByStudent(ctx context.Context, tx Tx, studentUID string) ([]*model.Step, error)
	FindByID(ctx context.Context, tx Tx, studentUID, stepID string) (*model.Step, error)
	CreateMany(ctx context.Context, tx Tx, steps []*model.Step) error
	Update(ctx context.Context, tx Tx, s *model.Step) error
	Delete(ctx context.Context, tx Tx, studentUID, stepID string) error
	DeleteAllByStudent(ctx context.Context, tx Tx, studentUID string) (int, error)
	SetOrder(ctx context.Context, tx Tx, studentUID string, orderedIDs []string) error
}

// -----------------------------
// Step completions
// -----------------------------

type StepCompletionRepository interface {
	Create(ctx context.Context, tx Tx, c *model.StepCompletion) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.StepCompletion, error)
	MarkRevoked(ctx context.Context, tx Tx, id string, at time.Time, by string) error
	UpdateNotes(ctx context.Context, tx Tx, id string, comment, link *string, at time.Time) error
	// ListPage returns completions newest first; an empty status matches all.
	ListPage(ctx context.Context, tx Tx, status model.CompletionStatus, limit int, after *model.CompletionCursor) ([]*model.StepCompletion, error)
}

// -----------------------------
// Goal templates
// -----------------------------

type TemplateStepRepository interface {
	ListByGoal(ctx context.Context, tx Tx, goalID string) ([]*model.TemplateStep, error)
}
