package repository

import (
	"context"

	"course-enrollment/internal/domain/model"
)

// -----------------------------
// Students (enrollment records)
// -----------------------------

type StudentRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Student) error
	// FindByUID locks the row when tx is a live transaction.
	FindByUID(ctx context.Context, tx Tx, uid string) (*model.Student, error)
	UpdateStatus(ctx context.Context, tx Tx, uid string, status model.EnrollmentStatus) error
	SetProgress(ctx context.Context, tx Tx, uid string, p model.Progress) error
}
