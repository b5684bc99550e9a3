package repository

import (
	"context"

	"course-enrollment/internal/domain/model"
)

type CourseRepository interface {
	// FindByIDs returns the courses that exist, keyed by id.
	FindByIDs(ctx context.Context, tx Tx, ids []string) (map[string]*model.Course, error)
}

// FXRateRepository exposes USD-based conversion rates refreshed out of band.
type FXRateRepository interface {
	// Rate returns ErrNotFound when no rate is stored for currency.
	Rate(ctx context.Context, tx Tx, currency string) (float64, error)
}

// CatalogWriter loads the reference data checkout and plan resets read:
// courses, conversion rates and goal templates.
type CatalogWriter interface {
	UpsertCourse(ctx context.Context, tx Tx, c *model.Course) error
	SetFXRate(ctx context.Context, tx Tx, currency string, rate float64) error
	// ReplaceGoalTemplate swaps every step of goalID for steps.
	ReplaceGoalTemplate(ctx context.Context, tx Tx, goalID string, steps []*model.TemplateStep) error
}
