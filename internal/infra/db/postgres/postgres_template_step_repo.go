package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"course-enrollment/internal/domain"
	"course-enrollment/internal/domain/model"
	"course-enrollment/internal/domain/ports/repository"
)

var _ repository.TemplateStepRepository = (*templateStepRepo)(nil)

type templateStepRepo struct{ pool *pgxpool.Pool }

func NewTemplateStepRepo(pool *pgxpool.Pool) *templateStepRepo {
	return &templateStepRepo{pool: pool}
}

// ListByGoal returns ErrNotFound when the goal has no template steps.
func (r *templateStepRepo) ListByGoal(ctx context.Context, tx repository.Tx, goalID string) ([]*model.TemplateStep, error) {
	const q = `
SELECT id, goal_id, title, description, material_url, sort_order
  FROM goal_template_steps WHERE goal_id=$1 ORDER BY sort_order, id;`
	rows, err := queryRows(ctx, r.pool, tx, q, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.TemplateStep
	for rows.Next() {
		t := &model.TemplateStep{}
		if err := rows.Scan(&t.ID, &t.GoalID, &t.Title, &t.Description, &t.MaterialURL, &t.Order); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, t)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	if len(out) == 0 {
		return nil, domain.ErrNotFound
	}
	return out, nil
}
