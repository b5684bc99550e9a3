package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v4/pgxpool"

	"course-enrollment/internal/domain/model"
	"course-enrollment/internal/domain/ports/repository"
)

var _ repository.CatalogWriter = (*catalogRepo)(nil)

type catalogRepo struct{ pool *pgxpool.Pool }

func NewCatalogRepo(pool *pgxpool.Pool) *catalogRepo {
	return &catalogRepo{pool: pool}
}

func (r *catalogRepo) UpsertCourse(ctx context.Context, tx repository.Tx, c *model.Course) error {
	const q = `
INSERT INTO courses (id, title, price_usd_cents, is_active)
VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET
  title=EXCLUDED.title, price_usd_cents=EXCLUDED.price_usd_cents, is_active=EXCLUDED.is_active;`
	_, err := execSQL(ctx, r.pool, tx, q, c.ID, c.Title, c.PriceUSDCents, c.IsActive)
	return err
}

func (r *catalogRepo) SetFXRate(ctx context.Context, tx repository.Tx, currency string, rate float64) error {
	const q = `
INSERT INTO fx_rates (currency, rate, updated_at) VALUES ($1,$2,NOW())
ON CONFLICT (currency) DO UPDATE SET rate=EXCLUDED.rate, updated_at=NOW();`
	_, err := execSQL(ctx, r.pool, tx, q, strings.ToUpper(strings.TrimSpace(currency)), rate)
	return err
}

func (r *catalogRepo) ReplaceGoalTemplate(ctx context.Context, tx repository.Tx, goalID string, steps []*model.TemplateStep) error {
	if _, err := execSQL(ctx, r.pool, tx, `DELETE FROM goal_template_steps WHERE goal_id=$1;`, goalID); err != nil {
		return err
	}
	const ins = `
INSERT INTO goal_template_steps (id, goal_id, title, description, material_url, sort_order)
VALUES ($1,$2,$3,$4,$5,$6);`
	for _, s := range steps {
		if _, err := execSQL(ctx, r.pool, tx, ins, s.ID, goalID, s.Title, s.Description, s.MaterialURL, s.Order); err != nil {
			return err
		}
	}
	return nil
}
