package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"course-enrollment/internal/domain"
	"course-enrollment/internal/domain/model"
	"course-enrollment/internal/domain/ports/repository"
)

var _ repository.CourseRepository = (*courseRepo)(nil)
var _ repository.FXRateRepository = (*fxRateRepo)(nil)

type courseRepo struct{ pool *pgxpool.Pool }

func NewCourseRepo(pool *pgxpool.Pool) *courseRepo {
	return &courseRepo{pool: pool}
}

func (r *courseRepo) FindByIDs(ctx context.Context, tx repository.Tx, ids []string) (map[string]*model.Course, error) {
	out := make(map[string]*model.Course, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	const q = `SELECT id, title, price_usd_cents, is_active FROM courses WHERE id = ANY($1);`
	rows, err := queryRows(ctx, r.pool, tx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		c := &model.Course{}
		if err := rows.Scan(&c.ID, &c.Title, &c.PriceUSDCents, &c.IsActive); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[c.ID] = c
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

type fxRateRepo struct{ pool *pgxpool.Pool }

func NewFXRateRepo(pool *pgxpool.Pool) *fxRateRepo {
	return &fxRateRepo{pool: pool}
}

func (r *fxRateRepo) Rate(ctx context.Context, tx repository.Tx, currency string) (float64, error) {
	const q = `SELECT rate::float8 FROM fx_rates WHERE currency=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, currency)
	if err != nil {
		return 0, err
	}
	var rate float64
	if err := row.Scan(&rate); err != nil {
		return 0, mapScanErr(err)
	}
	return rate, nil
}
