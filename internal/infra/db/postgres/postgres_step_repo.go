package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-enrollment/internal/domain"
	"course-enrollment/internal/domain/model"
	"course-enrollment/internal/domain/ports/repository"
)

var _ repository.StepRepository = (*stepRepo)(nil)

type stepRepo struct{ pool *pgxpool.Pool }

func NewStepRepo(pool *pgxpool.Pool) *stepRepo {
	return &stepRepo{pool: pool}
}

const stepColumns = `id, student_uid, title, description, material_url, sort_order, is_done, done_at, done_comment, done_link, created_at, updated_at`

func scanStep(row pgx.Row) (*model.Step, error) {
	s := &model.Step{}
	if err := row.Scan(&s.ID, &s.StudentUID, &s.Title, &s.Description, &s.MaterialURL, &s.Order, &s.IsDone,
		&s.DoneAt, &s.DoneComment, &s.DoneLink, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	return s, nil
}

func (r *stepRepo) ListByStudent(ctx context.Context, tx repository.Tx, studentUID string) ([]*model.Step, error) {
	q := `SELECT ` + stepColumns + ` FROM plan_steps WHERE student_uid=$1 ORDER BY sort_order, created_at, id`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	rows, err := queryRows(ctx, r.pool, tx, q+";", studentUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Step
	for rows.Next() {
		s, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *stepRepo) FindByID(ctx context.Context, tx repository.Tx, studentUID, stepID string) (*model.Step, error) {
	q := `SELECT ` + stepColumns + ` FROM plan_steps WHERE student_uid=$1 AND id=$2`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", studentUID, stepID)
	if err != nil {
		return nil, err
	}
	return scanStep(row)
}

func (r *stepRepo) CreateMany(ctx context.Context, tx repository.Tx, steps []*model.Step) error {
	if len(steps) == 0 {
		return nil
	}
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO plan_steps (id, student_uid, title, description, material_url, sort_order, is_done, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`

	// A live tx batches the inserts into one round trip.
	if t, ok := ex.(pgx.Tx); ok {
		b := &pgx.Batch{}
		for _, s := range steps {
			b.Queue(q, s.ID, s.StudentUID, s.Title, s.Description, s.MaterialURL, s.Order, s.IsDone, s.CreatedAt, s.UpdatedAt)
		}
		br := t.SendBatch(ctx, b)
		defer br.Close()
		for range steps {
			if _, err := br.Exec(); err != nil {
				return mapWriteErr(err)
			}
		}
		return nil
	}
	for _, s := range steps {
		if _, err := ex.Exec(ctx, q, s.ID, s.StudentUID, s.Title, s.Description, s.MaterialURL, s.Order, s.IsDone, s.CreatedAt, s.UpdatedAt); err != nil {
			return mapWriteErr(err)
		}
	}
	return nil
}

func (r *stepRepo) Update(ctx context.Context, tx repository.Tx, s *model.Step) error {
	const q = `
UPDATE plan_steps
   SET title=$3, description=$4, material_url=$5, sort_order=$6, is_done=$7,
       done_at=$8, done_comment=$9, done_link=$10, updated_at=$11
 WHERE student_uid=$1 AND id=$2;`
	tag, err := execSQL(ctx, r.pool, tx, q, s.StudentUID, s.ID, s.Title, s.Description, s.MaterialURL, s.Order,
		s.IsDone, s.DoneAt, s.DoneComment, s.DoneLink, s.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *stepRepo) Delete(ctx context.Context, tx repository.Tx, studentUID, stepID string) error {
	const q = `DELETE FROM plan_steps WHERE student_uid=$1 AND id=$2;`
	tag, err := execSQL(ctx, r.pool, tx, q, studentUID, stepID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *stepRepo) DeleteAllByStudent(ctx context.Context, tx repository.Tx, studentUID string) (int, error) {
	const q = `DELETE FROM plan_steps WHERE student_uid=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, studentUID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// SetOrder assigns sort_order by position in orderedIDs.
func (r *stepRepo) SetOrder(ctx context.Context, tx repository.Tx, studentUID string, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return nil
	}
	const q = `
UPDATE plan_steps AS s
   SET sort_order = o.ord - 1, updated_at = NOW()
  FROM unnest($2::text[]) WITH ORDINALITY AS o(id, ord)
 WHERE s.student_uid=$1 AND s.id=o.id;`
	tag, err := execSQL(ctx, r.pool, tx, q, studentUID, orderedIDs)
	if err != nil {
		return err
	}
	if int(tag.RowsAffected()) != len(orderedIDs) {
		return domain.ErrNotFound
	}
	return nil
}
