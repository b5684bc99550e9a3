package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-enrollment/internal/domain"
	"course-enrollment/internal/domain/model"
	"course-enrollment/internal/domain/ports/repository"
)

var _ repository.StepCompletionRepository = (*stepCompletionRepo)(nil)

type stepCompletionRepo struct{ pool *pgxpool.Pool }

const completionColumns = `id, student_uid, step_id, status, comment, link, completed_at, revoked_at, revoked_by, updated_at`

func NewStepCompletionRepo(pool *pgxpool.Pool) *stepCompletionRepo {
	return &stepCompletionRepo{pool: pool}
}

func (r *stepCompletionRepo) Create(ctx context.Context, tx repository.Tx, c *model.StepCompletion) error {
	const q = `
INSERT INTO step_completions (id, student_uid, step_id, status, comment, link, completed_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	_, err := execSQL(ctx, r.pool, tx, q, c.ID, c.StudentUID, c.StepID, string(c.Status), c.Comment, c.Link, c.CompletedAt, c.UpdatedAt)
	return err
}

func (r *stepCompletionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.StepCompletion, error) {
	q := `SELECT ` + completionColumns + ` FROM step_completions WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanCompletion(row)
}

func scanCompletion(row pgx.Row) (*model.StepCompletion, error) {
	c := &model.StepCompletion{}
	var status string
	if err := row.Scan(&c.ID, &c.StudentUID, &c.StepID, &status, &c.Comment, &c.Link, &c.CompletedAt,
		&c.RevokedAt, &c.RevokedBy, &c.UpdatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	c.Status = model.CompletionStatus(status)
	return c, nil
}

func (r *stepCompletionRepo) MarkRevoked(ctx context.Context, tx repository.Tx, id string, at time.Time, by string) error {
	const q = `UPDATE step_completions SET status='revoked', revoked_at=$2, revoked_by=$3, updated_at=$2 WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, at, by)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *stepCompletionRepo) UpdateNotes(ctx context.Context, tx repository.Tx, id string, comment, link *string, at time.Time) error {
	const q = `UPDATE step_completions SET comment=$2, link=$3, updated_at=$4 WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, comment, link, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *stepCompletionRepo) ListPage(ctx context.Context, tx repository.Tx, status model.CompletionStatus, limit int, after *model.CompletionCursor) ([]*model.StepCompletion, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if status != "" {
		where = append(where, "status="+arg(string(status)))
	}
	if after != nil {
		where = append(where, "(completed_at, id) < ("+arg(after.CompletedAt)+", "+arg(after.ID)+")")
	}

	q := `SELECT ` + completionColumns + ` FROM step_completions`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY completed_at DESC, id DESC LIMIT " + arg(limit) + ";"

	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.StepCompletion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
