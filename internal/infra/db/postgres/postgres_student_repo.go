package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-enrollment/internal/domain"
	"course-enrollment/internal/domain/model"
	"course-enrollment/internal/domain/ports/repository"
)

var _ repository.StudentRepository = (*studentRepo)(nil)

type studentRepo struct{ pool *pgxpool.Pool }

func NewStudentRepo(pool *pgxpool.Pool) *studentRepo {
	return &studentRepo{pool: pool}
}

func (r *studentRepo) Save(ctx context.Context, tx repository.Tx, s *model.Student) error {
	if s == nil || s.UID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO students (
  uid, email, display_name, role, preferred_currency, status, steps_done, steps_total, progress_percent, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (uid) DO UPDATE SET
  email=EXCLUDED.email, display_name=EXCLUDED.display_name, role=EXCLUDED.role,
  preferred_currency=EXCLUDED.preferred_currency, status=EXCLUDED.status,
  steps_done=EXCLUDED.steps_done, steps_total=EXCLUDED.steps_total,
  progress_percent=EXCLUDED.progress_percent, updated_at=EXCLUDED.updated_at;`
	var done, total, pct *int
	if s.Progress != nil {
		done, total, pct = &s.Progress.Done, &s.Progress.Total, &s.Progress.Percent
	}
	_, err := execSQL(ctx, r.pool, tx, q, s.UID, s.Email, s.DisplayName, string(s.Role), s.PreferredCurrency,
		string(s.Status), done, total, pct, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *studentRepo) FindByUID(ctx context.Context, tx repository.Tx, uid string) (*model.Student, error) {
	q := `
SELECT uid, email, display_name, role, preferred_currency, status, steps_done, steps_total, progress_percent, created_at, updated_at
  FROM students WHERE uid=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", uid)
	if err != nil {
		return nil, err
	}
	return scanStudent(row)
}

func scanStudent(row pgx.Row) (*model.Student, error) {
	s := &model.Student{}
	var (
		role, status     string
		done, total, pct *int
	)
	if err := row.Scan(&s.UID, &s.Email, &s.DisplayName, &role, &s.PreferredCurrency, &status,
		&done, &total, &pct, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	s.Role = model.Role(role)
	s.Status = model.EnrollmentStatus(status)
	if done != nil && total != nil && pct != nil {
		s.Progress = &model.Progress{Done: *done, Total: *total, Percent: *pct}
	}
	return s, nil
}

func (r *studentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, uid string, status model.EnrollmentStatus) error {
	const q = `UPDATE students SET status=$2, updated_at=NOW() WHERE uid=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, uid, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *studentRepo) SetProgress(ctx context.Context, tx repository.Tx, uid string, p model.Progress) error {
	if !p.Valid() {
		return domain.ErrInvalidArgument
	}
	const q = `UPDATE students SET steps_done=$2, steps_total=$3, progress_percent=$4, updated_at=NOW() WHERE uid=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, uid, p.Done, p.Total, p.Percent)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
