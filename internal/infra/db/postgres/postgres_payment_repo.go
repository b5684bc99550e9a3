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

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, user_uid, email, provider, selected_courses, amount, currency, activation_code, status,
  email_evidence, activated_at, activated_by, rejected_at, rejected_by, rejection_reason, created_at, updated_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	var status string
	if err := row.Scan(&p.ID, &p.UserUID, &p.Email, &p.Provider, &p.SelectedCourses, &p.Amount, &p.Currency,
		&p.ActivationCode, &status, &p.EmailEvidence, &p.ActivatedAt, &p.ActivatedBy, &p.RejectedAt,
		&p.RejectedBy, &p.RejectionReason, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	p.Status = model.PaymentStatus(status)
	return p, nil
}

func (r *paymentRepo) Create(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, user_uid, email, provider, selected_courses, amount, currency, activation_code, status, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`
	courses := p.SelectedCourses
	if courses == nil {
		courses = []string{}
	}
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.UserUID, p.Email, p.Provider, courses, p.Amount, p.Currency,
		p.ActivationCode, string(p.Status), p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByActivationCode(ctx context.Context, tx repository.Tx, code string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE activation_code=$1 LIMIT 1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", code)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) ActivationCodeExists(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM payments WHERE activation_code=$1);`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return ok, nil
}

func (r *paymentRepo) MarkActivated(ctx context.Context, tx repository.Tx, id string, at time.Time, by *string, evidence *string) error {
	const q = `
UPDATE payments
   SET status='activated', activated_at=$2, activated_by=$3,
       email_evidence=COALESCE($4, email_evidence), updated_at=$2
 WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, at, by, evidence)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *paymentRepo) MarkRejected(ctx context.Context, tx repository.Tx, id string, at time.Time, by *string, reason *string, evidence *string) (bool, error) {
	const q = `
UPDATE payments
   SET status='rejected', rejected_at=$2, rejected_by=$3, rejection_reason=$4,
       email_evidence=COALESCE($5, email_evidence), updated_at=$2
 WHERE id=$1 AND status NOT IN ('activated', 'rejected');`
	tag, err := execSQL(ctx, r.pool, tx, q, id, at, by, reason, evidence)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListPage returns up to limit payments ordered by (created_at, id) descending,
// strictly after the cursor when one is given.
func (r *paymentRepo) ListPage(ctx context.Context, tx repository.Tx, f model.PaymentFilter, limit int, after *model.PaymentCursor) ([]*model.Payment, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Status != "" {
		where = append(where, "status="+arg(string(f.Status)))
	}
	if p := strings.TrimSpace(f.Provider); p != "" {
		where = append(where, "provider="+arg(p))
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		like := arg("%" + s + "%")
		where = append(where, "(id ILIKE "+like+" OR user_uid ILIKE "+like+" OR email ILIKE "+like+" OR activation_code ILIKE "+like+")")
	}
	if after != nil {
		where = append(where, "(created_at, id) < ("+arg(after.CreatedAt)+", "+arg(after.ID)+")")
	}

	q := `SELECT ` + paymentColumns + ` FROM payments`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT " + arg(limit) + ";"

	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
