// File: internal/usecase/activation_uc.go
package usecase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"course-enrollment/internal/domain"
	"course-enrollment/internal/domain/model"
	"course-enrollment/internal/domain/ports/adapter"
	"course-enrollment/internal/domain/ports/repository"
	"course-enrollment/internal/infra/logging"
	"course-enrollment/internal/infra/metrics"
)

// Compile-time check
var _ ActivationUseCase = (*activationUC)(nil)

// ActivationResult tags the outcome of a manual staff action.
type ActivationResult string

const (
	ResultActivated ActivationResult = "activated"
	ResultRejected  ActivationResult = "rejected"
	ResultNoop      ActivationResult = "noop"
)

// Rejection reasons recorded on payments refused by the decision engine.
const (
	ReasonStatusNotActivatable = "payment_status_not_activatable"
	ReasonMissingUserUID       = "missing_user_uid"
	ReasonEnrollmentNotFound   = "enrollment_not_found"
	ReasonEnrollmentNotGated   = "enrollment_status_not_disabled"
)

const (
	defaultPaymentPageSize = 50
	maxPaymentPageSize     = 200
)

type ActivationUseCase interface {
	// ActivateByCode reports true when the payment is (now or already) activated.
	// Business refusals return false with a nil error; only storage failures error.
	ActivateByCode(ctx context.Context, code string, evidence *string) (bool, error)
	ActivateManually(ctx context.Context, paymentID, actorUID string) (*model.Payment, ActivationResult, error)
	RejectManually(ctx context.Context, paymentID, actorUID string, reason *string) (*model.Payment, ActivationResult, error)
	GetPayment(ctx context.Context, paymentID string) (*model.Payment, error)
	// ListPayments pages newest first. The returned cursor is empty on the last page.
	ListPayments(ctx context.Context, f model.PaymentFilter, limit int, cursor string) ([]*model.Payment, string, error)
}

// ActivationOptions toggles the post-commit operator alerts.
type ActivationOptions struct {
	NotifyOnReject   bool
	NotifyOnActivate bool
}

type activationUC struct {
	payments repository.PaymentRepository
	students repository.StudentRepository
	tm       repository.TransactionManager
	notifier adapter.Notifier
	opts     ActivationOptions
	now      func() time.Time
	log      *zerolog.Logger
}

func NewActivationUseCase(
	payments repository.PaymentRepository,
	students repository.StudentRepository,
	tm repository.TransactionManager,
	notifier adapter.Notifier,
	opts ActivationOptions,
	logger *zerolog.Logger,
) *activationUC {
	return &activationUC{
		payments: payments,
		students: students,
		tm:       tm,
		notifier: notifier,
		opts:     opts,
		now:      time.Now,
		log:      logging.OrNop(logger),
	}
}

// decision is what the locked transaction concluded.
type decision struct {
	activated bool
	rejected  bool
	reason    string
	payment   *model.Payment
}

func (u *activationUC) ActivateByCode(ctx context.Context, code string, evidence *string) (bool, error) {
	defer logging.TraceDuration(u.log, "ActivationUC.ActivateByCode")()

	code = NormalizeActivationCode(code)
	if code == "" {
		return false, nil
	}

	p, err := u.payments.FindByActivationCode(ctx, repository.NoTX, code)
	if errors.Is(err, domain.ErrNotFound) {
		metrics.IncActivation("code", "not_found")
		u.log.Warn().Str("activation_code", code).Msg("activation code not found")
		u.alert(ctx, fmt.Sprintf("Activation code %s not found.\nEvidence: %s", code, orDash(evidence)))
		return false, nil
	}
	if err != nil {
		metrics.IncActivation("code", "error")
		return false, err
	}

	switch p.Status {
	case model.PaymentStatusActivated:
		metrics.IncActivation("code", "already_activated")
		return true, nil
	case model.PaymentStatusRejected:
		metrics.IncActivation("code", "already_rejected")
		return false, nil
	}

	var d decision
	err = u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		locked, err := u.payments.FindByID(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		d = decision{payment: locked}
		switch locked.Status {
		case model.PaymentStatusActivated:
			d.activated = true
			return nil
		case model.PaymentStatusRejected:
			return nil
		}

		reason, err := u.autoRejectReason(ctx, tx, locked)
		if err != nil {
			return err
		}
		now := u.now()
		if reason != "" {
			if _, err := u.payments.MarkRejected(ctx, tx, locked.ID, now, nil, &reason, evidence); err != nil {
				return err
			}
			d.rejected = true
			d.reason = reason
			return nil
		}

		if err := u.students.UpdateStatus(ctx, tx, locked.UserUID, model.EnrollmentStatusActive); err != nil {
			return err
		}
		if err := u.payments.MarkActivated(ctx, tx, locked.ID, now, nil, evidence); err != nil {
			return err
		}
		d.activated = true
		return nil
	})
	if err != nil {
		metrics.IncActivation("code", "error")
		u.log.Error().Err(err).Str("payment_id", p.ID).Msg("activation transaction failed")
		return false, err
	}

	switch {
	case d.rejected:
		metrics.IncActivation("code", "rejected")
		u.log.Info().Str("payment_id", p.ID).Str("reason", d.reason).Msg("payment rejected")
		if u.opts.NotifyOnReject {
			u.alert(ctx, fmt.Sprintf("Payment %s rejected (%s).\nCode: %s\nUser: %s\nEvidence: %s",
				p.ID, d.reason, code, orDash(&d.payment.UserUID), orDash(evidence)))
		}
		return false, nil
	case d.activated && d.payment.Status != model.PaymentStatusActivated:
		metrics.IncActivation("code", "activated")
		u.log.Info().Str("payment_id", p.ID).Str("user_id", d.payment.UserUID).Msg("payment activated")
		if u.opts.NotifyOnActivate {
			u.alert(ctx, fmt.Sprintf("Payment %s activated.\nCode: %s\nUser: %s", p.ID, code, d.payment.UserUID))
		}
		return true, nil
	case d.activated:
		metrics.IncActivation("code", "already_activated")
		return true, nil
	default:
		metrics.IncActivation("code", "already_rejected")
		return false, nil
	}
}

// autoRejectReason evaluates the refusal rules on locked rows. An empty
// reason means the payment may be activated.
func (u *activationUC) autoRejectReason(ctx context.Context, tx repository.Tx, p *model.Payment) (string, error) {
	if !p.Status.AutoActivatable() {
		return ReasonStatusNotActivatable, nil
	}
	if strings.TrimSpace(p.UserUID) == "" {
		return ReasonMissingUserUID, nil
	}
	s, err := u.students.FindByUID(ctx, tx, p.UserUID)
	if errors.Is(err, domain.ErrNotFound) {
		return ReasonEnrollmentNotFound, nil
	}
	if err != nil {
		return "", err
	}
	if s.Status != model.EnrollmentStatusDisabled {
		return ReasonEnrollmentNotGated, nil
	}
	return "", nil
}

func (u *activationUC) ActivateManually(ctx context.Context, paymentID, actorUID string) (*model.Payment, ActivationResult, error) {
	defer logging.TraceDuration(u.log, "ActivationUC.ActivateManually")()

	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, "", domain.NewValidationError("payment id is required", nil)
	}
	actor := strings.TrimSpace(actorUID)

	result := ResultNoop
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		switch p.Status {
		case model.PaymentStatusActivated:
			return nil
		case model.PaymentStatusRejected:
			return domain.ErrStatusBlocked
		}
		if strings.TrimSpace(p.UserUID) == "" {
			return domain.NewValidationError("payment has no owning user", map[string]any{"paymentId": p.ID})
		}
		s, err := u.students.FindByUID(ctx, tx, p.UserUID)
		if err != nil {
			return err
		}
		if s.Status != model.EnrollmentStatusActive {
			if err := u.students.UpdateStatus(ctx, tx, s.UID, model.EnrollmentStatusActive); err != nil {
				return err
			}
		}
		if err := u.payments.MarkActivated(ctx, tx, p.ID, u.now(), &actor, nil); err != nil {
			return err
		}
		result = ResultActivated
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrStatusBlocked) && !errors.Is(err, domain.ErrNotFound) {
			metrics.IncActivation("manual", "error")
		}
		return nil, "", err
	}
	metrics.IncActivation("manual", string(result))
	if result == ResultActivated {
		u.log.Info().Str("payment_id", paymentID).Str("actor", actor).Msg("payment activated manually")
	}

	p, err := u.payments.FindByID(ctx, repository.NoTX, paymentID)
	if err != nil {
		return nil, "", err
	}
	return p, result, nil
}

func (u *activationUC) RejectManually(ctx context.Context, paymentID, actorUID string, reason *string) (*model.Payment, ActivationResult, error) {
	defer logging.TraceDuration(u.log, "ActivationUC.RejectManually")()

	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, "", domain.NewValidationError("payment id is required", nil)
	}
	actor := strings.TrimSpace(actorUID)
	reason = domain.TrimOptional(reason)

	result := ResultNoop
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		switch p.Status {
		case model.PaymentStatusRejected:
			return nil
		case model.PaymentStatusActivated:
			return domain.ErrStatusBlocked
		}
		changed, err := u.payments.MarkRejected(ctx, tx, p.ID, u.now(), &actor, reason, nil)
		if err != nil {
			return err
		}
		if changed {
			result = ResultRejected
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	metrics.IncActivation("manual", string(result))
	if result == ResultRejected {
		u.log.Info().Str("payment_id", paymentID).Str("actor", actor).Msg("payment rejected manually")
	}

	p, err := u.payments.FindByID(ctx, repository.NoTX, paymentID)
	if err != nil {
		return nil, "", err
	}
	return p, result, nil
}

func (u *activationUC) GetPayment(ctx context.Context, paymentID string) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "ActivationUC.GetPayment")()
	return u.payments.FindByID(ctx, repository.NoTX, strings.TrimSpace(paymentID))
}

func (u *activationUC) ListPayments(ctx context.Context, f model.PaymentFilter, limit int, cursor string) ([]*model.Payment, string, error) {
	defer logging.TraceDuration(u.log, "ActivationUC.ListPayments")()

	if limit <= 0 {
		limit = defaultPaymentPageSize
	}
	if limit > maxPaymentPageSize {
		limit = maxPaymentPageSize
	}
	if f.Status != "" {
		if _, ok := model.ParsePaymentStatus(string(f.Status)); !ok {
			return nil, "", domain.NewValidationError("invalid status filter", map[string]any{"status": f.Status})
		}
	}
	f.Provider = strings.TrimSpace(f.Provider)
	f.Query = strings.TrimSpace(f.Query)

	after, err := DecodePaymentCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	// One extra row tells us whether another page exists.
	rows, err := u.payments.ListPage(ctx, repository.NoTX, f, limit+1, after)
	if err != nil {
		return nil, "", err
	}
	if len(rows) <= limit {
		return rows, "", nil
	}
	rows = rows[:limit]
	last := rows[len(rows)-1]
	return rows, EncodePaymentCursor(model.PaymentCursor{CreatedAt: last.CreatedAt, ID: last.ID}), nil
}

type cursorWire struct {
	At time.Time `json:"at"`
	ID string    `json:"id"`
}

// encodeCursor renders an opaque keyset token for descending (time, id) pages.
func encodeCursor(at time.Time, id string) string {
	b, _ := json.Marshal(cursorWire{At: at.UTC(), ID: id})
	return base64.RawURLEncoding.EncodeToString(b)
}

// decodeCursor reports ok=false for an empty token.
func decodeCursor(s string) (at time.Time, id string, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, "", false, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return time.Time{}, "", false, domain.NewValidationError("invalid cursor", nil)
	}
	var w cursorWire
	if err := json.Unmarshal(raw, &w); err != nil || w.ID == "" || w.At.IsZero() {
		return time.Time{}, "", false, domain.NewValidationError("invalid cursor", nil)
	}
	return w.At, w.ID, true, nil
}

// EncodePaymentCursor renders an opaque page token.
func EncodePaymentCursor(c model.PaymentCursor) string {
	return encodeCursor(c.CreatedAt, c.ID)
}

// DecodePaymentCursor returns nil for an empty token.
func DecodePaymentCursor(s string) (*model.PaymentCursor, error) {
	at, id, ok, err := decodeCursor(s)
	if err != nil || !ok {
		return nil, err
	}
	return &model.PaymentCursor{CreatedAt: at, ID: id}, nil
}

// alert is best effort; failures never reach the caller.
func (u *activationUC) alert(ctx context.Context, text string) {
	if u.notifier == nil {
		return
	}
	if err := u.notifier.Notify(ctx, text); err != nil {
		u.log.Warn().Err(err).Msg("operator alert failed")
	}
}

func orDash(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "-"
	}
	return *s
}
