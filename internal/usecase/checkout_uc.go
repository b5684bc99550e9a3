// File: internal/usecase/checkout_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"course-enrollment/internal/domain"
	"course-enrollment/internal/domain/model"
	"course-enrollment/internal/domain/ports/adapter"
	"course-enrollment/internal/domain/ports/repository"
	"course-enrollment/internal/infra/logging"
	"course-enrollment/internal/infra/metrics"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

const (
	maxCheckoutCourses = 20
	baseCurrency       = "USD"
)

type CheckoutUseCase interface {
	// CreateIntent prices the selected courses for a gated student and
	// records a payment in created status carrying a fresh activation code.
	CreateIntent(ctx context.Context, studentUID string, courseIDs []string) (*model.CheckoutIntent, error)
}

type CheckoutOptions struct {
	Provider            string
	RedirectURL         string
	Instructions        string
	SupportedCurrencies []string
	RateLimit           int
	RateWindow          time.Duration
}

type checkoutUC struct {
	students repository.StudentRepository
	courses  repository.CourseRepository
	fx       repository.FXRateRepository
	payments repository.PaymentRepository
	codes    *ActivationCodeGenerator
	tm       repository.TransactionManager
	limiter  adapter.RateLimiter
	opts     CheckoutOptions
	log      *zerolog.Logger
}

func NewCheckoutUseCase(
	students repository.StudentRepository,
	courses repository.CourseRepository,
	fx repository.FXRateRepository,
	payments repository.PaymentRepository,
	codes *ActivationCodeGenerator,
	tm repository.TransactionManager,
	limiter adapter.RateLimiter,
	opts CheckoutOptions,
	logger *zerolog.Logger,
) *checkoutUC {
	if len(opts.SupportedCurrencies) == 0 {
		opts.SupportedCurrencies = []string{baseCurrency}
	}
	return &checkoutUC{
		students: students,
		courses:  courses,
		fx:       fx,
		payments: payments,
		codes:    codes,
		tm:       tm,
		limiter:  limiter,
		opts:     opts,
		log:      logging.OrNop(logger),
	}
}

func (u *checkoutUC) CreateIntent(ctx context.Context, studentUID string, courseIDs []string) (*model.CheckoutIntent, error) {
	defer logging.TraceDuration(u.log, "CheckoutUC.CreateIntent")()

	intent, err := u.createIntent(ctx, strings.TrimSpace(studentUID), courseIDs)
	switch {
	case err == nil:
		metrics.IncCheckoutIntent("created")
		metrics.AddCheckoutAmount(intent.Currency, intent.Amount)
	case errors.Is(err, domain.ErrInvalidArgument):
		metrics.IncCheckoutIntent("validation")
	case errors.Is(err, domain.ErrStatusBlocked):
		metrics.IncCheckoutIntent("blocked")
	case errors.Is(err, domain.ErrRateLimited):
		metrics.IncCheckoutIntent("rate_limited")
	default:
		metrics.IncCheckoutIntent("error")
	}
	return intent, err
}

func (u *checkoutUC) createIntent(ctx context.Context, uid string, courseIDs []string) (*model.CheckoutIntent, error) {
	if uid == "" {
		return nil, domain.NewValidationError("student uid is required", nil)
	}
	ids, err := normalizeCourseIDs(courseIDs)
	if err != nil {
		return nil, err
	}

	if u.limiter != nil && u.opts.RateLimit > 0 {
		allowed, err := u.limiter.Allow(ctx, checkoutRateKey(uid), u.opts.RateLimit, u.opts.RateWindow)
		if err != nil {
			// Limiter outages must not block checkout.
			u.log.Warn().Err(err).Str("user_id", uid).Msg("checkout rate limiter unavailable")
		} else if !allowed {
			return nil, domain.ErrRateLimited
		}
	}

	student, err := u.students.FindByUID(ctx, repository.NoTX, uid)
	if err != nil {
		return nil, err
	}
	if student.Status != model.EnrollmentStatusDisabled {
		return nil, domain.ErrStatusBlocked
	}

	courses, err := u.courses.FindByIDs(ctx, repository.NoTX, ids)
	if err != nil {
		return nil, err
	}
	var invalid []string
	var totalUSDCents int64
	for _, id := range ids {
		c, ok := courses[id]
		if !ok || !c.Purchasable() {
			invalid = append(invalid, id)
			continue
		}
		totalUSDCents += c.PriceUSDCents
	}
	if len(invalid) > 0 {
		return nil, domain.NewValidationError("invalid courses", map[string]any{"invalidCourseIds": invalid})
	}

	currency := u.pickCurrency(student.PreferredCurrency)
	rate, err := u.rate(ctx, currency)
	if err != nil {
		return nil, err
	}
	amount := int64(math.Round(float64(totalUSDCents) * rate))
	if amount <= 0 {
		return nil, domain.NewValidationError("invalid amount", map[string]any{"amount": amount, "currency": currency})
	}

	var payment *model.Payment
	// A concurrent checkout may claim the same code between the existence
	// check and the insert; one retry with a fresh code covers that window.
	for attempt := 0; attempt < 2; attempt++ {
		payment, err = u.insertPayment(ctx, student, ids, amount, currency)
		if !errors.Is(err, domain.ErrAlreadyExists) {
			break
		}
		u.log.Warn().Str("user_id", uid).Msg("activation code collided on insert, retrying")
	}
	if err != nil {
		return nil, err
	}

	u.log.Info().
		Str("payment_id", payment.ID).
		Str("user_id", uid).
		Int64("amount", amount).
		Str("currency", currency).
		Msg("checkout intent created")

	return &model.CheckoutIntent{
		PaymentID:        payment.ID,
		Amount:           amount,
		Currency:         currency,
		ActivationCode:   *payment.ActivationCode,
		RedirectURL:      u.opts.RedirectURL,
		InstructionsText: u.opts.Instructions,
	}, nil
}

func (u *checkoutUC) insertPayment(ctx context.Context, s *model.Student, ids []string, amount int64, currency string) (*model.Payment, error) {
	var p *model.Payment
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		code, err := u.codes.Generate(ctx, tx)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		p = &model.Payment{
			ID:              ulid.Make().String(),
			UserUID:         s.UID,
			Email:           s.Email,
			Provider:        u.opts.Provider,
			SelectedCourses: ids,
			Amount:          amount,
			Currency:        currency,
			ActivationCode:  &code,
			Status:          model.PaymentStatusCreated,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return u.payments.Create(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (u *checkoutUC) pickCurrency(preferred string) string {
	preferred = strings.ToUpper(strings.TrimSpace(preferred))
	for _, c := range u.opts.SupportedCurrencies {
		if c == preferred {
			return c
		}
	}
	return baseCurrency
}

// rate falls back to 1.0 when no conversion is stored.
func (u *checkoutUC) rate(ctx context.Context, currency string) (float64, error) {
	if currency == baseCurrency {
		return 1.0, nil
	}
	r, err := u.fx.Rate(ctx, repository.NoTX, currency)
	if errors.Is(err, domain.ErrNotFound) {
		u.log.Warn().Str("currency", currency).Msg("fx rate missing, using 1.0")
		return 1.0, nil
	}
	if err != nil {
		return 0, err
	}
	if r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		u.log.Warn().Str("currency", currency).Float64("rate", r).Msg("fx rate unusable, using 1.0")
		return 1.0, nil
	}
	return r, nil
}

// normalizeCourseIDs trims ids and drops blank entries before the duplicate
// and count checks.
func normalizeCourseIDs(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			return nil, domain.NewValidationError("duplicate course id", map[string]any{"courseId": id})
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 || len(out) > maxCheckoutCourses {
		return nil, domain.NewValidationError(
			fmt.Sprintf("between 1 and %d courses are required", maxCheckoutCourses),
			map[string]any{"count": len(out)},
		)
	}
	return out, nil
}

func checkoutRateKey(uid string) string {
	return fmt.Sprintf("rate_limit:checkout:%s", uid)
}
