//go:build !integration

package web

import (
	"context"
	"sync"

	"course-enrollment/internal/domain"
	"course-enrollment/internal/domain/model"
	"course-enrollment/internal/usecase"
)

// --- Mock use cases ---

type mockActivationUC struct {
	usecase.ActivationUseCase // Embed interface for forward compatibility
	payments                  map[string]*model.Payment
	lastFilter                model.PaymentFilter
	lastLimit                 int
	lastCursor                string
	nextCursor                string
	lastActor                 string
	lastReason                *string
	err                       error
}

func (m *mockActivationUC) GetPayment(ctx context.Context, id string) (*model.Payment, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (m *mockActivationUC) ListPayments(ctx context.Context, f model.PaymentFilter, limit int, cursor string) ([]*model.Payment, string, error) {
	m.lastFilter, m.lastLimit, m.lastCursor = f, limit, cursor
	if m.err != nil {
		return nil, "", m.err
	}
	out := make([]*model.Payment, 0, len(m.payments))
	for _, p := range m.payments {
		out = append(out, p)
	}
	return out, m.nextCursor, nil
}

func (m *mockActivationUC) ActivateManually(ctx context.Context, id, actor string) (*model.Payment, usecase.ActivationResult, error) {
	m.lastActor = actor
	p, err := m.GetPayment(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if p.Status == model.PaymentStatusActivated {
		return p, usecase.ResultNoop, nil
	}
	p.Status = model.PaymentStatusActivated
	p.ActivatedBy = &actor
	return p, usecase.ResultActivated, nil
}

func (m *mockActivationUC) RejectManually(ctx context.Context, id, actor string, reason *string) (*model.Payment, usecase.ActivationResult, error) {
	m.lastActor, m.lastReason = actor, reason
	p, err := m.GetPayment(ctx, id)
	if err != nil {
		return nil, "", err
	}
	p.Status = model.PaymentStatusRejected
	p.RejectionReason = reason
	return p, usecase.ResultRejected, nil
}

type mockCheckoutUC struct {
	lastUID     string
	lastCourses []string
	err         error
}

func (m *mockCheckoutUC) CreateIntent(ctx context.Context, uid string, courseIDs []string) (*model.CheckoutIntent, error) {
	m.lastUID, m.lastCourses = uid, courseIDs
	if m.err != nil {
		return nil, m.err
	}
	return &model.CheckoutIntent{
		PaymentID:      "01HPAYMENT",
		Amount:         4900,
		Currency:       "USD",
		ActivationCode: "SW-AB12CD34",
		RedirectURL:    "https://pay.example/course",
	}, nil
}

type mockMailboxUC struct {
	mu       sync.Mutex
	secret   string
	received []model.MailNotification
	report   *usecase.IngestReport
	err      error
}

func (m *mockMailboxUC) VerifySecret(got string) bool {
	return m.secret != "" && got == m.secret
}

func (m *mockMailboxUC) HandleNotification(ctx context.Context, n model.MailNotification) (*usecase.IngestReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, n)
	if m.err != nil {
		return nil, m.err
	}
	if m.report != nil {
		return m.report, nil
	}
	return &usecase.IngestReport{}, nil
}

type mockWatchUC struct {
	usecase.WatchUseCase
	calls int
	cp    *model.MailboxCheckpoint
	err   error
}

func (m *mockWatchUC) Renew(ctx context.Context) (*model.MailboxCheckpoint, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.cp, nil
}

type mockProgressUC struct {
	steps       map[string][]*model.Step
	progress    model.Progress
	lastUID     string
	lastStepID  string
	lastDone    bool
	lastComment *string
	lastInputs  []model.StepInput
	lastOrder   []string
	lastActor   string
	lastStatus  string
	lastLimit   int
	lastCursor  string
	lastPatch   model.CompletionPatch
	completions []*model.StepCompletion
	nextCursor  string
	err         error
}

func (m *mockProgressUC) GetProgress(ctx context.Context, uid string) (model.Progress, error) {
	m.lastUID = uid
	if m.err != nil {
		return model.Progress{}, m.err
	}
	return m.progress, nil
}

func (m *mockProgressUC) ListSteps(ctx context.Context, uid string) ([]*model.Step, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.steps[uid], nil
}

func (m *mockProgressUC) AddSteps(ctx context.Context, uid string, in []model.StepInput) ([]*model.Step, model.Progress, error) {
	m.lastUID, m.lastInputs = uid, in
	if m.err != nil {
		return nil, model.Progress{}, m.err
	}
	out := make([]*model.Step, 0, len(in))
	for i, s := range in {
		out = append(out, &model.Step{ID: s.Title, StudentUID: uid, Title: s.Title, MaterialURL: s.MaterialURL, Order: i})
	}
	return out, m.progress.Apply(0, len(in)), nil
}

func (m *mockProgressUC) DeleteStep(ctx context.Context, uid, stepID string) (model.Progress, error) {
	m.lastUID, m.lastStepID = uid, stepID
	return m.progress, m.err
}

func (m *mockProgressUC) SetStepDone(ctx context.Context, uid, stepID string, done bool, comment, link *string) (*model.Step, model.Progress, error) {
	m.lastUID, m.lastStepID, m.lastDone, m.lastComment = uid, stepID, done, comment
	if m.err != nil {
		return nil, model.Progress{}, m.err
	}
	return &model.Step{ID: stepID, StudentUID: uid, IsDone: done, DoneComment: comment}, m.progress, nil
}

func (m *mockProgressUC) RevokeCompletion(ctx context.Context, completionID, actor string) (*model.StepCompletion, model.Progress, error) {
	m.lastActor = actor
	if m.err != nil {
		return nil, model.Progress{}, m.err
	}
	return &model.StepCompletion{ID: completionID, Status: model.CompletionStatusRevoked, RevokedBy: &actor}, m.progress, nil
}

func (m *mockProgressUC) ListCompletions(ctx context.Context, status string, limit int, cursor string) ([]*model.StepCompletion, string, error) {
	m.lastStatus, m.lastLimit, m.lastCursor = status, limit, cursor
	if m.err != nil {
		return nil, "", m.err
	}
	return m.completions, m.nextCursor, nil
}

func (m *mockProgressUC) UpdateCompletion(ctx context.Context, completionID string, patch model.CompletionPatch) (*model.StepCompletion, error) {
	m.lastPatch = patch
	if m.err != nil {
		return nil, m.err
	}
	return &model.StepCompletion{ID: completionID, Status: model.CompletionStatusCompleted, Comment: patch.Comment, Link: patch.Link}, nil
}

func (m *mockProgressUC) ResetPlan(ctx context.Context, uid, goalID string, confirm bool) (model.Progress, error) {
	m.lastUID = uid
	if !confirm {
		return model.Progress{}, domain.ErrConfirmationRequired
	}
	return m.progress, m.err
}

func (m *mockProgressUC) ReorderSteps(ctx context.Context, uid string, ids []string) ([]*model.Step, error) {
	m.lastUID, m.lastOrder = uid, ids
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*model.Step, 0, len(ids))
	for i, id := range ids {
		out = append(out, &model.Step{ID: id, StudentUID: uid, Order: i})
	}
	return out, nil
}
