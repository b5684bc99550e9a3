// File: internal/usecase/mocks_test.go
package usecase_test

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"course-enrollment/internal/domain"
	"course-enrollment/internal/domain/model"
	"course-enrollment/internal/domain/ports/repository"
)

var errInjected = errors.New("injected failure")

// memStore is a small in-memory database shared by the mem*Repo types.
// memTxManager snapshots it before each transaction and restores the
// snapshot when fn fails, so tests observe all-or-nothing commits.
type memStore struct {
	mu          sync.Mutex
	payments    map[string]*model.Payment
	students    map[string]*model.Student
	steps       map[string]*model.Step
	completions map[string]*model.StepCompletion
	templates   map[string][]*model.TemplateStep
	courses     map[string]*model.Course
	rates       map[string]float64
	checkpoint  *model.MailboxCheckpoint

	commits       int
	rollbacks     int
	studentWrites int
	paymentWrites int
	fail          map[string]error // operation name -> error to return
}

func newMemStore() *memStore {
	return &memStore{
		payments:    make(map[string]*model.Payment),
		students:    make(map[string]*model.Student),
		steps:       make(map[string]*model.Step),
		completions: make(map[string]*model.StepCompletion),
		templates:   make(map[string][]*model.TemplateStep),
		courses:     make(map[string]*model.Course),
		rates:       make(map[string]float64),
		fail:        make(map[string]error),
	}
}

func (s *memStore) failOn(op string, err error) { s.mu.Lock(); s.fail[op] = err; s.mu.Unlock() }

// injected must be called with mu held.
func (s *memStore) injected(op string) error { return s.fail[op] }

type memSnapshot struct {
	payments    map[string]model.Payment
	students    map[string]model.Student
	steps       map[string]model.Step
	completions map[string]model.StepCompletion
	checkpoint  *model.MailboxCheckpoint
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		payments:    make(map[string]model.Payment, len(s.payments)),
		students:    make(map[string]model.Student, len(s.students)),
		steps:       make(map[string]model.Step, len(s.steps)),
		completions: make(map[string]model.StepCompletion, len(s.completions)),
	}
	for k, v := range s.payments {
		snap.payments[k] = *v
	}
	for k, v := range s.students {
		cp := *v
		if v.Progress != nil {
			p := *v.Progress
			cp.Progress = &p
		}
		snap.students[k] = cp
	}
	for k, v := range s.steps {
		snap.steps[k] = *v
	}
	for k, v := range s.completions {
		snap.completions[k] = *v
	}
	if s.checkpoint != nil {
		cp := *s.checkpoint
		snap.checkpoint = &cp
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = make(map[string]*model.Payment, len(snap.payments))
	for k, v := range snap.payments {
		v := v
		s.payments[k] = &v
	}
	s.students = make(map[string]*model.Student, len(snap.students))
	for k, v := range snap.students {
		v := v
		s.students[k] = &v
	}
	s.steps = make(map[string]*model.Step, len(snap.steps))
	for k, v := range snap.steps {
		v := v
		s.steps[k] = &v
	}
	s.completions = make(map[string]*model.StepCompletion, len(snap.completions))
	for k, v := range snap.completions {
		v := v
		s.completions[k] = &v
	}
	s.checkpoint = snap.checkpoint
}

// memTx marks a live transaction so repos can assert they were called inside one.
type memTx struct{}

type memTxManager struct{ s *memStore }

func (m *memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.s.mu.Lock()
	if err := m.s.injected("begin"); err != nil {
		m.s.mu.Unlock()
		return err
	}
	m.s.mu.Unlock()

	snap := m.s.snapshot()
	if err := fn(ctx, &memTx{}); err != nil {
		m.s.restore(snap)
		m.s.mu.Lock()
		m.s.rollbacks++
		m.s.mu.Unlock()
		return err
	}
	m.s.mu.Lock()
	m.s.commits++
	m.s.mu.Unlock()
	return nil
}

// ---------------- payments ----------------

type memPaymentRepo struct{ s *memStore }

func (r *memPaymentRepo) Create(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("payment.create"); err != nil {
		return err
	}
	if p.ActivationCode != nil {
		for _, o := range r.s.payments {
			if o.ActivationCode != nil && *o.ActivationCode == *p.ActivationCode {
				return domain.ErrAlreadyExists
			}
		}
	}
	cp := *p
	r.s.payments[p.ID] = &cp
	r.s.paymentWrites++
	return nil
}

func (r *memPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPaymentRepo) FindByActivationCode(ctx context.Context, tx repository.Tx, code string) (*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("payment.find_by_code"); err != nil {
		return nil, err
	}
	for _, p := range r.s.payments {
		if p.ActivationCode != nil && *p.ActivationCode == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memPaymentRepo) ActivationCodeExists(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	_, err := r.FindByActivationCode(ctx, tx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *memPaymentRepo) MarkActivated(ctx context.Context, tx repository.Tx, id string, at time.Time, by *string, evidence *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("payment.mark_activated"); err != nil {
		return err
	}
	p, ok := r.s.payments[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = model.PaymentStatusActivated
	p.ActivatedAt = &at
	p.ActivatedBy = by
	if evidence != nil {
		p.EmailEvidence = evidence
	}
	p.UpdatedAt = at
	r.s.paymentWrites++
	return nil
}

func (r *memPaymentRepo) MarkRejected(ctx context.Context, tx repository.Tx, id string, at time.Time, by *string, reason *string, evidence *string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("payment.mark_rejected"); err != nil {
		return false, err
	}
	p, ok := r.s.payments[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status.Terminal() {
		return false, nil
	}
	p.Status = model.PaymentStatusRejected
	p.RejectedAt = &at
	p.RejectedBy = by
	p.RejectionReason = reason
	if evidence != nil {
		p.EmailEvidence = evidence
	}
	p.UpdatedAt = at
	r.s.paymentWrites++
	return true, nil
}

func (r *memPaymentRepo) ListPage(ctx context.Context, tx repository.Tx, f model.PaymentFilter, limit int, after *model.PaymentCursor) ([]*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.s.payments {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.Provider != "" && p.Provider != f.Provider {
			continue
		}
		if f.Query != "" {
			q := strings.ToLower(f.Query)
			code := ""
			if p.ActivationCode != nil {
				code = *p.ActivationCode
			}
			if !strings.Contains(strings.ToLower(p.Email+" "+p.UserUID+" "+code), q) {
				continue
			}
		}
		if after != nil {
			if p.CreatedAt.After(after.CreatedAt) || (p.CreatedAt.Equal(after.CreatedAt) && p.ID >= after.ID) {
				continue
			}
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---------------- students ----------------

type memStudentRepo struct{ s *memStore }

func (r *memStudentRepo) Save(ctx context.Context, tx repository.Tx, st *model.Student) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *st
	r.s.students[st.UID] = &cp
	r.s.studentWrites++
	return nil
}

func (r *memStudentRepo) FindByUID(ctx context.Context, tx repository.Tx, uid string) (*model.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("student.find"); err != nil {
		return nil, err
	}
	st, ok := r.s.students[uid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *st
	if st.Progress != nil {
		p := *st.Progress
		cp.Progress = &p
	}
	return &cp, nil
}

func (r *memStudentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, uid string, status model.EnrollmentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("student.update_status"); err != nil {
		return err
	}
	st, ok := r.s.students[uid]
	if !ok {
		return domain.ErrNotFound
	}
	st.Status = status
	r.s.studentWrites++
	return nil
}

func (r *memStudentRepo) SetProgress(ctx context.Context, tx repository.Tx, uid string, p model.Progress) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("student.set_progress"); err != nil {
		return err
	}
	st, ok := r.s.students[uid]
	if !ok {
		return domain.ErrNotFound
	}
	st.Progress = &p
	r.s.studentWrites++
	return nil
}

// ---------------- steps ----------------

type memStepRepo struct{ s *memStore }

func (r *memStepRepo) ListByStudent(ctx context.Context, tx repository.Tx, uid string) ([]*model.Step, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Step
	for _, st := range r.s.steps {
		if st.StudentUID == uid {
			cp := *st
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (r *memStepRepo) FindByID(ctx context.Context, tx repository.Tx, uid, id string) (*model.Step, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.steps[id]
	if !ok || st.StudentUID != uid {
		return nil, domain.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (r *memStepRepo) CreateMany(ctx context.Context, tx repository.Tx, steps []*model.Step) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("step.create"); err != nil {
		return err
	}
	for _, st := range steps {
		cp := *st
		r.s.steps[st.ID] = &cp
	}
	return nil
}

func (r *memStepRepo) Update(ctx context.Context, tx repository.Tx, st *model.Step) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.steps[st.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *st
	r.s.steps[st.ID] = &cp
	return nil
}

func (r *memStepRepo) Delete(ctx context.Context, tx repository.Tx, uid, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.steps[id]
	if !ok || st.StudentUID != uid {
		return domain.ErrNotFound
	}
	delete(r.s.steps, id)
	return nil
}

func (r *memStepRepo) DeleteAllByStudent(ctx context.Context, tx repository.Tx, uid string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for id, st := range r.s.steps {
		if st.StudentUID == uid {
			delete(r.s.steps, id)
			n++
		}
	}
	return n, nil
}

func (r *memStepRepo) SetOrder(ctx context.Context, tx repository.Tx, uid string, ids []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, id := range ids {
		st, ok := r.s.steps[id]
		if !ok || st.StudentUID != uid {
			return domain.ErrNotFound
		}
		st.Order = i
	}
	return nil
}

// ---------------- completions / templates ----------------

type memCompletionRepo struct{ s *memStore }

func (r *memCompletionRepo) Create(ctx context.Context, tx repository.Tx, c *model.StepCompletion) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	r.s.completions[c.ID] = &cp
	return nil
}

func (r *memCompletionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.StepCompletion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.completions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memCompletionRepo) MarkRevoked(ctx context.Context, tx repository.Tx, id string, at time.Time, by string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.completions[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Status = model.CompletionStatusRevoked
	c.RevokedAt = &at
	c.RevokedBy = &by
	c.UpdatedAt = at
	return nil
}

func (r *memCompletionRepo) UpdateNotes(ctx context.Context, tx repository.Tx, id string, comment, link *string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("completion.update"); err != nil {
		return err
	}
	c, ok := r.s.completions[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Comment = comment
	c.Link = link
	c.UpdatedAt = at
	return nil
}

func (r *memCompletionRepo) ListPage(ctx context.Context, tx repository.Tx, status model.CompletionStatus, limit int, after *model.CompletionCursor) ([]*model.StepCompletion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.StepCompletion
	for _, c := range r.s.completions {
		if status != "" && c.Status != status {
			continue
		}
		if after != nil && !(c.CompletedAt.Before(after.CompletedAt) || (c.CompletedAt.Equal(after.CompletedAt) && c.ID < after.ID)) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].CompletedAt.After(out[j].CompletedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) completionsFor(stepID string) []*model.StepCompletion {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.StepCompletion
	for _, c := range s.completions {
		if c.StepID == stepID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out
}

type memTemplateRepo struct{ s *memStore }

func (r *memTemplateRepo) ListByGoal(ctx context.Context, tx repository.Tx, goalID string) ([]*model.TemplateStep, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ts, ok := r.s.templates[goalID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]*model.TemplateStep, len(ts))
	for i, t := range ts {
		cp := *t
		out[i] = &cp
	}
	return out, nil
}

// ---------------- courses / fx ----------------

type memCourseRepo struct{ s *memStore }

func (r *memCourseRepo) FindByIDs(ctx context.Context, tx repository.Tx, ids []string) (map[string]*model.Course, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[string]*model.Course)
	for _, id := range ids {
		if c, ok := r.s.courses[id]; ok {
			cp := *c
			out[id] = &cp
		}
	}
	return out, nil
}

type memFXRepo struct {
	s     *memStore
	calls int
}

func (r *memFXRepo) Rate(ctx context.Context, tx repository.Tx, currency string) (float64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.calls++
	v, ok := r.s.rates[currency]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return v, nil
}

type memCatalogRepo struct{ s *memStore }

func (r *memCatalogRepo) UpsertCourse(ctx context.Context, tx repository.Tx, c *model.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("UpsertCourse"); err != nil {
		return err
	}
	cp := *c
	r.s.courses[c.ID] = &cp
	return nil
}

func (r *memCatalogRepo) SetFXRate(ctx context.Context, tx repository.Tx, currency string, rate float64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.rates[currency] = rate
	return nil
}

func (r *memCatalogRepo) ReplaceGoalTemplate(ctx context.Context, tx repository.Tx, goalID string, steps []*model.TemplateStep) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("ReplaceGoalTemplate"); err != nil {
		return err
	}
	r.s.templates[goalID] = steps
	return nil
}

// ---------------- mailbox ----------------

type memCheckpointRepo struct{ s *memStore }

func (r *memCheckpointRepo) Get(ctx context.Context, tx repository.Tx) (*model.MailboxCheckpoint, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.checkpoint == nil {
		return nil, domain.ErrNotFound
	}
	cp := *r.s.checkpoint
	return &cp, nil
}

func (r *memCheckpointRepo) Save(ctx context.Context, tx repository.Tx, c *model.MailboxCheckpoint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	r.s.checkpoint = &cp
	return nil
}

func (r *memCheckpointRepo) AdvanceHistoryID(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("checkpoint.advance"); err != nil {
		return false, err
	}
	if r.s.checkpoint == nil {
		return false, domain.ErrNotFound
	}
	if !model.CheckpointAdvances(r.s.checkpoint.LastHistoryID, id) {
		return false, nil
	}
	r.s.checkpoint.LastHistoryID = id
	return true, nil
}

// fakeMailbox serves canned history and messages.
type fakeMailbox struct {
	mu        sync.Mutex
	history   map[string][]string // start id -> message ids
	listErr   map[string]error
	messages  map[string]*model.MailMessage
	getErr    map[string]error
	gets      []string
	starts    []string
	watch     *model.WatchResult
	watchErr  error
	watchedTo []string
}

func newFakeMailbox() *fakeMailbox {
	return &fakeMailbox{
		history:  make(map[string][]string),
		messages: make(map[string]*model.MailMessage),
		getErr:   make(map[string]error),
		listErr:  make(map[string]error),
	}
}

func (f *fakeMailbox) ListHistory(ctx context.Context, start string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, start)
	if err := f.listErr[start]; err != nil {
		return nil, err
	}
	return append([]string(nil), f.history[start]...), nil
}

func (f *fakeMailbox) GetMessage(ctx context.Context, id string) (*model.MailMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, id)
	if err := f.getErr[id]; err != nil {
		return nil, err
	}
	m, ok := f.messages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMailbox) Watch(ctx context.Context, topic string) (*model.WatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watchedTo = append(f.watchedTo, topic)
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	return f.watch, nil
}

// ---------------- notifier / limiter / locker ----------------

type recNotifier struct {
	mu   sync.Mutex
	msgs []string
	err  error
}

func (n *recNotifier) Notify(ctx context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, text)
	return n.err
}

func (n *recNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

type memLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func (l *memLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.counts == nil {
		l.counts = make(map[string]int)
	}
	l.counts[key]++
	return l.counts[key] <= limit, nil
}

type memLocker struct {
	mu     sync.Mutex
	held   map[string]string
	seq    int
	tryErr error
}

func (l *memLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tryErr != nil {
		return "", l.tryErr
	}
	if l.held == nil {
		l.held = make(map[string]string)
	}
	if _, busy := l.held[key]; busy {
		return "", domain.ErrLockNotAcquired
	}
	l.seq++
	tok := strconv.Itoa(l.seq)
	l.held[key] = tok
	return tok, nil
}

func (l *memLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

// ---------------- fixtures ----------------

type fixture struct {
	store       *memStore
	tm          *memTxManager
	payments    *memPaymentRepo
	students    *memStudentRepo
	steps       *memStepRepo
	completions *memCompletionRepo
	templates   *memTemplateRepo
	courses     *memCourseRepo
	fx          *memFXRepo
	catalog     *memCatalogRepo
	checkpoints *memCheckpointRepo
	notifier    *recNotifier
}

func newFixture() *fixture {
	s := newMemStore()
	return &fixture{
		store:       s,
		tm:          &memTxManager{s: s},
		payments:    &memPaymentRepo{s: s},
		students:    &memStudentRepo{s: s},
		steps:       &memStepRepo{s: s},
		completions: &memCompletionRepo{s: s},
		templates:   &memTemplateRepo{s: s},
		courses:     &memCourseRepo{s: s},
		fx:          &memFXRepo{s: s},
		catalog:     &memCatalogRepo{s: s},
		checkpoints: &memCheckpointRepo{s: s},
		notifier:    &recNotifier{},
	}
}

func (f *fixture) addStudent(uid string, status model.EnrollmentStatus) *model.Student {
	st, _ := model.NewStudent(uid, uid+"@example.com", uid)
	st.Status = status
	f.store.mu.Lock()
	f.store.students[uid] = st
	f.store.mu.Unlock()
	return st
}

func (f *fixture) addPayment(id, uid, code string, status model.PaymentStatus) *model.Payment {
	p := &model.Payment{
		ID:             id,
		UserUID:        uid,
		Email:          uid + "@example.com",
		Provider:       "boosty",
		Amount:         1000,
		Currency:       "USD",
		ActivationCode: &code,
		Status:         status,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	f.store.mu.Lock()
	f.store.payments[id] = p
	f.store.mu.Unlock()
	return p
}

func (f *fixture) payment(id string) model.Payment {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return *f.store.payments[id]
}

func (f *fixture) student(uid string) model.Student {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return *f.store.students[uid]
}

func strPtr(s string) *string { return &s }
