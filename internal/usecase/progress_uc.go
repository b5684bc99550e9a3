// File: internal/usecase/progress_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"course-enrollment/internal/domain"
	"course-enrollment/internal/domain/model"
	"course-enrollment/internal/domain/ports/repository"
	"course-enrollment/internal/infra/logging"
	"course-enrollment/internal/infra/metrics"
)

// Compile-time check
var _ ProgressUseCase = (*progressUC)(nil)

const (
	maxBulkSteps              = 100
	defaultCompletionPageSize = 50
	maxCompletionPageSize     = 200
)

// ProgressUseCase owns plan mutations that move the cached counters. Each
// mutation and its counter write share one transaction with the student row
// locked, so concurrent completions cannot lose updates.
type ProgressUseCase interface {
	GetProgress(ctx context.Context, studentUID string) (model.Progress, error)
	ListSteps(ctx context.Context, studentUID string) ([]*model.Step, error)
	AddSteps(ctx context.Context, studentUID string, in []model.StepInput) ([]*model.Step, model.Progress, error)
	DeleteStep(ctx context.Context, studentUID, stepID string) (model.Progress, error)
	SetStepDone(ctx context.Context, studentUID, stepID string, done bool, comment, link *string) (*model.Step, model.Progress, error)
	RevokeCompletion(ctx context.Context, completionID, actorUID string) (*model.StepCompletion, model.Progress, error)
	// ListCompletions pages completions newest first. status is completed
	// (the default), revoked or all.
	ListCompletions(ctx context.Context, status string, limit int, cursor string) ([]*model.StepCompletion, string, error)
	// UpdateCompletion edits the comment and link of a completion and mirrors
	// them onto the step while it is still done.
	UpdateCompletion(ctx context.Context, completionID string, patch model.CompletionPatch) (*model.StepCompletion, error)
	ResetPlan(ctx context.Context, studentUID, goalID string, confirm bool) (model.Progress, error)
	ReorderSteps(ctx context.Context, studentUID string, orderedIDs []string) ([]*model.Step, error)
}

type progressUC struct {
	students    repository.StudentRepository
	steps       repository.StepRepository
	completions repository.StepCompletionRepository
	templates   repository.TemplateStepRepository
	tm          repository.TransactionManager
	now         func() time.Time
	log         *zerolog.Logger
}

func NewProgressUseCase(
	students repository.StudentRepository,
	steps repository.StepRepository,
	completions repository.StepCompletionRepository,
	templates repository.TemplateStepRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *progressUC {
	return &progressUC{
		students:    students,
		steps:       steps,
		completions: completions,
		templates:   templates,
		tm:          tm,
		now:         time.Now,
		log:         logging.OrNop(logger),
	}
}

var progressTxOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// withStudent runs fn in a transaction holding the student row lock, with the
// cached counters loaded (recomputed from the steps when absent). fn returns
// the counters to persist; a nil result leaves them untouched.
func (u *progressUC) withStudent(ctx context.Context, uid string, fn func(ctx context.Context, tx repository.Tx, cur model.Progress) (*model.Progress, error)) (model.Progress, error) {
	var out model.Progress
	err := u.tm.WithTx(ctx, progressTxOptions, func(ctx context.Context, tx repository.Tx) error {
		s, err := u.students.FindByUID(ctx, tx, uid)
		if err != nil {
			return err
		}
		cur, recomputed, err := u.ensureProgress(ctx, tx, s)
		if err != nil {
			return err
		}
		next, err := fn(ctx, tx, cur)
		if err != nil {
			return err
		}
		if next == nil {
			out = cur
			if !recomputed {
				return nil
			}
			next = &cur
		}
		out = model.NewProgress(next.Done, next.Total)
		return u.students.SetProgress(ctx, tx, uid, out)
	})
	return out, err
}

func (u *progressUC) ensureProgress(ctx context.Context, tx repository.Tx, s *model.Student) (model.Progress, bool, error) {
	if s.Progress != nil {
		return model.NewProgress(s.Progress.Done, s.Progress.Total), false, nil
	}
	steps, err := u.steps.ListByStudent(ctx, tx, s.UID)
	if err != nil {
		return model.Progress{}, false, err
	}
	metrics.IncProgressMutation("recompute")
	u.log.Debug().Str("user_id", s.UID).Int("steps", len(steps)).Msg("progress counters recomputed")
	return model.ProgressOf(steps), true, nil
}

func (u *progressUC) GetProgress(ctx context.Context, studentUID string) (model.Progress, error) {
	defer logging.TraceDuration(u.log, "ProgressUC.GetProgress")()

	uid := strings.TrimSpace(studentUID)
	s, err := u.students.FindByUID(ctx, repository.NoTX, uid)
	if err != nil {
		return model.Progress{}, err
	}
	if s.Progress != nil {
		return model.NewProgress(s.Progress.Done, s.Progress.Total), nil
	}
	// Self-heal under the row lock so a concurrent mutation is not overwritten.
	return u.withStudent(ctx, uid, func(context.Context, repository.Tx, model.Progress) (*model.Progress, error) {
		return nil, nil
	})
}

func (u *progressUC) ListSteps(ctx context.Context, studentUID string) ([]*model.Step, error) {
	defer logging.TraceDuration(u.log, "ProgressUC.ListSteps")()
	return u.steps.ListByStudent(ctx, repository.NoTX, strings.TrimSpace(studentUID))
}

func (u *progressUC) AddSteps(ctx context.Context, studentUID string, in []model.StepInput) ([]*model.Step, model.Progress, error) {
	defer logging.TraceDuration(u.log, "ProgressUC.AddSteps")()

	uid := strings.TrimSpace(studentUID)
	if len(in) == 0 || len(in) > maxBulkSteps {
		return nil, model.Progress{}, domain.NewValidationError("between 1 and 100 steps are required", map[string]any{"count": len(in)})
	}

	var created []*model.Step
	p, err := u.withStudent(ctx, uid, func(ctx context.Context, tx repository.Tx, cur model.Progress) (*model.Progress, error) {
		existing, err := u.steps.ListByStudent(ctx, tx, uid)
		if err != nil {
			return nil, err
		}
		next := 0
		for _, s := range existing {
			if s.Order >= next {
				next = s.Order + 1
			}
		}
		created = make([]*model.Step, 0, len(in))
		for i, item := range in {
			st, err := model.NewStep(uid, item, next+i)
			if err != nil {
				return nil, err
			}
			created = append(created, st)
		}
		if err := u.steps.CreateMany(ctx, tx, created); err != nil {
			return nil, err
		}
		p := cur.Apply(0, len(created))
		return &p, nil
	})
	if err != nil {
		return nil, model.Progress{}, err
	}
	metrics.IncProgressMutation("add")
	return created, p, nil
}

func (u *progressUC) DeleteStep(ctx context.Context, studentUID, stepID string) (model.Progress, error) {
	defer logging.TraceDuration(u.log, "ProgressUC.DeleteStep")()

	uid := strings.TrimSpace(studentUID)
	p, err := u.withStudent(ctx, uid, func(ctx context.Context, tx repository.Tx, cur model.Progress) (*model.Progress, error) {
		st, err := u.steps.FindByID(ctx, tx, uid, strings.TrimSpace(stepID))
		if err != nil {
			return nil, err
		}
		if err := u.steps.Delete(ctx, tx, uid, st.ID); err != nil {
			return nil, err
		}
		doneDelta := 0
		if st.IsDone {
			doneDelta = -1
		}
		p := cur.Apply(doneDelta, -1)
		return &p, nil
	})
	if err != nil {
		return model.Progress{}, err
	}
	metrics.IncProgressMutation("delete")
	return p, nil
}

func (u *progressUC) SetStepDone(ctx context.Context, studentUID, stepID string, done bool, comment, link *string) (*model.Step, model.Progress, error) {
	defer logging.TraceDuration(u.log, "ProgressUC.SetStepDone")()

	uid := strings.TrimSpace(studentUID)
	if l := domain.TrimOptional(link); l != nil && !model.IsValidMaterialURL(*l) {
		return nil, model.Progress{}, domain.NewValidationError("invalid link", map[string]any{"link": *l})
	}

	var step *model.Step
	changed := false
	p, err := u.withStudent(ctx, uid, func(ctx context.Context, tx repository.Tx, cur model.Progress) (*model.Progress, error) {
		st, err := u.steps.FindByID(ctx, tx, uid, strings.TrimSpace(stepID))
		if err != nil {
			return nil, err
		}
		now := u.now()
		if st.IsDone == done {
			step = st
			return nil, nil
		}
		changed = st.MarkDone(done, comment, link, now)
		if err := u.steps.Update(ctx, tx, st); err != nil {
			return nil, err
		}
		step = st
		delta := -1
		if done {
			delta = 1
			c := &model.StepCompletion{
				ID:          uuid.NewString(),
				StudentUID:  uid,
				StepID:      st.ID,
				Status:      model.CompletionStatusCompleted,
				Comment:     st.DoneComment,
				Link:        st.DoneLink,
				CompletedAt: now,
				UpdatedAt:   now,
			}
			if err := u.completions.Create(ctx, tx, c); err != nil {
				return nil, err
			}
		}
		p := cur.Apply(delta, 0)
		return &p, nil
	})
	if err != nil {
		return nil, model.Progress{}, err
	}
	if changed {
		if done {
			metrics.IncProgressMutation("done")
		} else {
			metrics.IncProgressMutation("undone")
		}
	}
	return step, p, nil
}

func (u *progressUC) RevokeCompletion(ctx context.Context, completionID, actorUID string) (*model.StepCompletion, model.Progress, error) {
	defer logging.TraceDuration(u.log, "ProgressUC.RevokeCompletion")()

	id := strings.TrimSpace(completionID)
	c, err := u.completions.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, model.Progress{}, err
	}

	var out *model.StepCompletion
	p, err := u.withStudent(ctx, c.StudentUID, func(ctx context.Context, tx repository.Tx, cur model.Progress) (*model.Progress, error) {
		locked, err := u.completions.FindByID(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		out = locked
		if locked.Status == model.CompletionStatusRevoked {
			return nil, nil
		}
		now := u.now()
		if err := u.completions.MarkRevoked(ctx, tx, id, now, strings.TrimSpace(actorUID)); err != nil {
			return nil, err
		}
		by := strings.TrimSpace(actorUID)
		out.Status = model.CompletionStatusRevoked
		out.RevokedAt = &now
		out.RevokedBy = &by
		out.UpdatedAt = now

		st, err := u.steps.FindByID(ctx, tx, locked.StudentUID, locked.StepID)
		if errors.Is(err, domain.ErrNotFound) {
			// The step was deleted; its counters already moved.
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if !st.IsDone {
			return nil, nil
		}
		st.MarkDone(false, nil, nil, now)
		if err := u.steps.Update(ctx, tx, st); err != nil {
			return nil, err
		}
		p := cur.Apply(-1, 0)
		return &p, nil
	})
	if err != nil {
		return nil, model.Progress{}, err
	}
	metrics.IncProgressMutation("revoke")
	return out, p, nil
}

func (u *progressUC) ListCompletions(ctx context.Context, status string, limit int, cursor string) ([]*model.StepCompletion, string, error) {
	defer logging.TraceDuration(u.log, "ProgressUC.ListCompletions")()

	st, ok := model.ParseCompletionFilter(status)
	if !ok {
		return nil, "", domain.NewValidationError("status must be one of: completed, revoked, all", map[string]any{"status": status})
	}
	if limit <= 0 {
		limit = defaultCompletionPageSize
	}
	if limit > maxCompletionPageSize {
		limit = maxCompletionPageSize
	}
	var after *model.CompletionCursor
	at, id, ok, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	if ok {
		after = &model.CompletionCursor{CompletedAt: at, ID: id}
	}

	rows, err := u.completions.ListPage(ctx, repository.NoTX, st, limit+1, after)
	if err != nil {
		return nil, "", err
	}
	if len(rows) <= limit {
		return rows, "", nil
	}
	rows = rows[:limit]
	last := rows[len(rows)-1]
	return rows, encodeCursor(last.CompletedAt, last.ID), nil
}

func (u *progressUC) UpdateCompletion(ctx context.Context, completionID string, patch model.CompletionPatch) (*model.StepCompletion, error) {
	defer logging.TraceDuration(u.log, "ProgressUC.UpdateCompletion")()

	if patch.Empty() {
		return nil, domain.NewValidationError("at least one field is required", nil)
	}
	if l := domain.TrimOptional(patch.Link); l != nil && !model.IsValidMaterialURL(*l) {
		return nil, domain.NewValidationError("invalid link", map[string]any{"link": *l})
	}
	id := strings.TrimSpace(completionID)

	var out *model.StepCompletion
	err := u.tm.WithTx(ctx, progressTxOptions, func(ctx context.Context, tx repository.Tx) error {
		c, err := u.completions.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		now := u.now()
		if patch.Comment != nil {
			c.Comment = domain.TrimOptional(patch.Comment)
		}
		if patch.Link != nil {
			c.Link = domain.TrimOptional(patch.Link)
		}
		c.UpdatedAt = now
		if err := u.completions.UpdateNotes(ctx, tx, c.ID, c.Comment, c.Link, now); err != nil {
			return err
		}
		out = c

		// A revoked completion no longer describes the step.
		if c.Status != model.CompletionStatusCompleted {
			return nil
		}
		st, err := u.steps.FindByID(ctx, tx, c.StudentUID, c.StepID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !st.IsDone {
			return nil
		}
		if patch.Comment != nil {
			st.DoneComment = c.Comment
		}
		if patch.Link != nil {
			st.DoneLink = c.Link
		}
		st.UpdatedAt = now
		return u.steps.Update(ctx, tx, st)
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("completion_id", out.ID).Str("user_id", out.StudentUID).Msg("step completion updated")
	return out, nil
}

func (u *progressUC) ResetPlan(ctx context.Context, studentUID, goalID string, confirm bool) (model.Progress, error) {
	defer logging.TraceDuration(u.log, "ProgressUC.ResetPlan")()

	if !confirm {
		return model.Progress{}, domain.ErrConfirmationRequired
	}
	goalID = strings.TrimSpace(goalID)
	if goalID == "" {
		return model.Progress{}, domain.NewValidationError("goalId is required", nil)
	}
	uid := strings.TrimSpace(studentUID)

	p, err := u.withStudent(ctx, uid, func(ctx context.Context, tx repository.Tx, _ model.Progress) (*model.Progress, error) {
		tpl, err := u.templates.ListByGoal(ctx, tx, goalID)
		if err != nil {
			return nil, err
		}
		removed, err := u.steps.DeleteAllByStudent(ctx, tx, uid)
		if err != nil {
			return nil, err
		}
		steps := make([]*model.Step, 0, len(tpl))
		for i, t := range tpl {
			st, err := model.NewStep(uid, model.StepInput{Title: t.Title, Description: t.Description, MaterialURL: t.MaterialURL}, i)
			if err != nil {
				return nil, err
			}
			steps = append(steps, st)
		}
		if len(steps) > 0 {
			if err := u.steps.CreateMany(ctx, tx, steps); err != nil {
				return nil, err
			}
		}
		u.log.Info().Str("user_id", uid).Str("goal_id", goalID).Int("removed", removed).Int("created", len(steps)).Msg("plan reset")
		p := model.NewProgress(0, len(steps))
		return &p, nil
	})
	if err != nil {
		return model.Progress{}, err
	}
	metrics.IncProgressMutation("reset")
	return p, nil
}

func (u *progressUC) ReorderSteps(ctx context.Context, studentUID string, orderedIDs []string) ([]*model.Step, error) {
	defer logging.TraceDuration(u.log, "ProgressUC.ReorderSteps")()

	uid := strings.TrimSpace(studentUID)
	var out []*model.Step
	_, err := u.withStudent(ctx, uid, func(ctx context.Context, tx repository.Tx, _ model.Progress) (*model.Progress, error) {
		existing, err := u.steps.ListByStudent(ctx, tx, uid)
		if err != nil {
			return nil, err
		}
		if len(existing) != len(orderedIDs) {
			return nil, domain.NewValidationError("stepIds must list every step exactly once", map[string]any{"expected": len(existing), "got": len(orderedIDs)})
		}
		known := make(map[string]bool, len(existing))
		for _, s := range existing {
			known[s.ID] = false
		}
		ids := make([]string, len(orderedIDs))
		for i, raw := range orderedIDs {
			id := strings.TrimSpace(raw)
			used, ok := known[id]
			if !ok || used {
				return nil, domain.NewValidationError("stepIds must list every step exactly once", map[string]any{"stepId": id})
			}
			known[id] = true
			ids[i] = id
		}
		if err := u.steps.SetOrder(ctx, tx, uid, ids); err != nil {
			return nil, err
		}
		out, err = u.steps.ListByStudent(ctx, tx, uid)
		return nil, err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
