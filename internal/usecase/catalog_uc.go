// File: internal/usecase/catalog_uc.go
package usecase

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"course-enrollment/internal/domain"
	"course-enrollment/internal/domain/model"
	"course-enrollment/internal/domain/ports/repository"
	"course-enrollment/internal/infra/logging"
)

// Compile-time check
var _ CatalogUseCase = (*catalogUC)(nil)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Catalog is one import batch of reference data.
type Catalog struct {
	Courses   []*model.Course
	FXRates   map[string]float64 // currency -> units per USD
	Templates map[string][]model.StepInput
}

// CatalogReport counts what an import wrote.
type CatalogReport struct {
	Courses   int
	FXRates   int
	Templates int
	Steps     int
}

type CatalogUseCase interface {
	// Import validates the whole batch first, then writes it in one transaction.
	Import(ctx context.Context, c Catalog) (*CatalogReport, error)
}

type catalogUC struct {
	writer repository.CatalogWriter
	tm     repository.TransactionManager
	log    *zerolog.Logger
}

func NewCatalogUseCase(writer repository.CatalogWriter, tm repository.TransactionManager, logger *zerolog.Logger) *catalogUC {
	return &catalogUC{writer: writer, tm: tm, log: logging.OrNop(logger)}
}

func (u *catalogUC) Import(ctx context.Context, c Catalog) (*CatalogReport, error) {
	defer logging.TraceDuration(u.log, "CatalogUC.Import")()

	courses, err := normalizeCourses(c.Courses)
	if err != nil {
		return nil, err
	}
	rates, err := normalizeRates(c.FXRates)
	if err != nil {
		return nil, err
	}
	templates, err := buildTemplates(c.Templates)
	if err != nil {
		return nil, err
	}

	report := &CatalogReport{}
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		for _, course := range courses {
			if err := u.writer.UpsertCourse(ctx, tx, course); err != nil {
				return err
			}
			report.Courses++
		}
		for _, cur := range sortedKeys(rates) {
			if err := u.writer.SetFXRate(ctx, tx, cur, rates[cur]); err != nil {
				return err
			}
			report.FXRates++
		}
		for _, goal := range sortedKeys(templates) {
			steps := templates[goal]
			if err := u.writer.ReplaceGoalTemplate(ctx, tx, goal, steps); err != nil {
				return err
			}
			report.Templates++
			report.Steps += len(steps)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.log.Info().
		Int("courses", report.Courses).
		Int("fx_rates", report.FXRates).
		Int("templates", report.Templates).
		Int("template_steps", report.Steps).
		Msg("catalog imported")
	return report, nil
}

func normalizeCourses(in []*model.Course) ([]*model.Course, error) {
	seen := make(map[string]struct{}, len(in))
	out := make([]*model.Course, 0, len(in))
	for _, c := range in {
		if c == nil {
			continue
		}
		id := strings.TrimSpace(c.ID)
		if id == "" {
			return nil, domain.NewValidationError("course id is required", nil)
		}
		if _, dup := seen[id]; dup {
			return nil, domain.NewValidationError("duplicate course id", map[string]any{"courseId": id})
		}
		seen[id] = struct{}{}
		if c.PriceUSDCents < 0 {
			return nil, domain.NewValidationError("course price must not be negative", map[string]any{"courseId": id})
		}
		title := strings.TrimSpace(c.Title)
		if title == "" {
			title = id
		}
		out = append(out, &model.Course{ID: id, Title: title, PriceUSDCents: c.PriceUSDCents, IsActive: c.IsActive})
	}
	return out, nil
}

func normalizeRates(in map[string]float64) (map[string]float64, error) {
	out := make(map[string]float64, len(in))
	for cur, rate := range in {
		code := strings.ToUpper(strings.TrimSpace(cur))
		if !currencyPattern.MatchString(code) {
			return nil, domain.NewValidationError("invalid currency code", map[string]any{"currency": cur})
		}
		if !(rate > 0) {
			return nil, domain.NewValidationError("fx rate must be positive", map[string]any{"currency": code})
		}
		out[code] = rate
	}
	return out, nil
}

func buildTemplates(in map[string][]model.StepInput) (map[string][]*model.TemplateStep, error) {
	out := make(map[string][]*model.TemplateStep, len(in))
	for goal, items := range in {
		goalID := strings.TrimSpace(goal)
		if goalID == "" {
			return nil, domain.NewValidationError("goal id is required", nil)
		}
		if len(items) == 0 {
			return nil, domain.NewValidationError("goal template has no steps", map[string]any{"goalId": goalID})
		}
		steps := make([]*model.TemplateStep, 0, len(items))
		for i, it := range items {
			// NewStep applies the same title and URL rules plans use.
			st, err := model.NewStep(goalID, it, i)
			if err != nil {
				return nil, err
			}
			steps = append(steps, &model.TemplateStep{
				ID:          uuid.NewString(),
				GoalID:      goalID,
				Title:       st.Title,
				Description: st.Description,
				MaterialURL: st.MaterialURL,
				Order:       i,
			})
		}
		out[goalID] = steps
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
