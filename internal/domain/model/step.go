package model

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"course-enrollment/internal/domain"
)

// Step is one item of a student's learning plan.
type Step struct {
	ID          string
	StudentUID  string
	Title       string
	Description string
	MaterialURL string
	Order       int
	IsDone      bool
	DoneAt      *time.Time
	DoneComment *string
	DoneLink    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StepInput is the staff-supplied content of a new step.
type StepInput struct {
	Title       string
	Description string
	MaterialURL string
}

func NewStep(studentUID string, in StepInput, order int) (*Step, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.NewValidationError("title is required", nil)
	}
	material := strings.TrimSpace(in.MaterialURL)
	if !IsValidMaterialURL(material) {
		return nil, domain.NewValidationError("invalid materialUrl", map[string]any{"materialUrl": material})
	}
	now := time.Now()
	return &Step{
		ID:          uuid.NewString(),
		StudentUID:  studentUID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		MaterialURL: material,
		Order:       order,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func IsValidMaterialURL(v string) bool {
	if v == "" {
		return false
	}
	u, err := url.Parse(v)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// MarkDone sets completion fields. It reports whether IsDone actually changed.
func (s *Step) MarkDone(done bool, comment, link *string, at time.Time) bool {
	changed := s.IsDone != done
	s.IsDone = done
	if done {
		s.DoneAt = &at
		s.DoneComment = domain.TrimOptional(comment)
		s.DoneLink = domain.TrimOptional(link)
	} else {
		s.DoneAt = nil
		s.DoneComment = nil
		s.DoneLink = nil
	}
	s.UpdatedAt = at
	return changed
}

type CompletionStatus string

const (
	CompletionStatusCompleted CompletionStatus = "completed"
	CompletionStatusRevoked   CompletionStatus = "revoked"
)

// ParseCompletionFilter maps the admin listing filter onto a status. The empty
// filter means completed; "all" yields the empty status, which matches both.
func ParseCompletionFilter(s string) (CompletionStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(CompletionStatusCompleted):
		return CompletionStatusCompleted, true
	case string(CompletionStatusRevoked):
		return CompletionStatusRevoked, true
	case "all":
		return "", true
	}
	return "", false
}

// CompletionCursor is the keyset position for descending (completed_at, id) pagination.
type CompletionCursor struct {
	CompletedAt time.Time
	ID          string
}

// CompletionPatch edits the notes of a completion. A nil field is left
// unchanged; a blank value clears it.
type CompletionPatch struct {
	Comment *string
	Link    *string
}

func (p CompletionPatch) Empty() bool { return p.Comment == nil && p.Link == nil }

// StepCompletion is the audit trail entry written when a student completes a step.
type StepCompletion struct {
	ID          string
	StudentUID  string
	StepID      string
	Status      CompletionStatus
	Comment     *string
	Link        *string
	CompletedAt time.Time
	RevokedAt   *time.Time
	RevokedBy   *string
	UpdatedAt   time.Time
}

// TemplateStep belongs to a goal template and seeds a plan on reset.
type TemplateStep struct {
	ID          string
	GoalID      string
	Title       string
	Description string
	MaterialURL string
	Order       int
}
