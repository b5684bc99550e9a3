package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"course-enrollment/internal/domain"
	"course-enrollment/internal/domain/model"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads and validates a request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError("invalid JSON body", nil)
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.NewValidationError("invalid request", nil)
	}
	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), reflect.Indirect(reflect.ValueOf(v)).Type().Name()+".")
		details[field] = fe.Tag()
	}
	return domain.NewValidationError("request validation failed", details)
}

// --- requests ---

type checkoutRequest struct {
	CourseIDs []string `json:"courseIds" validate:"required,min=1"`
}

type setStepDoneRequest struct {
	IsDone  *bool   `json:"isDone" validate:"required"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
	Link    *string `json:"link" validate:"omitempty,max=2048"`
}

type rejectPaymentRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

type stepItemRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	MaterialURL string `json:"materialUrl" validate:"required,url,max=2048"`
}

type addStepsRequest struct {
	Items []stepItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
}

type reorderStepsRequest struct {
	StepIDs []string `json:"stepIds" validate:"required,min=1,dive,required"`
}

type updateCompletionRequest struct {
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
	Link    *string `json:"link" validate:"omitempty,max=2048"`
}

type resetPlanRequest struct {
	GoalID  string `json:"goalId" validate:"required"`
	Confirm bool   `json:"confirm"`
}

// mailboxEnvelope is the push-subscription delivery format.
type mailboxEnvelope struct {
	Message *struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// --- responses ---

type paymentResponse struct {
	ID              string     `json:"id"`
	UserUID         string     `json:"userUid"`
	Email           string     `json:"email"`
	Provider        string     `json:"provider"`
	SelectedCourses []string   `json:"selectedCourses"`
	Amount          int64      `json:"amount"`
	Currency        string     `json:"currency"`
	ActivationCode  *string    `json:"activationCode"`
	Status          string     `json:"status"`
	EmailEvidence   *string    `json:"emailEvidence"`
	ActivatedAt     *time.Time `json:"activatedAt"`
	ActivatedBy     *string    `json:"activatedBy"`
	RejectedAt      *time.Time `json:"rejectedAt"`
	RejectedBy      *string    `json:"rejectedBy"`
	RejectionReason *string    `json:"rejectionReason"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func toPaymentResponse(p *model.Payment) paymentResponse {
	courses := p.SelectedCourses
	if courses == nil {
		courses = []string{}
	}
	return paymentResponse{
		ID:              p.ID,
		UserUID:         p.UserUID,
		Email:           p.Email,
		Provider:        p.Provider,
		SelectedCourses: courses,
		Amount:          p.Amount,
		Currency:        p.Currency,
		ActivationCode:  p.ActivationCode,
		Status:          string(p.Status),
		EmailEvidence:   p.EmailEvidence,
		ActivatedAt:     p.ActivatedAt,
		ActivatedBy:     p.ActivatedBy,
		RejectedAt:      p.RejectedAt,
		RejectedBy:      p.RejectedBy,
		RejectionReason: p.RejectionReason,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

type stepResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	MaterialURL string     `json:"materialUrl"`
	Order       int        `json:"order"`
	IsDone      bool       `json:"isDone"`
	DoneAt      *time.Time `json:"doneAt"`
	DoneComment *string    `json:"doneComment"`
	DoneLink    *string    `json:"doneLink"`
}

func toStepResponses(steps []*model.Step) []stepResponse {
	out := make([]stepResponse, 0, len(steps))
	for _, s := range steps {
		out = append(out, stepResponse{
			ID:          s.ID,
			Title:       s.Title,
			Description: s.Description,
			MaterialURL: s.MaterialURL,
			Order:       s.Order,
			IsDone:      s.IsDone,
			DoneAt:      s.DoneAt,
			DoneComment: s.DoneComment,
			DoneLink:    s.DoneLink,
		})
	}
	return out
}

type progressResponse struct {
	model.Progress
	Steps []stepResponse `json:"steps,omitempty"`
}

type completionResponse struct {
	ID          string     `json:"id"`
	StudentUID  string     `json:"studentUid"`
	StepID      string     `json:"stepId"`
	Status      string     `json:"status"`
	Comment     *string    `json:"comment"`
	Link        *string    `json:"link"`
	CompletedAt time.Time  `json:"completedAt"`
	RevokedAt   *time.Time `json:"revokedAt"`
	RevokedBy   *string    `json:"revokedBy"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func toCompletionResponse(c *model.StepCompletion) completionResponse {
	return completionResponse{
		ID:          c.ID,
		StudentUID:  c.StudentUID,
		StepID:      c.StepID,
		Status:      string(c.Status),
		Comment:     c.Comment,
		Link:        c.Link,
		CompletedAt: c.CompletedAt,
		RevokedAt:   c.RevokedAt,
		RevokedBy:   c.RevokedBy,
		UpdatedAt:   c.UpdatedAt,
	}
}
