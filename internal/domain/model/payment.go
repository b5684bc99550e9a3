package model

import "time"

type PaymentStatus string

const (
	PaymentStatusCreated              PaymentStatus = "created"               // checkout intent issued, activation code assigned
	PaymentStatusPending              PaymentStatus = "pending"               // student reported paying off-platform
	PaymentStatusPaid                 PaymentStatus = "paid"                  // provider confirmed funds
	PaymentStatusAwaitingConfirmation PaymentStatus = "awaiting_confirmation" // evidence seen, activation not yet confirmed
	PaymentStatusActivated            PaymentStatus = "activated"             // enrollment flipped to active
	PaymentStatusRejected             PaymentStatus = "rejected"              // refused by the decision engine or staff
	PaymentStatusFailed               PaymentStatus = "failed"
	PaymentStatusCancelled            PaymentStatus = "cancelled"
)

// PaymentStatuses is the closed set of values the store may hold.
var PaymentStatuses = []PaymentStatus{
	PaymentStatusCreated,
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusAwaitingConfirmation,
	PaymentStatusActivated,
	PaymentStatusRejected,
	PaymentStatusFailed,
	PaymentStatusCancelled,
}

func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	for _, st := range PaymentStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// AutoActivatable reports whether mailbox evidence alone may activate the payment.
func (s PaymentStatus) AutoActivatable() bool {
	return s == PaymentStatusCreated || s == PaymentStatusAwaitingConfirmation
}

// Terminal statuses are never left once entered.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusActivated || s == PaymentStatusRejected
}

// Payment is one checkout attempt. It is created at checkout and afterwards
// mutated only by activation or rejection; it is never deleted.
type Payment struct {
	ID              string // ULID
	UserUID         string
	Email           string
	Provider        string // e.g. "boosty"
	SelectedCourses []string
	Amount          int64 // smallest currency unit
	Currency        string
	ActivationCode  *string
	Status          PaymentStatus
	EmailEvidence   *string
	ActivatedAt     *time.Time
	ActivatedBy     *string
	RejectedAt      *time.Time
	RejectedBy      *string
	RejectionReason *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PaymentFilter narrows admin listings. Zero values match everything.
type PaymentFilter struct {
	Status   PaymentStatus
	Provider string
	Query    string
}

// PaymentCursor is the keyset position used for descending (created_at, id) pagination.
type PaymentCursor struct {
	CreatedAt time.Time
	ID        string
}
