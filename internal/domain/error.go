package domain

import (
	"errors"
	"strings"
)

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrAlreadyExists        = errors.New("entity already exists")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrForbidden            = errors.New("operation not permitted")
	ErrStatusBlocked        = errors.New("operation not permitted for current status")
	ErrConfirmationRequired = errors.New("explicit confirmation required")

	// Activation codes
	ErrCodeGenerationExhausted = errors.New("could not generate unique activation code")

	// Storage
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")

	// Coordination
	ErrLockNotAcquired = errors.New("lock is held by another worker")
	ErrRateLimited     = errors.New("too many requests")

	// Mailbox
	ErrMailboxNotConfigured = errors.New("mailbox is not configured")
	// ErrHistoryExpired means the stored checkpoint is older than the history
	// the mailbox still retains; the delta since it cannot be listed.
	ErrHistoryExpired = errors.New("mailbox history checkpoint expired")
)

// ValidationError carries field-level details for a rejected input.
// errors.Is(err, ErrInvalidArgument) holds for every ValidationError.
type ValidationError struct {
	Message string
	Details map[string]any
}

func NewValidationError(msg string, details map[string]any) *ValidationError {
	return &ValidationError{Message: msg, Details: details}
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return ErrInvalidArgument.Error()
	}
	return ErrInvalidArgument.Error() + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

// TrimOptional returns nil for nil or blank input.
func TrimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
