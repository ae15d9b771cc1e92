package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrDuplicateEntry indicates a ledger append violated the (account, category, reference)
// idempotency constraint.
var ErrDuplicateEntry = errors.New("duplicate ledger entry")

// ErrInsufficientBalance indicates the account's derived balance cannot cover the requested amount.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrQuotaExceeded indicates a withdrawal would exceed a daily, weekly or monthly cap.
// Callers wrap it with the window name and the amounts involved.
var ErrQuotaExceeded = errors.New("withdrawal quota exceeded")

// ErrTierRequired indicates the account holds no tier, or its tier has expired.
var ErrTierRequired = errors.New("active subscription tier required")

// ErrNoCapacity indicates no active reviewer has spare assignment capacity.
var ErrNoCapacity = errors.New("no reviewer capacity available")

// ErrForbidden indicates the caller is not permitted to perform the action.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidTransition indicates a withdrawal state-machine rule was violated,
// including optimistic-concurrency losers on concurrent transitions.
var ErrInvalidTransition = errors.New("invalid state transition")

// ErrConflict indicates the operation conflicts with the current state of the resource.
var ErrConflict = errors.New("conflict with current resource state")

// ErrLedgerUnavailable indicates a storage-layer fault while reading or appending
// ledger entries. The only error class callers may retry with backoff.
var ErrLedgerUnavailable = errors.New("ledger storage unavailable")

// ErrInternal indicates an unexpected internal failure.
var ErrInternal = errors.New("internal error")

// AppError carries an HTTP-ish status code alongside a message and wrapped cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates an AppError with the given code, message and underlying cause.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewNotFoundError creates an AppError that matches ErrNotFound via errors.Is.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: 404, Message: message, Err: ErrNotFound}
}
