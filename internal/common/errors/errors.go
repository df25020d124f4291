// Package errors provides standardized error handling for the waitlist core.
package errors

import (
	"context"
	"database/sql/driver"
	stderrors "errors"
	"fmt"
	"net"
	"time"

	"github.com/lib/pq"
)

// ==========================
// 1. Sentinel Errors
// ==========================

// Sentinels for the expected failure modes of the storage layer. Callers match
// them with errors.Is; the wrapped text carries the diagnostic detail.
var (
	ErrStorageUnavailable  = stderrors.New("STORAGE_UNAVAILABLE")
	ErrConstraintViolation = stderrors.New("CONSTRAINT_VIOLATION")
	ErrNotFound            = stderrors.New("NOT_FOUND")
	ErrReferralLinkFailed  = stderrors.New("REFERRAL_LINK_FAILED")
)

// ==========================
// 2. Standard Error Type
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	ErrCodeStorageUnavailable  ErrorCode = "STORAGE_UNAVAILABLE"
	ErrCodeConstraintViolation ErrorCode = "CONSTRAINT_VIOLATION"
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeReferralLinkFailed  ErrorCode = "REFERRAL_LINK_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 3. Error Constructors
// ==========================

// NewValidationError creates a non-retryable input validation error.
// Message is safe for end-user display.
func NewValidationError(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageUnavailableError creates a retryable backend connection error.
func NewStorageUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageUnavailable,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewConstraintViolationError creates a non-retryable integrity error.
func NewConstraintViolationError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeConstraintViolation,
		Message:   "Database integrity error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError creates a non-retryable missing-resource error.
func NewNotFoundError(resource string, id int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   fmt.Sprintf("id: %d", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewReferralLinkError creates a referral dual-write error. Retryable at the
// caller's discretion; it never fails the parent submission.
func NewReferralLinkError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeReferralLinkFailed,
		Message:   "Referral could not be recorded",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Postgres Classification
// ==========================

// SQLSTATE classes, per the Postgres documentation.
const (
	classConnectionException   = "08"
	classIntegrityViolation    = "23"
	classInsufficientResources = "53"
	classOperatorIntervention  = "57"
	codeUniqueViolation        = "23505"
	codeForeignKeyViolation    = "23503"
)

// Classify maps a raw database error onto the storage taxonomy. The result
// wraps the matching sentinel, so callers can test with errors.Is while the
// original error text is retained for logs.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		code := string(pqErr.Code)
		switch {
		case len(code) >= 2 && (code[:2] == classConnectionException ||
			code[:2] == classInsufficientResources ||
			code[:2] == classOperatorIntervention):
			return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		case len(code) >= 2 && code[:2] == classIntegrityViolation:
			return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
		}
	}

	// Unknown driver errors are treated as unavailability: the safe default
	// for a caller deciding between "try again later" and "bad data".
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

// IsUniqueViolation reports whether err is a unique-constraint conflict.
// The upsert path absorbs these; anywhere else they are real errors.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && string(pqErr.Code) == codeUniqueViolation
}

// IsForeignKeyViolation reports whether err is a broken reference.
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && string(pqErr.Code) == codeForeignKeyViolation
}

// ==========================
// 5. Utility Functions
// ==========================

func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}

func IsStorageUnavailable(err error) bool {
	return stderrors.Is(err, ErrStorageUnavailable)
}

func IsConstraintViolation(err error) bool {
	return stderrors.Is(err, ErrConstraintViolation)
}
