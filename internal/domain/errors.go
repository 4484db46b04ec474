package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnavailable      = "UNAVAILABLE"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidPriority      = NewDomainError(ErrCodeValidation, "invalid priority label")
	ErrInvalidMessageStatus = NewDomainError(ErrCodeValidation, "invalid message status")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrMessageNotFound = NewDomainError(ErrCodeNotFound, "email not found")
)

// Already exists errors
var (
	ErrMessageAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "message already ingested")
)

// Capability errors
var (
	ErrSentimentUnavailable = NewDomainError(ErrCodeUnavailable, "sentiment classification unavailable")
	ErrMailboxUnavailable   = NewDomainError(ErrCodeUnavailable, "mailbox provider unavailable")
	ErrSendFailed           = NewDomainError(ErrCodeInternalError, "failed to send reply")
)

// Operation errors
var (
	ErrAlreadyResolved = NewDomainError(ErrCodeInvalidOperation, "message is already resolved")
)
