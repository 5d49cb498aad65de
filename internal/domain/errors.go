package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a DomainError. The HTTP layer maps codes to statuses;
// nothing below it looks at transport concerns.
type ErrorCode string

const (
	ErrCodeValidation       ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	ErrCodeUnavailable      ErrorCode = "UNAVAILABLE"
	ErrCodeInvalidOperation ErrorCode = "INVALID_OPERATION"
	ErrCodeInternalError    ErrorCode = "INTERNAL_ERROR"
)

// DomainError is an error whose Message is safe to show to API callers.
// Err holds whatever caused it and is only ever logged.
type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func (e *DomainError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("%s (%s): %v", e.Message, e.Code, e.Err)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Wrap derives an error from a sentinel with a more specific message. The
// sentinel stays in the chain so errors.Is keeps matching it; cause may be nil.
func Wrap(sentinel *DomainError, message string, cause error) *DomainError {
	chain := error(sentinel)
	if cause != nil {
		chain = errors.Join(sentinel, cause)
	}
	return &DomainError{Code: sentinel.Code, Message: message, Err: chain}
}

// AsDomainError returns the outermost DomainError in err's chain.
func AsDomainError(err error) (*DomainError, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

var (
	// request validation
	ErrInvalidTenantID     = NewDomainError(ErrCodeValidation, "client_id must be a UUID")
	ErrInvalidChunkConfig  = NewDomainError(ErrCodeValidation, "chunk size must be positive and chunk overlap must be between 0 and chunk size")
	ErrMissingQuestion     = NewDomainError(ErrCodeValidation, "question is required")
	ErrNoChunks            = NewDomainError(ErrCodeValidation, "documents produced no chunks")
	ErrTooManyFiles        = NewDomainError(ErrCodeValidation, "too many files in request")
	ErrUnsupportedProvider = NewDomainError(ErrCodeValidation, "unsupported provider")
	ErrInvalidCursor       = NewDomainError(ErrCodeValidation, "invalid cursor")

	ErrTenantNotFound      = NewDomainError(ErrCodeNotFound, "client not found")
	ErrTenantAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "client already exists")

	// provider capability, decided per deployment
	ErrProviderUnavailable = NewDomainError(ErrCodeUnavailable, "provider unavailable")
	ErrProviderDisabled    = NewDomainError(ErrCodeUnavailable, "provider disabled by deployment policy")

	ErrNoDocumentsLoaded = NewDomainError(ErrCodeInvalidOperation, "client has no documents loaded, upload PDFs or URLs first")

	ErrInternal             = NewDomainError(ErrCodeInternalError, "internal error")
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
)
