package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the engine can return. Callers map kinds
// to user-facing messages; codes give the finer-grained reason.
type ErrorKind string

const (
	KindValidation          ErrorKind = "ValidationError"
	KindInvalidTransition   ErrorKind = "InvalidTransition"
	KindExceedsEligibility  ErrorKind = "ExceedsEligibility"
	KindFinancingNotActive  ErrorKind = "FinancingNotActive"
	KindConcurrencyConflict ErrorKind = "ConcurrencyConflict"
	KindPartialWrite        ErrorKind = "PartialWriteError"
	KindNotFound            ErrorKind = "NotFound"
	KindAlreadyExists       ErrorKind = "AlreadyExists"
	KindForbidden           ErrorKind = "Forbidden"
	KindUnauthorized        ErrorKind = "Unauthorized"
	KindInternal            ErrorKind = "Internal"
)

// IsRetryable reports whether an operation failing with this kind may be
// attempted again unchanged.
func (k ErrorKind) IsRetryable() bool {
	return k == KindConcurrencyConflict
}

// DomainError is a kind-tagged business error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so sentinel values work with errors.Is.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a ValidationError with the given code
func NewValidationError(code, message string) *DomainError {
	return NewDomainError(KindValidation, code, message)
}

// NewInvalidTransitionError reports a rejected state edge
func NewInvalidTransitionError(entity string, from, to fmt.Stringer) *DomainError {
	return NewDomainError(KindInvalidTransition, "INVALID_TRANSITION",
		fmt.Sprintf("%s cannot move from %s to %s", entity, from, to))
}

// NewNotFoundError reports a missing entity
func NewNotFoundError(entity string) *DomainError {
	return NewDomainError(KindNotFound, "NOT_FOUND", entity+" not found")
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(KindNotFound, "NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError(KindAlreadyExists, "ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError(KindValidation, "INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(KindConcurrencyConflict, "CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrPartialWrite        = NewDomainError(KindPartialWrite, "PARTIAL_WRITE", "Ledger entry and balance update were not committed together")
	ErrUnauthorized        = NewDomainError(KindUnauthorized, "UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError(KindForbidden, "FORBIDDEN", "Access to this resource is forbidden")
	ErrExceedsEligibility  = NewDomainError(KindExceedsEligibility, "EXCEEDS_ELIGIBILITY", "Requested principal exceeds the eligible amount")
	ErrFinancingNotActive  = NewDomainError(KindFinancingNotActive, "FINANCING_NOT_ACTIVE", "Financing does not accept payments in its current state")
)

// KindOf returns the kind carried by err. Errors without a domain tag are
// infrastructure failures and report KindInternal; nil reports "".
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
