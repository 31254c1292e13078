package dto

import (
	"errors"
	"net/http"

	"github.com/agrocredit/backend/internal/domain/shared"
)

// Error codes raised by the HTTP layer itself. Domain errors carry their own
// codes and are mapped by kind.
const (
	ErrCodeInternal        = "ERR_INTERNAL"
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeUnauthorized    = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired    = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid    = "ERR_TOKEN_INVALID"
	ErrCodeForbidden       = "ERR_FORBIDDEN"
	ErrCodeNotFound        = "ERR_NOT_FOUND"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps domain error kinds to HTTP status codes
var ErrorCodeHTTPStatus = map[shared.ErrorKind]int{
	shared.KindValidation:          http.StatusBadRequest,
	shared.KindInvalidTransition:   http.StatusConflict,
	shared.KindExceedsEligibility:  http.StatusUnprocessableEntity,
	shared.KindFinancingNotActive:  http.StatusUnprocessableEntity,
	shared.KindConcurrencyConflict: http.StatusConflict,
	shared.KindPartialWrite:        http.StatusInternalServerError,
	shared.KindNotFound:            http.StatusNotFound,
	shared.KindAlreadyExists:       http.StatusConflict,
	shared.KindForbidden:           http.StatusForbidden,
	shared.KindUnauthorized:        http.StatusUnauthorized,
	shared.KindInternal:            http.StatusInternalServerError,
}

// GetHTTPStatus returns the status for a kind, 500 when unknown
func GetHTTPStatus(kind shared.ErrorKind) int {
	if status, ok := ErrorCodeHTTPStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorFromDomain resolves the status and body of an error returned by an
// application service. Anything that is not a domain error becomes an opaque
// 500 so internal details do not leak.
func ErrorFromDomain(err error) (int, ErrorInfo) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status := GetHTTPStatus(domainErr.Kind)
		if status == http.StatusInternalServerError && domainErr.Kind != shared.KindPartialWrite {
			return status, ErrorInfo{Code: ErrCodeInternal, Kind: string(domainErr.Kind), Message: "An unexpected error occurred"}
		}
		return status, ErrorInfo{Code: domainErr.Code, Kind: string(domainErr.Kind), Message: domainErr.Message}
	}
	return http.StatusInternalServerError, ErrorInfo{Code: ErrCodeInternal, Message: "An unexpected error occurred"}
}
