package gerror

import (
	"errors"
	"net/http"
)

const (
	ErrCodeInternal             Code = "Internal"
	ErrCodeValidationFailed     Code = "ValidationFailed"
	ErrCodeNotFound             Code = "NotFound"
	ErrCodeUnauthorized         Code = "Unauthorized"
	ErrCodeForbidden            Code = "Forbidden"
	ErrCodeAlreadyExists        Code = "AlreadyExists"
	ErrCodeOptimisticLockFailed Code = "OptimisticLockFailed"
	ErrCodeTimeout              Code = "Timeout"
	ErrCodeConfiguration        Code = "ConfigurationError"
	ErrCodeSchemaOutOfDate      Code = "SchemaOutOfDate"
	ErrCodeProviderAuthFailed   Code = "ProviderAuthFailed"
	ErrCodeProviderAPIFailed    Code = "ProviderAPIFailed"
	ErrCodeSyncInProgress       Code = "SyncInProgress"
	ErrCodeRateLimited          Code = "RateLimited"
)

// ToError locates an Error in the provided error chain and returns it if it
// matches the provided code. Otherwise, returns nil.
func ToError(err error, code Code) *Error {
	if err == nil {
		return nil
	}
	var gErr Error
	if errors.As(err, &gErr) && gErr.Code() == code {
		return &gErr
	}
	return nil
}

func NewErrInternal() Error {
	return NewError(
		"An internal server error occurred",
		AudienceExternal,
		ErrCodeInternal,
		http.StatusInternalServerError,
		nil,
	)
}

func ToInternal(err error) *Error {
	return ToError(err, ErrCodeInternal)
}

func IsInternal(err error) bool {
	return ToInternal(err) != nil
}

func NewErrValidationFailed(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeValidationFailed, http.StatusBadRequest, nil)
}

func ToValidationFailed(err error) *Error {
	return ToError(err, ErrCodeValidationFailed)
}

func IsValidationFailed(err error) bool {
	return ToValidationFailed(err) != nil
}

func NewErrNotFound(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeNotFound, http.StatusNotFound, nil)
}

func ToNotFound(err error) *Error {
	return ToError(err, ErrCodeNotFound)
}

func IsNotFound(err error) bool {
	return ToNotFound(err) != nil
}

// NewErrUnauthorized is returned when a request carries no valid credential.
func NewErrUnauthorized(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeUnauthorized, http.StatusUnauthorized, nil)
}

func ToUnauthorized(err error) *Error {
	return ToError(err, ErrCodeUnauthorized)
}

func IsUnauthorized(err error) bool {
	return ToUnauthorized(err) != nil
}

// NewErrForbidden is returned when an authenticated identity fails a permission check.
func NewErrForbidden(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeForbidden, http.StatusForbidden, nil)
}

func ToForbidden(err error) *Error {
	return ToError(err, ErrCodeForbidden)
}

func IsForbidden(err error) bool {
	return ToForbidden(err) != nil
}

func NewErrAlreadyExists(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeAlreadyExists, http.StatusConflict, nil)
}

func ToAlreadyExists(err error) *Error {
	return ToError(err, ErrCodeAlreadyExists)
}

func IsAlreadyExists(err error) bool {
	return ToAlreadyExists(err) != nil
}

func NewErrOptimisticLockFailed(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeOptimisticLockFailed, http.StatusPreconditionFailed, nil)
}

func ToOptimisticLockFailed(err error) *Error {
	return ToError(err, ErrCodeOptimisticLockFailed)
}

func IsOptimisticLockFailed(err error) bool {
	return ToOptimisticLockFailed(err) != nil
}

func NewErrTimeout(description string) Error {
	return NewError("Timeout: "+description, AudienceExternal, ErrCodeTimeout, http.StatusGatewayTimeout, nil)
}

func ToTimeout(err error) *Error {
	return ToError(err, ErrCodeTimeout)
}

func IsTimeout(err error) bool {
	return ToTimeout(err) != nil
}

// NewErrConfiguration is returned at startup when required settings are missing or invalid.
func NewErrConfiguration(message string) Error {
	return NewError(message, AudienceInternal, ErrCodeConfiguration, http.StatusInternalServerError, nil)
}

func ToConfiguration(err error) *Error {
	return ToError(err, ErrCodeConfiguration)
}

func IsConfiguration(err error) bool {
	return ToConfiguration(err) != nil
}

// NewErrSchemaOutOfDate is returned at startup when the database schema is behind the
// version this binary expects.
func NewErrSchemaOutOfDate(current uint, expected uint) Error {
	return NewError("Database schema is out of date; run the migrations", AudienceInternal, ErrCodeSchemaOutOfDate,
		http.StatusServiceUnavailable, nil).
		IDetail("current_version", current).
		IDetail("expected_version", expected)
}

func ToSchemaOutOfDate(err error) *Error {
	return ToError(err, ErrCodeSchemaOutOfDate)
}

func IsSchemaOutOfDate(err error) bool {
	return ToSchemaOutOfDate(err) != nil
}

// NewErrProviderAuthFailed is returned when the provider rejects a credential, or an OAuth
// exchange cannot be completed.
func NewErrProviderAuthFailed(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeProviderAuthFailed, http.StatusUnauthorized, nil)
}

func ToProviderAuthFailed(err error) *Error {
	return ToError(err, ErrCodeProviderAuthFailed)
}

func IsProviderAuthFailed(err error) bool {
	return ToProviderAuthFailed(err) != nil
}

// NewErrProviderAPIFailed is returned when a call to the provider API fails for any reason
// other than authentication or a timeout (network failure, rate limiting, revoked permissions).
func NewErrProviderAPIFailed(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeProviderAPIFailed, http.StatusBadGateway, nil)
}

func ToProviderAPIFailed(err error) *Error {
	return ToError(err, ErrCodeProviderAPIFailed)
}

func IsProviderAPIFailed(err error) bool {
	return ToProviderAPIFailed(err) != nil
}

func NewErrSyncInProgress() Error {
	return NewError("A synchronization is already in progress for this account", AudienceExternal,
		ErrCodeSyncInProgress, http.StatusConflict, nil)
}

func ToSyncInProgress(err error) *Error {
	return ToError(err, ErrCodeSyncInProgress)
}

func IsSyncInProgress(err error) bool {
	return ToSyncInProgress(err) != nil
}

// NewErrRateLimited is returned when a source exceeds its request rate.
func NewErrRateLimited() Error {
	return NewError("Too Many Requests", AudienceExternal, ErrCodeRateLimited, http.StatusTooManyRequests, nil)
}

func ToRateLimited(err error) *Error {
	return ToError(err, ErrCodeRateLimited)
}

func IsRateLimited(err error) bool {
	return ToRateLimited(err) != nil
}
