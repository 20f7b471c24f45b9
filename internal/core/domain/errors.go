package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an error for propagation and HTTP mapping
type ErrorKind string

const (
	KindUnauthenticated  ErrorKind = "unauthenticated"
	KindInsufficientRole ErrorKind = "insufficient_role"
	KindRateLimited      ErrorKind = "rate_limited"
	KindFeatureDisabled  ErrorKind = "feature_disabled"
	KindInvalidInput     ErrorKind = "invalid_input"
	KindNotFound         ErrorKind = "not_found"
	KindStateConflict    ErrorKind = "state_conflict"
	KindInternal         ErrorKind = "internal"
)

// Error is a classified domain error with a stable machine-checkable code.
// Two errors match with errors.Is when their codes are equal.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches on the stable code
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// With returns a copy of e carrying the given detail
func (e *Error) With(key string, value any) *Error {
	clone := *e
	clone.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		clone.Details[k] = v
	}
	clone.Details[key] = value
	return &clone
}

// Withf returns a copy of e with a formatted message
func (e *Error) Withf(format string, args ...any) *Error {
	clone := *e
	clone.Message = fmt.Sprintf(format, args...)
	return &clone
}

// NewError creates a classified error
func NewError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Internal wraps a persistence or infrastructure failure
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Code: "internal_error", Message: "internal server error", cause: cause}
}

// KindOf returns the kind of err, KindInternal for unclassified errors
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Authorization and gateway errors
var (
	ErrUnauthenticated  = NewError(KindUnauthenticated, "unauthenticated", "authentication required")
	ErrInsufficientRole = NewError(KindInsufficientRole, "insufficient_role", "insufficient privileges")
	ErrRoleNotAssigned  = NewError(KindInsufficientRole, "role_not_assigned", "user role not assigned")
	ErrAccessDenied     = NewError(KindInsufficientRole, "access_denied", "you don't have access to this resource")
	ErrRateLimited      = NewError(KindRateLimited, "rate_limited", "rate limited")
	ErrFeatureDisabled  = NewError(KindFeatureDisabled, "feature_disabled", "this feature is disabled")
	ErrDevelopmentOnly  = NewError(KindFeatureDisabled, "development_only", "this endpoint is only available in development")
)

// Input errors
var (
	ErrInvalidInput       = NewError(KindInvalidInput, "invalid_input", "invalid input")
	ErrInvalidRole        = NewError(KindInvalidInput, "invalid_role", "invalid role")
	ErrInvalidAmount      = NewError(KindInvalidInput, "invalid_amount", "amount must be a positive number")
	ErrInvalidQRCode      = NewError(KindInvalidInput, "invalid_qr_code", "invalid QR code format")
	ErrQRCodeExpired      = NewError(KindInvalidInput, "qr_code_expired", "QR code has expired, ask the customer to refresh it")
	ErrInvalidOTP         = NewError(KindInvalidInput, "invalid_otp", "invalid OTP")
	ErrOTPExpired         = NewError(KindInvalidInput, "otp_expired", "OTP expired, request a new one")
	ErrOTPCooldown        = NewError(KindRateLimited, "otp_cooldown", "please wait before requesting a new OTP")
	ErrInvalidCredentials = NewError(KindUnauthenticated, "invalid_credentials", "invalid credentials")
	ErrTokenInvalid       = NewError(KindUnauthenticated, "token_invalid", "invalid token")
	ErrTokenExpired       = NewError(KindUnauthenticated, "token_expired", "token expired")
	ErrTokenRevoked       = NewError(KindUnauthenticated, "token_revoked", "token revoked")
)

// Lookup errors
var (
	ErrUserNotFound       = NewError(KindNotFound, "user_not_found", "user not found")
	ErrCustomerNotFound   = NewError(KindNotFound, "customer_not_found", "customer not found")
	ErrMembershipNotFound = NewError(KindNotFound, "membership_not_found", "membership not found")
	ErrCompanyNotFound    = NewError(KindNotFound, "company_not_found", "company not found")
	ErrVenueNotFound      = NewError(KindNotFound, "venue_not_found", "venue not found")
)

// State errors
var (
	ErrMembershipNotActive  = NewError(KindStateConflict, "membership_not_active", "membership is not active")
	ErrInsufficientBalance  = NewError(KindStateConflict, "insufficient_balance", "insufficient balance")
	ErrUserInactive         = NewError(KindStateConflict, "user_inactive", "user account is inactive")
	ErrVenueCompanyMismatch = NewError(KindStateConflict, "venue_company_mismatch", "membership does not belong to the venue's company")
)

// CodeOf returns the stable code of err, "internal_error" for unclassified errors
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal_error"
}
