package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

// Error codes shared across the portal services
const (
	// Generic errors
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists     ErrorCode = "ALREADY_EXISTS"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeTimeout           ErrorCode = "TIMEOUT"
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Session / SSO errors
	ErrCodeNotLoggedIn        ErrorCode = "NOT_LOGGED_IN"
	ErrCodeProviderDown       ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeTicketInvalid      ErrorCode = "TICKET_INVALID"
	ErrCodeSessionExpired     ErrorCode = "SESSION_EXPIRED"

	// Login flow errors
	ErrCodeOtpIncorrect   ErrorCode = "OTP_INCORRECT"
	ErrCodeUserExists     ErrorCode = "USER_ALREADY_EXISTS"
	ErrCodeDuplicateUser  ErrorCode = "DUPLICATE_ACCOUNT"
	ErrCodeUserNotFound   ErrorCode = "USER_NOT_FOUND"
	ErrCodeValidationFail ErrorCode = "VALIDATION_FAILED"

	// Checkout errors
	ErrCodeInvalidDealCode  ErrorCode = "INVALID_DEAL_CODE"
	ErrCodePaymentInitError ErrorCode = "PAYMENT_INIT_ERROR"
	ErrCodeContactRequired  ErrorCode = "VERIFIED_CONTACT_REQUIRED"
)

// OtpIncorrectCode is the numeric business code the SSO provider returns for
// a wrong one-time passcode.
const OtpIncorrectCode = 414

// Error represents a structured error with code, message, and optional details
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *Error) HTTPStatusCode() int {
	return MapErrorCodeToHTTPStatus(e.Code)
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with a code and message
func Wrap(err error, code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsCode reports whether err is a structured Error carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code, defaulting to ErrCodeInternal for
// unstructured errors.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// MapErrorCodeToHTTPStatus maps an error code to an HTTP status code
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidInput, ErrCodeValidationFail, ErrCodeInvalidDealCode:
		return http.StatusBadRequest
	case ErrCodeUnauthorized, ErrCodeNotLoggedIn, ErrCodeInvalidCredentials,
		ErrCodeTicketInvalid, ErrCodeSessionExpired, ErrCodeOtpIncorrect:
		return http.StatusUnauthorized
	case ErrCodeNotFound, ErrCodeUserNotFound:
		return http.StatusNotFound
	case ErrCodeAlreadyExists, ErrCodeUserExists, ErrCodeDuplicateUser:
		return http.StatusConflict
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeProviderDown:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
