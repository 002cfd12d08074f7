package core

import "fmt"

// ErrorCode is the machine-readable reason code returned to callers.
type ErrorCode string

const (
	CodeIdentityNotFound     ErrorCode = "identity_not_found"
	CodeIdentityInactive     ErrorCode = "identity_inactive"
	CodeNotEnrolled          ErrorCode = "not_enrolled"
	CodeProviderUnavailable  ErrorCode = "provider_unavailable"
	CodeProviderRejected     ErrorCode = "provider_rejected"
	CodeOperationNotFound    ErrorCode = "operation_not_found"
	CodeOperationExpired     ErrorCode = "operation_expired"
	CodeOperationConsumed    ErrorCode = "operation_consumed"
	CodeProofUnavailable     ErrorCode = "proof_unavailable"
	CodeProofRejected        ErrorCode = "proof_rejected"
	CodeManualReviewRequired ErrorCode = "manual_review_required"
	CodeTokenInvalid         ErrorCode = "token_invalid"
	CodeTokenExpired         ErrorCode = "token_expired"
)

// Error is a domain error with a code. Two errors match under errors.Is if their codes match,
// so callers can compare against the sentinels below.
type Error struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Wrapped)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Wrap returns a copy of e with a cause attached.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Wrapped: cause}
}

// Withf returns a copy of e with a more specific message.
func (e *Error) Withf(format string, args ...any) *Error {
	return &Error{Code: e.Code, Message: fmt.Sprintf(format, args...), Wrapped: e.Wrapped}
}

var (
	ErrIdentityNotFound     = &Error{Code: CodeIdentityNotFound, Message: "identity not found"}
	ErrIdentityInactive     = &Error{Code: CodeIdentityInactive, Message: "identity is not active"}
	ErrNotEnrolled          = &Error{Code: CodeNotEnrolled, Message: "identity has not completed enrollment"}
	ErrProviderUnavailable  = &Error{Code: CodeProviderUnavailable, Message: "identity provider unavailable"}
	ErrProviderRejected     = &Error{Code: CodeProviderRejected, Message: "identity provider rejected the request"}
	ErrOperationNotFound    = &Error{Code: CodeOperationNotFound, Message: "operation not found"}
	ErrOperationExpired     = &Error{Code: CodeOperationExpired, Message: "operation expired"}
	ErrOperationConsumed    = &Error{Code: CodeOperationConsumed, Message: "operation already consumed"}
	ErrProofUnavailable     = &Error{Code: CodeProofUnavailable, Message: "proof unavailable"}
	ErrProofRejected        = &Error{Code: CodeProofRejected, Message: "proof rejected"}
	ErrManualReviewRequired = &Error{Code: CodeManualReviewRequired, Message: "manual review required"}
	ErrTokenInvalid         = &Error{Code: CodeTokenInvalid, Message: "invalid token"}
	ErrTokenExpired         = &Error{Code: CodeTokenExpired, Message: "token expired"}
)
