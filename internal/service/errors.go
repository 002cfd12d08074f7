package service

import (
	"errors"
	"net/http"

	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
)

// HTTPError represents an error with an associated HTTP status code.
// TODO(future): it is probably not optimal to tie service errors to HTTP layer. We should refactor this later. :)
type HTTPError struct {
	StatusCode int
	Wrapped    error
}

func (e *HTTPError) Error() string {
	return e.Wrapped.Error()
}

func (e *HTTPError) Unwrap() error {
	return e.Wrapped
}

// Code returns the machine-readable code of the wrapped domain error, if any.
func (e *HTTPError) Code() core.ErrorCode {
	var ce *core.Error
	if errors.As(e.Wrapped, &ce) {
		return ce.Code
	}
	return ""
}

func httpError(statusCode int, err error) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Wrapped:    err,
	}
}

// fromCore wraps a domain error with the status code matching its code.
// Errors without a code are internal errors.
func fromCore(err error) *HTTPError {
	var ce *core.Error
	if !errors.As(err, &ce) {
		return httpError(http.StatusInternalServerError, err)
	}
	return httpError(statusForCode(ce.Code), err)
}

func statusForCode(code core.ErrorCode) int {
	switch code {
	case core.CodeIdentityNotFound, core.CodeOperationNotFound:
		return http.StatusNotFound
	case core.CodeIdentityInactive:
		return http.StatusForbidden
	case core.CodeNotEnrolled:
		return http.StatusBadRequest
	case core.CodeProviderUnavailable:
		return http.StatusServiceUnavailable
	case core.CodeProviderRejected:
		return http.StatusBadGateway
	case core.CodeOperationExpired, core.CodeOperationConsumed:
		return http.StatusGone
	case core.CodeTokenInvalid, core.CodeTokenExpired:
		return http.StatusUnauthorized
	case core.CodeProofUnavailable, core.CodeProofRejected, core.CodeManualReviewRequired:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// AsHTTPError returns the HTTPError carried by err, deriving one from a domain error if needed.
func AsHTTPError(err error) *HTTPError {
	var he *HTTPError
	if errors.As(err, &he) {
		return he
	}
	return fromCore(err)
}
