package presenter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
	"github.com/rosilesmarcos01/bbms-sub000/internal/correlation"
	"github.com/rosilesmarcos01/bbms-sub000/internal/service"
)

// RetryAfterSeconds is sent with 503 responses. It matches the client poll interval.
const RetryAfterSeconds = 2

type ErrorResponse struct {
	Error         string `json:"error"`
	Code          string `json:"code,omitempty"`
	CorrelationID string `json:"correlation_id"`
}

func JSON(w http.ResponseWriter, r *http.Request, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write json response")
	}
}

func Error(w http.ResponseWriter, r *http.Request, msg string, status int) {
	ErrorCode(w, r, msg, "", status)
}

func ErrorCode(w http.ResponseWriter, r *http.Request, msg, code string, status int) {
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}
	JSON(w, r, ErrorResponse{
		Error:         msg,
		Code:          code,
		CorrelationID: correlation.FromContext(r.Context()),
	}, status)
}

// Err writes err with the status code it carries. Only the message of a domain error is
// exposed, never what it wraps, and server side failures are reduced to short.
func Err(w http.ResponseWriter, r *http.Request, err error, short string) {
	httpErr := service.AsHTTPError(err)
	status := httpErr.StatusCode
	code := httpErr.Code()

	msg := short
	var ce *core.Error
	switch {
	case errors.As(err, &ce):
		msg = short + ": " + ce.Message
	case status < http.StatusInternalServerError:
		msg = short + ": " + err.Error()
	}
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		msg = short
	}
	ErrorCode(w, r, msg, string(code), status)
}
