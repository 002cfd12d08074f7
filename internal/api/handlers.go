package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// maxPayloadSize caps request bodies. Payloads here are a few identifiers.
const maxPayloadSize = 64 << 10

// DecodePayload decodes a strict JSON body into dest.
func DecodePayload(r *http.Request, dest any, allowEmpty bool) error {
	switch r.Header.Get("Content-Type") {
	case "application/json", "":
		// strict encoding for JSON
		dec := json.NewDecoder(io.LimitReader(r.Body, maxPayloadSize))
		dec.DisallowUnknownFields()
		if err := dec.Decode(dest); err != nil {
			if !errors.Is(err, io.EOF) || !allowEmpty {
				return err
			}
		}
		// ensure there's no extra data
		if dec.More() {
			return errors.New("extra data in request body")
		}
		return nil
	default:
		return errors.New("unsupported content type")
	}
}

// decodeAndValidate decodes the body into dest and runs the struct validation tags.
func (s *Server) decodeAndValidate(r *http.Request, dest any) error {
	if err := DecodePayload(r, dest, false); err != nil {
		return fmt.Errorf("invalid request payload: %w", err)
	}
	if err := s.validate.Struct(dest); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError turns validator output into a message naming the offending fields.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", lowerFirst(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("invalid fields: %s", strings.Join(fields, ", "))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
