package presenter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
	"github.com/rosilesmarcos01/bbms-sub000/internal/correlation"
	"github.com/rosilesmarcos01/bbms-sub000/internal/service"
)

func TestErr(t *testing.T) {
	raw := errors.New(`upstream said: {"secret":"internal detail"}`)

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
		wantRetry   bool
	}{
		{
			name:        "domain error",
			err:         &service.HTTPError{StatusCode: http.StatusNotFound, Wrapped: core.ErrIdentityNotFound},
			wantStatus:  http.StatusNotFound,
			wantCode:    string(core.CodeIdentityNotFound),
			wantMessage: "failed: identity not found",
		},
		{
			name:        "wrapped provider detail is hidden",
			err:         core.ErrProviderRejected.Wrap(raw),
			wantStatus:  http.StatusBadGateway,
			wantCode:    string(core.CodeProviderRejected),
			wantMessage: "failed",
		},
		{
			name:        "unavailable sets retry after",
			err:         core.ErrProviderUnavailable.Wrap(raw),
			wantStatus:  http.StatusServiceUnavailable,
			wantCode:    string(core.CodeProviderUnavailable),
			wantMessage: "failed: identity provider unavailable",
			wantRetry:   true,
		},
		{
			name:        "plain client error",
			err:         &service.HTTPError{StatusCode: http.StatusBadRequest, Wrapped: fmt.Errorf("unknown purpose 'x'")},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "failed: unknown purpose 'x'",
		},
		{
			name:        "internal error",
			err:         raw,
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r = r.WithContext(correlation.WithID(r.Context(), "corr-1"))
			w := httptest.NewRecorder()

			Err(w, r, tt.err, "failed")

			require.Equal(t, tt.wantStatus, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.Equal(t, tt.wantCode, body.Code)
			require.Equal(t, tt.wantMessage, body.Error)
			require.Equal(t, "corr-1", body.CorrelationID)
			require.NotContains(t, w.Body.String(), "internal detail")
			if tt.wantRetry {
				require.Equal(t, "2", w.Header().Get("Retry-After"))
			} else {
				require.Empty(t, w.Header().Get("Retry-After"))
			}
		})
	}
}
