package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
)

type fakeVerifier map[string]*core.Claims

func (f fakeVerifier) Verify(token string) (*core.Claims, error) {
	if token == "expired" {
		return nil, core.ErrTokenExpired
	}
	claims, ok := f[token]
	if !ok {
		return nil, core.ErrTokenInvalid
	}
	return claims, nil
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer  abc ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		require.Equal(t, tt.want, BearerToken(r), "header %q", tt.header)
	}
}

func TestRequireSessionAndRole(t *testing.T) {
	verifier := fakeVerifier{
		"operator": {SubjectID: "u-1", Role: "operator"},
		"admin":    {SubjectID: "u-2", Role: AdminRole},
	}

	var seen *core.Claims
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsCtx(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	session := RequireSession(verifier)(ok)
	admin := RequireSession(verifier)(RequireRole(AdminRole)(ok))

	tests := []struct {
		name    string
		handler http.Handler
		token   string
		want    int
		wantSub string
	}{
		{name: "no token", handler: session, want: http.StatusUnauthorized},
		{name: "unknown token", handler: session, token: "nope", want: http.StatusUnauthorized},
		{name: "expired token", handler: session, token: "expired", want: http.StatusUnauthorized},
		{name: "valid session", handler: session, token: "operator", want: http.StatusNoContent, wantSub: "u-1"},
		{name: "operator on admin route", handler: admin, token: "operator", want: http.StatusForbidden},
		{name: "admin on admin route", handler: admin, token: "admin", want: http.StatusNoContent, wantSub: "u-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.token != "" {
				r.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			tt.handler.ServeHTTP(w, r)

			require.Equal(t, tt.want, w.Code)
			if tt.wantSub != "" {
				require.NotNil(t, seen)
				require.Equal(t, tt.wantSub, seen.SubjectID)
			}
		})
	}
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
}
