package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rosilesmarcos01/bbms-sub000/internal/api/presenter"
	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
)

const AdminRole = "admin"

// TokenVerifier validates access tokens. Refresh tokens must be rejected.
type TokenVerifier interface {
	Verify(token string) (*core.Claims, error)
}

type claimsKey struct{}

// ClaimsCtx returns the verified claims stored by RequireSession.
func ClaimsCtx(ctx context.Context) (*core.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*core.Claims)
	return claims, ok && claims != nil
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}

// RequireSession rejects requests without a valid access token.
func RequireSession(verifier TokenVerifier) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				presenter.ErrorCode(w, r, "login required", string(core.CodeTokenInvalid), http.StatusUnauthorized)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				log.Ctx(r.Context()).Debug().Err(err).Msg("rejected session token")
				presenter.Err(w, r, err, "invalid session token")
				return
			}

			log.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("sub", claims.SubjectID)
			})
			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole only lets sessions with the given role through. It must be chained after RequireSession.
func RequireRole(role string) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsCtx(r.Context())
			if !ok {
				presenter.ErrorCode(w, r, "login required", string(core.CodeTokenInvalid), http.StatusUnauthorized)
				return
			}
			if claims.Role != role {
				presenter.Error(w, r, "insufficient privileges", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
