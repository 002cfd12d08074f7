package middleware

import (
	"net/http"

	"github.com/rosilesmarcos01/bbms-sub000/internal/correlation"
)

// CorrelationIDMiddleware reuses the caller's X-Correlation-ID or assigns a new one,
// echoes it on the response and stores it in the request context.
func CorrelationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(correlation.Header)
		if id == "" || len(id) > 128 {
			id = correlation.New()
		}
		w.Header().Set(correlation.Header, id)

		ctx := correlation.WithID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
