package span

import (
	"context"
	"net/http"
	"time"
)

// Timeout returns middleware that adds a timeout to the request context.
// Handlers are expected to honor context cancellation; a cancelled context
// surfaces as an unknown error at the response boundary.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
