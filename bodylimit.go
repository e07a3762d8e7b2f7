package span

import "net/http"

// BodyLimit returns middleware that limits the maximum request body size.
// Bodies exceeding maxBytes fail to read in the pipeline and are reported
// as request validation errors.
func BodyLimit(maxBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
