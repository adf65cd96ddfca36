package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds request processing by wrapping the request context.
// Handlers observe the deadline through ctx.Done(), which lets streaming
// responses terminate cleanly in-band instead of being cut off mid-write.
// A zero timeout disables the middleware, which is the default because
// streamed completions can legitimately run for minutes.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
