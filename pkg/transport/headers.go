package transport

import "net/http"

// SecurityHeaders returns middleware that sets browser hardening headers
// on every response.
func SecurityHeaders() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	}
}
