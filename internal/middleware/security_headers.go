package middleware

import (
	"net/http"
)

// APIHeadersMiddleware sets response headers for the JSON admin API.
type APIHeadersMiddleware struct{}

func NewAPIHeadersMiddleware() *APIHeadersMiddleware {
	return &APIHeadersMiddleware{}
}

func (m *APIHeadersMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		next.ServeHTTP(w, r)
	})
}
