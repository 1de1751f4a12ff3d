package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/issuetracker/tracker-bot-go/internal/audit"
	"github.com/issuetracker/tracker-bot-go/internal/util"
)

// AdminAuthMiddleware guards the admin API with a single bearer token whose
// bcrypt hash comes from ADMIN_TOKEN_HASH.
type AdminAuthMiddleware struct {
	tokenHash string
	failures  *AuthFailureLimiter
}

func NewAdminAuthMiddleware(tokenHash string) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{
		tokenHash: tokenHash,
		failures:  NewAuthFailureLimiter(),
	}
}

func (m *AdminAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.tokenHash == "" {
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error": "Admin API is disabled",
			})
			return
		}

		ip := r.RemoteAddr
		if m.failures.Blocked(ip) {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "Too many failed attempts. Please try again later.",
			})
			return
		}

		token := extractToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing authentication token",
			})
			return
		}

		if !util.CheckPasswordHash(token, m.tokenHash) {
			m.failures.RecordFailure(ip)
			log.Warn().Str("ip", ip).Msg("admin auth: invalid token attempt")
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAuthFailure,
				Details: map[string]interface{}{"path": r.URL.Path},
			})
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid token",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}
