package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/issuetracker/tracker-bot-go/internal/util"
)

const TelegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// TelegramSecretMiddleware checks the secret token Telegram echoes on every
// webhook call when one was passed to setWebhook.
type TelegramSecretMiddleware struct {
	secret string
}

func NewTelegramSecretMiddleware(secret string) *TelegramSecretMiddleware {
	return &TelegramSecretMiddleware{secret: secret}
}

func (m *TelegramSecretMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.secret == "" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get(TelegramSecretHeader)
		if token == "" {
			log.Warn().Msg("telegram webhook: missing secret token header")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing secret token",
			})
			return
		}

		if !util.ConstantTimeEqual(token, m.secret) {
			log.Warn().Msg("telegram webhook: invalid secret token")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid secret token",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
