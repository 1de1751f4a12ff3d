package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/issuetracker/tracker-bot-go/internal/config"
)

// BodyLimitMiddleware rejects requests whose declared length exceeds the cap
// and wraps the remaining bodies so reading past it fails.
type BodyLimitMiddleware struct {
	maxSize    int64
	onTooLarge http.HandlerFunc
}

// NewBodyLimitMiddleware caps admin API requests and answers oversized ones
// with a JSON 413.
func NewBodyLimitMiddleware(maxSize int64) *BodyLimitMiddleware {
	if maxSize <= 0 {
		maxSize = config.AdminMaxBodyBytes
	}
	return &BodyLimitMiddleware{maxSize: maxSize, onTooLarge: rejectTooLarge}
}

// NewUpdateBodyLimitMiddleware caps Telegram webhook deliveries. An update
// that large fails the same way on every redelivery, so it is dropped and
// acknowledged with 200.
func NewUpdateBodyLimitMiddleware(maxSize int64) *BodyLimitMiddleware {
	if maxSize <= 0 {
		maxSize = config.TelegramMaxUpdateBytes
	}
	return &BodyLimitMiddleware{maxSize: maxSize, onTooLarge: dropUpdate}
}

func (m *BodyLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil && r.ContentLength > m.maxSize {
			log.Warn().
				Int64("contentLength", r.ContentLength).
				Int64("limit", m.maxSize).
				Str("path", r.URL.Path).
				Msg("request body over limit")
			m.onTooLarge(w, r)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, m.maxSize)
		next.ServeHTTP(w, r)
	})
}

func rejectTooLarge(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
		"error": "Request body too large",
	})
}

func dropUpdate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
