package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/issuetracker/tracker-bot-go/internal/httputil"
)

type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// WebhookHandler receives updates pushed by Telegram.
type WebhookHandler struct {
	updates UpdateHandler
}

func NewWebhookHandler(updates UpdateHandler) *WebhookHandler {
	return &WebhookHandler{updates: updates}
}

// ServeHTTP handles the update before answering. Telegram retries on any
// non-2xx status, so processing problems are logged and still answered with 200.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn().Int64("limit", tooLarge.Limit).Msg("telegram update over size limit, dropped")
			httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
			return
		}
		log.Warn().Err(err).Msg("invalid telegram update")
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	h.updates.HandleUpdate(r.Context(), update)

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
