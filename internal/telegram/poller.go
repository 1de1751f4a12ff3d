package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/issuetracker/tracker-bot-go/internal/config"
)

type UpdatesSource interface {
	GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Poller fetches updates with getUpdates and handles them one at a time, which
// keeps every user's events in arrival order.
type Poller struct {
	source  UpdatesSource
	updates UpdateHandler
}

func NewPoller(source UpdatesSource, updates UpdateHandler) *Poller {
	return &Poller{source: source, updates: updates}
}

// Run blocks until ctx is cancelled or the update channel closes.
func (p *Poller) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = config.TelegramPollTimeout

	ch := p.source.GetUpdatesChan(u)
	log.Info().Msg("Telegram long polling started")

	for {
		select {
		case <-ctx.Done():
			p.source.StopReceivingUpdates()
			log.Info().Msg("Telegram long polling stopped")
			return
		case update, ok := <-ch:
			if !ok {
				return
			}
			p.updates.HandleUpdate(ctx, update)
		}
	}
}
