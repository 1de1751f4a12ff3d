package telegram

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"

	"github.com/issuetracker/tracker-bot-go/internal/config"
)

type chanSource struct {
	ch      chan tgbotapi.Update
	timeout int
	stopped atomic.Bool
}

func (s *chanSource) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	s.timeout = cfg.Timeout
	return s.ch
}

func (s *chanSource) StopReceivingUpdates() {
	s.stopped.Store(true)
}

func TestPoller_HandlesUntilChannelCloses(t *testing.T) {
	src := &chanSource{ch: make(chan tgbotapi.Update, 3)}
	rec := &recordingHandler{}
	for i := 1; i <= 3; i++ {
		src.ch <- tgbotapi.Update{UpdateID: i}
	}
	close(src.ch)

	NewPoller(src, rec).Run(context.Background())

	assert.Equal(t, config.TelegramPollTimeout, src.timeout)
	assert.Equal(t, 3, rec.count())
	for i, u := range rec.updates {
		assert.Equal(t, i+1, u.UpdateID)
	}
	assert.False(t, src.stopped.Load())
}

func TestPoller_StopsOnCancel(t *testing.T) {
	src := &chanSource{ch: make(chan tgbotapi.Update)}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewPoller(src, &recordingHandler{}).Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
	assert.True(t, src.stopped.Load())
}
