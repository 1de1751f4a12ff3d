package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	rediskeys "github.com/issuetracker/tracker-bot-go/internal/redis"
)

// UpdateDeduplicator suppresses Telegram updates delivered more than once,
// which happens when a webhook response is slow or lost.
type UpdateDeduplicator struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewUpdateDeduplicator(client redis.Cmdable, ttl time.Duration) *UpdateDeduplicator {
	return &UpdateDeduplicator{client: client, ttl: ttl}
}

// FirstSeen reports whether updateID is new. When Redis is unreachable every
// update counts as new.
func (d *UpdateDeduplicator) FirstSeen(ctx context.Context, updateID int) bool {
	ok, err := d.client.SetNX(ctx, rediskeys.UpdateKey(updateID), 1, d.ttl).Result()
	if err != nil {
		log.Warn().Err(err).Int("updateId", updateID).Msg("update dedupe check failed")
		return true
	}
	return ok
}
