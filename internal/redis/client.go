package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// UpdateKey marks a processed Telegram update.
func UpdateKey(updateID int) string {
	return "tg:update:" + strconv.Itoa(updateID)
}

// UserRateKey is the rate limiter bucket of a Telegram user.
func UserRateKey(telegramID int64) string {
	return "tg:user:" + strconv.FormatInt(telegramID, 10)
}
