package model

import "time"

// User is a Telegram user who submitted at least one record.
type User struct {
	ID         int64     `db:"id" json:"id"`
	TelegramID int64     `db:"telegram_id" json:"telegramId"`
	Name       string    `db:"name" json:"name"`
	Role       Role      `db:"role" json:"role"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

type UpsertUserParams struct {
	TelegramID int64
	Name       string
	Role       Role
}
