package telegram

import (
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/issuetracker/tracker-bot-go/internal/config"
	"github.com/issuetracker/tracker-bot-go/internal/conversation"
)

// Sender is the part of *tgbotapi.BotAPI used to talk back to users.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

var _ Sender = (*tgbotapi.BotAPI)(nil)

// NewBot connects to the Bot API and checks the token with getMe.
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	// getUpdates holds the request open for the poll timeout.
	client := &http.Client{
		Timeout: config.TelegramRequestTimeout + time.Duration(config.TelegramPollTimeout)*time.Second,
	}
	return tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
}

// Commands is the bot command menu registered with setMyCommands.
var Commands = []tgbotapi.BotCommand{
	{Command: "start", Description: "Меню дій"},
	{Command: "problem", Description: "Повідомити про проблему"},
	{Command: "solution", Description: "Повідомити про рішення"},
	{Command: "status", Description: "Історія записів пристрою"},
	{Command: "open_problems", Description: "Пристрої з відкритою проблемою"},
	{Command: "sync_context", Description: "Синхронізувати контекст з таблиці"},
	{Command: "export_reports", Description: "Експортувати записи в таблицю"},
	{Command: "help", Description: "Довідка"},
}

// InlineMarkup converts a menu into a Telegram inline keyboard.
func InlineMarkup(k *conversation.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(k.Rows))
	for _, row := range k.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
