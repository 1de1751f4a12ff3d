package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/issuetracker/tracker-bot-go/internal/audit"
	"github.com/issuetracker/tracker-bot-go/internal/conversation"
	"github.com/issuetracker/tracker-bot-go/internal/service"
)

const (
	textNoAction      = "No Action"
	textRateLimited   = "Забагато запитів. Спробуйте за хвилину."
	textSyncFailed    = "Не вдалося синхронізувати контекст."
	textExportFailed  = "Не вдалося експортувати записи."
	textSheetsOff     = "Інтеграцію з таблицями не налаштовано."
	textSyncDoneFmt   = "Контекст синхронізовано: пристроїв %d, повідомлень %d, видалено %d."
	textCacheStale    = "Меню оновиться із затримкою."
	textExportDoneFmt = "Експортовано записів: %d, вкладка %q."
)

// Conversation is the state machine behind the chat.
type Conversation interface {
	Start() conversation.Response
	Help() conversation.Response
	OnInitialCommand(ctx context.Context, action conversation.Action, user conversation.UserContext) conversation.Response
	OnButtonPress(ctx context.Context, payload string, user conversation.UserContext) conversation.Response
	OnFreeText(ctx context.Context, text string, user conversation.UserContext) conversation.Response
}

type ContextSyncer interface {
	Sync(ctx context.Context) (*service.SyncResult, error)
}

type ReportExporter interface {
	Export(ctx context.Context) (*service.ExportResult, error)
}

type RateLimiter interface {
	AllowUser(ctx context.Context, telegramID int64, perMinute int) bool
}

type Deduplicator interface {
	FirstSeen(ctx context.Context, updateID int) bool
}

type Options struct {
	// AuthorizedIDs may use the bot. Empty allows everyone.
	AuthorizedIDs []int64
	// AdminIDs may run /sync_context and /export_reports.
	AdminIDs []int64
	// Syncer and Exporter are nil when the spreadsheet integration is off.
	Syncer   ContextSyncer
	Exporter ReportExporter
	// Limiter and Dedup are optional.
	Limiter        RateLimiter
	UserRatePerMin int
	Dedup          Deduplicator
}

// Dispatcher turns Telegram updates into state machine calls and renders the
// responses.
type Dispatcher struct {
	bot        Sender
	conv       Conversation
	opts       Options
	authorized map[int64]struct{}
	admins     map[int64]struct{}
}

func NewDispatcher(bot Sender, conv Conversation, opts Options) *Dispatcher {
	return &Dispatcher{
		bot:        bot,
		conv:       conv,
		opts:       opts,
		authorized: idSet(opts.AuthorizedIDs),
		admins:     idSet(opts.AdminIDs),
	}
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// HandleUpdate processes one update to completion.
func (d *Dispatcher) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if d.opts.Dedup != nil && !d.opts.Dedup.FirstSeen(ctx, update.UpdateID) {
		log.Debug().Int("updateId", update.UpdateID).Msg("duplicate update ignored")
		return
	}

	switch {
	case update.CallbackQuery != nil:
		d.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		d.handleMessage(ctx, update.Message)
	default:
		log.Debug().Int("updateId", update.UpdateID).Msg("unsupported update type")
	}
}

func userContext(from *tgbotapi.User) conversation.UserContext {
	return conversation.UserContext{
		UserID:      from.ID,
		Username:    from.UserName,
		DisplayName: strings.TrimSpace(from.FirstName + " " + from.LastName),
	}
}

// admit applies authorization and rate limiting. It returns the text to reply
// with when the update must not reach the conversation.
func (d *Dispatcher) admit(ctx context.Context, from *tgbotapi.User) (string, bool) {
	if len(d.authorized) > 0 {
		if _, ok := d.authorized[from.ID]; !ok {
			audit.Log(ctx, audit.Event{
				Type:       audit.EventUnauthorizedAccess,
				Source:     audit.SourceTelegram,
				TelegramID: from.ID,
				Details:    map[string]interface{}{"username": from.UserName},
			})
			return textNoAction, false
		}
	}

	if d.opts.Limiter != nil && !d.opts.Limiter.AllowUser(ctx, from.ID, d.opts.UserRatePerMin) {
		audit.Log(ctx, audit.Event{
			Type:       audit.EventRateLimitExceed,
			Source:     audit.SourceTelegram,
			TelegramID: from.ID,
		})
		return textRateLimited, false
	}

	return "", true
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID

	if reply, ok := d.admit(ctx, msg.From); !ok {
		d.send(chatID, conversation.Response{Text: reply})
		return
	}

	user := userContext(msg.From)

	if msg.IsCommand() {
		d.send(chatID, d.command(ctx, msg.Command(), user))
		return
	}

	resp := d.conv.OnFreeText(ctx, msg.Text, user)
	if resp.Record != nil {
		// the confirmation replaces the typed text in the chat
		if _, err := d.bot.Request(tgbotapi.NewDeleteMessage(chatID, msg.MessageID)); err != nil {
			log.Warn().Err(err).Int64("chatId", chatID).Msg("failed to delete report message")
		}
	}
	d.send(chatID, resp)
}

func (d *Dispatcher) command(ctx context.Context, name string, user conversation.UserContext) conversation.Response {
	log.Debug().Int64("userId", user.UserID).Str("command", name).Msg("slash command")

	switch name {
	case "start":
		return d.conv.Start()
	case "sync_context":
		return d.adminCommand(ctx, user, name, d.syncContext)
	case "export_reports":
		return d.adminCommand(ctx, user, name, d.exportReports)
	}

	if action, ok := conversation.ParseAction(name); ok {
		return d.conv.OnInitialCommand(ctx, action, user)
	}
	return d.conv.Help()
}

func (d *Dispatcher) adminCommand(
	ctx context.Context,
	user conversation.UserContext,
	name string,
	run func(ctx context.Context) string,
) conversation.Response {
	if _, ok := d.admins[user.UserID]; !ok {
		audit.Log(ctx, audit.Event{
			Type:       audit.EventUnauthorizedAccess,
			Source:     audit.SourceTelegram,
			TelegramID: user.UserID,
			Details:    map[string]interface{}{"command": name},
		})
		return conversation.Response{Text: textNoAction}
	}
	return conversation.Response{Text: run(ctx)}
}

func (d *Dispatcher) syncContext(ctx context.Context) string {
	if d.opts.Syncer == nil {
		return textSheetsOff
	}
	result, err := d.opts.Syncer.Sync(ctx)
	audit.Log(ctx, audit.Event{
		Type:    audit.EventContextSync,
		Source:  audit.SourceTelegram,
		Details: map[string]interface{}{"success": err == nil},
	})
	if err != nil {
		log.Error().Err(err).Msg("context sync failed")
		return textSyncFailed
	}
	text := fmt.Sprintf(textSyncDoneFmt, result.Devices, result.Messages, result.DeletedMessages)
	if result.CacheStale {
		text += "\n" + textCacheStale
	}
	return text
}

func (d *Dispatcher) exportReports(ctx context.Context) string {
	if d.opts.Exporter == nil {
		return textSheetsOff
	}
	result, err := d.opts.Exporter.Export(ctx)
	audit.Log(ctx, audit.Event{
		Type:    audit.EventReportsExport,
		Source:  audit.SourceTelegram,
		Details: map[string]interface{}{"success": err == nil},
	})
	if err != nil {
		log.Error().Err(err).Msg("records export failed")
		return textExportFailed
	}
	return fmt.Sprintf(textExportDoneFmt, result.Records, result.Sheet)
}

func (d *Dispatcher) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil {
		return
	}

	if reply, ok := d.admit(ctx, cq.From); !ok {
		d.answer(cq.ID, reply)
		return
	}
	d.answer(cq.ID, "")

	resp := d.conv.OnButtonPress(ctx, cq.Data, userContext(cq.From))

	if cq.Message == nil {
		d.send(cq.From.ID, resp)
		return
	}
	d.edit(cq.Message.Chat.ID, cq.Message.MessageID, resp)
}

func (d *Dispatcher) answer(callbackID, text string) {
	if _, err := d.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Warn().Err(err).Msg("failed to answer callback query")
	}
}

func (d *Dispatcher) send(chatID int64, resp conversation.Response) {
	msg := tgbotapi.NewMessage(chatID, resp.Text)
	if resp.Keyboard != nil {
		msg.ReplyMarkup = InlineMarkup(resp.Keyboard)
	}
	if _, err := d.bot.Send(msg); err != nil {
		log.Error().Err(err).Int64("chatId", chatID).Msg("failed to send message")
	}
}

// edit replaces the menu message in place so the chat keeps a single menu.
func (d *Dispatcher) edit(chatID int64, messageID int, resp conversation.Response) {
	var c tgbotapi.Chattable
	if resp.Keyboard != nil {
		c = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, resp.Text, InlineMarkup(resp.Keyboard))
	} else {
		c = tgbotapi.NewEditMessageText(chatID, messageID, resp.Text)
	}
	if _, err := d.bot.Send(c); err != nil {
		log.Warn().Err(err).Int64("chatId", chatID).Msg("failed to edit message")
	}
}
