package main

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/issuetracker/tracker-bot-go/internal/config"
	"github.com/issuetracker/tracker-bot-go/internal/telegram"
	"github.com/issuetracker/tracker-bot-go/internal/util"
)

// allowedUpdates are the update types the dispatcher handles.
var allowedUpdates = []string{"message", "callback_query"}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "setup",
		Short:        "Register the tracker bot with Telegram",
		SilenceUsage: true,
	}

	cmd.AddCommand(newSetWebhookCmd())
	cmd.AddCommand(newDeleteWebhookCmd())
	cmd.AddCommand(newWebhookInfoCmd())
	cmd.AddCommand(newCommandsCmd())
	cmd.AddCommand(newAdminTokenCmd())

	return cmd
}

func connect() (*tgbotapi.BotAPI, *config.SetupConfig, error) {
	cfg, err := config.LoadSetup()
	if err != nil {
		return nil, nil, err
	}
	bot, err := telegram.NewBot(cfg.TelegramToken)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to telegram: %w", err)
	}
	return bot, cfg, nil
}

func newSetWebhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-webhook",
		Short: "Point Telegram at the webhook endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			bot, cfg, err := connect()
			if err != nil {
				return err
			}

			url, _ := cmd.Flags().GetString("url")
			if strings.TrimSpace(url) == "" {
				url = cfg.WebhookURL
			}
			drop, _ := cmd.Flags().GetBool("drop-pending")

			params, err := webhookParams(url, cfg.WebhookSecret, drop)
			if err != nil {
				return err
			}
			if _, err := bot.MakeRequest("setWebhook", params); err != nil {
				return fmt.Errorf("setWebhook: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "webhook set to %s (secret token: %t)\n", url, cfg.WebhookSecret != "")
			return nil
		},
	}

	cmd.Flags().String("url", "", "Webhook URL (defaults to WEBHOOK_URL).")
	cmd.Flags().Bool("drop-pending", false, "Drop updates queued while no webhook was set.")
	return cmd
}

// webhookParams builds the setWebhook call. The secret token is sent by
// Telegram back in the X-Telegram-Bot-Api-Secret-Token header.
func webhookParams(url, secret string, dropPending bool) (tgbotapi.Params, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("missing webhook url (set via --url or WEBHOOK_URL)")
	}
	if !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("webhook url must use https: %q", url)
	}

	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	params.AddBool("drop_pending_updates", dropPending)
	if err := params.AddInterface("allowed_updates", allowedUpdates); err != nil {
		return nil, err
	}
	return params, nil
}

func newDeleteWebhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-webhook",
		Short: "Remove the webhook so the server can use long polling",
		RunE: func(cmd *cobra.Command, args []string) error {
			bot, _, err := connect()
			if err != nil {
				return err
			}
			drop, _ := cmd.Flags().GetBool("drop-pending")
			if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: drop}); err != nil {
				return fmt.Errorf("deleteWebhook: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "webhook deleted")
			return nil
		},
	}

	cmd.Flags().Bool("drop-pending", false, "Drop updates queued on the Telegram side.")
	return cmd
}

func newWebhookInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "webhook-info",
		Short: "Show the registered webhook and its last error",
		RunE: func(cmd *cobra.Command, args []string) error {
			bot, _, err := connect()
			if err != nil {
				return err
			}
			info, err := bot.GetWebhookInfo()
			if err != nil {
				return fmt.Errorf("getWebhookInfo: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "url: %s\n", info.URL)
			fmt.Fprintf(out, "pending updates: %d\n", info.PendingUpdateCount)
			if info.LastErrorMessage != "" {
				fmt.Fprintf(out, "last error: %s\n", info.LastErrorMessage)
			}
			return nil
		},
	}
}

func newCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "Register the slash command menu",
		RunE: func(cmd *cobra.Command, args []string) error {
			bot, _, err := connect()
			if err != nil {
				return err
			}
			if _, err := bot.Request(tgbotapi.NewSetMyCommands(telegram.Commands...)); err != nil {
				return fmt.Errorf("setMyCommands: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %d commands\n", len(telegram.Commands))
			return nil
		},
	}
}

func newAdminTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "admin-token [token]",
		Short: "Print a bcrypt hash for ADMIN_TOKEN_HASH, generating a token when none is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				generated, err := util.GenerateToken()
				if err != nil {
					return fmt.Errorf("generate token: %w", err)
				}
				token = generated
			}

			hash, err := util.HashPassword(token)
			if err != nil {
				return fmt.Errorf("hash token: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprintf(out, "token: %s\n", token)
			}
			fmt.Fprintf(out, "ADMIN_TOKEN_HASH=%s\n", hash)
			return nil
		},
	}
}
