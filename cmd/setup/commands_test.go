package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/issuetracker/tracker-bot-go/internal/util"
)

func TestWebhookParams(t *testing.T) {
	t.Run("full", func(t *testing.T) {
		params, err := webhookParams(" https://bot.example.com/telegram/webhook ", "s3cret", true)
		require.NoError(t, err)

		assert.Equal(t, "https://bot.example.com/telegram/webhook", params["url"])
		assert.Equal(t, "s3cret", params["secret_token"])
		assert.Equal(t, "true", params["drop_pending_updates"])
		assert.Equal(t, `["message","callback_query"]`, params["allowed_updates"])
	})

	t.Run("without secret", func(t *testing.T) {
		params, err := webhookParams("https://bot.example.com/telegram/webhook", "", false)
		require.NoError(t, err)

		_, hasSecret := params["secret_token"]
		assert.False(t, hasSecret)
		_, hasDrop := params["drop_pending_updates"]
		assert.False(t, hasDrop)
	})

	t.Run("missing url", func(t *testing.T) {
		_, err := webhookParams("  ", "", false)
		assert.Error(t, err)
	})

	t.Run("plain http", func(t *testing.T) {
		_, err := webhookParams("http://bot.example.com/telegram/webhook", "", false)
		assert.Error(t, err)
	})
}

func TestAdminTokenCmd(t *testing.T) {
	t.Run("hashes the given token", func(t *testing.T) {
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"admin-token", "my-token"})

		require.NoError(t, cmd.Execute())

		line := strings.TrimSpace(out.String())
		require.True(t, strings.HasPrefix(line, "ADMIN_TOKEN_HASH="))
		assert.True(t, util.CheckPasswordHash("my-token", strings.TrimPrefix(line, "ADMIN_TOKEN_HASH=")))
	})

	t.Run("generates a token", func(t *testing.T) {
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"admin-token"})

		require.NoError(t, cmd.Execute())

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 2)
		token := strings.TrimPrefix(lines[0], "token: ")
		hash := strings.TrimPrefix(lines[1], "ADMIN_TOKEN_HASH=")
		assert.Len(t, token, 64)
		assert.True(t, util.CheckPasswordHash(token, hash))
	})
}

func TestRootCmd_Subcommands(t *testing.T) {
	var names []string
	for _, c := range newRootCmd().Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"set-webhook", "delete-webhook", "webhook-info", "commands", "admin-token"} {
		assert.Contains(t, names, want)
	}
}
