package telegram

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/requestbot/core/config"
)

func TestBuildPollerWebhook(t *testing.T) {
	cfg := &coreconfig.Config{
		Telegram: coreconfig.TelegramConfig{RunMode: coreconfig.RunModeWebhook, DropPendingUpdates: true},
		Webhook:  coreconfig.WebhookConfig{Listen: "0.0.0.0", Port: 8443, URL: "https://example.com/hook"},
	}
	wh, ok := BuildPoller(cfg).(*tele.Webhook)
	require.True(t, ok)
	assert.Equal(t, "0.0.0.0:8443", wh.Listen)
	assert.Equal(t, "https://example.com/hook", wh.Endpoint.PublicURL)
	assert.True(t, wh.DropUpdates)
	assert.Contains(t, wh.AllowedUpdates, "channel_post")
}

func TestBuildPollerLongPoll(t *testing.T) {
	cfg := &coreconfig.Config{Telegram: coreconfig.TelegramConfig{RunMode: coreconfig.RunModeLongpoll}}
	lp, ok := BuildPoller(cfg).(*tele.LongPoller)
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, lp.Timeout)
	assert.Equal(t, []string{"message", "callback_query", "channel_post"}, lp.AllowedUpdates)

	cfg.Telegram.LongPollTimeoutSeconds = 25
	lp = BuildPoller(cfg).(*tele.LongPoller)
	assert.Equal(t, 25*time.Second, lp.Timeout)
}

func TestBuildHTTPClientOutlastsLongPoll(t *testing.T) {
	c := BuildHTTPClient(25 * time.Second)
	assert.Greater(t, c.Timeout, 25*time.Second)
	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Greater(t, tr.ResponseHeaderTimeout, 25*time.Second)
}

func TestDefaultMiddlewares(t *testing.T) {
	names := func(mws []Middleware) []string {
		out := make([]string, 0, len(mws))
		for _, mw := range mws {
			out = append(out, mw.Name)
		}
		return out
	}

	assert.Equal(t, []string{"instrument", "recover", "logger", "messages"}, names(DefaultMiddlewares(nil, nil, nil)))

	cfg := &coreconfig.Config{RateLimit: coreconfig.RateLimitConfig{IntervalMS: 500, Burst: 2}}
	assert.Equal(t, []string{"instrument", "recover", "rate_limit", "logger", "messages"}, names(DefaultMiddlewares(cfg, nil, nil)))
}

func TestRunTelegramRequiresConfig(t *testing.T) {
	assert.Error(t, RunTelegram(t.Context(), RunOptions{}))
}
