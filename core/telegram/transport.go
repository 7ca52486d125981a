package telegram

import (
	"fmt"
	"net"
	"net/http"
	"time"

	coreconfig "github.com/m3rciful/requestbot/core/config"

	tele "gopkg.in/telebot.v4"
)

// AllowedUpdates are the update types the bot subscribes to: private
// messages, inline button presses and posts of the mirrored channel.
var AllowedUpdates = []string{"message", "callback_query", "channel_post"}

const defaultLongPollTimeout = 10 * time.Second

// BuildPoller returns a webhook when cfg selects webhook mode and a long
// poller otherwise. Both subscribe to AllowedUpdates only.
func BuildPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:         fmt.Sprintf("%s:%d", cfg.Webhook.Listen, cfg.Webhook.Port),
			Endpoint:       &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
			AllowedUpdates: AllowedUpdates,
			DropUpdates:    cfg.Telegram.DropPendingUpdates,
		}
	}
	return &tele.LongPoller{
		Timeout:        longPollTimeout(cfg),
		AllowedUpdates: AllowedUpdates,
	}
}

func longPollTimeout(cfg *coreconfig.Config) time.Duration {
	if s := cfg.Telegram.LongPollTimeoutSeconds; s > 0 {
		return time.Duration(s) * time.Second
	}
	return defaultLongPollTimeout
}

// BuildHTTPClient returns the Bot API client. Its overall timeout leaves room
// for a full long-poll cycle; dial and header timeouts fail fast otherwise.
func BuildHTTPClient(pollTimeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: pollTimeout + 20*time.Second,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConnsPerHost:   8,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: pollTimeout + 10*time.Second,
		},
	}
}
