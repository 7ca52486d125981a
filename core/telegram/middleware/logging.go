package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/m3rciful/requestbot/core/logger"
	"github.com/m3rciful/requestbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/requestbot/core/telegram/helpers"

	"github.com/patrickmn/go-cache"
	tele "gopkg.in/telebot.v4"
)

// seenUpdates remembers recently logged update ids so an update routed
// through more than one middleware chain is logged once.
var seenUpdates = cache.New(10*time.Second, time.Minute)

func firstSighting(updateID int) bool {
	return seenUpdates.Add(strconv.Itoa(updateID), struct{}{}, cache.DefaultExpiration) == nil
}

// LoggerMiddleware seeds the update's logging context and writes a sampled
// debug line describing what arrived.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		upd := c.Update()
		if logger.SampleUpdate() && firstSighting(upd.ID) {
			logger.Debug(ctx, logger.CompTG, "update.received", receiptAttrs(c, upd)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context, upd tele.Update) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("kind", UpdateKind(upd)),
	}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if u := c.Sender(); u != nil {
		if u.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
		}
		if u.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", u.LanguageCode))
		}
	}
	switch {
	case upd.Callback != nil:
		key, payload := callbacks.Split(upd.Callback)
		attrs = append(attrs,
			slog.String("cb_key", logger.SanitizeLimit(key, 128)),
			slog.String("payload", logger.SanitizeLimit(payload, 256)),
		)
	case upd.ChannelPost != nil:
		attrs = append(attrs, slog.Int("message_id", upd.ChannelPost.ID))
	case upd.Message != nil:
		attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(c.Text(), 256)))
	}
	return attrs
}
