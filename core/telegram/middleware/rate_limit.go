package middleware

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/m3rciful/requestbot/core/logger"
	tghelpers "github.com/m3rciful/requestbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Update kinds used by rate limit exclusions and metrics.
const (
	KindCallback    = "callback"
	KindMessage     = "message"
	KindChannelPost = "channel_post"
	KindOther       = "other"
)

// UpdateKind classifies an update for exclusions and metric labels.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return KindCallback
	case upd.Message != nil:
		return KindMessage
	case upd.ChannelPost != nil:
		return KindChannelPost
	}
	return KindOther
}

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Interval  time.Duration
	Burst     int
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	// Observe is called for every dropped update.
	Observe func()
}

// RateLimitMiddleware returns a middleware that admits one update per Interval
// per user with bursts of up to Burst.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	var limiters sync.Map // int64 -> *rate.Limiter

	limiterFor := func(userID int64) *rate.Limiter {
		if v, ok := limiters.Load(userID); ok {
			return v.(*rate.Limiter)
		}
		v, _ := limiters.LoadOrStore(userID, rate.NewLimiter(rate.Every(opts.Interval), burst))
		return v.(*rate.Limiter)
	}

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			if _, skip := opts.Exclude[UpdateKind(c.Update())]; skip {
				return next(c)
			}

			if limiterFor(user.ID).Allow() {
				return next(c)
			}

			attrs := []slog.Attr{slog.Int64("user_id", user.ID)}
			if chat := c.Chat(); chat != nil {
				attrs = append(attrs, slog.Int64("chat_id", chat.ID))
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit", attrs...)
			if opts.Observe != nil {
				opts.Observe()
			}
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
