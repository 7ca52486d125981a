package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/requestbot/core/config"
	"github.com/m3rciful/requestbot/core/metrics"
	"github.com/m3rciful/requestbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares builds the shared middleware chain for bots.
// m may be nil.
func DefaultMiddlewares(cfg *coreconfig.Config, m *metrics.Metrics, onLimited func(tele.Context) error) []Middleware {
	mws := []Middleware{
		{Name: "instrument", Use: middleware.Instrument(m)},
		{Name: "recover", Use: middleware.RecoverMiddleware},
	}

	if cfg != nil {
		interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
		if interval > 0 {
			ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
			for _, t := range cfg.RateLimit.ExcludeUpdates {
				ex[strings.ToLower(t)] = struct{}{}
			}
			// Channel posts have no human sender to throttle.
			ex[middleware.KindChannelPost] = struct{}{}
			opts := middleware.RateLimitOptions{
				Interval:  interval,
				Burst:     cfg.RateLimit.Burst,
				Exclude:   ex,
				Observe:   m.ObserveRateLimited,
				OnLimited: onLimited,
			}
			mws = append(mws, Middleware{
				Name: "rate_limit",
				Use:  middleware.RateLimitMiddleware(opts),
			})
		}
	}

	mws = append(mws,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "messages", Use: middleware.MessageMetricsMiddleware},
	)

	return mws
}
