package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/requestbot/core/config"
	"github.com/m3rciful/requestbot/core/logger"
	tghelpers "github.com/m3rciful/requestbot/core/telegram/helpers"
	tgsender "github.com/m3rciful/requestbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware is a named global middleware installed with bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route binds a handler to a telebot endpoint (command, tele.On* constant or button).
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions configures RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry
	Sender   tgsender.Options

	Middlewares []Middleware
	Routes      []Route

	// OnStart runs after routes are installed and before updates flow.
	OnStart func(ctx context.Context, rt Runtime) error
	// OnStop runs after the poller has stopped, with its own deadline.
	OnStop func(ctx context.Context, rt Runtime) error
}

// Runtime is what lifecycle hooks get to work with.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

const stopTimeout = 10 * time.Second

// RunTelegram builds the bot, serves updates until ctx is done and then
// runs the stop hook. A cancelled ctx is a clean exit.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if opts.Config == nil {
		return errors.New("telegram: nil config provided")
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}

	bot, err := newBot(ctx, opts.Config)
	if err != nil {
		return err
	}
	rt := Runtime{Bot: bot, Dispatcher: tgsender.NewDispatcher(opts.Sender), Registry: opts.Registry}
	tghelpers.SetDispatcher(rt.Dispatcher)
	defer func() {
		tghelpers.SetDispatcher(nil)
		rt.Dispatcher.Close()
	}()

	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, r := range opts.Routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
	InitBotCommands(bot, opts.Registry)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		bot.Start()
	}()
	select {
	case <-ctx.Done():
		bot.Stop()
		<-stopped
	case <-stopped:
	}

	if opts.OnStop == nil {
		return nil
	}
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	return opts.OnStop(stopCtx, rt)
}

// newBot creates the telebot client for cfg and, in long-poll mode, clears
// any webhook left over from an earlier deployment.
func newBot(ctx context.Context, cfg *coreconfig.Config) (*tele.Bot, error) {
	poller := BuildPoller(cfg)
	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: poller,
		Client: BuildHTTPClient(longPollTimeout(cfg)),
		OnError: func(err error, c tele.Context) {
			attrs := logger.ErrAttrs(err)
			if c != nil {
				attrs = append(attrs, slog.Int("update_id", c.Update().ID))
			}
			logger.Error(ctx, logger.CompTG, "tg.error", attrs...)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}

	attrs := []slog.Attr{
		slog.String("mode", cfg.Telegram.RunMode),
		slog.Duration("duration", logger.Took(start)),
	}
	if wh, ok := poller.(*tele.Webhook); ok {
		logger.Info(ctx, logger.CompTG, "mode", append(attrs,
			slog.String("listen", wh.Listen),
			slog.String("public_url", wh.Endpoint.PublicURL),
		)...)
		return bot, nil
	}
	logger.Info(ctx, logger.CompTG, "mode", append(attrs,
		slog.Duration("timeout", longPollTimeout(cfg)),
	)...)

	drop := cfg.Telegram.DropPendingUpdates
	if err := bot.RemoveWebhook(drop); err != nil {
		logger.Warn(ctx, logger.CompTG, "delete_webhook", append(logger.ErrAttrs(err),
			slog.String("status", "fail"))...)
	} else {
		logger.Info(ctx, logger.CompTG, "delete_webhook",
			slog.String("status", "ok"),
			slog.Bool("drop_pending", drop),
		)
	}
	return bot, nil
}
