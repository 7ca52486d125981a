// Package bot wires the request intake, status workflow and post mirroring
// onto the Telegram runtime.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/m3rciful/requestbot/core/logger"
	"github.com/m3rciful/requestbot/core/metrics"
	coretelegram "github.com/m3rciful/requestbot/core/telegram"
	"github.com/m3rciful/requestbot/core/telegram/commands"
	"github.com/m3rciful/requestbot/core/telegram/router"
	"github.com/m3rciful/requestbot/core/telegram/state"
	"github.com/m3rciful/requestbot/core/telegram/ui"
	"github.com/m3rciful/requestbot/internal/config"
	"github.com/m3rciful/requestbot/internal/intake"
	"github.com/m3rciful/requestbot/internal/notify"
	"github.com/m3rciful/requestbot/internal/posts"
	"github.com/m3rciful/requestbot/internal/requests"

	tele "gopkg.in/telebot.v4"
)

// App owns the bot's long-lived components. It is built once at startup and
// driven through Start and Stop by the Telegram runtime.
type App struct {
	cfg *config.Config
	db  *sqlx.DB

	promReg   *prometheus.Registry
	metrics   *metrics.Metrics
	server    *metrics.Server
	sender    *TeleSender
	listener  *posts.Listener
	operators requests.Operators

	handlers *Handlers
	dispatch map[EventKind]tele.HandlerFunc
	registry *coretelegram.Registry
}

var _ ui.FallbackProvider = (*App)(nil)

// New assembles the application over an open database.
func New(cfg *config.Config, db *sqlx.DB) *App {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promReg)

	ops := requests.Operators{LeaderID: cfg.Operators.LeaderID, ManagerID: cfg.Operators.ManagerID}
	sender := &TeleSender{}
	svc := requests.NewService(requests.Options{
		Store:     requests.NewRepository(db),
		Operators: ops,
		Notifier:  notify.NewFanOut(sender, ops, m, cfg.Location()),
		Metrics:   m,
		Location:  cfg.Location(),
	})

	postStore := posts.NewRepository(db)
	listener := posts.NewListener(posts.ListenerOptions{
		Store:     postStore,
		Metrics:   m,
		QueueSize: cfg.Channel.QueueSize,
	})

	h := &Handlers{
		Dialogue: intake.New(intake.Options{
			Sessions:           state.NewMemoryManager(cfg.Dialogue.SessionTTL),
			Submitter:          svc,
			KeepOnStoreFailure: cfg.Dialogue.KeepOnStoreFailure,
		}),
		Requests:  svc,
		PostStore: postStore,
		Ingest:    listener,
		Channel:   cfg.Channel,
		Location:  cfg.Location(),
	}

	a := &App{
		cfg:       cfg,
		db:        db,
		promReg:   promReg,
		metrics:   m,
		sender:    sender,
		listener:  listener,
		operators: ops,
		handlers:  h,
	}
	if cfg.Metrics.Listen != "" {
		a.server = metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path, promReg)
	}
	a.dispatch = Dispatch(h)
	a.registry = Registry(h, ops)
	return a
}

// Dispatch maps every routable event to its handler.
func Dispatch(h *Handlers) map[EventKind]tele.HandlerFunc {
	return map[EventKind]tele.HandlerFunc{
		EventStart:         h.Start,
		EventHelp:          h.Help,
		EventNewRequest:    h.NewRequest,
		EventCancel:        h.Cancel,
		EventStats:         h.Stats,
		EventPosts:         h.Posts,
		EventDialogueInput: h.DialogueInput,
	}
}

// Registry declares the bot commands and callbacks.
func Registry(h *Handlers, ops requests.Operators) *coretelegram.Registry {
	reg := coretelegram.NewRegistry()
	reg.RegisterCommand(CmdStart, commands.Command{Handler: h.Start, Description: "Start working with the bot"})
	reg.RegisterCommand(CmdHelp, commands.Command{Handler: h.Help, Description: "Show help"})
	reg.RegisterCommand(CmdNew, commands.Command{Handler: h.NewRequest, Description: "Create a request"})
	reg.RegisterCommand(CmdCancel, commands.Command{Handler: h.Cancel, Description: "Cancel the current request"})
	reg.RegisterCommand(CmdStats, commands.Command{Handler: h.Stats, Description: "Request statistics"})
	reg.RegisterCommand(CmdPosts, commands.Command{Handler: h.Posts, Description: "Browse channel posts"})
	reg.RegisterCommand(CmdStatus, commands.Command{
		Handler:      h.StatusCommand,
		Description:  "Change request status",
		OperatorOnly: true,
	})
	_ = reg.RegisterCallback(CbStatus, h.StatusCallback)
	_ = reg.RegisterCallback(CbPostPage, h.PostsPage)
	reg.SetCallbackNotFound(h.UnknownCallback)
	return reg
}

// Resolve classifies a text message and returns its handler.
func (a *App) Resolve(c tele.Context) (string, tele.HandlerFunc, bool) {
	kind := Classify(c.Text(), a.handlers.Dialogue.Active(senderID(c)))
	h, ok := a.dispatch[kind]
	return kind.String(), h, ok
}

// UnknownText implements ui.FallbackProvider.
func (a *App) UnknownText() tele.HandlerFunc { return a.handlers.UnknownText }

// UnknownMedia implements ui.FallbackProvider.
func (a *App) UnknownMedia() tele.HandlerFunc { return a.handlers.UnknownMedia }

// UnknownCallback implements ui.FallbackProvider.
func (a *App) UnknownCallback() tele.HandlerFunc { return a.handlers.UnknownCallback }

// Sender returns the notification transport.
func (a *App) Sender() *TeleSender { return a.sender }

// TelegramRunOptions builds the runtime configuration for the bot.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	if a == nil || a.cfg == nil {
		return coretelegram.RunOptions{}, fmt.Errorf("bot: app is not initialized")
	}
	router.SetMetrics(a.metrics)

	textOpts, cbOpts := router.Fallbacks(a)
	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		IsOperator: a.operators.IsPrivileged,
		OnReject: func(c tele.Context) error {
			return reply(c, "❌ You are not allowed to change request status", nil)
		},
	})
	routes = append(routes, router.CallbackRoute(a.registry, cbOpts))
	routes = append(routes, router.TextRoutes(a, a.registry, textOpts)...)
	if a.cfg.Channel.Enabled() {
		routes = append(routes, router.HandlerRoute(tele.OnChannelPost, "channel_post", a.handlers.ChannelPost))
	}

	return coretelegram.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    a.registry,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg.CoreConfig(), a.metrics, a.handlers.Limited),
		Routes:      routes,
		OnStart:     a.Start,
		OnStop:      a.Stop,
	}, nil
}

// Start attaches the live bot and starts background loops.
func (a *App) Start(ctx context.Context, rt coretelegram.Runtime) error {
	a.sender.Attach(rt.Bot, rt.Dispatcher)
	if a.server != nil {
		if err := a.server.Start(); err != nil {
			return fmt.Errorf("bot: start metrics server: %w", err)
		}
	}
	if a.cfg.Channel.Enabled() {
		a.listener.Start(ctx)
	}
	logger.Info(ctx, "app", "start",
		slog.Bool("channel", a.cfg.Channel.Enabled()),
		slog.Bool("metrics", a.server != nil),
		slog.Int("operators", len(a.operators.Recipients())),
	)
	return nil
}

// Stop drains the ingest queue, stops the metrics server and closes the database.
func (a *App) Stop(ctx context.Context, _ coretelegram.Runtime) error {
	var errs []error
	if err := a.listener.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop metrics server: %w", err))
		}
	}
	a.sender.Attach(nil, nil)
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
