package router

import (
	"context"
	"log/slog"

	"github.com/m3rciful/requestbot/core/logger"
	tg "github.com/m3rciful/requestbot/core/telegram"
	"github.com/m3rciful/requestbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	// IsOperator gates commands marked OperatorOnly.
	IsOperator func(userID int64) bool
	OnReject   tele.HandlerFunc
}

// CommandRoutes prepares command handlers wrapped with shared middleware and
// the per-handler summary log.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	access := middleware.AccessOptions{
		Allow:    opts.IsOperator,
		OnReject: opts.OnReject,
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		name := normalizeHandlerName(cmd)
		inner := middleware.WithAccessCheck(access, def.OperatorOnly, def.Handler)
		h := summarized(name, inner)
		h = middleware.RecoverMiddleware(h)
		h = middleware.LoggerMiddleware(h)
		routes = append(routes, tg.Route{
			Endpoint: cmd,
			Handler:  h,
		})
	}

	logger.Info(context.Background(), "tg.wire", "complete",
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)

	return routes
}
