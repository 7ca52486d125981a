package helpers

import (
	"context"

	"github.com/m3rciful/requestbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const ctxKey = "log_ctx"

// BuildContext returns the logging context of the update behind c, creating
// and caching it on first use.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := c.Get(ctxKey).(context.Context); ok {
		return ctx
	}
	ctx := logger.WithMeta(context.Background(), MetaOf(c))
	c.Set(ctxKey, ctx)
	return ctx
}

// MetaOf describes the update behind c. Channel posts carry no sender, so
// only the chat identifies them.
func MetaOf(c tele.Context) logger.Meta {
	m := logger.Meta{UpdateID: c.Update().ID}
	if chat := c.Chat(); chat != nil {
		m.ChatID = chat.ID
	}
	if u := c.Sender(); u != nil {
		m.UserID = u.ID
	}
	m.RID = logger.BuildRID(m.UpdateID, m.ChatID, m.UserID)
	return m
}

// WithHandler names the handler serving c in its logging context.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := logger.WithHandler(BuildContext(c), handler)
	c.Set(ctxKey, ctx)
	return ctx
}
