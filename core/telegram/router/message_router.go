package router

import (
	"time"

	tg "github.com/m3rciful/requestbot/core/telegram"
	"github.com/m3rciful/requestbot/core/telegram/middleware"
	"github.com/m3rciful/requestbot/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

// Resolver selects a named handler for an incoming text message.
type Resolver interface {
	Resolve(c tele.Context) (name string, h tele.HandlerFunc, ok bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(c tele.Context) (string, tele.HandlerFunc, bool)

// Resolve calls f.
func (f ResolverFunc) Resolve(c tele.Context) (string, tele.HandlerFunc, bool) { return f(c) }

// TextOptions controls fallback behaviour for text and media updates.
type TextOptions struct {
	UnknownText  tele.HandlerFunc
	UnknownMedia tele.HandlerFunc
}

// TextRoutes builds handlers for text messages and unexpected media.
// The resolver is consulted first, then registry commands, then UnknownText.
func TextRoutes(res Resolver, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()

		if res != nil {
			if name, h, ok := res.Resolve(c); ok && h != nil {
				return handleWithSummary(c, normalizeHandlerName(name), start, "", "", func() error {
					return h(c)
				})
			}
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil {
				return handleWithSummary(c, normalizeHandlerName(key), start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	mediaHandler := func(c tele.Context) error {
		start := time.Now()
		if opts.UnknownMedia != nil {
			return handleWithSummary(c, "unexpected_media", start, "", "", func() error {
				return opts.UnknownMedia(c)
			})
		}
		logHandlerSummary(c, "unexpected_media", start, "skip", "ok", nil)
		return nil
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(handler)},
		{Endpoint: tele.OnDocument, Handler: wrap(mediaHandler)},
		{Endpoint: tele.OnPhoto, Handler: wrap(mediaHandler)},
		{Endpoint: tele.OnVoice, Handler: wrap(mediaHandler)},
		{Endpoint: tele.OnSticker, Handler: wrap(mediaHandler)},
	}
}

// HandlerRoute binds h to endpoint with the per-handler summary log. A panic
// in h is reported in the summary as a failure.
func HandlerRoute(endpoint any, name string, h tele.HandlerFunc) tg.Route {
	wrapped := summarized(normalizeHandlerName(name), middleware.RecoverMiddleware(h))
	return tg.Route{
		Endpoint: endpoint,
		Handler:  middleware.LoggerMiddleware(wrapped),
	}
}

// Fallbacks builds text and callback fallback options from p.
func Fallbacks(p ui.FallbackProvider) (TextOptions, CallbackOptions) {
	if p == nil {
		return TextOptions{}, CallbackOptions{}
	}
	return TextOptions{UnknownText: p.UnknownText(), UnknownMedia: p.UnknownMedia()},
		CallbackOptions{NotFound: p.UnknownCallback()}
}
