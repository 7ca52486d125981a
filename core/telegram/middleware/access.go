package middleware

import tele "gopkg.in/telebot.v4"

// AccessOptions defines how operator-only checks behave.
type AccessOptions struct {
	// Allow reports whether the sender may run restricted handlers.
	Allow    func(userID int64) bool
	OnReject tele.HandlerFunc
}

func (o AccessOptions) allowed(c tele.Context) bool {
	if o.Allow == nil {
		return false
	}
	sender := c.Sender()
	return sender != nil && o.Allow(sender.ID)
}

// WithAccessCheck wraps h so that it runs only for allowed senders when restricted is set.
func WithAccessCheck(opts AccessOptions, restricted bool, h tele.HandlerFunc) tele.HandlerFunc {
	if !restricted {
		return h
	}
	return RestrictedMiddleware(opts)(h)
}

// RestrictedMiddleware ensures that only allowed senders can invoke downstream handlers.
func RestrictedMiddleware(opts AccessOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if !opts.allowed(c) {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
