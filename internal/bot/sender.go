package bot

import (
	"context"
	"errors"
	"sync/atomic"

	tgsender "github.com/m3rciful/requestbot/core/telegram/sender"
	"github.com/m3rciful/requestbot/internal/notify"

	tele "gopkg.in/telebot.v4"
)

// ErrBotNotReady is returned by TeleSender before the bot is attached.
var ErrBotNotReady = errors.New("bot: telegram client not ready")

// TeleSender delivers notifications through the running bot. The bot and
// dispatcher are attached in App.Start, after the runtime is built.
type TeleSender struct {
	bot  atomic.Pointer[tele.Bot]
	disp atomic.Pointer[tgsender.Dispatcher]
}

var _ notify.Sender = (*TeleSender)(nil)

// Attach wires the live bot and dispatcher. nil values detach.
func (s *TeleSender) Attach(b *tele.Bot, d *tgsender.Dispatcher) {
	s.bot.Store(b)
	s.disp.Store(d)
}

// Send delivers msg to recipient, adding status buttons when msg.RequestID is set.
func (s *TeleSender) Send(ctx context.Context, recipient int64, msg notify.Message) error {
	b := s.bot.Load()
	if b == nil {
		return ErrBotNotReady
	}
	opts := &tele.SendOptions{}
	if msg.RequestID != 0 {
		opts.ReplyMarkup = statusMarkup(msg.RequestID)
	}
	run := func() error {
		_, err := b.Send(tele.ChatID(recipient), msg.Text, opts)
		return err
	}
	if d := s.disp.Load(); d != nil {
		return d.Do(ctx, "notify", "sendMessage", run)
	}
	return run()
}
