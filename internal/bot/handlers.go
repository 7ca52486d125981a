package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/requestbot/core/logger"
	"github.com/m3rciful/requestbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/requestbot/core/telegram/helpers"
	"github.com/m3rciful/requestbot/internal/config"
	"github.com/m3rciful/requestbot/internal/intake"
	"github.com/m3rciful/requestbot/internal/posts"
	"github.com/m3rciful/requestbot/internal/requests"

	tele "gopkg.in/telebot.v4"
)

// RequestService is the part of requests.Service the handlers use.
type RequestService interface {
	ChangeStatus(ctx context.Context, id int64, token string, requester int64) (requests.Change, error)
	Statistics(ctx context.Context, requester int64) (requests.Statistics, error)
}

// Ingestor accepts channel messages for mirroring.
type Ingestor interface {
	Offer(ctx context.Context, in posts.Inbound) error
}

// Handlers holds the Telegram handlers of the bot.
type Handlers struct {
	Dialogue  *intake.Dialogue
	Requests  RequestService
	PostStore posts.Store
	Ingest    Ingestor
	Channel   config.ChannelConfig
	Location  *time.Location
}

const (
	welcomeText = "👋 Welcome!\n\n" +
		"I collect service requests and show news from our team channel.\n\n" +
		"Available:\n" +
		"• 📋 Create a request\n" +
		"• 📰 Browse channel posts\n" +
		"• 📊 Request statistics\n\n" +
		"Use the buttons below or /help."
	helpText = "📖 Help\n\n" +
		"Commands:\n" +
		"/start - Start working with the bot\n" +
		"/help - Show this help\n" +
		"/new - Create a request\n" +
		"/cancel - Cancel the current request\n" +
		"/posts - Browse channel posts\n" +
		"/stats - Request statistics\n\n" +
		"To create a request you will be asked for:\n" +
		"• Your name\n" +
		"• A contact (email, phone or Telegram username)\n" +
		"• A task description"
	unknownText   = "I did not understand that. Use the menu below or /help."
	mediaText     = "Please send text messages only."
	limitedText   = "⏳ Too many requests, please slow down."
	statsFailText = "❌ Could not load statistics. Please try again later."
	postsFailText = "❌ Could not load posts. Please try again later."
	statusUsage   = "Usage: /status <request id> <new|in_progress|completed>"
)

func reply(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	return tghelpers.Reply(c, text, markup)
}

func senderID(c tele.Context) int64 {
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return 0
}

// commandArgs returns the words after a leading /command.
func commandArgs(c tele.Context) []string {
	fields := strings.Fields(c.Text())
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return nil
	}
	return fields[1:]
}

// Start greets the user.
func (h *Handlers) Start(c tele.Context) error {
	return reply(c, welcomeText, mainMenu())
}

// Help shows the command list.
func (h *Handlers) Help(c tele.Context) error {
	return reply(c, helpText, mainMenu())
}

// NewRequest starts the intake dialogue.
func (h *Handlers) NewRequest(c tele.Context) error {
	r := h.Dialogue.Start(tghelpers.BuildContext(c), senderID(c))
	return reply(c, r.Text, markupFor(r.Keyboard))
}

// Cancel aborts the intake dialogue.
func (h *Handlers) Cancel(c tele.Context) error {
	r := h.Dialogue.Cancel(tghelpers.BuildContext(c), senderID(c))
	return reply(c, r.Text, markupFor(r.Keyboard))
}

// DialogueInput feeds text into the user's dialogue.
func (h *Handlers) DialogueInput(c tele.Context) error {
	r, err := h.Dialogue.Handle(tghelpers.BuildContext(c), senderID(c), c.Text())
	if errors.Is(err, intake.ErrIdle) {
		return h.UnknownText(c)
	}
	if sendErr := reply(c, r.Text, markupFor(r.Keyboard)); sendErr != nil && err == nil {
		err = sendErr
	}
	return err
}

// Stats shows request statistics for the sender.
func (h *Handlers) Stats(c tele.Context) error {
	st, err := h.Requests.Statistics(tghelpers.BuildContext(c), senderID(c))
	if err != nil {
		_ = reply(c, statsFailText, mainMenu())
		return err
	}
	return reply(c, renderStatistics(st), mainMenu())
}

func renderStatistics(st requests.Statistics) string {
	var b strings.Builder
	if st.Scope == requests.ScopeAll {
		fmt.Fprintf(&b, "📊 Request statistics\n\n📈 Total requests: %d\n\n", st.Total)
	} else {
		fmt.Fprintf(&b, "📊 Your request statistics\n\n📈 Your requests: %d\n\n", st.Total)
	}
	fmt.Fprintf(&b, "📅 Today: %d\n📅 This week: %d\n📅 This month: %d", st.Today, st.Week, st.Month)
	if st.Scope == requests.ScopeAll {
		fmt.Fprintf(&b, "\n\n📋 By status:\n🆕 New: %d\n⚙️ In progress: %d\n✅ Completed: %d",
			st.ByStatus[requests.StatusNew],
			st.ByStatus[requests.StatusInProgress],
			st.ByStatus[requests.StatusCompleted],
		)
	}
	return b.String()
}

// Posts lists mirrored posts; "/posts 2" opens the second page.
func (h *Handlers) Posts(c tele.Context) error {
	page := 0
	if args := commandArgs(c); len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			page = n - 1
		}
	}
	p, err := posts.LoadPage(tghelpers.BuildContext(c), h.PostStore, page)
	if err != nil {
		_ = reply(c, postsFailText, nil)
		return err
	}
	if p.Total == 0 {
		return reply(c, p.Render(h.Location), nil)
	}
	return reply(c, p.Render(h.Location), postsMarkup(p))
}

// PostsPage turns the posts listing to the page in the callback payload.
func (h *Handlers) PostsPage(c tele.Context) error {
	n, err := callbacks.PayloadInt(c)
	if err != nil {
		_ = c.Respond(&tele.CallbackResponse{Text: "❌ Unknown page"})
		return nil
	}
	p, err := posts.LoadPage(tghelpers.BuildContext(c), h.PostStore, n)
	if err != nil {
		_ = c.Respond(&tele.CallbackResponse{Text: postsFailText, ShowAlert: true})
		return err
	}
	_ = c.Respond()
	var markup *tele.ReplyMarkup
	if p.Total > 0 {
		markup = postsMarkup(p)
	}
	return c.EditOrSend(p.Render(h.Location), &tele.SendOptions{ReplyMarkup: markup})
}

// StatusCallback applies a status button pressed by an operator.
func (h *Handlers) StatusCallback(c tele.Context) error {
	id, token, err := callbacks.PayloadIDToken(c)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Unknown status", ShowAlert: true})
	}
	text, err := h.changeStatus(c, id, token)
	if respErr := c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: true}); respErr != nil && err == nil {
		err = respErr
	}
	return err
}

// StatusCommand handles "/status <id> <status>".
func (h *Handlers) StatusCommand(c tele.Context) error {
	args := commandArgs(c)
	if len(args) != 2 {
		return reply(c, statusUsage, nil)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return reply(c, statusUsage, nil)
	}
	text, err := h.changeStatus(c, id, args[1])
	if sendErr := reply(c, text, nil); sendErr != nil && err == nil {
		err = sendErr
	}
	return err
}

// changeStatus runs the workflow and returns the text for the operator.
// Only storage failures are returned as errors.
func (h *Handlers) changeStatus(c tele.Context, id int64, token string) (string, error) {
	ch, err := h.Requests.ChangeStatus(tghelpers.BuildContext(c), id, token, senderID(c))
	switch {
	case err == nil:
		return fmt.Sprintf("✅ Request #%d status changed to: %s", id, ch.To.Label()), nil
	case errors.Is(err, requests.ErrUnauthorized):
		return "❌ You are not allowed to change request status", nil
	case errors.Is(err, requests.ErrInvalidStatus):
		return "❌ Unknown status", nil
	case errors.Is(err, requests.ErrNotFound):
		return "❌ Request not found", nil
	}
	return "❌ Could not update the request. Please try again later.", err
}

// ChannelPost hands a post from the monitored channel to the ingest queue.
func (h *Handlers) ChannelPost(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Chat == nil || h.Ingest == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	if !h.Channel.Matches(msg.Chat.ID, msg.Chat.Username) {
		logger.Debug(ctx, logger.CompIngest, "skip",
			slog.Int64("chat_id", msg.Chat.ID),
			slog.String("reason", "foreign_channel"),
		)
		return nil
	}
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	in := posts.Inbound{
		ChannelID:   strconv.FormatInt(msg.Chat.ID, 10),
		MessageID:   int64(msg.ID),
		Text:        text,
		PublishedAt: msg.Time(),
	}
	if err := h.Ingest.Offer(ctx, in); err != nil {
		return fmt.Errorf("offer channel post: %w", err)
	}
	return nil
}

// UnknownText answers text the bot could not route.
func (h *Handlers) UnknownText(c tele.Context) error {
	return reply(c, unknownText, mainMenu())
}

// UnknownMedia answers non-text messages.
func (h *Handlers) UnknownMedia(c tele.Context) error {
	return reply(c, mediaText, nil)
}

// UnknownCallback answers stale or foreign buttons.
func (h *Handlers) UnknownCallback(c tele.Context) error {
	return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
}

// Limited tells a throttled user to slow down.
func (h *Handlers) Limited(c tele.Context) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: limitedText})
	}
	return reply(c, limitedText, nil)
}
