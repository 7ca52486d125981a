// Package intake runs the per-user request intake conversation: name, contact,
// then task description, each validated before the next step.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/m3rciful/requestbot/core/logger"
	"github.com/m3rciful/requestbot/core/telegram/state"
	"github.com/m3rciful/requestbot/internal/requests"
	"github.com/m3rciful/requestbot/internal/validate"
)

// Dialogue steps.
const (
	StepIdle                = state.StateIdle
	StepAwaitingName        = state.State("awaiting_name")
	StepAwaitingContact     = state.State("awaiting_contact")
	StepAwaitingDescription = state.State("awaiting_description")
)

const (
	keyName    = "name"
	keyContact = "contact"
)

// ErrIdle is returned by Handle when the user has no active dialogue.
var ErrIdle = errors.New("intake: no active dialogue")

// Keyboard hints which reply keyboard the transport should show.
type Keyboard int

const (
	KeyboardNone Keyboard = iota
	KeyboardCancel
	KeyboardMain
)

// Reply is what the user should see next.
type Reply struct {
	Text     string
	Keyboard Keyboard
}

// Submitter persists a completed request.
type Submitter interface {
	Submit(ctx context.Context, in requests.NewRequest) (requests.Request, error)
}

// Options configures a Dialogue.
type Options struct {
	Sessions  state.Manager
	Submitter Submitter
	// KeepOnStoreFailure keeps the user on the description step when saving
	// fails, instead of discarding the dialogue.
	KeepOnStoreFailure bool
}

// Dialogue drives intake conversations for all users.
type Dialogue struct {
	sessions  state.Manager
	submitter Submitter
	keep      bool
	locks     sync.Map // int64 -> *sync.Mutex
}

// New returns a Dialogue.
func New(opts Options) *Dialogue {
	return &Dialogue{
		sessions:  opts.Sessions,
		submitter: opts.Submitter,
		keep:      opts.KeepOnStoreFailure,
	}
}

func (d *Dialogue) lock(userID int64) func() {
	v, _ := d.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Step returns the user's current step.
func (d *Dialogue) Step(userID int64) state.State {
	return d.sessions.GetState(userID)
}

// Active reports whether the user is in the middle of a dialogue.
func (d *Dialogue) Active(userID int64) bool {
	return d.sessions.InProgress(userID)
}

// Start begins a fresh dialogue, discarding any previous one.
func (d *Dialogue) Start(ctx context.Context, userID int64) Reply {
	defer d.lock(userID)()
	d.sessions.Clear(userID)
	d.sessions.SetState(userID, StepAwaitingName)
	logger.Info(ctx, logger.CompIntake, "start",
		slog.Int64("user_id", userID),
		slog.String("step", string(StepAwaitingName)),
	)
	return Reply{Text: "📋 New request\n\nPlease enter your name:", Keyboard: KeyboardCancel}
}

// Cancel discards the user's dialogue.
func (d *Dialogue) Cancel(ctx context.Context, userID int64) Reply {
	defer d.lock(userID)()
	step := d.sessions.GetState(userID)
	if step == StepIdle {
		return Reply{Text: "There is no active request to cancel.", Keyboard: KeyboardMain}
	}
	d.sessions.Clear(userID)
	logger.Info(ctx, logger.CompIntake, "cancel",
		slog.Int64("user_id", userID),
		slog.String("step", string(step)),
	)
	return Reply{Text: "❌ Request creation cancelled.", Keyboard: KeyboardMain}
}

// Handle feeds one message into the user's dialogue.
func (d *Dialogue) Handle(ctx context.Context, userID int64, text string) (Reply, error) {
	defer d.lock(userID)()

	switch step := d.sessions.GetState(userID); step {
	case StepAwaitingName:
		name, err := validate.Name(text)
		if err != nil {
			return d.invalid(ctx, userID, step, err, "Please enter your name again:"), nil
		}
		d.sessions.SetValue(userID, keyName, name)
		d.sessions.SetState(userID, StepAwaitingContact)
		d.advanced(ctx, userID, StepAwaitingContact)
		return Reply{
			Text:     fmt.Sprintf("✅ Name saved: %s\n\nNow enter a contact:\n(email, phone number or Telegram username)", name),
			Keyboard: KeyboardCancel,
		}, nil

	case StepAwaitingContact:
		contact, err := validate.Contact(text)
		if err != nil {
			return d.invalid(ctx, userID, step, err, "Please enter a contact again:"), nil
		}
		d.sessions.SetValue(userID, keyContact, contact)
		d.sessions.SetState(userID, StepAwaitingDescription)
		d.advanced(ctx, userID, StepAwaitingDescription)
		return Reply{
			Text:     fmt.Sprintf("✅ Contact saved: %s\n\nNow describe the task (at least %d characters):", contact, validate.DescriptionMin),
			Keyboard: KeyboardCancel,
		}, nil

	case StepAwaitingDescription:
		desc, err := validate.Description(text)
		if err != nil {
			return d.invalid(ctx, userID, step, err, "Please describe the task again:"), nil
		}
		return d.submit(ctx, userID, desc)

	default:
		return Reply{}, ErrIdle
	}
}

func (d *Dialogue) submit(ctx context.Context, userID int64, desc string) (Reply, error) {
	sess := d.sessions.Get(userID)
	in := requests.NewRequest{
		UserID:      userID,
		UserName:    sess.Value(keyName),
		Contact:     sess.Value(keyContact),
		Description: desc,
	}

	r, err := d.submitter.Submit(ctx, in)
	if err != nil {
		if d.keep {
			logger.Warn(ctx, logger.CompIntake, "submit",
				append(logger.ErrAttrs(err), slog.Int64("user_id", userID), slog.Bool("kept", true))...,
			)
			return Reply{
				Text:     "❌ Could not save your request. Please send the task description again in a moment.",
				Keyboard: KeyboardCancel,
			}, fmt.Errorf("submit request: %w", err)
		}
		d.sessions.Clear(userID)
		logger.Warn(ctx, logger.CompIntake, "submit",
			append(logger.ErrAttrs(err), slog.Int64("user_id", userID), slog.Bool("kept", false))...,
		)
		return Reply{
			Text:     "❌ Could not save your request. Please try again later.",
			Keyboard: KeyboardMain,
		}, fmt.Errorf("submit request: %w", err)
	}

	d.sessions.Clear(userID)
	logger.Info(ctx, logger.CompIntake, "complete",
		slog.Int64("user_id", userID),
		slog.Int64("request_id", r.ID),
	)
	return Reply{
		Text:     fmt.Sprintf("✅ Your request has been created and sent to our team!\n\nRequest number: #%d\nWe will contact you soon.", r.ID),
		Keyboard: KeyboardMain,
	}, nil
}

func (d *Dialogue) invalid(ctx context.Context, userID int64, step state.State, err error, prompt string) Reply {
	reason := err.Error()
	var verr *validate.Error
	if errors.As(err, &verr) {
		reason = verr.Reason
		logger.Debug(ctx, logger.CompIntake, "validate",
			slog.String("outcome", "invalid"),
			slog.Int64("user_id", userID),
			slog.String("step", string(step)),
			slog.String("field", string(verr.Field)),
			slog.String("err_code", verr.Code()),
		)
	}
	return Reply{Text: fmt.Sprintf("❌ %s\n\n%s", reason, prompt), Keyboard: KeyboardCancel}
}

func (d *Dialogue) advanced(ctx context.Context, userID int64, step state.State) {
	logger.Debug(ctx, logger.CompIntake, "advance",
		slog.Int64("user_id", userID),
		slog.String("step", string(step)),
	)
}
