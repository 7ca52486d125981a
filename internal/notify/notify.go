// Package notify tells operators about new requests and tells submitters
// about status changes. Every send is best-effort with its own failure boundary.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/requestbot/core/logger"
	"github.com/m3rciful/requestbot/core/metrics"
	"github.com/m3rciful/requestbot/internal/requests"
)

// Notification kinds used in logs and metrics.
const (
	KindRequestCreated = "request_created"
	KindStatusChanged  = "status_changed"
)

// TimeLayout formats request timestamps in messages.
const TimeLayout = "02.01.2006 15:04"

// Message is one outbound notification.
type Message struct {
	Text string
	// RequestID, when non-zero, asks the transport to attach operator
	// status controls for that request.
	RequestID int64
}

// Sender delivers a message to a Telegram user.
type Sender interface {
	Send(ctx context.Context, recipient int64, msg Message) error
}

// FanOut implements requests.Notifier.
type FanOut struct {
	sender    Sender
	operators requests.Operators
	metrics   *metrics.Metrics
	loc       *time.Location
}

var _ requests.Notifier = (*FanOut)(nil)

// NewFanOut returns a FanOut. m may be nil; a nil loc renders times in UTC.
func NewFanOut(sender Sender, operators requests.Operators, m *metrics.Metrics, loc *time.Location) *FanOut {
	if loc == nil {
		loc = time.UTC
	}
	return &FanOut{sender: sender, operators: operators, metrics: m, loc: loc}
}

// RequestCreated sends the request card to every configured operator.
func (f *FanOut) RequestCreated(ctx context.Context, r requests.Request) {
	msg := Message{Text: CreatedText(r, f.loc), RequestID: r.ID}
	for _, id := range f.operators.Recipients() {
		f.send(ctx, KindRequestCreated, id, r.ID, msg)
	}
}

// StatusChanged tells the submitter about a status transition.
func (f *FanOut) StatusChanged(ctx context.Context, r requests.Request, from requests.Status) {
	f.send(ctx, KindStatusChanged, r.UserID, r.ID, Message{Text: StatusChangedText(r, from)})
}

func (f *FanOut) send(ctx context.Context, kind string, recipient, requestID int64, msg Message) {
	err := f.sender.Send(ctx, recipient, msg)
	f.metrics.ObserveNotification(kind, err)
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("kind", kind),
		slog.Int64("recipient", recipient),
		slog.Int64("request_id", requestID),
	}
	if err != nil {
		logger.Warn(ctx, logger.CompNotify, "send", append(attrs, logger.ErrAttrs(err)...)...)
		return
	}
	logger.Info(ctx, logger.CompNotify, "send", attrs...)
}

// CreatedText renders the operator card for a new request with the
// creation time shown in loc.
func CreatedText(r requests.Request, loc *time.Location) string {
	return fmt.Sprintf("🔔 New request #%d\n\n"+
		"👤 Name: %s\n"+
		"📞 Contact: %s\n"+
		"📝 Task description:\n%s\n\n"+
		"📅 Created: %s\n"+
		"🆔 User ID: %d\n"+
		"📊 Status: %s",
		r.ID, r.UserName, r.Contact, r.Description,
		r.CreatedAt.In(loc).Format(TimeLayout), r.UserID, r.Status.Label())
}

// StatusChangedText renders the submitter notice for a status change.
func StatusChangedText(r requests.Request, from requests.Status) string {
	return fmt.Sprintf("📢 Status update for request #%d\n\nStatus changed: %s → %s",
		r.ID, from.Label(), r.Status.Label())
}
