// Package posts mirrors messages from the monitored channel into storage and
// serves them back page by page.
package posts

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Extraction limits, counted in runes.
const (
	LabelMaxRunes       = 100
	DescriptionMaxRunes = 500
)

// ErrStorageUnavailable wraps every persistence failure.
var ErrStorageUnavailable = errors.New("posts: storage unavailable")

// Post is a mirrored channel message.
type Post struct {
	ID          int64      `db:"id"`
	ChannelID   string     `db:"channel_id"`
	MessageID   int64      `db:"message_id"`
	Label       *string    `db:"service_type"`
	Description *string    `db:"description"`
	PublishedAt *time.Time `db:"published_at"`
	CreatedAt   time.Time  `db:"created_at"`
}

// Inbound is a raw channel message handed over by the transport.
type Inbound struct {
	ChannelID   string
	MessageID   int64
	Text        string
	PublishedAt time.Time
}

// Store persists posts.
type Store interface {
	// Save inserts p unless (channel, message id) already exists.
	Save(ctx context.Context, p Post) (inserted bool, err error)
	// List returns posts newest first.
	List(ctx context.Context, offset, limit int) ([]Post, error)
	Count(ctx context.Context) (int, error)
}

var labelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:type|service|project|kind|тип|услуга|проект|вид)[\s:]+([^\n]+)`),
	regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:выполнен|сделан|реализован)[\s:]+([^\n]+)`),
}

// Extraction is the label and description pulled from a message text.
type Extraction struct {
	Label       *string
	Description *string
}

// Extract derives a label from a keyword line ("Service: landing page") or,
// failing that, a short first line. The description is the text cut to
// DescriptionMaxRunes.
func Extract(text string) Extraction {
	var out Extraction
	if strings.TrimSpace(text) == "" {
		return out
	}

	for _, re := range labelPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				out.Label = &v
				break
			}
		}
	}
	if out.Label == nil {
		first, _, _ := strings.Cut(text, "\n")
		first = strings.TrimSpace(first)
		if first != "" && utf8.RuneCountInString(first) < LabelMaxRunes {
			out.Label = &first
		}
	}

	desc := Truncate(text, DescriptionMaxRunes)
	out.Description = &desc
	return out
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// FromInbound builds the record stored for in.
func FromInbound(in Inbound) Post {
	ex := Extract(in.Text)
	p := Post{
		ChannelID:   in.ChannelID,
		MessageID:   in.MessageID,
		Label:       ex.Label,
		Description: ex.Description,
	}
	if !in.PublishedAt.IsZero() {
		t := in.PublishedAt
		p.PublishedAt = &t
	}
	return p
}
