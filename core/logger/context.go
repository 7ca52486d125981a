package logger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type metaKey struct{}

// Meta identifies the Telegram update a context belongs to. The handler
// fills it into every record logged with that context.
type Meta struct {
	RID      string
	UpdateID int
	UserID   int64
	ChatID   int64
	Handler  string
}

// WithMeta returns ctx carrying m.
func WithMeta(ctx context.Context, m Meta) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, metaKey{}, m)
}

// MetaFrom returns the update metadata stored in ctx, or the zero Meta.
func MetaFrom(ctx context.Context) Meta {
	if ctx == nil {
		return Meta{}
	}
	m, _ := ctx.Value(metaKey{}).(Meta)
	return m
}

// WithHandler returns ctx whose metadata names the handler serving the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		return ctx
	}
	m := MetaFrom(ctx)
	m.Handler = handler
	return WithMeta(ctx, m)
}

// fields lists the non-zero metadata fields.
func (m Meta) fields() []field {
	var out []field
	if m.RID != "" {
		out = append(out, field{"rid", m.RID})
	}
	if m.UpdateID != 0 {
		out = append(out, field{"update_id", int64(m.UpdateID)})
	}
	if m.UserID != 0 {
		out = append(out, field{"user_id", m.UserID})
	}
	if m.ChatID != 0 {
		out = append(out, field{"chat_id", m.ChatID})
	}
	if m.Handler != "" {
		out = append(out, field{"handler", m.Handler})
	}
	return out
}

// BuildRID returns the correlation id "update:chat:user".
func BuildRID(updateID int, chatID, userID int64) string {
	return fmt.Sprintf("%d:%d:%d", updateID, chatID, userID)
}

// CompactRID rewrites each numeric segment of a RID in base36 and joins them
// with dots. Anything that is not a three-part numeric RID is returned as is.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	parts := strings.Split(rid, ":")
	if len(parts) != 3 {
		return rid
	}
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return rid
		}
		parts[i] = strconv.FormatInt(n, 36)
	}
	return strings.Join(parts, ".")
}

// SanitizeLimit drops control and format runes (keeping tab and newline) and
// cuts the result to max runes. User input passes through it before logging.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	var b strings.Builder
	n := 0
	for _, r := range s {
		if n == max {
			break
		}
		if r != '\n' && r != '\t' && (unicode.IsControl(r) || unicode.Is(unicode.Cf, r)) {
			continue
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}
