package callbacks

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Sep joins payload parts; it matches Telebot's own data separator.
const Sep = "|"

// Join encodes payload parts for markup.Data.
func Join(parts ...string) string {
	return strings.Join(parts, Sep)
}

// PayloadInt parses callback payload as int.
func PayloadInt(c tele.Context) (int, error) {
	return strconv.Atoi(strings.TrimSpace(CallbackPayload(c)))
}

// PayloadParts splits the callback payload into parts using the given separator.
func PayloadParts(c tele.Context, sep string) ([]string, error) {
	p := CallbackPayload(c)
	if p == "" {
		return nil, strconv.ErrSyntax
	}
	return strings.Split(p, sep), nil
}

// PayloadIDToken parses a payload like "42|in_progress" into an id and a token.
func PayloadIDToken(c tele.Context) (int64, string, error) {
	parts, err := PayloadParts(c, Sep)
	if err != nil {
		return 0, "", err
	}
	if len(parts) != 2 || parts[1] == "" {
		return 0, "", strconv.ErrSyntax
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", err
	}
	return id, parts[1], nil
}
