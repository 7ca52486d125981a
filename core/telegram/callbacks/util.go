package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseCallbackData parses Telebot's \f<unique>|<payload> encoding.
// Returns unique and payload (may be empty).
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	parts := strings.SplitN(raw, "|", 2)
	unique := strings.TrimSpace(parts[0])
	payload := ""
	if len(parts) == 2 {
		payload = parts[1]
	}
	return unique, payload
}

// Split returns the callback key and payload. Telebot fills Unique and leaves
// only the payload in Data when the button was built with markup.Data; raw
// callbacks still carry the encoded form.
func Split(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	return ParseCallbackData(cb)
}

// CallbackKey returns the callback unique key.
func CallbackKey(c tele.Context) string {
	key, _ := Split(c.Callback())
	return key
}

// CallbackPayload returns the payload that follows the unique key.
func CallbackPayload(c tele.Context) string {
	_, payload := Split(c.Callback())
	return payload
}
