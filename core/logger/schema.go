package logger

import "strings"

// statusValues is the closed vocabulary of the "status" key; other values
// pass through unchanged.
var statusValues = map[string]bool{
	"ok": true, "fail": true, "skip": true, "retry": true,
	"rate_limited": true, "cancelled": true, "rejected": true,
}

// outcomeValues maps accepted "outcome" values onto their canonical form.
// Anything else is dropped from the record.
var outcomeValues = map[string]string{
	"ok":           "ok",
	"fail":         "fail",
	"failed":       "fail",
	"cancelled":    "cancelled",
	"rate_limited": "rate_limited",
	"rejected":     "rejected",
	"invalid":      "invalid",
	"skip":         "skip",
	// channel ingestion
	"stored":    "stored",
	"duplicate": "duplicate",
	"dropped":   "dropped",
}

func normalizeLevel(level string) string {
	switch l := strings.ToUpper(strings.TrimSpace(level)); l {
	case "", "INFO":
		return "INFO"
	case "WARNING":
		return "WARN"
	default:
		return l
	}
}

func normalizeStatus(status string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(status))
	return s, statusValues[s]
}

func normalizeOutcome(outcome string) (string, bool) {
	o, ok := outcomeValues[strings.ToLower(strings.TrimSpace(outcome))]
	return o, ok
}

// defaultKeyOrder fixes where known keys appear; the rest follow sorted.
var defaultKeyOrder = []string{
	// envelope
	"ts", "level", "component", "event", "status",
	// update
	"rid", "rid_full", "update_id", "user_id", "chat_id", "chat_type", "handler",
	"cb_key", "outcome", "duration_ms", "messages", "kb", "kind", "payload",
	"lang", "username",
	// requests
	"request_id", "status_from", "status_to", "step", "field", "recipient",
	// posts
	"channel", "channel_id", "message_id", "label", "kept", "count", "page", "pages",
	"queue_len",
	// runtime
	"mode", "listen", "public_url", "http_code", "db", "host", "port",
	"action", "endpoint", "error_kind",
	// errors
	"err", "err_code", "cause", "attempts",
}
