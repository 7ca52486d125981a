package bot

import (
	"strings"

	coretelegram "github.com/m3rciful/requestbot/core/telegram"
)

// EventKind is what an incoming text message asks the bot to do.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventStart
	EventHelp
	EventNewRequest
	EventCancel
	EventStats
	EventPosts
	EventDialogueInput
)

var eventNames = [...]string{
	EventUnknown:       "unknown",
	EventStart:         "start",
	EventHelp:          "help",
	EventNewRequest:    "new_request",
	EventCancel:        "cancel",
	EventStats:         "stats",
	EventPosts:         "posts",
	EventDialogueInput: "dialogue_input",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[k]
}

// Main menu labels.
const (
	LabelNewRequest = "📋 New request"
	LabelPosts      = "📰 Posts"
	LabelStats      = "📊 Statistics"
	LabelHelp       = "ℹ️ Help"
	LabelCancel     = "❌ Cancel"
)

// Commands.
const (
	CmdStart  = "/start"
	CmdHelp   = "/help"
	CmdNew    = "/new"
	CmdCancel = "/cancel"
	CmdStats  = "/stats"
	CmdPosts  = "/posts"
	CmdStatus = "/status"
)

var commandEvents = map[string]EventKind{
	CmdStart:  EventStart,
	CmdHelp:   EventHelp,
	CmdNew:    EventNewRequest,
	CmdCancel: EventCancel,
	CmdStats:  EventStats,
	CmdPosts:  EventPosts,
}

// Labels that interrupt an active dialogue.
var priorityLabels = map[string]EventKind{
	LabelHelp:       EventHelp,
	LabelNewRequest: EventNewRequest,
	LabelCancel:     EventCancel,
}

// Labels that are plain input while a dialogue is active.
var menuLabels = map[string]EventKind{
	LabelStats: EventStats,
	LabelPosts: EventPosts,
}

// Classify maps a text message to an event. Commands, help, new request and
// cancel always win; other menu labels count as dialogue input while a
// dialogue is active.
func Classify(text string, inDialogue bool) EventKind {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "/") {
		if k, ok := commandEvents[coretelegram.CommandName(t)]; ok {
			return k
		}
		return EventUnknown
	}
	if k, ok := priorityLabels[t]; ok {
		return k
	}
	if inDialogue {
		return EventDialogueInput
	}
	if k, ok := menuLabels[t]; ok {
		return k
	}
	return EventUnknown
}
