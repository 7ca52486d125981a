package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// OperatorOnly commands are hidden from the public menu and rejected for
	// senders outside the operator allow-list.
	OperatorOnly bool
	Hidden       bool
	Aliases      []string
}
