package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyButtons(t *testing.T) {
	mk := ReplyButtons([]string{"a", "b"}, []string{"c"})
	assert.True(t, mk.ResizeKeyboard)
	require.Len(t, mk.ReplyKeyboard, 2)
	assert.Equal(t, "b", mk.ReplyKeyboard[0][1].Text)
	assert.Equal(t, "c", mk.ReplyKeyboard[1][0].Text)
}

func TestInlineButtons(t *testing.T) {
	mk := InlineButtons([]InlineBtn{{Text: "One", Unique: "pick", Data: "1"}, {Text: "Two", Unique: "pick", Data: "2"}})
	require.Len(t, mk.InlineKeyboard, 2)
	assert.Equal(t, "pick", mk.InlineKeyboard[1][0].Unique)
	assert.Equal(t, "2", mk.InlineKeyboard[1][0].Data)

	mk = InlineButtonsRows(nil, []InlineBtn{{Text: "x", Unique: "k"}})
	assert.Len(t, mk.InlineKeyboard, 1)
}
