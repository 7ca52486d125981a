package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/requestbot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestLookupCommandIgnoresMentionAndArgs(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/stats", commands.Command{Handler: noop, Description: "Stats"})
	reg.RegisterCommand("/new", commands.Command{Handler: noop, Description: "New", Aliases: []string{"apply"}})

	key, _, ok := reg.LookupCommand("/stats@request_bot extra")
	require.True(t, ok)
	assert.Equal(t, "/stats", key)

	key, _, ok = reg.LookupCommand("/apply")
	require.True(t, ok)
	assert.Equal(t, "/new", key)

	_, _, ok = reg.LookupCommand("   ")
	assert.False(t, ok)
	_, _, ok = reg.LookupCommand("/unknown")
	assert.False(t, ok)
}

func TestListCommandsHidesOperatorOnly(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Start"})
	reg.RegisterCommand("/status", commands.Command{Handler: noop, Description: "Status", OperatorOnly: true})
	reg.RegisterCommand("nostart", commands.Command{Handler: noop, Description: "bad"})

	visible := reg.ListCommands(true)
	require.Len(t, visible, 1)
	assert.Equal(t, "/start", visible[0].Text)
	assert.Len(t, reg.ListCommands(false), 2)
}

func TestRegisterCallbackRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("app_status", noop))
	assert.Error(t, reg.RegisterCallback("app_status", noop))
	assert.Error(t, reg.RegisterCallback("", noop))
	assert.Equal(t, []string{"app_status"}, reg.ListCallbacks())
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "/status", CommandName("/Status@bot 12 completed"))
	assert.Equal(t, "", CommandName(""))
}

func TestAliasesDoNotShadowCommands(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/posts", commands.Command{Handler: noop, Description: "Posts"})
	reg.RegisterCommand("/News", commands.Command{Handler: noop, Description: "News", Aliases: []string{"posts", "/feed"}})
	reg.RegisterCommand("/feed", commands.Command{Handler: noop, Description: "dup"})

	key, _, ok := reg.LookupCommand("/posts")
	require.True(t, ok)
	assert.Equal(t, "/posts", key, "alias must not take over an existing command")

	key, _, ok = reg.LookupCommand("/FEED@request_bot")
	require.True(t, ok)
	assert.Equal(t, "/news", key)
	assert.Len(t, reg.Commands(), 2)
}
