package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type cbContext struct {
	tele.Context
	cb *tele.Callback
}

func (c cbContext) Callback() *tele.Callback { return c.cb }

func TestSplitPrefersUnique(t *testing.T) {
	key, payload := Split(&tele.Callback{Unique: "app_status", Data: "42|completed"})
	assert.Equal(t, "app_status", key)
	assert.Equal(t, "42|completed", payload)

	key, payload = Split(&tele.Callback{Data: "\fposts_page|3"})
	assert.Equal(t, "posts_page", key)
	assert.Equal(t, "3", payload)

	key, payload = Split(nil)
	assert.Empty(t, key)
	assert.Empty(t, payload)
}

func TestPayloadIDToken(t *testing.T) {
	c := cbContext{cb: &tele.Callback{Unique: "app_status", Data: Join("42", "in_progress")}}
	id, token, err := PayloadIDToken(c)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "in_progress", token)

	for _, data := range []string{"", "42", "x|new", "42|"} {
		_, _, err := PayloadIDToken(cbContext{cb: &tele.Callback{Unique: "app_status", Data: data}})
		assert.Error(t, err, data)
	}
}

func TestPayloadInt(t *testing.T) {
	n, err := PayloadInt(cbContext{cb: &tele.Callback{Unique: "posts_page", Data: "2"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
