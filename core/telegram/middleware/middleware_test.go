package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/requestbot/core/metrics"
)

type fakeContext struct {
	tele.Context
	upd   tele.Update
	user  *tele.User
	store map[string]any
}

func newFakeContext(userID int64, upd tele.Update) *fakeContext {
	var user *tele.User
	if userID != 0 {
		user = &tele.User{ID: userID}
	}
	return &fakeContext{upd: upd, user: user, store: map[string]any{}}
}

func (f *fakeContext) Update() tele.Update      { return f.upd }
func (f *fakeContext) Sender() *tele.User       { return f.user }
func (f *fakeContext) Chat() *tele.Chat         { return nil }
func (f *fakeContext) Get(key string) any       { return f.store[key] }
func (f *fakeContext) Set(key string, v any)    { f.store[key] = v }
func (f *fakeContext) Text() string             { return "" }
func (f *fakeContext) Callback() *tele.Callback { return f.upd.Callback }

func msgUpdate() tele.Update { return tele.Update{Message: &tele.Message{Text: "hi"}} }

func TestRateLimitPerUser(t *testing.T) {
	dropped := 0
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Burst:     2,
		Exclude:   map[string]struct{}{KindCallback: {}},
		Observe:   func() { dropped++ },
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	for i := 0; i < 3; i++ {
		require.NoError(t, h(newFakeContext(1, msgUpdate())))
	}
	require.NoError(t, h(newFakeContext(2, msgUpdate())))
	require.NoError(t, h(newFakeContext(1, tele.Update{Callback: &tele.Callback{}})))

	assert.Equal(t, 4, calls, "burst of two for user 1, one for user 2, excluded callback")
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 1, limited)
}

func TestRateLimitDisabled(t *testing.T) {
	h := RateLimitMiddleware(RateLimitOptions{})(func(tele.Context) error { return nil })
	for i := 0; i < 5; i++ {
		assert.NoError(t, h(newFakeContext(1, msgUpdate())))
	}
}

func TestRestrictedMiddleware(t *testing.T) {
	rejected := 0
	opts := AccessOptions{
		Allow:    func(id int64) bool { return id == 7 },
		OnReject: func(tele.Context) error { rejected++; return nil },
	}
	ran := 0
	h := WithAccessCheck(opts, true, func(tele.Context) error { ran++; return nil })

	require.NoError(t, h(newFakeContext(7, msgUpdate())))
	require.NoError(t, h(newFakeContext(8, msgUpdate())))
	require.NoError(t, h(newFakeContext(0, tele.Update{ChannelPost: &tele.Message{}})))
	assert.Equal(t, 1, ran)
	assert.Equal(t, 2, rejected)

	open := WithAccessCheck(AccessOptions{}, false, func(tele.Context) error { ran++; return nil })
	require.NoError(t, open(newFakeContext(8, msgUpdate())))
	assert.Equal(t, 2, ran)
}

func TestRecoverMiddlewareReturnsError(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(newFakeContext(1, msgUpdate()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	want := errors.New("plain")
	assert.ErrorIs(t, RecoverMiddleware(func(tele.Context) error { return want })(newFakeContext(1, msgUpdate())), want)
}

func TestInstrumentCountsKinds(t *testing.T) {
	m := metrics.New(nil)
	h := Instrument(m)(func(tele.Context) error { return nil })
	_ = h(newFakeContext(1, msgUpdate()))
	_ = h(newFakeContext(0, tele.Update{ChannelPost: &tele.Message{}}))
	_ = h(newFakeContext(0, tele.Update{}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Updates.WithLabelValues(KindMessage)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Updates.WithLabelValues(KindChannelPost)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Updates.WithLabelValues(KindOther)))
}

func TestMessageCounters(t *testing.T) {
	c := newFakeContext(1, msgUpdate())
	h := MessageMetricsMiddleware(func(ctx tele.Context) error {
		ctx.Set("messages", 2)
		ctx.Set("kb", true)
		return nil
	})
	require.NoError(t, h(c))
	msgs, kb := GetCounters(c)
	assert.Equal(t, 2, msgs)
	assert.True(t, kb)
}
