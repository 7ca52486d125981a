package sender

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestDispatcherRunsQueuedJobs(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2, QueueSize: 8})
	var n atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
			n.Add(1)
			return nil
		}))
	}
	d.Close()
	assert.Equal(t, int32(5), n.Load())
	assert.ErrorIs(t, d.Enqueue(context.Background(), "send.text", "", func() error { return nil }), ErrQueueClosed)
	d.Close()
}

func TestEnqueueReportsFullQueue(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), "block", "", func() error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), "queued", "", func() error { return nil }))
	assert.ErrorIs(t, d.Enqueue(context.Background(), "overflow", "", func() error { return nil }), ErrQueueFull)
	close(release)
	d.Close()
}

func TestDoMakesSingleAttempt(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1})
	defer d.Close()

	attempts := 0
	transient := &net.DNSError{Err: "timeout", IsTimeout: true}
	err := d.Do(context.Background(), "notify", "sendMessage", func() error {
		attempts++
		return transient
	})
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 1, attempts, "failures are not retried")
	assert.Equal(t, uint64(1), d.Failed())

	require.NoError(t, d.Do(context.Background(), "notify", "sendMessage", func() error { return nil }))
	assert.Equal(t, uint64(1), d.Failed())
	assert.Error(t, d.Do(context.Background(), "notify", "", nil))
}

func TestDoSkipsCancelledContext(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1})
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := d.Do(ctx, "notify", "sendMessage", func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestErrorKind(t *testing.T) {
	cases := map[string]error{
		"flood":     tele.FloodError{RetryAfter: 3},
		"forbidden": tele.ErrBlockedByUser,
		"api_5xx":   &tele.Error{Code: 502, Description: "Bad Gateway"},
		"api_4xx":   tele.ErrTooLarge,
		"timeout":   &net.DNSError{IsTimeout: true},
		"network":   &net.OpError{Op: "dial", Err: errors.New("connection refused")},
		"cancelled": context.Canceled,
		"unknown":   errors.New("weird"),
	}
	for want, err := range cases {
		assert.Equal(t, want, errorKind(err), want)
	}
}

func TestRedactHidesToken(t *testing.T) {
	msg := redact(errors.New(`Post "https://api.telegram.org/bot123:ABC-def/sendMessage": EOF`))
	assert.NotContains(t, msg, "123:ABC")
	assert.Contains(t, msg, "bot<redacted>")
}
