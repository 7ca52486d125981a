package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/requestbot/core/metrics"
	"github.com/m3rciful/requestbot/internal/requests"
)

type sent struct {
	to  int64
	msg Message
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []sent
	failTo map[int64]error
}

func (f *fakeSender) Send(_ context.Context, recipient int64, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{recipient, msg})
	return f.failTo[recipient]
}

var sample = requests.Request{
	ID:          12,
	UserID:      7,
	UserName:    "Anna Ivanova",
	Contact:     "anna@example.com",
	Description: "Need a new landing page built",
	Status:      requests.StatusNew,
	CreatedAt:   time.Date(2026, 10, 17, 9, 5, 0, 0, time.UTC),
}

func TestRequestCreatedReachesEachOperator(t *testing.T) {
	s := &fakeSender{}
	m := metrics.New(nil)
	f := NewFanOut(s, requests.Operators{LeaderID: 100, ManagerID: 200}, m, nil)

	f.RequestCreated(context.Background(), sample)

	require.Len(t, s.sent, 2)
	assert.Equal(t, int64(100), s.sent[0].to)
	assert.Equal(t, int64(200), s.sent[1].to)
	for _, x := range s.sent {
		assert.Equal(t, int64(12), x.msg.RequestID)
		assert.Contains(t, x.msg.Text, "New request #12")
		assert.Contains(t, x.msg.Text, "17.10.2026 09:05")
		assert.Contains(t, x.msg.Text, "User ID: 7")
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Notifications.WithLabelValues(KindRequestCreated, "ok")))
}

func TestRequestCreatedFailureIsIsolated(t *testing.T) {
	s := &fakeSender{failTo: map[int64]error{100: errors.New("bot was blocked by the user")}}
	m := metrics.New(nil)
	f := NewFanOut(s, requests.Operators{LeaderID: 100, ManagerID: 200}, m, nil)

	f.RequestCreated(context.Background(), sample)

	assert.Len(t, s.sent, 2, "second operator still gets notified")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues(KindRequestCreated, "fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues(KindRequestCreated, "ok")))
}

func TestRequestCreatedSkipsUnsetOperators(t *testing.T) {
	s := &fakeSender{}
	NewFanOut(s, requests.Operators{ManagerID: 200}, nil, nil).RequestCreated(context.Background(), sample)
	require.Len(t, s.sent, 1)
	assert.Equal(t, int64(200), s.sent[0].to)

	s = &fakeSender{}
	NewFanOut(s, requests.Operators{}, nil, nil).RequestCreated(context.Background(), sample)
	assert.Empty(t, s.sent)
}

func TestStatusChangedGoesToSubmitter(t *testing.T) {
	s := &fakeSender{}
	r := sample
	r.Status = requests.StatusCompleted
	NewFanOut(s, requests.Operators{LeaderID: 100}, nil, nil).StatusChanged(context.Background(), r, requests.StatusNew)

	require.Len(t, s.sent, 1)
	assert.Equal(t, int64(7), s.sent[0].to)
	assert.Zero(t, s.sent[0].msg.RequestID)
	assert.Equal(t, "📢 Status update for request #12\n\nStatus changed: New → Completed", s.sent[0].msg.Text)
}

func TestRequestCreatedUsesConfiguredZone(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	s := &fakeSender{}
	NewFanOut(s, requests.Operators{LeaderID: 100}, nil, loc).RequestCreated(context.Background(), sample)

	require.Len(t, s.sent, 1)
	assert.Contains(t, s.sent[0].msg.Text, "📅 Created: 17.10.2026 12:05")
}
