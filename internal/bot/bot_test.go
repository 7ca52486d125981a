package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/requestbot/core/telegram/state"
	"github.com/m3rciful/requestbot/internal/config"
	"github.com/m3rciful/requestbot/internal/intake"
	"github.com/m3rciful/requestbot/internal/notify"
	"github.com/m3rciful/requestbot/internal/posts"
	"github.com/m3rciful/requestbot/internal/requests"
)

type sentMsg struct {
	text   string
	markup *tele.ReplyMarkup
}

type fakeContext struct {
	tele.Context
	upd       tele.Update
	user      *tele.User
	store     map[string]any
	sent      []sentMsg
	responses []*tele.CallbackResponse
	edited    []string
}

func textCtx(userID int64, text string) *fakeContext {
	return &fakeContext{
		upd:   tele.Update{ID: 1, Message: &tele.Message{Text: text, Chat: &tele.Chat{ID: userID}}},
		user:  &tele.User{ID: userID},
		store: map[string]any{},
	}
}

func callbackCtx(userID int64, unique, data string) *fakeContext {
	return &fakeContext{
		upd:   tele.Update{ID: 2, Callback: &tele.Callback{Unique: unique, Data: data}},
		user:  &tele.User{ID: userID},
		store: map[string]any{},
	}
}

func (f *fakeContext) Update() tele.Update { return f.upd }
func (f *fakeContext) Sender() *tele.User  { return f.user }
func (f *fakeContext) Chat() *tele.Chat {
	if m := f.Message(); m != nil {
		return m.Chat
	}
	return nil
}
func (f *fakeContext) Message() *tele.Message {
	if f.upd.ChannelPost != nil {
		return f.upd.ChannelPost
	}
	return f.upd.Message
}
func (f *fakeContext) Text() string {
	if m := f.Message(); m != nil {
		return m.Text
	}
	return ""
}
func (f *fakeContext) Callback() *tele.Callback { return f.upd.Callback }
func (f *fakeContext) Get(k string) any         { return f.store[k] }
func (f *fakeContext) Set(k string, v any)      { f.store[k] = v }

func (f *fakeContext) Send(what any, opts ...any) error {
	msg := sentMsg{text: what.(string)}
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok {
			msg.markup = so.ReplyMarkup
		}
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	if len(resp) == 0 {
		resp = []*tele.CallbackResponse{{}}
	}
	f.responses = append(f.responses, resp[0])
	return nil
}

func (f *fakeContext) EditOrSend(what any, _ ...any) error {
	f.edited = append(f.edited, what.(string))
	return nil
}

func (f *fakeContext) lastText() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].text
}

type fakeSubmitter struct{ n int64 }

func (s *fakeSubmitter) Submit(_ context.Context, in requests.NewRequest) (requests.Request, error) {
	s.n++
	return requests.Request{ID: s.n, UserID: in.UserID, Status: requests.StatusNew}, nil
}

type fakeRequests struct {
	ops    requests.Operators
	stats  requests.Statistics
	err    error
	called int
}

func (f *fakeRequests) ChangeStatus(_ context.Context, id int64, token string, requester int64) (requests.Change, error) {
	f.called++
	if !f.ops.IsPrivileged(requester) {
		return requests.Change{}, requests.ErrUnauthorized
	}
	to, err := requests.ParseStatus(token)
	if err != nil {
		return requests.Change{}, err
	}
	if f.err != nil {
		return requests.Change{}, f.err
	}
	if id != 42 {
		return requests.Change{}, requests.ErrNotFound
	}
	return requests.Change{Request: requests.Request{ID: id, Status: to}, From: requests.StatusNew, To: to}, nil
}

func (f *fakeRequests) Statistics(context.Context, int64) (requests.Statistics, error) {
	return f.stats, f.err
}

type memPosts struct {
	mu    sync.Mutex
	posts []posts.Post
}

func (m *memPosts) Save(_ context.Context, p posts.Post) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.CreatedAt = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	m.posts = append(m.posts, p)
	return true, nil
}

func (m *memPosts) List(_ context.Context, offset, limit int) ([]posts.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []posts.Post
	for i := len(m.posts) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.posts[i])
	}
	return out, nil
}

func (m *memPosts) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posts), nil
}

type fakeIngest struct{ got []posts.Inbound }

func (f *fakeIngest) Offer(_ context.Context, in posts.Inbound) error {
	f.got = append(f.got, in)
	return nil
}

var testOps = requests.Operators{LeaderID: 100, ManagerID: 200}

func newTestApp() (*App, *fakeRequests, *memPosts, *fakeIngest) {
	reqs := &fakeRequests{ops: testOps}
	store := &memPosts{}
	ing := &fakeIngest{}
	h := &Handlers{
		Dialogue:  intake.New(intake.Options{Sessions: state.NewMemoryManager(0), Submitter: &fakeSubmitter{}}),
		Requests:  reqs,
		PostStore: store,
		Ingest:    ing,
		Channel:   config.ChannelConfig{ID: "-1001"},
		Location:  time.UTC,
	}
	a := &App{handlers: h, dispatch: Dispatch(h), registry: Registry(h, testOps), operators: testOps}
	return a, reqs, store, ing
}

func TestClassify(t *testing.T) {
	cases := []struct {
		text       string
		inDialogue bool
		want       EventKind
	}{
		{"/start", false, EventStart},
		{"/help@request_bot", true, EventHelp},
		{"/posts 2", false, EventPosts},
		{"/unknown", false, EventUnknown},
		{LabelNewRequest, false, EventNewRequest},
		{LabelNewRequest, true, EventNewRequest},
		{" " + LabelCancel + " ", true, EventCancel},
		{LabelCancel, false, EventCancel},
		{LabelHelp, true, EventHelp},
		{LabelStats, false, EventStats},
		{LabelStats, true, EventDialogueInput},
		{LabelPosts, false, EventPosts},
		{"Anna Ivanova", true, EventDialogueInput},
		{"hello", false, EventUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.text, tc.inDialogue), "%q in dialogue=%v", tc.text, tc.inDialogue)
	}
	assert.Equal(t, "dialogue_input", EventDialogueInput.String())
	assert.Equal(t, "unknown", EventKind(99).String())
}

func TestResolveDrivesDialogue(t *testing.T) {
	a, _, _, _ := newTestApp()

	run := func(text string) (*fakeContext, string) {
		c := textCtx(7, text)
		name, h, ok := a.Resolve(c)
		require.True(t, ok, "text %q", text)
		require.NoError(t, h(c))
		return c, name
	}

	c, name := run(LabelNewRequest)
	assert.Equal(t, "new_request", name)
	assert.Contains(t, c.lastText(), "Please enter your name")
	require.NotNil(t, c.sent[0].markup)
	assert.Equal(t, LabelCancel, c.sent[0].markup.ReplyKeyboard[0][0].Text)

	_, name = run(LabelStats)
	assert.Equal(t, "dialogue_input", name, "statistics label is plain input mid-dialogue")

	c, _ = run("Anna Ivanova")
	assert.Contains(t, c.lastText(), "Name saved: Anna Ivanova")

	run("anna@example.com")
	c, _ = run("Need a new landing page built")
	assert.Contains(t, c.lastText(), "Request number: #1")
	assert.Equal(t, LabelNewRequest, c.sent[0].markup.ReplyKeyboard[0][0].Text)

	_, _, ok := a.Resolve(textCtx(7, "random"))
	assert.False(t, ok)
}

func TestCancelWithoutDialogue(t *testing.T) {
	a, _, _, _ := newTestApp()
	c := textCtx(7, LabelCancel)
	require.NoError(t, a.handlers.Cancel(c))
	assert.Equal(t, "There is no active request to cancel.", c.lastText())
}

func TestStats(t *testing.T) {
	a, reqs, _, _ := newTestApp()
	reqs.stats = requests.Statistics{
		Scope: requests.ScopeAll, Total: 9, Today: 1, Week: 3, Month: 5,
		ByStatus: map[requests.Status]int{requests.StatusNew: 4, requests.StatusInProgress: 3, requests.StatusCompleted: 2},
	}
	c := textCtx(100, LabelStats)
	require.NoError(t, a.handlers.Stats(c))
	assert.Equal(t, "📊 Request statistics\n\n📈 Total requests: 9\n\n"+
		"📅 Today: 1\n📅 This week: 3\n📅 This month: 5\n\n"+
		"📋 By status:\n🆕 New: 4\n⚙️ In progress: 3\n✅ Completed: 2", c.lastText())

	reqs.stats = requests.Statistics{Scope: requests.ScopeOwn, Total: 2, Today: 0, Week: 1, Month: 2}
	c = textCtx(7, LabelStats)
	require.NoError(t, a.handlers.Stats(c))
	assert.Contains(t, c.lastText(), "📈 Your requests: 2")
	assert.NotContains(t, c.lastText(), "By status")

	reqs.err = requests.ErrStorageUnavailable
	c = textCtx(7, LabelStats)
	assert.ErrorIs(t, a.handlers.Stats(c), requests.ErrStorageUnavailable)
	assert.Equal(t, statsFailText, c.lastText())
}

func TestStatusCallback(t *testing.T) {
	a, reqs, _, _ := newTestApp()

	c := callbackCtx(7, CbStatus, "42|completed")
	require.NoError(t, a.handlers.StatusCallback(c))
	require.Len(t, c.responses, 1)
	assert.Equal(t, "❌ You are not allowed to change request status", c.responses[0].Text)
	assert.True(t, c.responses[0].ShowAlert)

	c = callbackCtx(100, CbStatus, "42|completed")
	require.NoError(t, a.handlers.StatusCallback(c))
	assert.Equal(t, "✅ Request #42 status changed to: Completed", c.responses[0].Text)

	c = callbackCtx(100, CbStatus, "42|done")
	require.NoError(t, a.handlers.StatusCallback(c))
	assert.Equal(t, "❌ Unknown status", c.responses[0].Text)

	c = callbackCtx(100, CbStatus, "7|new")
	require.NoError(t, a.handlers.StatusCallback(c))
	assert.Equal(t, "❌ Request not found", c.responses[0].Text)

	calls := reqs.called
	c = callbackCtx(100, CbStatus, "garbage")
	require.NoError(t, a.handlers.StatusCallback(c))
	assert.Equal(t, "❌ Unknown status", c.responses[0].Text)
	assert.Equal(t, calls, reqs.called, "malformed payload never reaches the workflow")

	reqs.err = errors.Join(requests.ErrStorageUnavailable, errors.New("timeout"))
	c = callbackCtx(100, CbStatus, "42|new")
	assert.ErrorIs(t, a.handlers.StatusCallback(c), requests.ErrStorageUnavailable)
	assert.Contains(t, c.responses[0].Text, "Could not update the request")
}

func TestStatusCommand(t *testing.T) {
	a, _, _, _ := newTestApp()

	c := textCtx(100, "/status 42 in_progress")
	require.NoError(t, a.handlers.StatusCommand(c))
	assert.Equal(t, "✅ Request #42 status changed to: In progress", c.lastText())

	c = textCtx(100, "/status 42 IN_PROGRESS")
	require.NoError(t, a.handlers.StatusCommand(c))
	assert.Equal(t, "❌ Unknown status", c.lastText())

	c = textCtx(100, "/status 42")
	require.NoError(t, a.handlers.StatusCommand(c))
	assert.Equal(t, statusUsage, c.lastText())

	c = textCtx(100, "/status abc new")
	require.NoError(t, a.handlers.StatusCommand(c))
	assert.Equal(t, statusUsage, c.lastText())
}

func TestPostsListingAndPaging(t *testing.T) {
	a, _, store, _ := newTestApp()

	c := textCtx(7, "/posts")
	require.NoError(t, a.handlers.Posts(c))
	assert.Contains(t, c.lastText(), "No channel posts saved yet")
	assert.Nil(t, c.sent[0].markup)

	for i := 1; i <= 7; i++ {
		label := "post"
		_, err := store.Save(context.Background(), posts.Post{MessageID: int64(i), Label: &label})
		require.NoError(t, err)
	}

	c = textCtx(7, "/posts 2")
	require.NoError(t, a.handlers.Posts(c))
	assert.Contains(t, c.lastText(), "Page 2 of 2")
	mk := c.sent[0].markup
	require.NotNil(t, mk)
	require.Len(t, mk.InlineKeyboard, 2)
	assert.Equal(t, "0", mk.InlineKeyboard[0][0].Data, "back to the first page")
	assert.Equal(t, CbPostPage, mk.InlineKeyboard[1][0].Unique)

	c = callbackCtx(7, CbPostPage, "1")
	require.NoError(t, a.handlers.PostsPage(c))
	require.Len(t, c.edited, 1)
	assert.Contains(t, c.edited[0], "Page 2 of 2")
	assert.Len(t, c.responses, 1)

	c = callbackCtx(7, CbPostPage, "x")
	require.NoError(t, a.handlers.PostsPage(c))
	assert.Empty(t, c.edited)
}

func TestChannelPost(t *testing.T) {
	a, _, _, ing := newTestApp()
	at := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)

	post := func(chatID int64, text string) *fakeContext {
		return &fakeContext{
			upd: tele.Update{ID: 3, ChannelPost: &tele.Message{
				ID: 55, Text: text, Unixtime: at.Unix(),
				Chat: &tele.Chat{ID: chatID, Type: tele.ChatChannel},
			}},
			store: map[string]any{},
		}
	}

	require.NoError(t, a.handlers.ChannelPost(post(-1001, "Service: bot")))
	require.NoError(t, a.handlers.ChannelPost(post(-1002, "elsewhere")))

	require.Len(t, ing.got, 1)
	assert.Equal(t, posts.Inbound{ChannelID: "-1001", MessageID: 55, Text: "Service: bot", PublishedAt: at.Local()}, ing.got[0])
}

func TestRegistry(t *testing.T) {
	a, _, _, _ := newTestApp()
	visible := a.registry.ListCommands(true)
	names := make([]string, 0, len(visible))
	for _, c := range visible {
		names = append(names, c.Text)
	}
	assert.ElementsMatch(t, []string{CmdStart, CmdHelp, CmdNew, CmdCancel, CmdStats, CmdPosts}, names)

	_, cmd, ok := a.registry.LookupCommand("/status 1 new")
	require.True(t, ok)
	assert.True(t, cmd.OperatorOnly)
	assert.Equal(t, []string{CbStatus, CbPostPage}, a.registry.ListCallbacks())
}

func TestStatusMarkup(t *testing.T) {
	mk := statusMarkup(42)
	require.Len(t, mk.InlineKeyboard, 3)
	assert.Equal(t, CbStatus, mk.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "42|new", mk.InlineKeyboard[0][0].Data)
	assert.Equal(t, "42|completed", mk.InlineKeyboard[2][0].Data)
}

func TestTeleSenderNotReady(t *testing.T) {
	var s TeleSender
	err := s.Send(context.Background(), 1, notify.Message{Text: "hi"})
	assert.ErrorIs(t, err, ErrBotNotReady)
}

func TestLimited(t *testing.T) {
	a, _, _, _ := newTestApp()
	c := textCtx(7, "spam")
	require.NoError(t, a.handlers.Limited(c))
	assert.Equal(t, limitedText, c.lastText())

	cb := callbackCtx(7, CbPostPage, "0")
	require.NoError(t, a.handlers.Limited(cb))
	assert.Equal(t, limitedText, cb.responses[0].Text)
}
