package state

import (
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

type memoryManager struct {
	mu    sync.Mutex
	ttl   time.Duration
	cache *cache.Cache
	now   func() time.Time
}

// NewMemoryManager returns a Manager backed by go-cache. A ttl of zero keeps
// sessions until they are cleared; a positive ttl drops sessions idle for longer.
func NewMemoryManager(ttl time.Duration) Manager {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = ttl / 2
		if cleanup < time.Second {
			cleanup = time.Second
		}
	}
	return &memoryManager{
		ttl:   expiration,
		cache: cache.New(expiration, cleanup),
		now:   time.Now,
	}
}

func key(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func (m *memoryManager) load(userID int64) (Session, bool) {
	v, ok := m.cache.Get(key(userID))
	if !ok {
		return Session{State: StateIdle}, false
	}
	return v.(Session), true
}

func (m *memoryManager) store(userID int64, s Session) {
	s.UpdatedAt = m.now()
	m.cache.Set(key(userID), s, m.ttl)
}

// Get returns a copy of the user's session, or an idle one.
func (m *memoryManager) Get(userID int64) Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, _ := m.load(userID)
	out := Session{State: s.State, UpdatedAt: s.UpdatedAt}
	if len(s.Data) > 0 {
		out.Data = make(map[string]string, len(s.Data))
		for k, v := range s.Data {
			out.Data[k] = v
		}
	}
	return out
}

// SetState sets the FSM state for the given user, keeping collected values.
func (m *memoryManager) SetState(userID int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, _ := m.load(userID)
	s.State = st
	m.store(userID, s)
}

// SetValue records a collected value in the user's session.
func (m *memoryManager) SetValue(userID int64, k, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, _ := m.load(userID)
	data := make(map[string]string, len(s.Data)+1)
	for dk, dv := range s.Data {
		data[dk] = dv
	}
	data[k] = value
	s.Data = data
	m.store(userID, s)
}

// GetState returns the current FSM state of a user, or StateIdle if none exists.
func (m *memoryManager) GetState(userID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, _ := m.load(userID)
	if s.State == "" {
		return StateIdle
	}
	return s.State
}

// InProgress reports whether the user currently has an active FSM state.
func (m *memoryManager) InProgress(userID int64) bool {
	return m.GetState(userID) != StateIdle
}

// Clear removes the entire session for a user.
func (m *memoryManager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Delete(key(userID))
}

// Len reports the number of live sessions.
func (m *memoryManager) Len() int {
	return m.cache.ItemCount()
}
