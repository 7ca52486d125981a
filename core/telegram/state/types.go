package state

import "time"

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// Session stores conversation state and collected values for a user.
type Session struct {
	State     State
	Data      map[string]string
	UpdatedAt time.Time
}

// Value returns a collected value or "".
func (s Session) Value(key string) string {
	if s.Data == nil {
		return ""
	}
	return s.Data[key]
}

// Manager stores sessions keyed by user ID. Implementations must be safe for
// concurrent use; values returned are copies.
type Manager interface {
	Get(userID int64) Session
	SetState(userID int64, st State)
	SetValue(userID int64, key, value string)
	GetState(userID int64) State
	InProgress(userID int64) bool
	Clear(userID int64)
	Len() int
}
