// Package requests owns service requests: their lifecycle status, storage,
// the operator status workflow and aggregate statistics.
package requests

import "time"

// Status is the lifecycle state of a request.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusNew, StatusInProgress, StatusCompleted}

// ParseStatus maps an exact token to a Status.
func ParseStatus(token string) (Status, error) {
	s := Status(token)
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Label is the human-readable status name.
func (s Status) Label() string {
	switch s {
	case StatusNew:
		return "New"
	case StatusInProgress:
		return "In progress"
	case StatusCompleted:
		return "Completed"
	}
	return string(s)
}

// Request is a persisted service request.
type Request struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	UserName    string    `db:"user_name"`
	Contact     string    `db:"contact"`
	Description string    `db:"task_description"`
	Status      Status    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// NewRequest carries the validated fields of a completed intake dialogue.
type NewRequest struct {
	UserID      int64
	UserName    string
	Contact     string
	Description string
}

// Change describes an applied status transition.
type Change struct {
	Request Request
	From    Status
	To      Status
}
