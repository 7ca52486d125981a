package requests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/requestbot/core/logger"
	"github.com/m3rciful/requestbot/core/metrics"
)

// Operators holds the two privileged identities. Zero means unset.
type Operators struct {
	LeaderID  int64
	ManagerID int64
}

// IsPrivileged reports whether userID is a configured operator.
func (o Operators) IsPrivileged(userID int64) bool {
	return userID != 0 && (userID == o.LeaderID || userID == o.ManagerID)
}

// Recipients returns the configured operator ids without zeros or duplicates.
func (o Operators) Recipients() []int64 {
	var out []int64
	for _, id := range []int64{o.LeaderID, o.ManagerID} {
		if id == 0 || (len(out) > 0 && out[0] == id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Notifier delivers request events. Implementations handle their own failures.
type Notifier interface {
	RequestCreated(ctx context.Context, r Request)
	StatusChanged(ctx context.Context, r Request, from Status)
}

// Options configures a Service.
type Options struct {
	Store     Store
	Operators Operators
	Notifier  Notifier
	Metrics   *metrics.Metrics
	// Location anchors day/week/month windows; defaults to time.Local.
	Location *time.Location
	Now      func() time.Time
}

// Service implements submission, the status workflow and statistics.
type Service struct {
	store     Store
	operators Operators
	notifier  Notifier
	metrics   *metrics.Metrics
	loc       *time.Location
	now       func() time.Time
}

// NewService builds a Service.
func NewService(opts Options) *Service {
	s := &Service{
		store:     opts.Store,
		operators: opts.Operators,
		notifier:  opts.Notifier,
		metrics:   opts.Metrics,
		loc:       opts.Location,
		now:       opts.Now,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Operators returns the configured operator identities.
func (s *Service) Operators() Operators { return s.operators }

// Submit stores a new request and notifies operators. Notification failures
// never fail the submission.
func (s *Service) Submit(ctx context.Context, in NewRequest) (Request, error) {
	start := time.Now()
	r, err := s.store.Create(ctx, in)
	if err != nil {
		logger.Error(ctx, logger.CompRequests, "create",
			append(logger.ErrAttrs(err),
				slog.String("status", logger.Status(err)),
				slog.Int64("user_id", in.UserID),
			)...,
		)
		return Request{}, err
	}
	s.metrics.ObserveRequestCreated()
	logger.Info(ctx, logger.CompRequests, "create",
		slog.String("status", "ok"),
		slog.Int64("request_id", r.ID),
		slog.Int64("user_id", r.UserID),
		slog.Duration("duration", logger.Took(start)),
	)
	if s.notifier != nil {
		s.notifier.RequestCreated(ctx, r)
	}
	return r, nil
}

// ChangeStatus moves request id to the status named by token on behalf of requester.
// Checks run in order: operator allow-list, status token, request existence.
func (s *Service) ChangeStatus(ctx context.Context, id int64, token string, requester int64) (Change, error) {
	if !s.operators.IsPrivileged(requester) {
		attrs := []slog.Attr{
			slog.String("status", "fail"),
			slog.String("outcome", "rejected"),
			slog.Int64("request_id", id),
			slog.Int64("user_id", requester),
		}
		logger.Info(ctx, logger.CompRequests, "status.change", append(attrs, logger.ErrAttrs(ErrUnauthorized)...)...)
		return Change{}, ErrUnauthorized
	}
	to, err := ParseStatus(token)
	if err != nil {
		return Change{}, err
	}

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Change{}, err
	}
	updated, err := s.store.UpdateStatus(ctx, id, to)
	if err != nil {
		return Change{}, err
	}

	change := Change{Request: updated, From: current.Status, To: to}
	s.metrics.ObserveStatusChange(string(to))
	logger.Info(ctx, logger.CompRequests, "status.change",
		slog.String("status", "ok"),
		slog.Int64("request_id", id),
		slog.String("status_from", string(change.From)),
		slog.String("status_to", string(change.To)),
		slog.Int64("user_id", requester),
	)
	if s.notifier != nil {
		s.notifier.StatusChanged(ctx, updated, change.From)
	}
	return change, nil
}

// Scope says whose requests a Statistics value counts.
type Scope string

const (
	ScopeAll Scope = "all"
	ScopeOwn Scope = "own"
)

// Statistics are request counts per time window.
type Statistics struct {
	Scope Scope
	Total int
	Today int
	Week  int
	Month int
	// ByStatus is filled for operators only.
	ByStatus map[Status]int
}

// Windows returns the start of the current day, ISO week and month for now in loc.
func Windows(now time.Time, loc *time.Location) (day, week, month time.Time) {
	now = now.In(loc)
	day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	offset := (int(day.Weekday()) + 6) % 7
	week = day.AddDate(0, 0, -offset)
	month = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	return day, week, month
}

// Statistics counts requests visible to requester: all of them for operators,
// otherwise only the requester's own.
func (s *Service) Statistics(ctx context.Context, requester int64) (Statistics, error) {
	day, week, month := Windows(s.now(), s.loc)

	st := Statistics{Scope: ScopeOwn}
	owner := requester
	if s.operators.IsPrivileged(requester) {
		st.Scope = ScopeAll
		owner = 0
	}

	windows := []struct {
		dst   *int
		since time.Time
	}{
		{&st.Total, time.Time{}},
		{&st.Today, day},
		{&st.Week, week},
		{&st.Month, month},
	}
	for _, w := range windows {
		n, err := s.store.Count(ctx, CountFilter{UserID: owner, Since: w.since})
		if err != nil {
			return Statistics{}, s.statsErr(ctx, err)
		}
		*w.dst = n
	}

	if st.Scope == ScopeAll {
		st.ByStatus = make(map[Status]int, len(Statuses))
		for _, status := range Statuses {
			n, err := s.store.Count(ctx, CountFilter{Status: status})
			if err != nil {
				return Statistics{}, s.statsErr(ctx, err)
			}
			st.ByStatus[status] = n
		}
	}
	return st, nil
}

func (s *Service) statsErr(ctx context.Context, err error) error {
	if !errors.Is(err, ErrStorageUnavailable) {
		err = fmt.Errorf("statistics: %w: %w", ErrStorageUnavailable, err)
	}
	logger.Error(ctx, logger.CompRequests, "statistics", logger.ErrAttrs(err)...)
	return err
}
