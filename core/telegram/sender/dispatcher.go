// Package sender runs outbound Telegram calls. Replies are queued to a small
// worker pool so handlers return quickly; notifications go through Do and
// get their result back. Every call is attempted once.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/requestbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned by Enqueue when no slot is free.
	ErrQueueFull = errors.New("telegram sender: queue full")

	errNilRun = errors.New("telegram sender: nil run function")
	tokenRe   = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options sizes the dispatcher. Zero values select 256 slots and 4 workers.
type Options struct {
	QueueSize int
	Workers   int
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes Telegram calls on a fixed set of workers.
type Dispatcher struct {
	jobs   chan job
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	failed atomic.Uint64
}

// NewDispatcher starts the workers.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	d := &Dispatcher{jobs: make(chan job, opts.QueueSize)}
	d.wg.Add(opts.Workers)
	for range opts.Workers {
		go func() {
			defer d.wg.Done()
			for j := range d.jobs {
				_ = d.exec(j)
			}
		}()
	}
	return d
}

// Enqueue hands run to a worker without waiting for it.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errNilRun
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.jobs <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Do runs the call on the caller's goroutine and returns its error.
func (d *Dispatcher) Do(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errNilRun
	}
	return d.exec(job{ctx: ctx, action: action, endpoint: endpoint, run: run})
}

// Failed returns how many calls have failed so far.
func (d *Dispatcher) Failed() uint64 {
	return d.failed.Load()
}

// Close stops accepting work and waits for queued calls to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) exec(j job) error {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	attrs := []slog.Attr{slog.String("action", j.action), slog.String("endpoint", j.endpoint)}

	// Calls whose context is already done are not attempted.
	err := ctx.Err()
	start := time.Now()
	if err == nil {
		err = j.run()
	}
	attrs = append(attrs, slog.Duration("duration", logger.Took(start)))
	if err != nil {
		d.failed.Add(1)
		logger.Warn(ctx, logger.CompSender, "send.fail", append(attrs,
			slog.String("status", "fail"),
			slog.String("error_kind", errorKind(err)),
			slog.String("err", redact(err)),
		)...)
		return err
	}
	logger.Debug(ctx, logger.CompSender, "send.ok", append(attrs, slog.String("status", "ok"))...)
	return nil
}

// errorKind buckets a send failure for logs.
func errorKind(err error) string {
	var (
		flood  tele.FloodError
		group  tele.GroupError
		api    *tele.Error
		netErr net.Error
	)
	switch {
	case errors.As(err, &flood):
		return "flood"
	case errors.As(err, &group):
		return "migrated"
	case errors.As(err, &api):
		switch {
		case api.Code == 403:
			return "forbidden"
		case api.Code >= 500:
			return "api_5xx"
		}
		return "api_4xx"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case netErr != nil:
		return "network"
	}
	return "unknown"
}

// redact keeps bot tokens out of logged error text; transport errors quote
// the request URL, which embeds the token.
func redact(err error) string {
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
