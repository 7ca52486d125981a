package posts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/m3rciful/requestbot/core/logger"
	"github.com/m3rciful/requestbot/core/metrics"
)

// Ingestion results reported to metrics and logs.
const (
	ResultStored    = "stored"
	ResultDuplicate = "duplicate"
	ResultFailed    = "failed"
	ResultDropped   = "dropped"
)

var (
	// ErrListenerStopped is returned by Offer after Stop.
	ErrListenerStopped = errors.New("posts: listener stopped")
	// ErrQueueFull is returned by Offer when the queue is saturated.
	ErrQueueFull = errors.New("posts: ingest queue full")
)

// ListenerOptions configures a Listener.
type ListenerOptions struct {
	Store     Store
	Metrics   *metrics.Metrics
	QueueSize int
	// SaveTimeout bounds a single Save call.
	SaveTimeout time.Duration
}

// Listener stores channel messages on a background goroutine so the update
// loop never waits on the database.
type Listener struct {
	store   Store
	metrics *metrics.Metrics
	timeout time.Duration

	mu      sync.RWMutex
	queue   chan Inbound
	stopped bool
	started bool
	done    chan struct{}
}

// NewListener returns a Listener. Call Start before offering messages.
func NewListener(opts ListenerOptions) *Listener {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 128
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = 5 * time.Second
	}
	return &Listener{
		store:   opts.Store,
		metrics: opts.Metrics,
		timeout: opts.SaveTimeout,
		queue:   make(chan Inbound, opts.QueueSize),
		done:    make(chan struct{}),
	}
}

// Start launches the worker goroutine. It is safe to call once.
func (l *Listener) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started || l.stopped {
		return
	}
	l.started = true
	go l.run(context.WithoutCancel(ctx))
	logger.Info(ctx, logger.CompIngest, "start", slog.Int("queue_size", cap(l.queue)))
}

// Offer enqueues a message without blocking.
func (l *Listener) Offer(ctx context.Context, in Inbound) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.stopped {
		return ErrListenerStopped
	}
	select {
	case l.queue <- in:
		l.metrics.SetQueueDepth(len(l.queue))
		return nil
	default:
		l.metrics.ObservePost(ResultDropped)
		logger.Warn(ctx, logger.CompIngest, "offer",
			slog.String("status", "fail"),
			slog.String("outcome", ResultDropped),
			slog.String("channel_id", in.ChannelID),
			slog.Int64("message_id", in.MessageID),
		)
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for queued messages to be stored or ctx to end.
func (l *Listener) Stop(ctx context.Context) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	l.stopped = true
	started := l.started
	close(l.queue)
	l.mu.Unlock()

	if !started {
		return nil
	}
	select {
	case <-l.done:
		logger.Info(ctx, logger.CompIngest, "stop", slog.String("status", "ok"))
		return nil
	case <-ctx.Done():
		logger.Warn(ctx, logger.CompIngest, "stop",
			slog.String("status", "fail"),
			slog.Int("pending", len(l.queue)),
		)
		return fmt.Errorf("drain ingest queue: %w", ctx.Err())
	}
}

func (l *Listener) run(ctx context.Context) {
	defer close(l.done)
	for in := range l.queue {
		l.metrics.SetQueueDepth(len(l.queue))
		l.process(ctx, in)
	}
}

// process stores one message; a panic is contained to that message.
func (l *Listener) process(ctx context.Context, in Inbound) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			l.metrics.ObservePost(ResultFailed)
			logger.Error(ctx, logger.CompIngest, "panic",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
				slog.Int64("message_id", in.MessageID),
			)
		}
	}()

	sctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	p := FromInbound(in)
	inserted, err := l.store.Save(sctx, p)
	result := ResultStored
	switch {
	case err != nil:
		result = ResultFailed
	case !inserted:
		result = ResultDuplicate
	}
	l.metrics.ObservePost(result)

	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("outcome", result),
		slog.String("channel_id", in.ChannelID),
		slog.Int64("message_id", in.MessageID),
		slog.Duration("duration", logger.Took(start)),
	}
	if p.Label != nil {
		attrs = append(attrs, slog.String("label", logger.SanitizeLimit(*p.Label, 64)))
	}
	if err != nil {
		logger.Error(ctx, logger.CompIngest, "save", append(attrs, logger.ErrAttrs(err)...)...)
		return
	}
	logger.Info(ctx, logger.CompIngest, "save", attrs...)
}
