package logger

import (
	"io"
	"sync"
)

// lineWriter moves log output off the calling goroutine. Each Write is one
// encoded record; it is copied and written by a single background loop.
// After Close, writes go straight to the sink.
type lineWriter struct {
	out   io.Writer
	lines chan []byte
	done  chan struct{}

	mu     sync.RWMutex
	closed bool

	errMu sync.Mutex
	err   error
}

func newLineWriter(out io.Writer, depth int) *lineWriter {
	if depth <= 0 {
		depth = 256
	}
	w := &lineWriter{out: out, lines: make(chan []byte, depth), done: make(chan struct{})}
	go w.loop()
	return w
}

func (w *lineWriter) loop() {
	defer close(w.done)
	for line := range w.lines {
		if _, err := w.out.Write(line); err != nil {
			w.errMu.Lock()
			if w.err == nil {
				w.err = err
			}
			w.errMu.Unlock()
		}
	}
}

// Write queues p, blocking when the queue is full so no record is lost.
func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return w.out.Write(p)
	}
	w.lines <- append([]byte(nil), p...)
	return len(p), nil
}

// Close drains queued lines and returns the first write error.
func (w *lineWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.lines)
	}
	w.mu.Unlock()
	<-w.done

	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}
