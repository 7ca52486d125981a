package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/m3rciful/requestbot/core/buildinfo"
	coreconfig "github.com/m3rciful/requestbot/core/config"
)

// Component names shared by domain packages.
const (
	CompRequests = "service.requests"
	CompIntake   = "service.intake"
	CompNotify   = "service.notify"
	CompPosts    = "service.posts"
	CompIngest   = "ingest"
	CompMetrics  = "metrics"
	CompTG       = "tg"
	CompWire     = "tg.wire"
	CompSender   = "tg.sender"
)

var (
	initOnce sync.Once
	stopOnce sync.Once

	base    atomic.Pointer[slog.Logger]
	sink    *lineWriter
	logFile *os.File

	updateSample atomic.Pointer[sampler]

	// DB logs database events. Like the other component loggers it discards
	// output until InitLogger runs.
	DB = slog.New(slog.DiscardHandler)
	// MIG logs schema migration events.
	MIG = slog.New(slog.DiscardHandler)
)

// InitLogger installs the structured logger described by cfg.Logging as the
// slog default. Only the first call has an effect.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		var lc coreconfig.LoggingConfig
		if cfg != nil {
			lc = cfg.Logging
		}

		out, openErr := openOutputs(lc)
		if openErr != nil {
			err = openErr
			return
		}
		sink = newLineWriter(out, 256)

		level := new(slog.LevelVar)
		level.Set(parseLevel(lc.Level))
		l := slog.New(newSchemaHandler(sink, parseFormat(lc), level, parseKeyOrder(lc.KeysOrder)))

		base.Store(l)
		slog.SetDefault(l)
		updateSample.Store(parseSample(lc.DebugSample, &sampler{keep: 1, n: 50}))
		DB = l.With("component", "db")
		MIG = l.With("component", "db.migrate")

		l.LogAttrs(context.Background(), slog.LevelInfo, "",
			slog.String("component", "app"),
			slog.String("event", "startup"),
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("build_time", buildinfo.Date),
			slog.String("cfg_profile", profile(lc)),
		)
	})
	return err
}

// Shutdown drains buffered output and closes the log file.
func Shutdown() error {
	var err error
	stopOnce.Do(func() {
		if sink != nil {
			err = sink.Close()
		}
		if logFile != nil {
			err = errors.Join(err, logFile.Close())
		}
	})
	return err
}

// Background is context.Background for call sites outside an update.
func Background() context.Context {
	return context.Background()
}

// Event logs one schema event for component. It is a no-op before InitLogger.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	l := base.Load()
	if l == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.Enabled(ctx, level) {
		return
	}
	all := make([]slog.Attr, 0, len(attrs)+2)
	all = append(all, slog.String("component", component), slog.String("event", event))
	l.LogAttrs(ctx, level, "", append(all, attrs...)...)
}

// Debug logs a debug-level event for the given component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for the given component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for the given component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for the given component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// SampleUpdate reports whether the per-update receipt line should be logged,
// following logging.debug_sample (default 1/50).
func SampleUpdate() bool {
	return updateSample.Load().allow()
}

func openOutputs(lc coreconfig.LoggingConfig) (io.Writer, error) {
	dir, name := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile)
	if dir == "" || name == "" {
		return os.Stdout, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logger: create log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open log file: %w", err)
	}
	logFile = f
	return io.MultiWriter(os.Stdout, f), nil
}

func parseFormat(lc coreconfig.LoggingConfig) logFormat {
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	if p := profile(lc); p == "debug" || p == "dev" {
		return formatKV
	}
	return formatJSON
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// parseKeyOrder reads a comma-separated key list; empty or "default" keeps
// the built-in schema order.
func parseKeyOrder(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return defaultKeyOrder
	}
	var order []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			order = append(order, k)
		}
	}
	if len(order) == 0 {
		return defaultKeyOrder
	}
	return order
}

func profile(lc coreconfig.LoggingConfig) string {
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		return p
	}
	return "prod"
}
