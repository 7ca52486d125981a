package logger

import (
	"errors"
	"log/slog"
	"strings"
	"time"
)

// Status maps error to a unified status string for logs.
func Status(err error) string {
	if err != nil {
		return "fail"
	}
	return "ok"
}

// Took returns rounded duration since start for compact logging.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// RoundMS rounds duration to the nearest millisecond for consistent logging.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// SummarizeStrings joins up to limit elements and reports whether truncation happened.
func SummarizeStrings(values []string, limit int) (string, bool) {
	if limit <= 0 {
		return "", len(values) > 0
	}
	if len(values) <= limit {
		return strings.Join(values, ", "), false
	}
	return strings.Join(values[:limit], ", "), true
}

// ErrAttrs renders err as "err" plus "err_code" when any error in the chain
// exposes a Code() string. It returns nil for a nil error.
func ErrAttrs(err error) []slog.Attr {
	if err == nil {
		return nil
	}
	attrs := []slog.Attr{slog.String("err", SanitizeLimit(err.Error(), 256))}
	if code := ErrCode(err); code != "" {
		attrs = append(attrs, slog.String("err_code", code))
	}
	return attrs
}

// ErrCode returns the first Code() found while unwrapping err.
func ErrCode(err error) string {
	type coder interface{ Code() string }
	var c coder
	if errors.As(err, &c) {
		return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(c.Code()), " ", "_"))
	}
	return ""
}
