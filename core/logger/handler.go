package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	tsLayout = "2006-01-02T15:04:05.000Z07:00"
)

type field struct {
	key string
	val any
}

// schemaHandler shapes records into the log schema and hands them to a
// stdlib JSON or text handler for encoding. It merges the update metadata
// from the context, canonicalises status and outcome values, reports
// durations in milliseconds and emits keys in a fixed order.
type schemaHandler struct {
	inner  slog.Handler
	json   bool
	rank   map[string]int
	preset []field
	group  string
}

func newSchemaHandler(w io.Writer, format logFormat, level slog.Leveler, order []string) *schemaHandler {
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: replaceBuiltin}
	h := &schemaHandler{json: format == formatJSON, rank: make(map[string]int, len(order))}
	if h.json {
		h.inner = slog.NewJSONHandler(w, opts)
	} else {
		h.inner = slog.NewTextHandler(w, opts)
	}
	for i, k := range order {
		if _, dup := h.rank[k]; !dup {
			h.rank[k] = i
		}
	}
	return h
}

// replaceBuiltin renames the record time to "ts" and drops the message;
// the event attribute carries it instead.
func replaceBuiltin(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		return slog.String("ts", a.Value.Time().UTC().Format(tsLayout))
	case slog.MessageKey:
		return slog.Attr{}
	case slog.LevelKey:
		return slog.String(slog.LevelKey, normalizeLevel(a.Value.String()))
	}
	return a
}

func (h *schemaHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *schemaHandler) Handle(ctx context.Context, r slog.Record) error {
	fs := make([]field, 0, len(h.preset)+r.NumAttrs()+6)
	fs = append(fs, h.preset...)
	r.Attrs(func(a slog.Attr) bool {
		fs = appendAttr(fs, h.group, a)
		return true
	})
	for _, m := range MetaFrom(ctx).fields() {
		if indexOf(fs, m.key) < 0 {
			fs = append(fs, m)
		}
	}
	fs = h.canonical(fs, r.Message)

	slices.SortStableFunc(fs, func(a, b field) int {
		ra, oka := h.rank[a.key]
		rb, okb := h.rank[b.key]
		switch {
		case oka && okb:
			return ra - rb
		case oka:
			return -1
		case okb:
			return 1
		}
		return strings.Compare(a.key, b.key)
	})

	out := slog.NewRecord(r.Time, r.Level, "", r.PC)
	for _, f := range fs {
		out.AddAttrs(slog.Any(f.key, f.val))
	}
	return h.inner.Handle(ctx, out)
}

func (h *schemaHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.preset = slices.Clone(h.preset)
	for _, a := range attrs {
		clone.preset = appendAttr(clone.preset, h.group, a)
	}
	return &clone
}

func (h *schemaHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = joinKey(h.group, name)
	return &clone
}

// canonical fills event and component, compacts the RID and maps status and
// outcome onto the allowed vocabulary. Unknown outcomes are dropped.
func (h *schemaHandler) canonical(fs []field, msg string) []field {
	if i := indexOf(fs, "event"); i < 0 || fs[i].val == "" {
		if msg == "" {
			msg = "unknown"
		}
		fs = setField(fs, "event", msg)
	}
	if i := indexOf(fs, "component"); i < 0 || fs[i].val == "" {
		fs = setField(fs, "component", "app")
	}
	if i := indexOf(fs, "rid"); i >= 0 {
		if rid, _ := fs[i].val.(string); rid != "" {
			if short := CompactRID(rid); short != rid {
				fs[i].val = short
				if h.json {
					fs = setField(fs, "rid_full", rid)
				}
			}
		}
	}
	if i := indexOf(fs, "status"); i >= 0 {
		if s, ok := normalizeStatus(fmt.Sprint(fs[i].val)); ok {
			fs[i].val = s
		}
	}
	if i := indexOf(fs, "outcome"); i >= 0 {
		if o, ok := normalizeOutcome(fmt.Sprint(fs[i].val)); ok {
			fs[i].val = o
		} else {
			fs = slices.Delete(fs, i, i+1)
		}
	}
	return fs
}

// appendAttr flattens groups into dotted keys and normalises values. A later
// attribute with the same key replaces the earlier one.
func appendAttr(fs []field, prefix string, a slog.Attr) []field {
	v := a.Value.Resolve()
	key := joinKey(prefix, a.Key)
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			fs = appendAttr(fs, key, child)
		}
		return fs
	}
	if key == "" {
		return fs
	}
	switch v.Kind() {
	case slog.KindString:
		if s := strings.TrimSpace(v.String()); s != "" {
			return setField(fs, key, s)
		}
		return fs
	case slog.KindDuration:
		return setField(fs, msKey(key), RoundMS(v.Duration()).Milliseconds())
	case slog.KindTime:
		return setField(fs, key, v.Time().UTC().Format(time.RFC3339Nano))
	case slog.KindAny:
		switch x := v.Any().(type) {
		case nil:
			return fs
		case error:
			return setField(fs, key, x.Error())
		case fmt.Stringer:
			if s := x.String(); s != "" {
				return setField(fs, key, s)
			}
			return fs
		}
	}
	return setField(fs, key, v.Any())
}

// msKey maps a duration key onto its millisecond form:
// "duration" -> "duration_ms", "uptime" -> "uptime_ms".
func msKey(key string) string {
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

func indexOf(fs []field, key string) int {
	return slices.IndexFunc(fs, func(f field) bool { return f.key == key })
}

func setField(fs []field, key string, val any) []field {
	if i := indexOf(fs, key); i >= 0 {
		fs[i].val = val
		return fs
	}
	return append(fs, field{key, val})
}
