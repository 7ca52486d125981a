package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// sampler lets through keep out of every n events. A zero sampler lets
// everything through.
type sampler struct {
	keep, n uint64
	seen    atomic.Uint64
}

// parseSample reads "k/n" or "n" (meaning 1/n). "0", "off" and malformed
// values disable sampling; an empty value selects def.
func parseSample(raw string, def *sampler) *sampler {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	keep, n := "1", raw
	if k, rest, ok := strings.Cut(raw, "/"); ok {
		keep, n = k, rest
	}
	k, err1 := strconv.ParseUint(strings.TrimSpace(keep), 10, 64)
	d, err2 := strconv.ParseUint(strings.TrimSpace(n), 10, 64)
	if err1 != nil || err2 != nil || k == 0 || d == 0 {
		return &sampler{}
	}
	return &sampler{keep: min(k, d), n: d}
}

func (s *sampler) allow() bool {
	if s == nil || s.n == 0 {
		return true
	}
	return (s.seen.Add(1)-1)%s.n < s.keep
}
