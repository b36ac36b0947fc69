// Package cache provides bounded memoization for the hot-path parses the
// codec repeats constantly while applying WebSocket packets: millisecond
// timestamps, MAC strings, and enum strings. The same timestamp and MAC
// reappear across many packets in a single burst, so a small LRU avoids
// re-parsing them on every field.
package cache

import (
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultSize = 4096

// Parsers memoizes the three hot-path conversions the codec performs
// while decoding a bootstrap or applying a packet.
type Parsers struct {
	timestamps *lru.Cache[int64, time.Time]
	macs       *lru.Cache[string, string]
	enums      *lru.Cache[string, string]
}

// NewParsers builds a Parsers cache with the given per-kind capacity.
// A size of 0 falls back to a sensible default.
func NewParsers(size int) *Parsers {
	if size <= 0 {
		size = defaultSize
	}
	ts, _ := lru.New[int64, time.Time](size)
	macs, _ := lru.New[string, string](size)
	enums, _ := lru.New[string, string](size)
	return &Parsers{timestamps: ts, macs: macs, enums: enums}
}

// Timestamp converts a wire millisecond timestamp into a time.Time,
// caching the result. A value of 0 is treated as "absent" and returns
// the zero time without populating the cache.
func (p *Parsers) Timestamp(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	if t, ok := p.timestamps.Get(ms); ok {
		return t
	}
	t := time.UnixMilli(ms).UTC()
	p.timestamps.Add(ms, t)
	return t
}

// TimestampMillis is the inverse of Timestamp, used by ToWire.
func TimestampMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// MAC normalizes a MAC address to lowercase hex with no separators,
// memoizing per distinct input string. Returns an error if the input,
// once separators are stripped, is not exactly 12 hex characters.
func (p *Parsers) MAC(raw string) (string, error) {
	if v, ok := p.macs.Get(raw); ok {
		return v, nil
	}
	norm, err := normalizeMAC(raw)
	if err != nil {
		return "", err
	}
	p.macs.Add(raw, norm)
	return norm, nil
}

func normalizeMAC(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		switch r {
		case ':', '-', '.', ' ':
			continue
		}
		b.WriteRune(r)
	}
	s := strings.ToLower(b.String())
	if len(s) != 12 {
		return "", fmt.Errorf("cache: invalid MAC %q: expected 12 hex chars, got %d", raw, len(s))
	}
	for _, r := range s {
		if !isHex(r) {
			return "", fmt.Errorf("cache: invalid MAC %q: non-hex character %q", raw, r)
		}
	}
	return s, nil
}

func isHex(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
}

// InternEnum returns a canonical, shared copy of an enum raw string so
// repeated identical values (e.g. "connected" appearing on thousands of
// devices) don't each allocate a distinct string header downstream.
func (p *Parsers) InternEnum(raw string) string {
	if v, ok := p.enums.Get(raw); ok {
		return v
	}
	p.enums.Add(raw, raw)
	return raw
}
