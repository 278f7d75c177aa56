package util

import (
	"strconv"
	"strings"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds (integer or
// fractional). Returns (t, true) if any worked. Results are in UTC.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return unix(ts), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return unix(int64(f)), true
	}
	return time.Time{}, false
}

// unix reads values above 1e12 as milliseconds.
func unix(ts int64) time.Time {
	if ts > 1e12 {
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}

// MinuteRange returns [end-minutes, end] with both ends truncated to the minute.
func MinuteRange(end time.Time, minutes int) (time.Time, time.Time) {
	to := end.Truncate(time.Minute)
	return to.Add(-time.Duration(minutes) * time.Minute), to
}

// NextTick returns the first instant after now whose second-of-minute equals second.
func NextTick(now time.Time, second int) time.Time {
	base := now.Truncate(time.Minute).Add(time.Duration(second) * time.Second)
	if !base.After(now) {
		base = base.Add(time.Minute)
	}
	return base
}
