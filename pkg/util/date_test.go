package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
	got, ok = ParseTime(strconv.FormatInt(ts*1000, 10))
	if !ok || got.Unix() != ts {
		t.Fatalf("millis not recognised: %v", got)
	}
	got, ok = ParseTime(strconv.FormatInt(ts, 10) + ".0")
	if !ok || got.Unix() != ts {
		t.Fatalf("float seconds not recognised: %v", got)
	}
}

func TestParseTimeInvalid(t *testing.T) {
	for _, s := range []string{"", "  ", "yesterday", "-5"} {
		if _, ok := ParseTime(s); ok {
			t.Fatalf("expected %q to be rejected", s)
		}
	}
}

func TestMinuteRange(t *testing.T) {
	end := time.Date(2024, 1, 1, 12, 30, 42, 0, time.UTC)
	from, to := MinuteRange(end, 180)
	if !to.Equal(time.Date(2024, 1, 1, 12, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected to %v", to)
	}
	if to.Sub(from) != 180*time.Minute {
		t.Fatalf("unexpected span %v", to.Sub(from))
	}
}

func TestNextTick(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 30, 10, 0, time.UTC)
	if got := NextTick(now, 59); !got.Equal(time.Date(2024, 1, 1, 12, 30, 59, 0, time.UTC)) {
		t.Fatalf("unexpected tick %v", got)
	}
	if got := NextTick(now, 5); !got.Equal(time.Date(2024, 1, 1, 12, 31, 5, 0, time.UTC)) {
		t.Fatalf("unexpected tick %v", got)
	}
	exact := time.Date(2024, 1, 1, 12, 30, 59, 0, time.UTC)
	if got := NextTick(exact, 59); !got.Equal(exact.Add(time.Minute)) {
		t.Fatalf("unexpected tick %v", got)
	}
}
