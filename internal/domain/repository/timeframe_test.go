package repository

import (
	"testing"
	"time"
)

func TestNormalizeTimeframe(t *testing.T) {
	cases := map[string]Timeframe{"": TF1m, "1m": TF1m, "5m": TF5m, "1h": TF1m}
	for in, want := range cases {
		if got := NormalizeTimeframe(in); got != want {
			t.Fatalf("NormalizeTimeframe(%q) = %q, want %q", in, got, want)
		}
	}
	if TF5m.Duration() != 5*time.Minute {
		t.Fatalf("unexpected duration %v", TF5m.Duration())
	}
}
