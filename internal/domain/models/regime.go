package models

import (
	"fmt"
	"strings"
)

// Regime classifies current market behaviour. The zero value is not a valid regime.
type Regime int

const (
	RegimeTrendFollowing Regime = iota + 1
	RegimeSideways
	RegimeHighVolatility
	RegimeLowVolatility
)

// RegimeCount is the number of defined regimes.
const RegimeCount = 4

// AllRegimes lists regimes in id order.
func AllRegimes() [RegimeCount]Regime {
	return [RegimeCount]Regime{RegimeTrendFollowing, RegimeSideways, RegimeHighVolatility, RegimeLowVolatility}
}

// ID returns the wire identifier (1..4).
func (r Regime) ID() int { return int(r) }

// Index returns the zero-based slot used by fixed-size per-regime tables.
func (r Regime) Index() int { return int(r) - 1 }

// Valid reports whether r is one of the four defined regimes.
func (r Regime) Valid() bool { return r >= RegimeTrendFollowing && r <= RegimeLowVolatility }

func (r Regime) String() string {
	switch r {
	case RegimeTrendFollowing:
		return "trend_following"
	case RegimeSideways:
		return "sideways"
	case RegimeHighVolatility:
		return "high_volatility"
	case RegimeLowVolatility:
		return "low_volatility"
	default:
		return fmt.Sprintf("regime(%d)", int(r))
	}
}

// ParseRegime accepts the snake_case name or the numeric id.
func ParseRegime(s string) (Regime, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, r := range AllRegimes() {
		if s == r.String() || s == fmt.Sprint(r.ID()) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown regime %q", s)
}

func (r Regime) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Regime) UnmarshalText(b []byte) error {
	v, err := ParseRegime(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
