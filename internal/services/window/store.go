package window

import (
	"errors"
	"sort"

	"TradePulse/internal/domain/models"
)

// ErrInvalidBar is returned for bars without a usable timestamp.
var ErrInvalidBar = errors.New("window: bar has no timestamp")

// Store is a bounded, time-ordered, deduplicated bar buffer.
// It is owned by one pipeline and not safe for concurrent writers.
type Store struct {
	capacity int
	bars     []models.Bar
}

// NewStore creates a store holding at most capacity bars.
func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{capacity: capacity, bars: make([]models.Bar, 0, capacity)}
}

// Add inserts the bar, overwriting any bar with the same timestamp,
// and drops the oldest bars beyond capacity.
func (s *Store) Add(b models.Bar) error {
	if b.Time.IsZero() || b.Unix() <= 0 {
		return ErrInvalidBar
	}
	i := sort.Search(len(s.bars), func(i int) bool { return !s.bars[i].Time.Before(b.Time) })
	switch {
	case i < len(s.bars) && s.bars[i].Time.Equal(b.Time):
		s.bars[i] = b
		return nil
	case i == len(s.bars):
		s.bars = append(s.bars, b)
	default:
		s.bars = append(s.bars, models.Bar{})
		copy(s.bars[i+1:], s.bars[i:])
		s.bars[i] = b
	}
	if over := len(s.bars) - s.capacity; over > 0 {
		s.bars = append(s.bars[:0], s.bars[over:]...)
	}
	return nil
}

// AddAll inserts bars in order and returns how many were rejected.
func (s *Store) AddAll(bars []models.Bar) (rejected int) {
	for _, b := range bars {
		if err := s.Add(b); err != nil {
			rejected++
		}
	}
	return rejected
}

// Snapshot returns an independent copy of the ordered bars.
func (s *Store) Snapshot() []models.Bar {
	out := make([]models.Bar, len(s.bars))
	copy(out, s.bars)
	return out
}

// Len is the number of stored bars.
func (s *Store) Len() int { return len(s.bars) }

// Capacity is the maximum number of bars kept.
func (s *Store) Capacity() int { return s.capacity }

// IsFull reports whether the store holds Capacity bars.
func (s *Store) IsFull() bool { return len(s.bars) >= s.capacity }

// LatestClose is the close of the newest bar, or 0 when empty.
func (s *Store) LatestClose() float64 {
	if len(s.bars) == 0 {
		return 0
	}
	return s.bars[len(s.bars)-1].Close
}

// Latest returns the newest bar.
func (s *Store) Latest() (models.Bar, bool) {
	if len(s.bars) == 0 {
		return models.Bar{}, false
	}
	return s.bars[len(s.bars)-1], true
}
