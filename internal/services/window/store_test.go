package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePulse/internal/domain/models"
)

var t0 = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func bar(min int, close float64) models.Bar {
	return models.Bar{Time: t0.Add(time.Duration(min) * time.Minute), Open: close, High: close, Low: close, Close: close, Volume: 1}
}

func TestAddKeepsOrderAndDedupes(t *testing.T) {
	s := NewStore(10)
	require.NoError(t, s.Add(bar(2, 102)))
	require.NoError(t, s.Add(bar(0, 100)))
	require.NoError(t, s.Add(bar(1, 101)))
	require.NoError(t, s.Add(bar(1, 111)))

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []float64{100, 111, 102}, []float64{snap[0].Close, snap[1].Close, snap[2].Close})
	assert.Equal(t, 102.0, s.LatestClose())
}

func TestCapacityKeepsNewest(t *testing.T) {
	s := NewStore(3)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Add(bar(i, float64(100+i))))
	}
	assert.True(t, s.IsFull())
	assert.Equal(t, 3, s.Len())
	snap := s.Snapshot()
	assert.Equal(t, 102.0, snap[0].Close)
	assert.Equal(t, 104.0, snap[2].Close)

	// A bar older than everything retained is inserted then evicted.
	require.NoError(t, s.Add(bar(0, 1)))
	assert.Equal(t, 102.0, s.Snapshot()[0].Close)
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := NewStore(5)
	require.NoError(t, s.Add(bar(0, 100)))
	snap := s.Snapshot()
	snap[0].Close = 0
	assert.Equal(t, 100.0, s.LatestClose())
}

func TestEmptyAndInvalid(t *testing.T) {
	s := NewStore(5)
	assert.Equal(t, 0.0, s.LatestClose())
	_, ok := s.Latest()
	assert.False(t, ok)
	assert.ErrorIs(t, s.Add(models.Bar{Close: 1}), ErrInvalidBar)
	assert.Equal(t, 1, s.AddAll([]models.Bar{{Close: 1}, bar(0, 1)}))
	assert.Equal(t, 1, s.Len())
}
