package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	icache "TradePulse/internal/service/cache"
)

// CacheState persists pipeline state as JSON in a BytesCache.
type CacheState struct {
	c      icache.BytesCache
	prefix string
	ttl    time.Duration
}

func NewCacheState(c icache.BytesCache, prefix string, ttl time.Duration) *CacheState {
	return &CacheState{c: c, prefix: prefix, ttl: ttl}
}

func (s *CacheState) key(name string) string { return s.prefix + name }

func (s *CacheState) SaveLatest(ctx context.Context, r *models.CycleReport) error {
	return s.put(ctx, "latest", r)
}

// Latest returns nil without error when nothing is cached.
func (s *CacheState) Latest(ctx context.Context) (*models.CycleReport, error) {
	var r models.CycleReport
	ok, err := s.get(ctx, "latest", &r)
	if err != nil || !ok {
		return nil, err
	}
	return &r, nil
}

func (s *CacheState) SaveSignalHistory(ctx context.Context, h []models.Signal) error {
	return s.put(ctx, "signal_history", h)
}

func (s *CacheState) SignalHistory(ctx context.Context) ([]models.Signal, error) {
	var h []models.Signal
	if _, err := s.get(ctx, "signal_history", &h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *CacheState) put(ctx context.Context, name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := s.c.SetBytes(ctx, s.key(name), b, s.ttl); err != nil {
		return fmt.Errorf("cache set %s: %w", name, err)
	}
	return nil
}

func (s *CacheState) get(ctx context.Context, name string, dest any) (bool, error) {
	b, ok, err := s.c.GetBytes(ctx, s.key(name))
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", name, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

var _ domrepo.StateCache = (*CacheState)(nil)
