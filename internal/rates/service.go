package rates

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Service serves current rates from a TTL cache over a source chain and
// persists live results for later use by a StoredSource.
type Service struct {
	chain *Chain
	repo  QuoteRepository
	cache *rateCache
}

// NewService creates a rate Service. repo may be nil.
func NewService(chain *Chain, repo QuoteRepository, ttl time.Duration) *Service {
	return &Service{
		chain: chain,
		repo:  repo,
		cache: newRateCache(ttl),
	}
}

// Rates returns cached rates, refreshing them when the cache is cold.
func (s *Service) Rates(ctx context.Context) (Snapshot, error) {
	if cached, ok := s.cache.get(); ok {
		return cached, nil
	}
	return s.Refresh(ctx)
}

// Refresh fetches through the chain regardless of the cache.
func (s *Service) Refresh(ctx context.Context) (Snapshot, error) {
	snap, err := s.chain.Fetch(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetching rates: %w", err)
	}

	if snap.Live && s.repo != nil {
		if err := s.repo.SaveQuotes(ctx, snap.Rates, snap.Source); err != nil {
			slog.Warn("failed to persist live rates", "source", snap.Source, "error", err)
		}
	}

	s.cache.set(snap)
	return snap.clone(), nil
}
