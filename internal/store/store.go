// Package store persists the transaction list as one snapshot per key.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"github.com/mtlprog/forex/internal/domain"
)

// ErrNotFound indicates that nothing is stored under the key.
var ErrNotFound = errors.New("snapshot not found")

// Store loads and saves a transaction snapshot.
type Store interface {
	Load(ctx context.Context, key string) ([]domain.Transaction, error)
	Save(ctx context.Context, key string, txs []domain.Transaction) error
}

// stripResults drops engine-computed fields before persisting.
func stripResults(txs []domain.Transaction) []domain.Transaction {
	return lo.Map(txs, func(tx domain.Transaction, _ int) domain.Transaction {
		return tx.WithoutResult()
	})
}

// FallbackStore writes through a remote store to a local one and reads
// from the remote first. Remote may be nil.
type FallbackStore struct {
	Remote Store
	Local  Store
}

// Load returns the remote snapshot, or the local one when the remote
// fails. A key missing everywhere loads as empty.
func (s *FallbackStore) Load(ctx context.Context, key string) ([]domain.Transaction, error) {
	if s.Remote != nil {
		txs, err := s.Remote.Load(ctx, key)
		if err == nil {
			return txs, nil
		}
		if !errors.Is(err, ErrNotFound) {
			slog.Warn("remote load failed, using local snapshot", "key", key, "error", err)
		}
	}

	txs, err := s.Local.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return []domain.Transaction{}, nil
	}
	return txs, err
}

// Save writes remote first, logging its failure, then local.
func (s *FallbackStore) Save(ctx context.Context, key string, txs []domain.Transaction) error {
	if s.Remote != nil {
		if err := s.Remote.Save(ctx, key, txs); err != nil {
			slog.Error("remote save failed", "key", key, "error", err)
		}
	}
	return s.Local.Save(ctx, key, txs)
}

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]domain.Transaction
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]domain.Transaction)}
}

func (s *MemoryStore) Load(_ context.Context, key string) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]domain.Transaction(nil), txs...), nil
}

func (s *MemoryStore) Save(_ context.Context, key string, txs []domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = stripResults(txs)
	return nil
}
