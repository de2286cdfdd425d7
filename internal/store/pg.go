package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/forex/internal/domain"
)

// PgStore implements Store with PostgreSQL, one JSONB row per key.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a new PostgreSQL store.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) Load(ctx context.Context, key string) ([]domain.Transaction, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM transaction_blobs WHERE key = $1`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading snapshot %s: %w", key, err)
	}

	var txs []domain.Transaction
	if err := json.Unmarshal(data, &txs); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", key, err)
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return txs, nil
}

func (s *PgStore) Save(ctx context.Context, key string, txs []domain.Transaction) error {
	data, err := json.Marshal(stripResults(txs))
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", key, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO transaction_blobs (key, data, updated_at)
		 VALUES ($1, $2::jsonb, NOW())
		 ON CONFLICT (key)
		 DO UPDATE SET data = $2::jsonb, updated_at = NOW()`,
		key, data)
	if err != nil {
		return fmt.Errorf("saving snapshot %s: %w", key, err)
	}
	return nil
}
