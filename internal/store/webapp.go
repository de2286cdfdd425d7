package store

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mtlprog/forex/internal/domain"
	"github.com/mtlprog/forex/internal/remote"
)

// WebAppStore talks to a spreadsheet web app endpoint: GET returns the
// stored JSON array, POST replaces it.
type WebAppStore struct {
	client   *remote.Client
	endpoint string
}

// NewWebAppStore creates a store for the given endpoint.
func NewWebAppStore(client *remote.Client, endpoint string) *WebAppStore {
	return &WebAppStore{client: client, endpoint: endpoint}
}

func (s *WebAppStore) Load(ctx context.Context, key string) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	if err := s.client.GetJSON(ctx, s.keyURL(key), &txs); err != nil {
		return nil, fmt.Errorf("loading %s from web app: %w", key, err)
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return txs, nil
}

func (s *WebAppStore) Save(ctx context.Context, key string, txs []domain.Transaction) error {
	if err := s.client.PostJSON(ctx, s.keyURL(key), stripResults(txs), nil); err != nil {
		return fmt.Errorf("saving %s to web app: %w", key, err)
	}
	return nil
}

func (s *WebAppStore) keyURL(key string) string {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return s.endpoint
	}
	q := u.Query()
	q.Set("key", key)
	u.RawQuery = q.Encode()
	return u.String()
}
