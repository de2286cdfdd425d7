package rates

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Quote is a persisted market rate.
type Quote struct {
	Currency  string          `json:"currency"`
	Rate      decimal.Decimal `json:"rate"`
	Source    string          `json:"source"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// QuoteRepository defines persistent storage for the last known live rates.
type QuoteRepository interface {
	SaveQuotes(ctx context.Context, rates map[string]float64, source string) error
	GetAllQuotes(ctx context.Context) ([]Quote, error)
}

// PgQuoteRepository implements QuoteRepository with PostgreSQL.
type PgQuoteRepository struct {
	pool *pgxpool.Pool
}

// NewPgQuoteRepository creates a new PostgreSQL quote repository.
func NewPgQuoteRepository(pool *pgxpool.Pool) *PgQuoteRepository {
	return &PgQuoteRepository{pool: pool}
}

func (r *PgQuoteRepository) SaveQuotes(ctx context.Context, rates map[string]float64, source string) error {
	batch := &pgx.Batch{}
	for currency, rate := range rates {
		batch.Queue(
			`INSERT INTO fx_rates (currency, rate, source, updated_at)
			 VALUES ($1, $2, $3, NOW())
			 ON CONFLICT (currency) DO UPDATE SET rate = $2, source = $3, updated_at = NOW()`,
			currency, decimal.NewFromFloat(rate), source)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range batch.Len() {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("saving rates from %s: %w", source, err)
		}
	}
	return nil
}

func (r *PgQuoteRepository) GetAllQuotes(ctx context.Context) ([]Quote, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT currency, rate, source, updated_at FROM fx_rates ORDER BY currency`)
	if err != nil {
		return nil, fmt.Errorf("getting all rates: %w", err)
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		var q Quote
		if err := rows.Scan(&q.Currency, &q.Rate, &q.Source, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning rate: %w", err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}
