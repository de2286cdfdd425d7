// Package ledger owns the stored transaction list: it validates edits,
// persists the full snapshot and builds the valued dashboard.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/mtlprog/forex/internal/domain"
	"github.com/mtlprog/forex/internal/rates"
	"github.com/mtlprog/forex/internal/store"
	"github.com/mtlprog/forex/internal/valuation"
)

// RateProvider supplies current rates.
type RateProvider interface {
	Rates(ctx context.Context) (rates.Snapshot, error)
}

// Dashboard is the valued view of the ledger.
type Dashboard struct {
	Stats        domain.DashboardStats `json:"stats"`
	Transactions []domain.Transaction  `json:"transactions"`
	Rates        map[string]float64    `json:"rates"`
	RatesSource  string                `json:"ratesSource"`
	GeneratedAt  time.Time             `json:"generatedAt"`
}

// Service serializes read-modify-write cycles on one stored snapshot.
type Service struct {
	mu      sync.Mutex
	store   store.Store
	rates   RateProvider
	key     string
	catalog domain.Catalog
	newID   func() string
}

// NewService creates a ledger over the snapshot stored under key.
func NewService(st store.Store, rp RateProvider, key string, catalog domain.Catalog) *Service {
	return &Service{
		store:   st,
		rates:   rp,
		key:     key,
		catalog: catalog,
		newID:   uuid.NewString,
	}
}

// List returns the stored transactions in stored order.
func (s *Service) List(ctx context.Context) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Dashboard values the stored transactions against current rates. A rate
// failure degrades to an empty rate map with no source.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	txs, err := s.List(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	current := map[string]float64{}
	source := ""
	if s.rates != nil {
		snap, err := s.rates.Rates(ctx)
		if err != nil {
			slog.Warn("rates unavailable, valuing at zero", "error", err)
		} else {
			current = snap.Rates
			source = snap.Source
		}
	}

	res, err := valuation.Evaluate(txs, current)
	if err != nil {
		return Dashboard{}, fmt.Errorf("evaluating portfolio: %w", err)
	}

	return Dashboard{
		Stats:        res.Stats,
		Transactions: res.Transactions,
		Rates:        current,
		RatesSource:  source,
		GeneratedAt:  time.Now().UTC(),
	}, nil
}

// Add validates tx, assigns an id when missing and appends it.
func (s *Service) Add(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.load(ctx)
	if err != nil {
		return domain.Transaction{}, err
	}

	tx, err = s.normalize(tx)
	if err != nil {
		return domain.Transaction{}, err
	}
	if tx.ID == "" || lo.ContainsBy(txs, func(t domain.Transaction) bool { return t.ID == tx.ID }) {
		tx.ID = s.newID()
	}
	next := append(slices.Clone(txs), tx)
	if err := checkHoldings(next, tx.Currency); err != nil {
		return domain.Transaction{}, err
	}

	if err := s.save(ctx, next); err != nil {
		return domain.Transaction{}, err
	}
	return tx, nil
}

// Update replaces the stored transaction with the same id.
func (s *Service) Update(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.load(ctx)
	if err != nil {
		return domain.Transaction{}, err
	}

	idx := slices.IndexFunc(txs, func(t domain.Transaction) bool { return t.ID == tx.ID })
	if tx.ID == "" || idx < 0 {
		return domain.Transaction{}, fmt.Errorf("%w: %s", ErrNotFound, tx.ID)
	}

	tx, err = s.normalize(tx)
	if err != nil {
		return domain.Transaction{}, err
	}
	prev := txs[idx]
	next := slices.Clone(txs)
	next[idx] = tx
	if err := checkHoldings(next, tx.Currency, prev.Currency); err != nil {
		return domain.Transaction{}, err
	}

	if err := s.save(ctx, next); err != nil {
		return domain.Transaction{}, err
	}
	return tx, nil
}

// Delete removes the transaction with the given id.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.load(ctx)
	if err != nil {
		return err
	}

	idx := slices.IndexFunc(txs, func(t domain.Transaction) bool { return t.ID == id })
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := lo.Reject(txs, func(t domain.Transaction, _ int) bool { return t.ID == id })
	if err := checkHoldings(next, txs[idx].Currency); err != nil {
		return err
	}
	return s.save(ctx, next)
}

// load reads the snapshot and assigns ids to records stored without one.
func (s *Service) load(ctx context.Context) ([]domain.Transaction, error) {
	txs, err := s.store.Load(ctx, s.key)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}

	missing := 0
	txs = lo.Map(txs, func(tx domain.Transaction, _ int) domain.Transaction {
		tx = tx.WithoutResult()
		if tx.ID == "" {
			tx.ID = s.newID()
			missing++
		}
		return tx
	})

	if missing > 0 {
		if err := s.save(ctx, txs); err != nil {
			slog.Warn("failed to persist assigned ids", "count", missing, "error", err)
		}
	}
	return txs, nil
}

func (s *Service) save(ctx context.Context, txs []domain.Transaction) error {
	if err := s.store.Save(ctx, s.key, txs); err != nil {
		return fmt.Errorf("saving transactions: %w", err)
	}
	return nil
}

// normalize validates tx and returns its canonical form.
func (s *Service) normalize(tx domain.Transaction) (domain.Transaction, error) {
	tx = tx.WithoutResult()
	tx.Currency = strings.ToUpper(strings.TrimSpace(tx.Currency))

	switch {
	case !tx.Type.Valid():
		return tx, &ValidationError{Field: "type", Msg: fmt.Sprintf("unknown type %q", tx.Type)}
	case !s.catalog.Contains(tx.Currency):
		return tx, &ValidationError{Field: "currency", Msg: fmt.Sprintf("unsupported currency %q", tx.Currency)}
	case tx.Date.IsZero():
		return tx, &ValidationError{Field: "date", Msg: "date is required"}
	case !finite(tx.Amount) || tx.Amount <= 0:
		return tx, &ValidationError{Field: "amount", Msg: "amount must be a number greater than 0"}
	}

	if tx.Type == domain.TransactionInterest {
		tx.Rate = 0
	} else if !finite(tx.Rate) || tx.Rate < 0 {
		return tx, &ValidationError{Field: "rate", Msg: "rate must be a non-negative number"}
	}
	return tx, nil
}

// holdingsSlack absorbs float drift when a SELL empties a position exactly.
const holdingsSlack = 1e-9

// checkHoldings replays txs in date order and rejects the first SELL in one
// of currencies that exceeds the quantity held at that point.
func checkHoldings(txs []domain.Transaction, currencies ...string) error {
	sorted := slices.Clone(txs)
	slices.SortStableFunc(sorted, func(a, b domain.Transaction) int {
		return a.Date.Compare(b.Date)
	})

	held := make(map[string]float64)
	for _, t := range sorted {
		if !lo.Contains(currencies, t.Currency) {
			continue
		}
		switch t.Type {
		case domain.TransactionBuy, domain.TransactionInterest:
			held[t.Currency] += t.Amount
		case domain.TransactionSell:
			available := held[t.Currency]
			if t.Amount > available+holdingsSlack {
				return &HoldingsError{Currency: t.Currency, Requested: t.Amount, Available: max(available, 0)}
			}
			held[t.Currency] = available - t.Amount
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
