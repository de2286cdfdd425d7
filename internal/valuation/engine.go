package valuation

import (
	"slices"

	"github.com/samber/lo"

	"github.com/mtlprog/forex/internal/domain"
)

// Epsilon is the magnitude below which a quantity or realized P&L is
// considered negligible when pruning dashboard items.
const Epsilon = 0.001

// Result is the output of one engine run.
type Result struct {
	Stats domain.DashboardStats
	// Transactions is an enriched copy of the input, most recent date first.
	Transactions []domain.Transaction
	// Summaries holds every currency seen, including those pruned from Stats.Items.
	Summaries map[string]domain.PortfolioSummary
}

// position is the fold accumulator for one currency.
type position struct {
	quantity   float64
	avgCost    float64
	realizedPL float64
}

// Evaluate folds the transactions in date order into per-currency positions
// and values them against rates. A currency missing from rates is valued at 0.
// The input slice and its elements are never modified.
func Evaluate(txs []domain.Transaction, rates map[string]float64) (Result, error) {
	if err := Validate(txs, rates); err != nil {
		return Result{}, err
	}

	enriched := lo.Map(txs, func(tx domain.Transaction, _ int) domain.Transaction {
		return tx.WithoutResult()
	})
	slices.SortStableFunc(enriched, func(a, b domain.Transaction) int {
		return a.Date.Compare(b.Date)
	})

	positions := make(map[string]*position)
	var order []string
	totalRealized := 0.0

	for i := range enriched {
		tx := &enriched[i]
		p, ok := positions[tx.Currency]
		if !ok {
			p = &position{}
			positions[tx.Currency] = p
			order = append(order, tx.Currency)
		}

		switch tx.Type {
		case domain.TransactionBuy, domain.TransactionInterest:
			cost := tx.Rate
			if tx.Type == domain.TransactionInterest {
				cost = 0
			}
			costBefore := p.quantity * p.avgCost
			p.quantity += tx.Amount
			if p.quantity > 0 {
				p.avgCost = (costBefore + tx.Amount*cost) / p.quantity
			} else {
				p.avgCost = 0
			}
		case domain.TransactionSell:
			pnl := (tx.Rate - p.avgCost) * tx.Amount
			p.realizedPL += pnl
			totalRealized += pnl
			p.quantity -= tx.Amount
			tx.RealizedPL = &pnl
		}
	}

	summaries := make(map[string]domain.PortfolioSummary, len(order))
	all := lo.Map(order, func(code string, _ int) domain.PortfolioSummary {
		p := positions[code]
		rate := rates[code]
		s := domain.PortfolioSummary{
			Currency:      code,
			TotalQuantity: p.quantity,
			AvgCost:       p.avgCost,
			CurrentRate:   rate,
			UnrealizedPL:  (rate - p.avgCost) * p.quantity,
			RealizedPL:    p.realizedPL,
		}
		summaries[code] = s
		return s
	})

	totalUnrealized := lo.Reduce(all, func(acc float64, s domain.PortfolioSummary, _ int) float64 {
		return acc + s.UnrealizedPL
	}, 0)

	slices.Reverse(enriched)

	return Result{
		Stats: domain.DashboardStats{
			TotalUnrealizedPL: totalUnrealized,
			TotalRealizedPL:   totalRealized,
			Items:             lo.Filter(all, func(s domain.PortfolioSummary, _ int) bool { return visible(s) }),
		},
		Transactions: enriched,
		Summaries:    summaries,
	}, nil
}

// visible keeps positions that still hold units or carry realized history.
func visible(s domain.PortfolioSummary) bool {
	return abs(s.TotalQuantity) > Epsilon || abs(s.RealizedPL) > Epsilon
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
