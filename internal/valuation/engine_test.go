package valuation

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/mtlprog/forex/internal/domain"
)

func day(d int) domain.Date {
	return domain.NewDate(2024, time.January, d)
}

func buy(id string, d int, cur string, rate, amount float64) domain.Transaction {
	return domain.Transaction{ID: id, Date: day(d), Currency: cur, Rate: rate, Amount: amount, Type: domain.TransactionBuy}
}

func sell(id string, d int, cur string, rate, amount float64) domain.Transaction {
	return domain.Transaction{ID: id, Date: day(d), Currency: cur, Rate: rate, Amount: amount, Type: domain.TransactionSell}
}

func interest(id string, d int, cur string, amount float64) domain.Transaction {
	return domain.Transaction{ID: id, Date: day(d), Currency: cur, Amount: amount, Type: domain.TransactionInterest}
}

func mustEvaluate(t *testing.T, txs []domain.Transaction, rates map[string]float64) Result {
	t.Helper()
	res, err := Evaluate(txs, rates)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	return res
}

func item(t *testing.T, res Result, cur string) domain.PortfolioSummary {
	t.Helper()
	for _, s := range res.Stats.Items {
		if s.Currency == cur {
			return s
		}
	}
	t.Fatalf("currency %s not in Stats.Items", cur)
	return domain.PortfolioSummary{}
}

func TestEvaluateSingleBuy(t *testing.T) {
	res := mustEvaluate(t, []domain.Transaction{buy("1", 1, "USD", 32.0, 100)}, map[string]float64{"USD": 33.0})

	s := item(t, res, "USD")
	if s.TotalQuantity != 100 {
		t.Errorf("TotalQuantity = %v, want 100", s.TotalQuantity)
	}
	if s.AvgCost != 32.0 {
		t.Errorf("AvgCost = %v, want 32", s.AvgCost)
	}
	if s.CurrentRate != 33.0 {
		t.Errorf("CurrentRate = %v, want 33", s.CurrentRate)
	}
	if s.UnrealizedPL != 100 {
		t.Errorf("UnrealizedPL = %v, want 100", s.UnrealizedPL)
	}
	if s.RealizedPL != 0 {
		t.Errorf("RealizedPL = %v, want 0", s.RealizedPL)
	}
	if res.Stats.TotalUnrealizedPL != 100 {
		t.Errorf("TotalUnrealizedPL = %v, want 100", res.Stats.TotalUnrealizedPL)
	}
	if res.Transactions[0].RealizedPL != nil {
		t.Error("BUY should carry no realized P&L")
	}
}

func TestEvaluateBuyThenPartialSell(t *testing.T) {
	txs := []domain.Transaction{
		buy("b", 1, "USD", 32.0, 100),
		sell("s", 2, "USD", 34.0, 40),
	}
	res := mustEvaluate(t, txs, map[string]float64{"USD": 33.0})

	s := item(t, res, "USD")
	if s.TotalQuantity != 60 {
		t.Errorf("TotalQuantity = %v, want 60", s.TotalQuantity)
	}
	if s.AvgCost != 32.0 {
		t.Errorf("AvgCost = %v, want 32 (unchanged by sell)", s.AvgCost)
	}
	if s.UnrealizedPL != 60 {
		t.Errorf("UnrealizedPL = %v, want 60", s.UnrealizedPL)
	}
	if s.RealizedPL != 80 {
		t.Errorf("RealizedPL = %v, want 80", s.RealizedPL)
	}
	if res.Stats.TotalRealizedPL != 80 {
		t.Errorf("TotalRealizedPL = %v, want 80", res.Stats.TotalRealizedPL)
	}

	// Most recent first.
	if res.Transactions[0].ID != "s" || res.Transactions[1].ID != "b" {
		t.Fatalf("order = [%s %s], want [s b]", res.Transactions[0].ID, res.Transactions[1].ID)
	}
	if pl := res.Transactions[0].RealizedPL; pl == nil || *pl != 80 {
		t.Errorf("sell RealizedPL = %v, want 80", pl)
	}
}

func TestEvaluateInterestIsFreeInventory(t *testing.T) {
	tx := interest("i", 1, "USD", 5)
	tx.Rate = 99 // ignored
	res := mustEvaluate(t, []domain.Transaction{tx}, map[string]float64{"USD": 33.0})

	s := item(t, res, "USD")
	if s.AvgCost != 0 {
		t.Errorf("AvgCost = %v, want 0", s.AvgCost)
	}
	if s.TotalQuantity != 5 {
		t.Errorf("TotalQuantity = %v, want 5", s.TotalQuantity)
	}
	if s.UnrealizedPL != 165 {
		t.Errorf("UnrealizedPL = %v, want 165", s.UnrealizedPL)
	}
}

func TestEvaluateWeightedAverage(t *testing.T) {
	txs := []domain.Transaction{
		buy("1", 1, "USD", 30.0, 100),
		buy("2", 2, "USD", 34.0, 100),
	}
	res := mustEvaluate(t, txs, nil)

	if got := item(t, res, "USD").AvgCost; got != 32.0 {
		t.Errorf("AvgCost = %v, want 32", got)
	}
}

func TestEvaluateUnknownCurrencyRate(t *testing.T) {
	res := mustEvaluate(t, []domain.Transaction{buy("1", 1, "XYZ", 2.5, 10)}, map[string]float64{"USD": 33.0})

	s := item(t, res, "XYZ")
	if s.CurrentRate != 0 {
		t.Errorf("CurrentRate = %v, want 0", s.CurrentRate)
	}
	if s.UnrealizedPL != -25 {
		t.Errorf("UnrealizedPL = %v, want -25", s.UnrealizedPL)
	}
}

func TestEvaluateEmpty(t *testing.T) {
	res := mustEvaluate(t, nil, nil)

	if len(res.Stats.Items) != 0 || len(res.Transactions) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
	if res.Stats.Items == nil || res.Transactions == nil {
		t.Error("empty result slices should be non-nil")
	}
	if res.Stats.TotalRealizedPL != 0 || res.Stats.TotalUnrealizedPL != 0 {
		t.Error("totals should be zero")
	}
}

func TestEvaluateSortsByDateStable(t *testing.T) {
	txs := []domain.Transaction{
		sell("late-sell", 5, "USD", 35, 50),
		buy("same-a", 1, "USD", 30, 100),
		buy("same-b", 1, "USD", 40, 100),
	}
	res := mustEvaluate(t, txs, nil)

	ids := []string{res.Transactions[0].ID, res.Transactions[1].ID, res.Transactions[2].ID}
	want := []string{"late-sell", "same-b", "same-a"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("order = %v, want %v", ids, want)
	}
	// avg 35 from both buys, sell at 35 realizes nothing.
	if pl := *res.Transactions[0].RealizedPL; pl != 0 {
		t.Errorf("RealizedPL = %v, want 0", pl)
	}
}

func TestEvaluateSameDateTieAffectsAvgCost(t *testing.T) {
	// Sell precedes the second buy when it is listed first on the same date.
	first := []domain.Transaction{
		buy("b1", 1, "USD", 30, 100),
		sell("s", 2, "USD", 40, 50),
		buy("b2", 2, "USD", 50, 100),
	}
	second := []domain.Transaction{first[0], first[2], first[1]}

	a := mustEvaluate(t, first, nil)
	b := mustEvaluate(t, second, nil)

	if a.Stats.TotalRealizedPL != 500 {
		t.Errorf("sell before buy: TotalRealizedPL = %v, want 500", a.Stats.TotalRealizedPL)
	}
	// avg after b2 = (100*30 + 100*50)/200 = 40
	if b.Stats.TotalRealizedPL != 0 {
		t.Errorf("buy before sell: TotalRealizedPL = %v, want 0", b.Stats.TotalRealizedPL)
	}
}

func TestEvaluatePermutationKeepsSummaries(t *testing.T) {
	txs := []domain.Transaction{
		buy("1", 1, "USD", 30, 100),
		buy("2", 3, "JPY", 0.21, 10000),
		sell("3", 4, "USD", 33, 20),
		interest("4", 6, "USD", 1.5),
		sell("5", 8, "JPY", 0.22, 4000),
	}
	rates := map[string]float64{"USD": 32, "JPY": 0.2}
	permuted := []domain.Transaction{txs[4], txs[2], txs[0], txs[3], txs[1]}

	a := mustEvaluate(t, txs, rates)
	b := mustEvaluate(t, permuted, rates)

	if !reflect.DeepEqual(a.Summaries, b.Summaries) {
		t.Errorf("summaries differ:\n%+v\n%+v", a.Summaries, b.Summaries)
	}
	if a.Stats.TotalRealizedPL != b.Stats.TotalRealizedPL || a.Stats.TotalUnrealizedPL != b.Stats.TotalUnrealizedPL {
		t.Error("totals differ under permutation")
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	txs := []domain.Transaction{
		buy("1", 1, "USD", 31.7, 123.45),
		buy("2", 2, "EUR", 34.9, 10),
		sell("3", 3, "USD", 32.1, 23.45),
		interest("4", 3, "EUR", 0.07),
	}
	rates := map[string]float64{"USD": 32.05, "EUR": 35.2}

	first := mustEvaluate(t, txs, rates)
	for range 5 {
		if next := mustEvaluate(t, txs, rates); !reflect.DeepEqual(first, next) {
			t.Fatal("Evaluate() is not deterministic")
		}
	}
}

func TestEvaluateCostBasisInvariant(t *testing.T) {
	txs := []domain.Transaction{
		buy("1", 1, "GBP", 40.1, 12.5),
		interest("2", 2, "GBP", 0.3),
		buy("3", 3, "GBP", 41.7, 7.25),
		interest("4", 4, "GBP", 0.11),
	}
	res := mustEvaluate(t, txs, nil)

	paid := 40.1*12.5 + 41.7*7.25
	qty := 12.5 + 0.3 + 7.25 + 0.11
	got := res.Summaries["GBP"].AvgCost
	if math.Abs(got-paid/qty) > 1e-9 {
		t.Errorf("AvgCost = %v, want %v", got, paid/qty)
	}
}

func TestEvaluateSellLeavesAvgCostBitIdentical(t *testing.T) {
	before := []domain.Transaction{
		buy("1", 1, "AUD", 21.13, 33.3),
		buy("2", 2, "AUD", 20.97, 17.1),
	}
	after := append(append([]domain.Transaction{}, before...), sell("3", 3, "AUD", 22.4, 11.7))

	a := mustEvaluate(t, before, nil).Summaries["AUD"]
	b := mustEvaluate(t, after, nil).Summaries["AUD"]

	if math.Float64bits(a.AvgCost) != math.Float64bits(b.AvgCost) {
		t.Errorf("AvgCost changed by sell: %v -> %v", a.AvgCost, b.AvgCost)
	}
	if b.TotalQuantity == a.TotalQuantity {
		t.Error("TotalQuantity should drop after sell")
	}
}

func TestEvaluateRealizedAdditivity(t *testing.T) {
	txs := []domain.Transaction{
		buy("1", 1, "USD", 30, 100),
		sell("2", 2, "USD", 31, 10),
		buy("3", 3, "USD", 33, 50),
		sell("4", 4, "USD", 29.5, 70),
		buy("5", 1, "HKD", 4.1, 1000),
		sell("6", 5, "HKD", 4.2, 500),
	}
	res := mustEvaluate(t, txs, nil)

	perTx := map[string]float64{}
	for _, tx := range res.Transactions {
		if tx.RealizedPL != nil {
			perTx[tx.Currency] += *tx.RealizedPL
		}
	}

	grand := 0.0
	for cur, s := range res.Summaries {
		if math.Abs(perTx[cur]-s.RealizedPL) > 1e-9 {
			t.Errorf("%s: sum of per-tx P&L = %v, summary = %v", cur, perTx[cur], s.RealizedPL)
		}
		grand += s.RealizedPL
	}
	if math.Abs(grand-res.Stats.TotalRealizedPL) > 1e-9 {
		t.Errorf("TotalRealizedPL = %v, want %v", res.Stats.TotalRealizedPL, grand)
	}
}

func TestEvaluateFilterThreshold(t *testing.T) {
	txs := []domain.Transaction{
		// Flat: fully sold at cost.
		buy("1", 1, "CHF", 36, 10),
		sell("2", 2, "CHF", 36, 10),
		// Closed with realized profit of 100.
		buy("3", 1, "USD", 30, 50),
		sell("4", 2, "USD", 32, 50),
		// Dust below epsilon.
		buy("5", 1, "JPY", 0.2, 0.0005),
	}
	res := mustEvaluate(t, txs, map[string]float64{"CHF": 37, "USD": 33, "JPY": 0.21})

	codes := map[string]bool{}
	for _, s := range res.Stats.Items {
		codes[s.Currency] = true
	}
	if codes["CHF"] {
		t.Error("CHF with zero quantity and zero realized P&L should be pruned")
	}
	if codes["JPY"] {
		t.Error("JPY dust should be pruned")
	}
	if !codes["USD"] {
		t.Error("USD with realized P&L 100 should remain")
	}
	if got := item(t, res, "USD").RealizedPL; got != 100 {
		t.Errorf("USD RealizedPL = %v, want 100", got)
	}
	if _, ok := res.Summaries["CHF"]; !ok {
		t.Error("pruned currencies stay in Summaries")
	}
}

func TestEvaluateItemsInFirstSeenOrder(t *testing.T) {
	txs := []domain.Transaction{
		buy("1", 3, "USD", 30, 1),
		buy("2", 1, "EUR", 34, 1),
		buy("3", 2, "JPY", 0.2, 1),
	}
	res := mustEvaluate(t, txs, nil)

	var got []string
	for _, s := range res.Stats.Items {
		got = append(got, s.Currency)
	}
	if want := []string{"EUR", "JPY", "USD"}; !reflect.DeepEqual(got, want) {
		t.Errorf("items = %v, want %v", got, want)
	}
}

func TestEvaluateOversellGoesNegative(t *testing.T) {
	txs := []domain.Transaction{
		buy("1", 1, "USD", 30, 10),
		sell("2", 2, "USD", 31, 15),
	}
	res := mustEvaluate(t, txs, map[string]float64{"USD": 32})

	s := item(t, res, "USD")
	if s.TotalQuantity != -5 {
		t.Errorf("TotalQuantity = %v, want -5", s.TotalQuantity)
	}
	if s.RealizedPL != 15 {
		t.Errorf("RealizedPL = %v, want 15", s.RealizedPL)
	}
	if s.UnrealizedPL != -10 {
		t.Errorf("UnrealizedPL = %v, want -10", s.UnrealizedPL)
	}
}

func TestEvaluateStaleAvgCostAfterFullDisposal(t *testing.T) {
	txs := []domain.Transaction{
		buy("1", 1, "USD", 30, 10),
		sell("2", 2, "USD", 31, 10),
		buy("3", 3, "USD", 34, 10),
	}
	res := mustEvaluate(t, txs, nil)

	// Quantity was zero before the rebuy, so the stale basis carries no weight.
	if got := res.Summaries["USD"].AvgCost; got != 34 {
		t.Errorf("AvgCost = %v, want 34", got)
	}
}

func TestEvaluateDoesNotMutateInput(t *testing.T) {
	stale := 999.0
	txs := []domain.Transaction{
		sell("2", 2, "USD", 34, 40),
		buy("1", 1, "USD", 32, 100),
	}
	txs[0].RealizedPL = &stale
	txs[1].RealizedPL = &stale
	snapshot := append([]domain.Transaction{}, txs...)

	res := mustEvaluate(t, txs, nil)

	if !reflect.DeepEqual(txs, snapshot) {
		t.Error("input slice was modified")
	}
	if stale != 999 {
		t.Error("input RealizedPL pointee was modified")
	}
	for _, tx := range res.Transactions {
		if tx.RealizedPL == &stale {
			t.Errorf("output %s aliases input RealizedPL", tx.ID)
		}
	}
	if res.Transactions[1].RealizedPL != nil {
		t.Error("input RealizedPL on BUY must be cleared")
	}
	if pl := res.Transactions[0].RealizedPL; pl == nil || *pl != 80 {
		t.Errorf("input RealizedPL on SELL must be overwritten, got %v", pl)
	}
}

func TestEvaluateRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		tx    domain.Transaction
		rates map[string]float64
		field string
	}{
		{"unknown type", domain.Transaction{ID: "x", Currency: "USD", Type: "GIFT", Amount: 1}, nil, "type"},
		{"NaN amount", buy("x", 1, "USD", 30, math.NaN()), nil, "amount"},
		{"infinite rate", buy("x", 1, "USD", math.Inf(1), 1), nil, "rate"},
		{"NaN market rate", buy("x", 1, "USD", 30, 1), map[string]float64{"USD": math.NaN()}, "currentRate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate([]domain.Transaction{tt.tx}, tt.rates)
			if !errors.Is(err, ErrInvalidTransaction) {
				t.Fatalf("error = %v, want ErrInvalidTransaction", err)
			}
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("error %T is not *FieldError", err)
			}
			if fe.Field != tt.field {
				t.Errorf("Field = %q, want %q", fe.Field, tt.field)
			}
		})
	}
}

func TestEvaluateIgnoresInterestRate(t *testing.T) {
	tx := interest("i", 1, "USD", 1)
	tx.Rate = math.NaN()
	if _, err := Evaluate([]domain.Transaction{tx}, nil); err != nil {
		t.Errorf("INTEREST rate should be ignored, got %v", err)
	}
}

func TestEvaluateIgnoresUnusedBadRates(t *testing.T) {
	_, err := Evaluate([]domain.Transaction{buy("1", 1, "USD", 30, 1)}, map[string]float64{"EUR": math.Inf(-1)})
	if err != nil {
		t.Errorf("rates of untraded currencies should not matter, got %v", err)
	}
}
