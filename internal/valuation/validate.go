package valuation

import (
	"errors"
	"fmt"
	"math"

	"github.com/mtlprog/forex/internal/domain"
)

// ErrInvalidTransaction indicates input the engine cannot value.
var ErrInvalidTransaction = errors.New("invalid transaction")

// FieldError names the offending record and field.
type FieldError struct {
	ID    string
	Field string
	Value any
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("transaction %q: invalid %s: %v", e.ID, e.Field, e.Value)
}

func (e *FieldError) Unwrap() error { return ErrInvalidTransaction }

// Validate checks that every transaction has a known type and finite
// numbers, and that the rate of every traded currency is finite. It does
// not check signs or holdings; that is the job of the input layer.
func Validate(txs []domain.Transaction, rates map[string]float64) error {
	for _, tx := range txs {
		if !tx.Type.Valid() {
			return &FieldError{ID: tx.ID, Field: "type", Value: tx.Type}
		}
		if !finite(tx.Amount) {
			return &FieldError{ID: tx.ID, Field: "amount", Value: tx.Amount}
		}
		// INTEREST ignores its rate.
		if tx.Type != domain.TransactionInterest && !finite(tx.Rate) {
			return &FieldError{ID: tx.ID, Field: "rate", Value: tx.Rate}
		}
		if rate, ok := rates[tx.Currency]; ok && !finite(rate) {
			return &FieldError{ID: tx.Currency, Field: "currentRate", Value: rate}
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
