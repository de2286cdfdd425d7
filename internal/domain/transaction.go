package domain

import "fmt"

// TransactionType classifies a cash event.
type TransactionType string

const (
	TransactionBuy      TransactionType = "BUY"
	TransactionSell     TransactionType = "SELL"
	TransactionInterest TransactionType = "INTEREST"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionBuy, TransactionSell, TransactionInterest:
		return true
	}
	return false
}

// Acquisition reports whether the event adds units to the holding.
func (t TransactionType) Acquisition() bool {
	return t == TransactionBuy || t == TransactionInterest
}

// ParseTransactionType parses a type name as stored by clients.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
	return t, nil
}

// Transaction is one recorded cash event in a single currency.
// RealizedPL is owned by the valuation engine: it is set on SELL
// results only and ignored on input.
type Transaction struct {
	ID         string          `json:"id"`
	Date       Date            `json:"date"`
	Currency   string          `json:"currency"`
	Rate       float64         `json:"rate"`
	Amount     float64         `json:"amount"`
	Type       TransactionType `json:"type"`
	RealizedPL *float64        `json:"realizedPL,omitempty"`
}

// WithoutResult returns a copy with the engine-owned fields cleared.
func (t Transaction) WithoutResult() Transaction {
	t.RealizedPL = nil
	return t
}
