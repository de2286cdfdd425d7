package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates an unknown transaction id.
	ErrNotFound = errors.New("transaction not found")
	// ErrInvalidInput indicates a transaction that failed validation.
	ErrInvalidInput = errors.New("invalid transaction input")
	// ErrInsufficientHoldings indicates a SELL larger than the available quantity.
	ErrInsufficientHoldings = errors.New("insufficient holdings")
)

// ValidationError names the rejected field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// HoldingsError reports the maximum quantity a SELL could have used.
type HoldingsError struct {
	Currency  string
	Requested float64
	Available float64
}

func (e *HoldingsError) Error() string {
	return fmt.Sprintf("cannot sell %v %s: at most %v available", e.Requested, e.Currency, e.Available)
}

func (e *HoldingsError) Unwrap() error { return ErrInsufficientHoldings }
