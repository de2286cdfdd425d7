package domain

import (
	"strings"

	"github.com/samber/lo"
)

// Currency is an entry of the tradable currency catalog.
type Currency struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// defaultCatalog lists the currencies quoted on the Bank of Taiwan board.
var defaultCatalog = []Currency{
	{Code: "USD", Name: "US Dollar"},
	{Code: "HKD", Name: "Hong Kong Dollar"},
	{Code: "GBP", Name: "British Pound"},
	{Code: "AUD", Name: "Australian Dollar"},
	{Code: "CAD", Name: "Canadian Dollar"},
	{Code: "SGD", Name: "Singapore Dollar"},
	{Code: "CHF", Name: "Swiss Franc"},
	{Code: "JPY", Name: "Japanese Yen"},
	{Code: "ZAR", Name: "South African Rand"},
	{Code: "SEK", Name: "Swedish Krona"},
	{Code: "NZD", Name: "New Zealand Dollar"},
	{Code: "THB", Name: "Thai Baht"},
	{Code: "PHP", Name: "Philippine Peso"},
	{Code: "IDR", Name: "Indonesian Rupiah"},
	{Code: "EUR", Name: "Euro"},
	{Code: "KRW", Name: "South Korean Won"},
	{Code: "VND", Name: "Vietnamese Dong"},
	{Code: "MYR", Name: "Malaysian Ringgit"},
	{Code: "CNY", Name: "Chinese Yuan"},
}

// DefaultCatalog returns a copy of the built-in currency catalog.
func DefaultCatalog() Catalog {
	out := make([]Currency, len(defaultCatalog))
	copy(out, defaultCatalog)
	return Catalog(out)
}

// Catalog is an ordered list of accepted currencies.
type Catalog []Currency

// CatalogFromCodes builds a catalog from currency codes, borrowing names
// from the built-in catalog where known. Blank and duplicate codes are dropped.
func CatalogFromCodes(codes []string) Catalog {
	codes = lo.Uniq(lo.FilterMap(codes, func(c string, _ int) (string, bool) {
		c = strings.ToUpper(strings.TrimSpace(c))
		return c, c != ""
	}))
	return lo.Map(codes, func(code string, _ int) Currency {
		if known, ok := DefaultCatalog().Lookup(code); ok {
			return known
		}
		return Currency{Code: code, Name: code}
	})
}

// Lookup finds a currency by code.
func (c Catalog) Lookup(code string) (Currency, bool) {
	return lo.Find(c, func(cur Currency) bool {
		return cur.Code == code
	})
}

// Contains reports whether code is in the catalog.
func (c Catalog) Contains(code string) bool {
	_, ok := c.Lookup(code)
	return ok
}

// Codes returns the currency codes in catalog order.
func (c Catalog) Codes() []string {
	return lo.Map(c, func(cur Currency, _ int) string { return cur.Code })
}
