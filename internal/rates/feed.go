package rates

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	botMinColumns  = 15
	botRateColumn  = 13
	botMinFeedSize = 100
)

// ParseBOTCSV extracts currency → spot rate from the Bank of Taiwan daily
// CSV. The header line, blank lines, short rows and rows whose rate
// column is not a positive number are skipped.
func ParseBOTCSV(text string) map[string]float64 {
	rates := make(map[string]float64)
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	for i, line := range lines {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}

		columns := strings.Split(line, ",")
		if len(columns) < botMinColumns {
			continue
		}

		code := strings.TrimSpace(columns[0])
		rate, err := decimal.NewFromString(strings.TrimSpace(columns[botRateColumn]))
		if code == "" || err != nil || !rate.IsPositive() {
			continue
		}
		rates[code] = rate.InexactFloat64()
	}
	return rates
}
