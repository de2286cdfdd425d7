package domain

// PortfolioSummary is the derived position in one currency.
type PortfolioSummary struct {
	Currency      string  `json:"currency"`
	TotalQuantity float64 `json:"totalQuantity"`
	AvgCost       float64 `json:"avgCost"`
	CurrentRate   float64 `json:"currentRate"`
	UnrealizedPL  float64 `json:"unrealizedPL"`
	RealizedPL    float64 `json:"realizedPL"`
}

// DashboardStats aggregates all currency positions.
// Items holds only positions with a non-negligible quantity or realized P&L.
type DashboardStats struct {
	TotalUnrealizedPL float64            `json:"totalUnrealizedPL"`
	TotalRealizedPL   float64            `json:"totalRealizedPL"`
	Items             []PortfolioSummary `json:"items"`
}
