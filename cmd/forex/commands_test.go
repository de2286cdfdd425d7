package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mtlprog/forex/internal/domain"
	"github.com/mtlprog/forex/internal/ledger"
)

func TestPrintDashboard(t *testing.T) {
	dash := ledger.Dashboard{
		Stats: domain.DashboardStats{
			TotalUnrealizedPL: 120,
			TotalRealizedPL:   40,
			Items: []domain.PortfolioSummary{
				{Currency: "USD", TotalQuantity: 60, AvgCost: 30, CurrentRate: 32, UnrealizedPL: 120, RealizedPL: 40},
			},
		},
		RatesSource: "static",
	}

	var buf bytes.Buffer
	if err := printDashboard(&buf, dash); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"USD", "30.0000", "32.0000", "120.00", "40.00", "rates: static"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintDashboardNoRates(t *testing.T) {
	var buf bytes.Buffer
	if err := printDashboard(&buf, ledger.Dashboard{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "rates: unavailable") {
		t.Errorf("output = %q", buf.String())
	}
}
