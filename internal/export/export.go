// Package export renders a valued ledger as an xlsx workbook.
package export

import (
	"fmt"
	"io"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"

	"github.com/mtlprog/forex/internal/domain"
)

const (
	SummarySheet = "Summary"
	HistorySheet = "History"
)

// summaryColumn describes one column of the Summary sheet.
type summaryColumn struct {
	header string
	value  func(domain.PortfolioSummary) any
}

var summaryColumns = []summaryColumn{
	{"Currency", func(s domain.PortfolioSummary) any { return s.Currency }},
	{"Quantity", func(s domain.PortfolioSummary) any { return s.TotalQuantity }},
	{"AvgCost", func(s domain.PortfolioSummary) any { return domain.RoundTo(s.AvgCost, domain.RatePrecision) }},
	{"CurrentRate", func(s domain.PortfolioSummary) any { return domain.RoundTo(s.CurrentRate, domain.RatePrecision) }},
	{"UnrealizedPL", func(s domain.PortfolioSummary) any { return domain.RoundTo(s.UnrealizedPL, domain.MoneyPrecision) }},
	{"RealizedPL", func(s domain.PortfolioSummary) any { return domain.RoundTo(s.RealizedPL, domain.MoneyPrecision) }},
}

// historyColumn describes one column of the History sheet.
type historyColumn struct {
	header string
	value  func(domain.Transaction) any
}

var historyColumns = []historyColumn{
	{"Date", func(t domain.Transaction) any { return t.Date.String() }},
	{"Type", func(t domain.Transaction) any { return string(t.Type) }},
	{"Currency", func(t domain.Transaction) any { return t.Currency }},
	{"Rate", func(t domain.Transaction) any {
		// INTEREST carries no rate.
		if t.Type == domain.TransactionInterest {
			return "-"
		}
		return domain.RoundTo(t.Rate, domain.RatePrecision)
	}},
	{"Amount", func(t domain.Transaction) any { return t.Amount }},
	{"RealizedPL", func(t domain.Transaction) any {
		if t.RealizedPL == nil {
			return nil
		}
		return domain.RoundTo(*t.RealizedPL, domain.MoneyPrecision)
	}},
}

// Workbook builds the Summary and History sheets. txs are written in the
// given order.
func Workbook(stats domain.DashboardStats, txs []domain.Transaction) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, fmt.Errorf("renaming default sheet: %w", err)
	}
	if _, err := f.NewSheet(HistorySheet); err != nil {
		return nil, fmt.Errorf("creating history sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	summary := make([][]any, 0, len(stats.Items)+2)
	summary = append(summary, lo.Map(summaryColumns, func(c summaryColumn, _ int) any { return c.header }))
	for _, item := range stats.Items {
		summary = append(summary, lo.Map(summaryColumns, func(c summaryColumn, _ int) any { return c.value(item) }))
	}
	summary = append(summary, []any{
		"Total", nil, nil, nil,
		domain.RoundTo(stats.TotalUnrealizedPL, domain.MoneyPrecision),
		domain.RoundTo(stats.TotalRealizedPL, domain.MoneyPrecision),
	})

	history := make([][]any, 0, len(txs)+1)
	history = append(history, lo.Map(historyColumns, func(c historyColumn, _ int) any { return c.header }))
	for _, tx := range txs {
		history = append(history, lo.Map(historyColumns, func(c historyColumn, _ int) any { return c.value(tx) }))
	}

	if err := writeRows(f, SummarySheet, summary, bold); err != nil {
		return nil, err
	}
	if err := writeRows(f, HistorySheet, history, bold); err != nil {
		return nil, err
	}

	totalsRow := len(summary)
	if err := f.SetCellStyle(SummarySheet, cell(1, totalsRow), cell(len(summaryColumns), totalsRow), bold); err != nil {
		return nil, fmt.Errorf("styling totals: %w", err)
	}
	return f, nil
}

// Write builds the workbook and writes it to w.
func Write(w io.Writer, stats domain.DashboardStats, txs []domain.Transaction) error {
	f, err := Workbook(stats, txs)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		if err := f.SetSheetRow(sheet, cell(1, i+1), &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) > 0 {
		if err := f.SetCellStyle(sheet, cell(1, 1), cell(len(rows[0]), 1), headerStyle); err != nil {
			return fmt.Errorf("styling %s header: %w", sheet, err)
		}
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
