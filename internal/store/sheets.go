package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/mtlprog/forex/internal/domain"
)

var sheetHeader = []any{"id", "date", "currency", "rate", "amount", "type"}

// SheetsStore keeps each snapshot in a spreadsheet tab named by its key.
type SheetsStore struct {
	spreadsheetID string
	svc           *sheets.Service
}

// NewSheetsStore creates a SheetsStore authenticated with a service account JSON.
func NewSheetsStore(ctx context.Context, spreadsheetID, credentialsJSON string) (*SheetsStore, error) {
	creds, err := google.CredentialsFromJSON(
		ctx,
		[]byte(credentialsJSON),
		sheets.SpreadsheetsScope,
	)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}

	return NewSheetsStoreWithOptions(ctx, spreadsheetID, option.WithCredentials(creds))
}

// NewSheetsStoreWithOptions creates a SheetsStore from raw client options.
func NewSheetsStoreWithOptions(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*SheetsStore, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	return &SheetsStore{spreadsheetID: spreadsheetID, svc: svc}, nil
}

func (s *SheetsStore) Load(ctx context.Context, key string) ([]domain.Transaction, error) {
	exists, err := s.hasSheet(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, sheetRange(key, "A:F")).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", key, err)
	}

	rows := resp.Values
	if len(rows) > 0 {
		rows = rows[1:]
	}

	txs := make([]domain.Transaction, 0, len(rows))
	for i, row := range rows {
		if lo.EveryBy(row, func(c any) bool { return cellString(c) == "" }) {
			continue
		}
		tx, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("sheet %s row %d: %w", key, i+2, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// Save ensures the tab exists, then clears and rewrites it.
func (s *SheetsStore) Save(ctx context.Context, key string, txs []domain.Transaction) error {
	if err := s.ensureSheet(ctx, key); err != nil {
		return err
	}

	_, err := s.svc.Spreadsheets.Values.BatchClear(
		s.spreadsheetID,
		&sheets.BatchClearValuesRequest{Ranges: []string{sheetRange(key, "A:F")}},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clearing sheet %s: %w", key, err)
	}

	_, err = s.svc.Spreadsheets.Values.Update(
		s.spreadsheetID,
		sheetRange(key, "A1"),
		&sheets.ValueRange{Values: buildRows(txs)},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("writing sheet %s: %w", key, err)
	}
	return nil
}

// sheetRange builds an A1 range on the named tab, quoting the name so keys
// with spaces or punctuation stay valid.
func sheetRange(sheet, cells string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + cells
}

func buildRows(txs []domain.Transaction) [][]any {
	data := make([][]any, 0, len(txs)+1)
	data = append(data, sheetHeader)
	for _, tx := range txs {
		data = append(data, []any{
			tx.ID,
			tx.Date.String(),
			tx.Currency,
			strconv.FormatFloat(tx.Rate, 'f', -1, 64),
			strconv.FormatFloat(tx.Amount, 'f', -1, 64),
			string(tx.Type),
		})
	}
	return data
}

func parseRow(row []any) (domain.Transaction, error) {
	cell := func(i int) string {
		if i >= len(row) {
			return ""
		}
		return cellString(row[i])
	}

	date, err := domain.ParseDate(cell(1))
	if err != nil {
		return domain.Transaction{}, err
	}
	rate, err := parseNumber(cell(3))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("rate: %w", err)
	}
	amount, err := parseNumber(cell(4))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("amount: %w", err)
	}

	return domain.Transaction{
		ID:       cell(0),
		Date:     date,
		Currency: cell(2),
		Rate:     rate,
		Amount:   amount,
		Type:     domain.TransactionType(strings.ToUpper(cell(5))),
	}, nil
}

func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

// cellString renders an unformatted cell value.
func cellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(c)
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	default:
		return strings.TrimSpace(fmt.Sprint(c))
	}
}

func (s *SheetsStore) hasSheet(ctx context.Context, name string) (bool, error) {
	spreadsheet, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("getting spreadsheet metadata: %w", err)
	}
	return lo.ContainsBy(spreadsheet.Sheets, func(sh *sheets.Sheet) bool {
		return sh.Properties != nil && sh.Properties.Title == name
	}), nil
}

// ensureSheet creates the named tab if it does not already exist.
func (s *SheetsStore) ensureSheet(ctx context.Context, name string) error {
	exists, err := s.hasSheet(ctx, name)
	if err != nil || exists {
		return err
	}

	_, err = s.svc.Spreadsheets.BatchUpdate(
		s.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: name},
				},
			}},
		},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("creating sheet %s: %w", name, err)
	}
	return nil
}
