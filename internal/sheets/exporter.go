// Package sheets appends finalized invoices to a Google Sheets ledger.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"invoiceai/internal/logger"
	"invoiceai/pkg/models"
)

var (
	ErrInvalidSheetURL    = errors.New("invalid Google Sheets URL format")
	ErrMissingCredentials = errors.New("neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is set")
)

const (
	dateLayout     = "2006-01-02"
	exportedLayout = "2006-01-02 15:04:05"
)

// header is the ledger's first row; columns A to K.
var header = []any{
	"Invoice Number", "Date", "Due Date", "Client", "Client Email",
	"Subtotal", "Tax", "Total", "Currency", "Status", "Exported At",
}

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// Exporter writes ledger rows into one spreadsheet.
type Exporter struct {
	svc           *sheets.Service
	spreadsheetID string
	now           func() time.Time
	log           zerolog.Logger
}

// NewExporter opens the spreadsheet at sheetURL. Without client options the
// service account credentials are read from GOOGLE_APPLICATION_CREDENTIALS
// (a file) or GOOGLE_CREDENTIALS (inline JSON).
func NewExporter(ctx context.Context, sheetURL string, opts ...option.ClientOption) (*Exporter, error) {
	const op = "NewExporter"

	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(opts) == 0 {
		creds, err := credentialsFromEnv()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
		}
		opts = append(opts, option.WithHTTPClient(config.Client(ctx)))
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	return &Exporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		now:           func() time.Time { return time.Now().UTC() },
		log:           logger.WithComponent("sheets").With().Str("spreadsheet_id", spreadsheetID).Logger(),
	}, nil
}

func credentialsFromEnv() ([]byte, error) {
	if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		creds, err := os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		return creds, nil
	}
	if credsJSON := os.Getenv("GOOGLE_CREDENTIALS"); credsJSON != "" {
		return []byte(credsJSON), nil
	}
	return nil, ErrMissingCredentials
}

func extractSpreadsheetID(url string) (string, error) {
	matches := spreadsheetIDPattern.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", ErrInvalidSheetURL
	}
	return matches[1], nil
}

// AppendInvoices writes one row per invoice to sheetName, creating the
// worksheet and its header when missing. Invoices whose number is already in
// column A are skipped. It returns the number of rows appended.
func (e *Exporter) AppendInvoices(ctx context.Context, invoices []models.Invoice, sheetName string) (int, error) {
	const op = "AppendInvoices"

	if err := e.ensureSheetWithHeader(ctx, sheetName); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	exported, err := e.exportedNumbers(ctx, sheetName)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	exportedAt := e.now().Format(exportedLayout)
	var values [][]any
	for _, inv := range invoices {
		if exported[inv.Number] {
			e.log.Debug().Str("invoice_number", inv.Number).Msg("Invoice already in ledger, skipping")
			continue
		}
		values = append(values, Row(inv, exportedAt))
		exported[inv.Number] = true
	}
	if len(values) == 0 {
		e.log.Info().Str("sheet", sheetName).Msg("Ledger is up to date")
		return 0, nil
	}

	_, err = e.svc.Spreadsheets.Values.Append(
		e.spreadsheetID,
		sheetName+"!A:K",
		&sheets.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to append values to sheet: %w", op, err)
	}

	e.log.Info().
		Str("sheet", sheetName).
		Int("rows_written", len(values)).
		Msg("Appended invoices to ledger")

	return len(values), nil
}

// Row renders one invoice as ledger cells.
func Row(inv models.Invoice, exportedAt string) []any {
	return []any{
		inv.Number,
		inv.Date,
		inv.DueDate,
		inv.BillTo.Name,
		inv.BillTo.Email,
		inv.Subtotal.StringFixed(2),
		inv.Tax.StringFixed(2),
		inv.Total.StringFixed(2),
		normalizeCurrency(inv.Currency),
		string(inv.Status),
		exportedAt,
	}
}

func normalizeCurrency(currency string) string {
	normalized := strings.ToUpper(strings.TrimSpace(currency))
	switch normalized {
	case "":
		return "USD"
	case "$", "US$":
		return "USD"
	case "€":
		return "EUR"
	case "£":
		return "GBP"
	}
	return normalized
}

func (e *Exporter) ensureSheetWithHeader(ctx context.Context, sheetName string) error {
	const op = "ensureSheetWithHeader"

	spreadsheet, err := e.svc.Spreadsheets.Get(e.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get spreadsheet: %w", op, err)
	}

	var sheetID int64
	var exists bool
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == sheetName {
			sheetID = sheet.Properties.SheetId
			exists = true
			break
		}
	}

	if !exists {
		e.log.Info().Str("sheet", sheetName).Msg("Creating worksheet")
		resp, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: sheetName}},
			}},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("%s: failed to create sheet: %w", op, err)
		}
		if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil {
			sheetID = resp.Replies[0].AddSheet.Properties.SheetId
		}
	}

	headerRange := sheetName + "!A1:K1"
	resp, err := e.svc.Spreadsheets.Values.Get(e.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get header: %w", op, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	e.log.Info().Str("sheet", sheetName).Msg("Adding header row")
	_, err = e.svc.Spreadsheets.Values.Update(
		e.spreadsheetID,
		headerRange,
		&sheets.ValueRange{Values: [][]any{header}},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to add header: %w", op, err)
	}

	if err := e.formatHeader(ctx, sheetID); err != nil {
		e.log.Warn().Err(err).Msg("Failed to format header, continuing anyway")
	}
	return nil
}

func (e *Exporter) formatHeader(ctx context.Context, sheetID int64) error {
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   int64(len(header)),
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat:      &sheets.TextFormat{Bold: true},
						BackgroundColor: &sheets.Color{Red: 0.9, Green: 0.9, Blue: 0.9},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId:        sheetID,
					GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}

	_, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("formatHeader: %w", err)
	}
	return nil
}

// exportedNumbers reads the invoice numbers already in column A.
func (e *Exporter) exportedNumbers(ctx context.Context, sheetName string) (map[string]bool, error) {
	resp, err := e.svc.Spreadsheets.Values.Get(e.spreadsheetID, sheetName+"!A2:A").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read exported numbers: %w", err)
	}

	numbers := make(map[string]bool, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if n, ok := row[0].(string); ok && n != "" {
			numbers[n] = true
		}
	}
	return numbers, nil
}

// ReadRange reads values from rangeSpec, e.g. "Payments!A:E".
func (e *Exporter) ReadRange(ctx context.Context, rangeSpec string) ([][]any, error) {
	const op = "ReadRange"

	resp, err := e.svc.Spreadsheets.Values.Get(e.spreadsheetID, rangeSpec).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read range %s: %w", op, rangeSpec, err)
	}

	e.log.Debug().
		Int("rows", len(resp.Values)).
		Str("range", rangeSpec).
		Msg("Read range from spreadsheet")

	return resp.Values, nil
}
