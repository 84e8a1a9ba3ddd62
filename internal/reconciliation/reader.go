package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"invoiceai/internal/logger"
)

// ErrEmptySheet is returned when the payments worksheet has no rows at all.
var ErrEmptySheet = errors.New("payments sheet is empty")

// RangeReader reads raw cell values. *sheets.Exporter satisfies it.
type RangeReader interface {
	ReadRange(ctx context.Context, rangeSpec string) ([][]any, error)
}

// Reader parses incoming payments from a worksheet with the columns
// A=Date, B=Reference, C=Payer, D=Amount, E=Currency and a header row.
type Reader struct {
	source RangeReader
	log    zerolog.Logger
}

func NewReader(source RangeReader) *Reader {
	return &Reader{source: source, log: logger.WithComponent("reconciliation-reader")}
}

// ReadPayments returns the incoming (positive) payments of sheetName.
// Unparseable rows and outgoing transactions are skipped with a warning.
func (r *Reader) ReadPayments(ctx context.Context, sheetName string) ([]Payment, error) {
	const op = "ReadPayments"

	values, err := r.source.ReadRange(ctx, sheetName+"!A:E")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptySheet)
	}

	var payments []Payment
	for i, row := range values[1:] {
		rowNum := i + 2

		if len(row) < 4 {
			r.log.Warn().
				Int("row", rowNum).
				Int("columns", len(row)).
				Msg("Skipping payment row with insufficient columns")
			continue
		}

		payment, err := parsePayment(row, rowNum)
		if err != nil {
			r.log.Warn().Err(err).Int("row", rowNum).Msg("Failed to parse payment, skipping")
			continue
		}
		if !payment.Amount.IsPositive() {
			continue
		}
		payments = append(payments, payment)
	}

	r.log.Info().
		Int("total_rows", len(values)-1).
		Int("payments", len(payments)).
		Str("sheet", sheetName).
		Msg("Payments read")

	return payments, nil
}

func parsePayment(row []any, rowNum int) (Payment, error) {
	dateStr := getString(row, 0)
	date, err := parseDate(dateStr)
	if err != nil {
		return Payment{}, fmt.Errorf("invalid date %q in row %d: %w", dateStr, rowNum, err)
	}

	amountStr := getString(row, 3)
	amount, err := parseAmount(amountStr)
	if err != nil {
		return Payment{}, fmt.Errorf("invalid amount %q in row %d: %w", amountStr, rowNum, err)
	}

	return Payment{
		Row:       rowNum,
		Date:      date,
		Reference: getString(row, 1),
		Payer:     getString(row, 2),
		Amount:    amount,
		Currency:  strings.ToUpper(getString(row, 4)),
	}, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"2.1.2006",
	"01/02/2006",
	"1/2/2006",
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if date, err := time.Parse(layout, s); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
}

// parseAmount accepts both 1,234.56 and 1.234,56 with optional currency
// symbols. The separator that appears last is the decimal separator.
func parseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer(" ", "", "€", "", "$", "", "£", "", "EUR", "", "USD", "", "GBP", "").Replace(s)
	if cleaned == "" {
		return decimal.Zero, errors.New("empty amount")
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	switch {
	case lastComma > lastDot:
		// 1.234,56 or 1234,56; a lone comma with three trailing digits is a
		// thousands separator.
		if lastDot == -1 && len(cleaned)-lastComma-1 == 3 {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		}
	case lastComma != -1:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to parse amount: %s", s)
	}
	return amount, nil
}

func getString(row []any, index int) string {
	if index >= len(row) || row[index] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", row[index]))
}
