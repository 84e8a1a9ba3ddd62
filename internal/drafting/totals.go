package drafting

import (
	"fmt"

	"github.com/shopspring/decimal"

	"invoiceai/pkg/models"
)

var hundred = decimal.NewFromInt(100)

// Totals are the derived amounts of a finalized invoice.
type Totals struct {
	Items    []models.InvoiceItem
	Subtotal decimal.Decimal
	TaxRate  decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals prices items at taxRate percent:
//
//	subtotal = Σ quantity × rate
//	tax      = round(subtotal × taxRate / 100)
//	total    = subtotal + tax
//
// Tax is rounded to whole currency units, half away from zero.
func ComputeTotals(items []models.LineItem, taxRate float64) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, ErrNoLineItems
	}
	if taxRate < 0 {
		return Totals{}, ErrNegativeTaxRate
	}

	totals := Totals{
		Items:    make([]models.InvoiceItem, 0, len(items)),
		Subtotal: decimal.Zero,
		TaxRate:  decimal.NewFromFloat(taxRate),
	}
	for i, item := range items {
		if item.Quantity < 1 || item.Rate < 0 {
			return Totals{}, fmt.Errorf("%w: item %d (%q) needs quantity >= 1 and rate >= 0", ErrInvalidLineItem, i+1, item.Description)
		}
		quantity := decimal.NewFromFloat(item.Quantity)
		rate := decimal.NewFromFloat(item.Rate)
		amount := quantity.Mul(rate)

		totals.Items = append(totals.Items, models.InvoiceItem{
			Description: item.Description,
			Quantity:    quantity,
			Rate:        rate,
			Amount:      amount,
		})
		totals.Subtotal = totals.Subtotal.Add(amount)
	}

	totals.Tax = totals.Subtotal.Mul(totals.TaxRate).Div(hundred).Round(0)
	totals.Total = totals.Subtotal.Add(totals.Tax)
	return totals, nil
}
