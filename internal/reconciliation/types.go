// Package reconciliation marks sent invoices as paid by matching them against
// incoming payments read from a spreadsheet.
package reconciliation

import (
	"time"

	"github.com/shopspring/decimal"

	"invoiceai/pkg/models"
)

// Payment is one incoming bank transaction.
type Payment struct {
	Row       int             `json:"row"` // 1-based sheet row
	Date      time.Time       `json:"date"`
	Reference string          `json:"reference"` // remittance text
	Payer     string          `json:"payer"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"` // empty when the sheet has none
}

// Reason explains why a payment was matched to an invoice.
type Reason string

const (
	ByReference Reason = "reference" // invoice number in the remittance text, same amount
	ByPayer     Reason = "payer"     // payer is the billed client, same amount, only candidate
)

// Match pairs an open invoice with the payment that settles it.
type Match struct {
	Invoice models.Invoice `json:"invoice"`
	Payment Payment        `json:"payment"`
	Reason  Reason         `json:"reason"`
}

// Result is the outcome of one reconciliation run.
type Result struct {
	Matched           []Match          `json:"matched"`
	UnmatchedInvoices []models.Invoice `json:"unmatchedInvoices"`
	UnmatchedPayments []Payment        `json:"unmatchedPayments"`
	// Applied is false for dry runs.
	Applied bool `json:"applied"`
}
