package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Party is the sender or recipient block printed on a finalized invoice.
type Party struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

// InvoiceItem is a line on a finalized invoice with its amount computed.
type InvoiceItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"` // quantity × rate
}

// Invoice is the durable record produced when a draft is finalized.
type Invoice struct {
	// Core identifiers
	ID      string      `json:"id"`      // draft id when finalized from a draft
	OwnerID *string     `json:"ownerId"` // nil when finalized by a guest (never persisted)
	Number  string      `json:"number"`  // human-readable invoice number
	Status  DraftStatus `json:"status"`

	// Dates, YYYY-MM-DD
	Date    string `json:"date"`
	DueDate string `json:"dueDate"`

	Currency       string `json:"currency"`
	PaymentDetails string `json:"paymentDetails"`
	CustomNotes    string `json:"customNotes"`

	// Parties
	BillTo Party `json:"billTo"`
	From   Party `json:"from"`

	Items []InvoiceItem `json:"items"`

	// Derived at finalize time, never hand-edited
	Subtotal decimal.Decimal `json:"subtotal"`
	TaxRate  decimal.Decimal `json:"taxRate"` // percent
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
