package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"invoiceai/pkg/models"
)

// draftRow is the persisted shape of an invoice draft. Every section is its own
// nullable JSON column so a section write touches exactly one field.
type draftRow struct {
	ID            string  `gorm:"primaryKey;size:36"`
	OwnerID       *string `gorm:"index;size:64"`
	Type          string  `gorm:"size:16;not null"`
	Status        string  `gorm:"size:16;index;not null"`
	InvoiceNumber string  `gorm:"index;size:64"`

	FreelancerInfo *datatypes.JSON
	ClientInfo     *datatypes.JSON
	InvoiceDetails *datatypes.JSON
	LineItems      *datatypes.JSON
	PaymentTerms   *datatypes.JSON
	CustomNote     *string

	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

func (draftRow) TableName() string { return "invoice_drafts" }

type invoiceRow struct {
	ID             string `gorm:"primaryKey;size:36"`
	OwnerID        string `gorm:"index;size:64;not null"`
	Number         string `gorm:"size:64;not null"`
	Status         string `gorm:"size:16;not null"`
	Date           string `gorm:"size:10"`
	DueDate        string `gorm:"size:10"`
	Currency       string `gorm:"size:3"`
	PaymentDetails string
	CustomNotes    string
	BillTo         datatypes.JSON
	Sender         datatypes.JSON
	Items          datatypes.JSON
	Subtotal       decimal.Decimal `gorm:"type:decimal(14,2)"`
	TaxRate        decimal.Decimal `gorm:"type:decimal(6,2)"`
	Tax            decimal.Decimal `gorm:"type:decimal(14,2)"`
	Total          decimal.Decimal `gorm:"type:decimal(14,2)"`
	CreatedAt      time.Time
	UpdatedAt      time.Time `gorm:"index"`
}

func (invoiceRow) TableName() string { return "invoices" }

type usageRow struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"uniqueIndex:idx_usage_period;size:64;not null"`
	Year      int    `gorm:"uniqueIndex:idx_usage_period;not null"`
	Month     int    `gorm:"uniqueIndex:idx_usage_period;not null"`
	Tokens    int64  `gorm:"not null;default:0"`
	Invoices  int64  `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (usageRow) TableName() string { return "monthly_usages" }

// sectionColumns maps each structured section to its column.
var sectionColumns = map[models.SectionName]string{
	models.SectionFreelancerInfo: "freelancer_info",
	models.SectionClientInfo:     "client_info",
	models.SectionInvoiceDetails: "invoice_details",
	models.SectionLineItems:      "line_items",
	models.SectionPaymentTerms:   "payment_terms",
}

func encodeJSON(v any) (*datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	value := datatypes.JSON(raw)
	return &value, nil
}

// encodeSection returns the column and JSON value for a section write.
func encodeSection(section models.Section) (string, *datatypes.JSON, error) {
	column, ok := sectionColumns[section.SectionName()]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownSection, section.SectionName())
	}
	value, err := encodeJSON(section)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s: %w", section.SectionName(), err)
	}
	return column, value, nil
}

// decodeInto unmarshals a nullable JSON column into a freshly allocated T.
func decodeInto[T any](raw *datatypes.JSON) (*T, error) {
	if raw == nil || len(*raw) == 0 || string(*raw) == "null" {
		return nil, nil
	}
	v := new(T)
	if err := json.Unmarshal(*raw, v); err != nil {
		return nil, err
	}
	return v, nil
}

func newDraftRow(id string, owner *string, draft NewDraft, now time.Time) (*draftRow, error) {
	row := &draftRow{
		ID:            id,
		OwnerID:       owner,
		Type:          string(draft.Type),
		Status:        string(models.StatusInProgress),
		InvoiceNumber: draft.InvoiceNumber,
		CustomNote:    draft.CustomNote,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	sections := []struct {
		present bool
		value   any
		dst     **datatypes.JSON
	}{
		{draft.Sections.FreelancerInfo != nil, draft.Sections.FreelancerInfo, &row.FreelancerInfo},
		{draft.Sections.ClientInfo != nil, draft.Sections.ClientInfo, &row.ClientInfo},
		{draft.Sections.InvoiceDetails != nil, draft.Sections.InvoiceDetails, &row.InvoiceDetails},
		{draft.Sections.LineItems != nil, draft.Sections.LineItems, &row.LineItems},
		{draft.Sections.PaymentTerms != nil, draft.Sections.PaymentTerms, &row.PaymentTerms},
	}
	for _, s := range sections {
		if !s.present {
			continue
		}
		value, err := encodeJSON(s.value)
		if err != nil {
			return nil, err
		}
		*s.dst = value
	}
	return row, nil
}

func (r *draftRow) toModel() (*models.InvoiceDraft, error) {
	draft := &models.InvoiceDraft{
		ID:            r.ID,
		OwnerID:       r.OwnerID,
		Type:          models.InvoiceType(r.Type),
		Status:        models.DraftStatus(r.Status),
		InvoiceNumber: r.InvoiceNumber,
		CustomNote:    r.CustomNote,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}

	var err error
	if draft.FreelancerInfo, err = decodeInto[models.FreelancerInfo](r.FreelancerInfo); err != nil {
		return nil, fmt.Errorf("decode freelancerInfo: %w", err)
	}
	if draft.ClientInfo, err = decodeInto[models.ClientInfo](r.ClientInfo); err != nil {
		return nil, fmt.Errorf("decode clientInfo: %w", err)
	}
	if draft.InvoiceDetails, err = decodeInto[models.InvoiceDetails](r.InvoiceDetails); err != nil {
		return nil, fmt.Errorf("decode invoiceDetails: %w", err)
	}
	if draft.LineItems, err = decodeInto[models.LineItems](r.LineItems); err != nil {
		return nil, fmt.Errorf("decode lineItems: %w", err)
	}
	if draft.PaymentTerms, err = decodeInto[models.PaymentTerms](r.PaymentTerms); err != nil {
		return nil, fmt.Errorf("decode paymentTerms: %w", err)
	}
	return draft, nil
}

func newInvoiceRow(inv *models.Invoice) (*invoiceRow, error) {
	billTo, err := json.Marshal(inv.BillTo)
	if err != nil {
		return nil, err
	}
	sender, err := json.Marshal(inv.From)
	if err != nil {
		return nil, err
	}
	items, err := json.Marshal(inv.Items)
	if err != nil {
		return nil, err
	}
	return &invoiceRow{
		ID:             inv.ID,
		OwnerID:        *inv.OwnerID,
		Number:         inv.Number,
		Status:         string(inv.Status),
		Date:           inv.Date,
		DueDate:        inv.DueDate,
		Currency:       inv.Currency,
		PaymentDetails: inv.PaymentDetails,
		CustomNotes:    inv.CustomNotes,
		BillTo:         datatypes.JSON(billTo),
		Sender:         datatypes.JSON(sender),
		Items:          datatypes.JSON(items),
		Subtotal:       inv.Subtotal,
		TaxRate:        inv.TaxRate,
		Tax:            inv.Tax,
		Total:          inv.Total,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}, nil
}

func (r *invoiceRow) toModel() (*models.Invoice, error) {
	owner := r.OwnerID
	inv := &models.Invoice{
		ID:             r.ID,
		OwnerID:        &owner,
		Number:         r.Number,
		Status:         models.DraftStatus(r.Status),
		Date:           r.Date,
		DueDate:        r.DueDate,
		Currency:       r.Currency,
		PaymentDetails: r.PaymentDetails,
		CustomNotes:    r.CustomNotes,
		Subtotal:       r.Subtotal,
		TaxRate:        r.TaxRate,
		Tax:            r.Tax,
		Total:          r.Total,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if err := json.Unmarshal(r.BillTo, &inv.BillTo); err != nil {
		return nil, fmt.Errorf("decode billTo: %w", err)
	}
	if err := json.Unmarshal(r.Sender, &inv.From); err != nil {
		return nil, fmt.Errorf("decode from: %w", err)
	}
	if err := json.Unmarshal(r.Items, &inv.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return inv, nil
}

func (r *usageRow) toModel() *models.MonthlyUsage {
	return &models.MonthlyUsage{
		UserID:   r.UserID,
		Year:     r.Year,
		Month:    r.Month,
		Tokens:   r.Tokens,
		Invoices: r.Invoices,
	}
}
