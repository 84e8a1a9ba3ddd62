package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"invoiceai/internal/drafting"
	"invoiceai/internal/store"
	"invoiceai/pkg/models"
)

const (
	defaultClientName     = "Unknown Client"
	defaultSenderName     = "Your Company"
	defaultPaymentDetails = "Bank Transfer"
	defaultCustomNotes    = "Thank you for your business!"
	defaultPaymentDays    = 30
)

// finalizeInvoice turns the active draft, overridden by the payload, into a
// priced invoice. It is stored only for an owner with a selected draft; the
// draft itself is left to the evaluator, which promotes it only when every
// section is present.
func (ts *Toolset) finalizeInvoice(ctx context.Context, args *finalizeArgs) any {
	owner := ts.caller.OwnerID

	var draft *models.InvoiceDraft
	if draftID, ok := ts.selection(); ok {
		d, err := ts.deps.Store.FindOne(ctx, owner, store.Query{ID: draftID})
		switch {
		case err == nil:
			draft = d
		case !errors.Is(err, store.ErrNotFound):
			return ts.failure(err, "load draft")
		}
	}

	now := ts.deps.Now()
	inv, items, taxRate := mergeInvoice(&args.Draft, draft, now)
	inv.OwnerID = owner

	totals, err := drafting.ComputeTotals(items, taxRate)
	if err != nil {
		return MessageResult{Message: fmt.Sprintf("Unable to finalize the invoice: %v.", err)}
	}
	inv.Items = totals.Items
	inv.Subtotal = totals.Subtotal
	inv.TaxRate = totals.TaxRate
	inv.Tax = totals.Tax
	inv.Total = totals.Total

	if inv.Number == "" {
		var existing int64
		if owner != nil {
			existing, err = ts.deps.Store.CountInvoices(ctx, *owner)
			if err != nil {
				return ts.failure(err, "count invoices")
			}
		}
		inv.Number = drafting.InvoiceNumber(now, existing)
	}

	if draft == nil || owner == nil {
		id, err := uuid.NewV7()
		if err != nil {
			return ts.failure(err, "generate invoice id")
		}
		inv.ID = id.String()
		return FinalizeResult{Invoice: inv}
	}

	inv.ID = draft.ID
	if draft.Status != models.StatusInProgress {
		inv.Status = draft.Status
	}
	if err := ts.deps.Store.SaveInvoice(ctx, inv); err != nil {
		return ts.failure(err, "save invoice")
	}
	if _, _, err := ts.evaluator.Check(ctx, draft); err != nil {
		return ts.failure(err, "check draft")
	}

	ts.log.Info().
		Str("draft_id", draft.ID).
		Str("number", inv.Number).
		Str("total", inv.Total.String()).
		Msg("Invoice finalized")
	return FinalizeResult{Invoice: inv, Saved: true}
}

// mergeInvoice lays the payload over the draft's sections and fills the
// remaining gaps with defaults. Payload values always win. It returns the
// invoice without totals, plus the items and tax rate to price.
func mergeInvoice(p *invoicePayloadArgs, draft *models.InvoiceDraft, now time.Time) (*models.Invoice, []models.LineItem, float64) {
	inv := &models.Invoice{
		Number:         p.Number,
		Status:         models.StatusComplete,
		Date:           p.Date,
		DueDate:        p.DueDate,
		Currency:       p.Currency,
		PaymentDetails: p.PaymentDetails,
		CustomNotes:    p.CustomNotes,
		BillTo:         models.Party(p.BillTo),
		From:           models.Party(p.From),
	}

	items := make([]models.LineItem, len(p.Items))
	for i, item := range p.Items {
		items[i] = models.LineItem{Description: item.Description, Quantity: item.Quantity, Rate: item.Rate}
	}
	taxRate := p.TaxRate

	if draft != nil {
		if inv.Number == "" {
			inv.Number = draft.InvoiceNumber
		}
		if f := draft.FreelancerInfo; f != nil {
			name := f.Name
			if f.BusinessName != "" {
				name = f.BusinessName
			}
			fillParty(&inv.From, name, f.Email, f.Phone, f.Address)
		}
		if c := draft.ClientInfo; c != nil {
			fillParty(&inv.BillTo, c.ClientName, c.ClientEmail, c.ClientPhone, c.ClientAddress)
		}
		if d := draft.InvoiceDetails; d != nil {
			inv.Date = firstNonEmpty(inv.Date, d.IssueDate)
			inv.DueDate = firstNonEmpty(inv.DueDate, d.DueDate)
			inv.Currency = firstNonEmpty(inv.Currency, string(d.Currency))
			if taxRate == 0 && d.Tax != nil {
				taxRate = *d.Tax
			}
		}
		if len(items) == 0 && draft.LineItems != nil {
			items = append(items, draft.LineItems.Items...)
		}
		if t := draft.PaymentTerms; t != nil && inv.PaymentDetails == "" {
			inv.PaymentDetails = t.PaymentMethod
			if t.DepositRequired && t.DepositAmount != nil {
				inv.PaymentDetails = fmt.Sprintf("%s (deposit required: %.2f)", t.PaymentMethod, *t.DepositAmount)
			}
		}
		if draft.CustomNote != nil {
			inv.CustomNotes = firstNonEmpty(inv.CustomNotes, *draft.CustomNote)
		}
	}

	inv.BillTo.Name = firstNonEmpty(inv.BillTo.Name, defaultClientName)
	inv.From.Name = firstNonEmpty(inv.From.Name, defaultSenderName)
	inv.Date = firstNonEmpty(inv.Date, now.Format(time.DateOnly))
	inv.DueDate = firstNonEmpty(inv.DueDate, now.AddDate(0, 0, defaultPaymentDays).Format(time.DateOnly))
	inv.Currency = firstNonEmpty(inv.Currency, string(models.CurrencyUSD))
	inv.PaymentDetails = firstNonEmpty(inv.PaymentDetails, defaultPaymentDetails)
	inv.CustomNotes = firstNonEmpty(inv.CustomNotes, defaultCustomNotes)

	return inv, items, taxRate
}

func fillParty(p *models.Party, name, email, phone, address string) {
	p.Name = firstNonEmpty(p.Name, name)
	p.Email = firstNonEmpty(p.Email, email)
	p.Phone = firstNonEmpty(p.Phone, phone)
	p.Address = firstNonEmpty(p.Address, address)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
