package tools

import (
	"context"

	"invoiceai/internal/store"
	"invoiceai/pkg/models"
)

// writeSection replaces one section of the active draft and reports
// completeness.
func (ts *Toolset) writeSection(ctx context.Context, section models.Section) any {
	draftID, ok := ts.selection()
	if !ok {
		return MsgSpecifyInvoice
	}
	draft, err := ts.deps.Store.UpdateSection(ctx, ts.caller.OwnerID, draftID, section)
	if err != nil {
		return ts.failure(err, "write "+string(section.SectionName()))
	}
	return ts.checkResult(ctx, draft, "check draft")
}

func (ts *Toolset) setFreelancerInfo(ctx context.Context, args *freelancerInfoArgs) any {
	return ts.writeSection(ctx, &models.FreelancerInfo{
		Name:         args.Name,
		BusinessName: args.BusinessName,
		Email:        args.Email,
		Phone:        args.Phone,
		Address:      args.Address,
	})
}

func (ts *Toolset) setClientInfo(ctx context.Context, args *clientInfoArgs) any {
	return ts.writeSection(ctx, &models.ClientInfo{
		ClientName:    args.ClientName,
		ClientEmail:   args.ClientEmail,
		ClientPhone:   args.ClientPhone,
		ClientAddress: args.ClientAddress,
	})
}

// setInvoiceDetails keeps the invoice number assigned at creation. Currency
// and tax carry over from the previous details when omitted.
func (ts *Toolset) setInvoiceDetails(ctx context.Context, args *invoiceDetailsArgs) any {
	draftID, ok := ts.selection()
	if !ok {
		return MsgSpecifyInvoice
	}
	draft, err := ts.deps.Store.FindOne(ctx, ts.caller.OwnerID, store.Query{ID: draftID})
	if err != nil {
		return ts.failure(err, "load draft")
	}

	details := &models.InvoiceDetails{
		InvoiceNumber: draft.InvoiceNumber,
		IssueDate:     args.IssueDate,
		DueDate:       args.DueDate,
		Currency:      models.Currency(args.Currency),
	}
	if prev := draft.InvoiceDetails; prev != nil {
		if prev.InvoiceNumber != "" {
			details.InvoiceNumber = prev.InvoiceNumber
		}
		if details.Currency == "" {
			details.Currency = prev.Currency
		}
		if args.Tax == 0 && prev.Tax != nil {
			tax := *prev.Tax
			details.Tax = &tax
		}
	}
	if details.Currency == "" {
		details.Currency = models.CurrencyUSD
	}
	if args.Tax > 0 {
		tax := args.Tax
		details.Tax = &tax
	}
	if details.IssueDate == "" {
		details.IssueDate = ts.today()
	}

	return ts.writeSection(ctx, details)
}

func (ts *Toolset) setLineItems(ctx context.Context, args *lineItemsArgs) any {
	items := make([]models.LineItem, len(args.Items))
	for i, item := range args.Items {
		items[i] = models.LineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			Rate:        item.Rate,
		}
	}
	return ts.writeSection(ctx, &models.LineItems{Items: items})
}

func (ts *Toolset) setPaymentTerms(ctx context.Context, args *paymentTermsArgs) any {
	terms := &models.PaymentTerms{
		PaymentMethod:   args.PaymentMethod,
		DepositRequired: args.DepositRequired,
	}
	if args.DepositRequired {
		amount := args.DepositAmount
		terms.DepositAmount = &amount
	}
	return ts.writeSection(ctx, terms)
}

func (ts *Toolset) setCustomNote(ctx context.Context, args *customNoteArgs) any {
	draftID, ok := ts.selection()
	if !ok {
		return MsgSpecifyInvoice
	}

	var note *string
	if args.CustomNote != "" {
		note = &args.CustomNote
	}
	draft, err := ts.deps.Store.UpdateCustomNote(ctx, ts.caller.OwnerID, draftID, note)
	if err != nil {
		return ts.failure(err, "write custom note")
	}
	return ts.checkResult(ctx, draft, "check draft")
}
