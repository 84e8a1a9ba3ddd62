package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"invoiceai/internal/drafting"
	"invoiceai/internal/store"
	"invoiceai/pkg/models"
)

func (ts *Toolset) selectDraftByNumber(ctx context.Context, args *selectDraftArgs) any {
	if ts.caller.OwnerID == nil {
		return MsgLoginRequired
	}

	draft, err := ts.deps.Store.FindOne(ctx, ts.caller.OwnerID, store.Query{InvoiceNumber: args.InvoiceNumber})
	if err != nil {
		return ts.failure(err, "select draft")
	}

	ts.deps.Selector.Select(ts.key, draft.ID)
	return SelectResult{
		Message: "Selected invoice draft for " + draft.InvoiceNumber,
		DraftID: draft.ID,
	}
}

func (ts *Toolset) countDrafts(ctx context.Context, args *countDraftsArgs) any {
	if ts.caller.OwnerID == nil {
		return MsgLoginRequired
	}

	var status *models.DraftStatus
	if args.Status != "" {
		s := models.DraftStatus(args.Status)
		status = &s
	}
	n, err := ts.deps.Store.Count(ctx, ts.caller.OwnerID, status)
	if err != nil {
		return ts.failure(err, "count drafts")
	}
	return CountResult{Count: n}
}

func (ts *Toolset) createDraft(ctx context.Context, args *createDraftArgs) any {
	owner := ts.caller.OwnerID

	taken, err := ts.deps.Store.DraftNumbers(ctx, owner)
	if err != nil {
		return ts.failure(err, "list draft numbers")
	}
	newDraft := store.NewDraft{
		Type:          models.InvoiceType(args.Type),
		InvoiceNumber: drafting.DraftNumber(drafting.DefaultNumberPrefix, taken),
	}

	var prefilled []string
	if !args.SkipPrefill && owner != nil {
		prefilled = ts.prefill(ctx, &newDraft)
	}

	draft, err := ts.deps.Store.Create(ctx, owner, newDraft)
	if err != nil {
		return ts.failure(err, "create draft")
	}
	ts.deps.Selector.Select(ts.key, draft.ID)

	if owner != nil && ts.deps.Usage != nil {
		if err := ts.deps.Usage.RecordInvoice(ctx, *owner); err != nil {
			ts.log.Warn().Err(err).Str("draft_id", draft.ID).Msg("Failed to record invoice usage")
		}
	}

	message := "Created a blank invoice draft."
	if len(prefilled) > 0 {
		message = fmt.Sprintf("Created invoice draft with prefilled %s from your previous invoices.", strings.Join(prefilled, ", "))
	}
	if prefilled == nil {
		prefilled = []string{}
	}
	return CreateResult{
		Message:         message,
		DraftID:         draft.ID,
		InvoiceNumber:   draft.InvoiceNumber,
		PrefilledFields: prefilled,
	}
}

// prefill copies reusable sections from the owner's most recent finished
// draft into d and returns the labels of what was copied. A failed lookup
// only costs the prefill.
func (ts *Toolset) prefill(ctx context.Context, d *store.NewDraft) []string {
	template, err := ts.deps.Store.FindOne(ctx, ts.caller.OwnerID, store.Query{
		Statuses:     models.FinishedStatuses,
		WithSections: []models.SectionName{models.SectionFreelancerInfo},
	})
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			ts.log.Warn().Err(err).Msg("Could not load previous invoice for prefill")
		}
		return nil
	}

	var labels []string

	freelancer := *template.FreelancerInfo
	d.Sections.FreelancerInfo = &freelancer
	labels = append(labels, "freelancer info")

	if template.PaymentTerms != nil {
		terms := *template.PaymentTerms
		d.Sections.PaymentTerms = &terms
		labels = append(labels, "payment terms")
	}

	if prev := template.InvoiceDetails; prev != nil {
		details := &models.InvoiceDetails{
			InvoiceNumber: d.InvoiceNumber,
			IssueDate:     ts.today(),
			Currency:      prev.Currency,
		}
		if prev.Currency != "" {
			labels = append(labels, "currency")
		}
		if prev.Tax != nil {
			tax := *prev.Tax
			details.Tax = &tax
			labels = append(labels, "tax rate")
		}
		d.Sections.InvoiceDetails = details
	}

	ts.log.Debug().
		Str("template_id", template.ID).
		Strs("fields", labels).
		Msg("Prefilled draft from previous invoice")
	return labels
}

func (ts *Toolset) fetchDraft(ctx context.Context, _ *noArgs) any {
	draftID, ok := ts.selection()
	if !ok {
		return MsgSpecifyInvoice
	}
	draft, err := ts.deps.Store.FindOne(ctx, ts.caller.OwnerID, store.Query{ID: draftID})
	if err != nil {
		return ts.failure(err, "fetch draft")
	}
	return FetchResult{Draft: draft}
}

func (ts *Toolset) createPreviewLink(_ context.Context, _ *noArgs) any {
	draftID, ok := ts.selection()
	if !ok {
		return MsgSpecifyInvoice
	}
	return PreviewResult{PreviewLink: ts.deps.AppURL + "/invoice/" + draftID}
}

func (ts *Toolset) updateStatus(ctx context.Context, args *updateStatusArgs) any {
	draftID, ok := ts.selection()
	if !ok {
		return MsgSpecifyInvoice
	}
	draft, err := ts.deps.Store.FindOne(ctx, ts.caller.OwnerID, store.Query{ID: draftID})
	if err != nil {
		return ts.failure(err, "load draft")
	}

	target := models.DraftStatus(args.Status)
	if draft.Status == models.StatusInProgress && target == models.StatusComplete {
		return ts.requestCompletion(ctx, draft)
	}
	if err := drafting.RequestTransition(draft.Status, target); err != nil {
		return MessageResult{Message: rejectedTransition(draft.Status, target)}
	}
	if target == draft.Status {
		return ts.checkResult(ctx, draft, "check draft")
	}

	updated, err := ts.deps.Store.UpdateStatus(ctx, ts.caller.OwnerID, draftID, target)
	if err != nil {
		return ts.failure(err, "update status")
	}
	ts.log.Info().
		Str("draft_id", draftID).
		Str("from", string(draft.Status)).
		Str("to", string(target)).
		Msg("Draft status changed")
	return ts.checkResult(ctx, updated, "check draft")
}

// requestCompletion hands a COMPLETE request to the evaluator, which promotes
// the draft only when nothing is missing.
func (ts *Toolset) requestCompletion(ctx context.Context, draft *models.InvoiceDraft) any {
	check, err := ts.check(ctx, draft, "")
	if err != nil {
		return ts.failure(err, "check draft")
	}
	if check.Draft.Status == models.StatusComplete {
		return check
	}
	missing := make([]string, len(check.MissingSections))
	for i, section := range check.MissingSections {
		missing[i] = string(section)
	}
	return MessageResult{Message: fmt.Sprintf(
		"The draft is not complete yet and stays IN_PROGRESS. Missing sections: %s.",
		strings.Join(missing, ", "))}
}

func rejectedTransition(from, to models.DraftStatus) string {
	if from == models.StatusInProgress {
		return fmt.Sprintf("Cannot change status from %s to %s. The draft becomes COMPLETE once every required section is filled in.", from, to)
	}
	next := drafting.RequestableStatuses(from)
	if len(next) == 0 {
		return fmt.Sprintf("Cannot change status from %s to %s: %s is final.", from, to, from)
	}
	names := make([]string, len(next))
	for i, st := range next {
		names[i] = string(st)
	}
	return fmt.Sprintf("Cannot change status from %s to %s. Allowed next statuses: %s.", from, to, strings.Join(names, ", "))
}

func (ts *Toolset) deleteDraft(ctx context.Context, _ *noArgs) any {
	if ts.caller.OwnerID == nil {
		return MsgLoginRequired
	}
	draftID, ok := ts.selection()
	if !ok {
		return MsgSpecifyInvoice
	}

	if err := ts.deps.Store.Delete(ctx, *ts.caller.OwnerID, draftID); err != nil {
		return ts.failure(err, "delete draft")
	}
	ts.deps.Selector.Clear(ts.key)
	return DeleteResult{DraftID: draftID}
}
