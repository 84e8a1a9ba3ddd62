package reconciliation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"invoiceai/internal/drafting"
	"invoiceai/internal/logger"
	"invoiceai/internal/store"
	"invoiceai/pkg/models"
)

// Store is the part of the record store reconciliation reads and writes.
type Store interface {
	FindMany(ctx context.Context, owner *string, q store.Query) ([]models.InvoiceDraft, error)
	ListInvoices(ctx context.Context, owner string) ([]models.Invoice, error)
	UpdateStatus(ctx context.Context, owner *string, draftID string, status models.DraftStatus) (*models.InvoiceDraft, error)
	SaveInvoice(ctx context.Context, inv *models.Invoice) error
}

// Reconciler settles an owner's open invoices.
type Reconciler struct {
	store Store
	log   zerolog.Logger
}

func NewReconciler(s Store) *Reconciler {
	return &Reconciler{store: s, log: logger.WithComponent("reconciliation")}
}

// openStatuses are the states in which an invoice still awaits payment.
var openStatuses = []models.DraftStatus{models.StatusSent, models.StatusOverdue}

// OpenInvoices returns the owner's finalized invoices whose draft is SENT or
// OVERDUE, carrying the draft's current status.
func (r *Reconciler) OpenInvoices(ctx context.Context, owner string) ([]models.Invoice, error) {
	const op = "OpenInvoices"

	drafts, err := r.store.FindMany(ctx, &owner, store.Query{Statuses: openStatuses})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	status := make(map[string]models.DraftStatus, len(drafts))
	for _, d := range drafts {
		status[d.ID] = d.Status
	}

	invoices, err := r.store.ListInvoices(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var open []models.Invoice
	for _, inv := range invoices {
		if s, ok := status[inv.ID]; ok {
			inv.Status = s
			open = append(open, inv)
		}
	}
	return open, nil
}

// Reconcile matches payments against the owner's open invoices. Unless dryRun
// is set, every matched draft moves to PAID and its invoice record follows.
func (r *Reconciler) Reconcile(ctx context.Context, owner string, payments []Payment, dryRun bool) (*Result, error) {
	const op = "Reconcile"

	open, err := r.OpenInvoices(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res := MatchPayments(open, payments)
	r.log.Info().
		Str("owner_id", owner).
		Int("open_invoices", len(open)).
		Int("payments", len(payments)).
		Int("matched", len(res.Matched)).
		Bool("dry_run", dryRun).
		Msg("Matched payments")

	if dryRun {
		return &res, nil
	}

	for i := range res.Matched {
		m := &res.Matched[i]
		if err := drafting.RequestTransition(m.Invoice.Status, models.StatusPaid); err != nil {
			return nil, fmt.Errorf("%s: invoice %s: %w", op, m.Invoice.Number, err)
		}
		if _, err := r.store.UpdateStatus(ctx, &owner, m.Invoice.ID, models.StatusPaid); err != nil {
			return nil, fmt.Errorf("%s: invoice %s: %w", op, m.Invoice.Number, err)
		}
		m.Invoice.Status = models.StatusPaid
		if err := r.store.SaveInvoice(ctx, &m.Invoice); err != nil {
			return nil, fmt.Errorf("%s: invoice %s: %w", op, m.Invoice.Number, err)
		}

		r.log.Info().
			Str("invoice_number", m.Invoice.Number).
			Int("payment_row", m.Payment.Row).
			Str("reason", string(m.Reason)).
			Msg("Invoice marked as paid")
	}
	res.Applied = true
	return &res, nil
}
