// Package drafting holds the draft rules that do not depend on storage: the
// completeness evaluator, the status lifecycle, invoice numbering and totals.
package drafting

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"invoiceai/internal/logger"
	"invoiceai/pkg/models"
)

// Completeness is the outcome of evaluating a draft.
type Completeness struct {
	// IsComplete is true once every required section is present, and always
	// true for drafts that have left IN_PROGRESS.
	IsComplete bool

	// ShouldPromote is true when the draft is IN_PROGRESS and complete.
	ShouldPromote bool

	// Missing lists the required sections still absent. Empty for drafts
	// past IN_PROGRESS, whose sections are not re-derived.
	Missing []models.SectionName
}

// Evaluate decides whether draft is complete. It never mutates anything.
func Evaluate(draft *models.InvoiceDraft) Completeness {
	if draft.Status != models.StatusInProgress {
		return Completeness{IsComplete: true}
	}
	missing := draft.Missing()
	complete := len(missing) == 0
	return Completeness{
		IsComplete:    complete,
		ShouldPromote: complete,
		Missing:       missing,
	}
}

// StatusWriter persists a status change for an owner-scoped draft.
type StatusWriter interface {
	UpdateStatus(ctx context.Context, owner *string, draftID string, status models.DraftStatus) (*models.InvoiceDraft, error)
}

// Evaluator performs the one transition the completeness check is allowed to
// make: IN_PROGRESS to COMPLETE.
type Evaluator struct {
	writer StatusWriter
	log    zerolog.Logger
}

// NewEvaluator creates an evaluator that promotes drafts through writer.
func NewEvaluator(writer StatusWriter) *Evaluator {
	return &Evaluator{
		writer: writer,
		log:    logger.WithComponent("evaluator"),
	}
}

// Promote moves draft to COMPLETE. It refuses any draft not IN_PROGRESS.
func (e *Evaluator) Promote(ctx context.Context, draft *models.InvoiceDraft) (*models.InvoiceDraft, error) {
	const op = "Promote"

	if err := Transition(draft.Status, models.StatusComplete); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if draft.Status == models.StatusComplete {
		return draft, nil
	}

	promoted, err := e.writer.UpdateStatus(ctx, draft.OwnerID, draft.ID, models.StatusComplete)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	e.log.Info().
		Str("draft_id", draft.ID).
		Str("invoice_number", draft.InvoiceNumber).
		Msg("Draft complete, promoted to COMPLETE")

	return promoted, nil
}

// Check evaluates draft and promotes it when due. It returns the completeness
// and the draft as it now stands. The call that promotes reports complete.
func (e *Evaluator) Check(ctx context.Context, draft *models.InvoiceDraft) (Completeness, *models.InvoiceDraft, error) {
	result := Evaluate(draft)
	if !result.ShouldPromote {
		return result, draft, nil
	}

	promoted, err := e.Promote(ctx, draft)
	if err != nil {
		return result, draft, err
	}
	return result, promoted, nil
}
