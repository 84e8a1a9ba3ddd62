package drafting_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invoiceai/internal/drafting"
	"invoiceai/pkg/models"
)

type statusWriterMock struct {
	mock.Mock
}

func (m *statusWriterMock) UpdateStatus(ctx context.Context, owner *string, draftID string, status models.DraftStatus) (*models.InvoiceDraft, error) {
	args := m.Called(ctx, owner, draftID, status)
	draft, _ := args.Get(0).(*models.InvoiceDraft)
	return draft, args.Error(1)
}

func completeSections() models.DraftSections {
	return models.DraftSections{
		FreelancerInfo: &models.FreelancerInfo{Name: "Jane Doe", Email: "jane@x.com"},
		ClientInfo:     &models.ClientInfo{ClientName: "Acme", ClientEmail: "billing@acme.com"},
		InvoiceDetails: &models.InvoiceDetails{DueDate: "2025-01-15", Currency: models.CurrencyUSD},
		LineItems:      &models.LineItems{Items: []models.LineItem{{Description: "Design", Quantity: 1, Rate: 500}}},
		PaymentTerms:   &models.PaymentTerms{PaymentMethod: "Bank Transfer"},
	}
}

func TestEvaluate_MissingSections(t *testing.T) {
	draft := &models.InvoiceDraft{Status: models.StatusInProgress, DraftSections: completeSections()}
	draft.PaymentTerms = nil
	draft.ClientInfo = nil

	got := drafting.Evaluate(draft)

	assert.False(t, got.IsComplete)
	assert.False(t, got.ShouldPromote)
	assert.Equal(t, []models.SectionName{models.SectionClientInfo, models.SectionPaymentTerms}, got.Missing)
}

func TestEvaluate_CustomNoteNeverRequired(t *testing.T) {
	draft := &models.InvoiceDraft{Status: models.StatusInProgress, DraftSections: completeSections()}

	got := drafting.Evaluate(draft)

	assert.True(t, got.IsComplete)
	assert.True(t, got.ShouldPromote)
	assert.Empty(t, got.Missing)
}

func TestEvaluate_PastInProgressIsNotRederived(t *testing.T) {
	for _, status := range []models.DraftStatus{
		models.StatusComplete, models.StatusSent, models.StatusPaid, models.StatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			// sections deliberately empty
			draft := &models.InvoiceDraft{Status: status}

			got := drafting.Evaluate(draft)

			assert.True(t, got.IsComplete)
			assert.False(t, got.ShouldPromote)
			assert.Empty(t, got.Missing)
		})
	}
}

func TestEvaluator_CheckPromotesOnce(t *testing.T) {
	ctx := context.Background()
	owner := "alice"
	draft := &models.InvoiceDraft{ID: "d1", OwnerID: &owner, Status: models.StatusInProgress, DraftSections: completeSections()}

	promoted := *draft
	promoted.Status = models.StatusComplete

	writer := &statusWriterMock{}
	writer.On("UpdateStatus", ctx, &owner, "d1", models.StatusComplete).Return(&promoted, nil).Once()

	evaluator := drafting.NewEvaluator(writer)

	result, after, err := evaluator.Check(ctx, draft)
	require.NoError(t, err)
	assert.True(t, result.IsComplete)
	assert.Equal(t, models.StatusComplete, after.Status)

	// Clearing a section afterwards must not demote or re-evaluate.
	after.LineItems = nil
	again, unchanged, err := evaluator.Check(ctx, after)
	require.NoError(t, err)
	assert.True(t, again.IsComplete)
	assert.Equal(t, models.StatusComplete, unchanged.Status)

	writer.AssertNumberOfCalls(t, "UpdateStatus", 1)
}

func TestEvaluator_CheckIncompleteDoesNotWrite(t *testing.T) {
	writer := &statusWriterMock{}
	evaluator := drafting.NewEvaluator(writer)

	draft := &models.InvoiceDraft{ID: "d1", Status: models.StatusInProgress}
	result, _, err := evaluator.Check(context.Background(), draft)

	require.NoError(t, err)
	assert.False(t, result.IsComplete)
	writer.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluator_PromoteRefusesLaterStates(t *testing.T) {
	writer := &statusWriterMock{}
	evaluator := drafting.NewEvaluator(writer)

	_, err := evaluator.Promote(context.Background(), &models.InvoiceDraft{ID: "d1", Status: models.StatusSent})

	var transitionErr *drafting.TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, models.StatusSent, transitionErr.From)
	writer.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransition(t *testing.T) {
	tests := []struct {
		from, to models.DraftStatus
		allowed  bool
	}{
		{models.StatusInProgress, models.StatusComplete, true},
		{models.StatusInProgress, models.StatusSent, false},
		{models.StatusInProgress, models.StatusCancelled, false},
		{models.StatusComplete, models.StatusSent, true},
		{models.StatusComplete, models.StatusCancelled, true},
		{models.StatusComplete, models.StatusPaid, false},
		{models.StatusSent, models.StatusPaid, true},
		{models.StatusSent, models.StatusOverdue, true},
		{models.StatusSent, models.StatusCancelled, true},
		{models.StatusOverdue, models.StatusPaid, true},
		{models.StatusPaid, models.StatusSent, false},
		{models.StatusCancelled, models.StatusInProgress, false},
		{models.StatusSent, models.StatusSent, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := drafting.Transition(tt.from, tt.to)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestTransition_UnknownStatus(t *testing.T) {
	err := drafting.Transition(models.StatusSent, models.DraftStatus("ARCHIVED"))
	assert.ErrorIs(t, err, drafting.ErrUnknownStatus)
}

func TestNextStatuses(t *testing.T) {
	assert.Equal(t,
		[]models.DraftStatus{models.StatusPaid, models.StatusOverdue, models.StatusCancelled},
		drafting.NextStatuses(models.StatusSent))
	assert.Empty(t, drafting.NextStatuses(models.StatusPaid))
}

func TestRequestTransition(t *testing.T) {
	err := drafting.RequestTransition(models.StatusInProgress, models.StatusComplete)
	assert.ErrorIs(t, err, drafting.ErrPromotionReserved)
	var transitionErr *drafting.TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, models.StatusComplete, transitionErr.To)

	assert.NoError(t, drafting.RequestTransition(models.StatusComplete, models.StatusSent))
	assert.NoError(t, drafting.RequestTransition(models.StatusSent, models.StatusPaid))
	assert.Error(t, drafting.RequestTransition(models.StatusInProgress, models.StatusSent))

	assert.Empty(t, drafting.RequestableStatuses(models.StatusInProgress))
	assert.Equal(t, []models.DraftStatus{models.StatusComplete}, drafting.NextStatuses(models.StatusInProgress))
}

func TestDraftNumber(t *testing.T) {
	assert.Equal(t, "INV-001", drafting.DraftNumber("INV", nil))
	assert.Equal(t, "JAN-042", drafting.DraftNumber("jane doe", []string{"JAN-041", "INV-099"}))
	assert.Equal(t, "ABX-002", drafting.DraftNumber(" ab ", []string{"ABX-001"}))
	// A deleted INV-001 leaves a gap that is not reused.
	assert.Equal(t, "INV-003", drafting.DraftNumber("INV", []string{"INV-002"}))
	assert.Equal(t, "INV-004", drafting.DraftNumber("INV", []string{"INV-003", "INV-001", "INV-abc", ""}))
	assert.Equal(t, "INV-1000", drafting.DraftNumber("INV", []string{"INV-999"}))
}

func TestInvoiceNumber(t *testing.T) {
	now := time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "INV-07-03-2025-003", drafting.InvoiceNumber(now, 2))
}

func TestComputeTotals(t *testing.T) {
	items := []models.LineItem{
		{Description: "Design", Quantity: 2, Rate: 50},
		{Description: "Review", Quantity: 1, Rate: 100},
	}

	totals, err := drafting.ComputeTotals(items, 10)
	require.NoError(t, err)

	assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(200)), "subtotal %s", totals.Subtotal)
	assert.True(t, totals.Tax.Equal(decimal.NewFromInt(20)), "tax %s", totals.Tax)
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(220)), "total %s", totals.Total)
	require.Len(t, totals.Items, 2)
	assert.True(t, totals.Items[0].Amount.Equal(decimal.NewFromInt(100)))
}

func TestComputeTotals_RoundsTax(t *testing.T) {
	totals, err := drafting.ComputeTotals([]models.LineItem{{Description: "Hours", Quantity: 3, Rate: 33.5}}, 7)
	require.NoError(t, err)

	// 100.5 * 7% = 7.035
	assert.True(t, totals.Tax.Equal(decimal.NewFromInt(7)), "tax %s", totals.Tax)
	assert.True(t, totals.Total.Equal(decimal.RequireFromString("107.5")), "total %s", totals.Total)
}

func TestComputeTotals_Invalid(t *testing.T) {
	_, err := drafting.ComputeTotals(nil, 10)
	assert.ErrorIs(t, err, drafting.ErrNoLineItems)

	_, err = drafting.ComputeTotals([]models.LineItem{{Description: "x", Quantity: 0, Rate: 10}}, 0)
	assert.ErrorIs(t, err, drafting.ErrInvalidLineItem)

	_, err = drafting.ComputeTotals([]models.LineItem{{Description: "x", Quantity: 1, Rate: -1}}, 0)
	assert.ErrorIs(t, err, drafting.ErrInvalidLineItem)

	_, err = drafting.ComputeTotals([]models.LineItem{{Description: "x", Quantity: 1, Rate: 1}}, -5)
	assert.ErrorIs(t, err, drafting.ErrNegativeTaxRate)
}
