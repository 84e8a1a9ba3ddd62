package reconciliation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoiceai/internal/store"
	"invoiceai/internal/store/storetest"
	"invoiceai/pkg/models"
)

type staticRange [][]any

func (s staticRange) ReadRange(context.Context, string) ([][]any, error) {
	return s, nil
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"220", "220"},
		{"220.50", "220.5"},
		{"1,234.56", "1234.56"},
		{"1.234,56", "1234.56"},
		{"1234,5", "1234.5"},
		{"€ 99,90", "99.9"},
		{"$1,500", "1500"},
		{"-45.00 USD", "-45"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAmount(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}

	_, err := parseAmount("")
	assert.Error(t, err)
	_, err = parseAmount("twelve")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2025-03-07", "07.03.2025", "7.3.2025", "03/07/2025"} {
		got, err := parseDate(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
	}
	_, err := parseDate("yesterday")
	assert.Error(t, err)
}

func TestReadPayments(t *testing.T) {
	r := NewReader(staticRange{
		{"Date", "Reference", "Payer", "Amount", "Currency"},
		{"2025-03-10", "Invoice INV-001", "Acme Corp", "220.00", "usd"},
		{"2025-03-11", "Card fee", "Bank", "-5.00"},
		{"not a date", "x", "y", "1"},
		{"2025-03-12", "short row"},
		{"2025-03-12", "", "Globex", "1.500,00"},
	})

	payments, err := r.ReadPayments(context.Background(), "Payments")
	require.NoError(t, err)
	require.Len(t, payments, 2)

	assert.Equal(t, 2, payments[0].Row)
	assert.Equal(t, "USD", payments[0].Currency)
	assert.Equal(t, "Acme Corp", payments[0].Payer)
	assert.Equal(t, 6, payments[1].Row)
	assert.Equal(t, "1500", payments[1].Amount.String())

	_, err = NewReader(staticRange{}).ReadPayments(context.Background(), "Payments")
	assert.True(t, errors.Is(err, ErrEmptySheet))
}

func invoice(id, number, client string, total int64) models.Invoice {
	return models.Invoice{
		ID:       id,
		Number:   number,
		Status:   models.StatusSent,
		Currency: "USD",
		BillTo:   models.Party{Name: client},
		Total:    decimal.NewFromInt(total),
	}
}

func payment(row int, reference, payer string, amount int64) Payment {
	return Payment{Row: row, Reference: reference, Payer: payer, Amount: decimal.NewFromInt(amount)}
}

func TestMatchPayments(t *testing.T) {
	invoices := []models.Invoice{
		invoice("a", "INV-001", "Acme Corp", 220),
		invoice("b", "INV-002", "Globex", 500),
		invoice("c", "INV-003", "Initech", 75),
		invoice("d", "INV-004", "Umbrella", 300),
	}
	payments := []Payment{
		payment(2, "Payment for inv-001", "ACME CORPORATION", 220),
		payment(3, "Transfer", "Globex", 500),
		// Wrong amount.
		payment(4, "INV-003", "Initech", 70),
		// Two equal payments from the same payer are ambiguous.
		payment(5, "Transfer 1", "Umbrella", 300),
		payment(6, "Transfer 2", "Umbrella", 300),
		// Wrong currency.
		{Row: 7, Reference: "INV-002", Amount: decimal.NewFromInt(500), Currency: "EUR"},
	}

	res := MatchPayments(invoices, payments)

	require.Len(t, res.Matched, 2)
	assert.Equal(t, "INV-001", res.Matched[0].Invoice.Number)
	assert.Equal(t, ByReference, res.Matched[0].Reason)
	assert.Equal(t, "INV-002", res.Matched[1].Invoice.Number)
	assert.Equal(t, ByPayer, res.Matched[1].Reason)
	assert.Equal(t, 3, res.Matched[1].Payment.Row)

	var unmatched []string
	for _, inv := range res.UnmatchedInvoices {
		unmatched = append(unmatched, inv.Number)
	}
	assert.Equal(t, []string{"INV-003", "INV-004"}, unmatched)
	assert.Len(t, res.UnmatchedPayments, 4)
}

func TestMatchPayments_PaymentSettlesOneInvoice(t *testing.T) {
	invoices := []models.Invoice{
		invoice("a", "INV-001", "Acme", 100),
		invoice("b", "INV-002", "Acme", 100),
	}
	res := MatchPayments(invoices, []Payment{payment(2, "INV-001 INV-002", "Acme", 100)})

	require.Len(t, res.Matched, 1)
	assert.Equal(t, "INV-001", res.Matched[0].Invoice.Number)
	require.Len(t, res.UnmatchedInvoices, 1)
	assert.Empty(t, res.UnmatchedPayments)
}

func TestMatchPayments_ReferenceNeedsWholeNumber(t *testing.T) {
	invoices := []models.Invoice{invoice("a", "INV-001", "Acme", 100)}
	res := MatchPayments(invoices, []Payment{payment(2, "Invoice INV-0012", "Globex", 100)})

	assert.Empty(t, res.Matched)
	assert.Len(t, res.UnmatchedInvoices, 1)
	assert.Len(t, res.UnmatchedPayments, 1)
}

func TestMentions(t *testing.T) {
	tests := []struct {
		reference string
		want      bool
	}{
		{"INV-001", true},
		{"payment inv-001, thanks", true},
		{"(INV-001)", true},
		{"INV-0012", false},
		{"XINV-001", false},
		{"INV-0012 and INV-001", true},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.reference, func(t *testing.T) {
			assert.Equal(t, tt.want, mentions(tt.reference, "INV-001"))
		})
	}
	assert.False(t, mentions("INV-001", ""))
}

func TestReconciler(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	owner := "alice"

	seed := func(number string, status models.DraftStatus, total int64) models.Invoice {
		d, err := s.Create(ctx, &owner, store.NewDraft{InvoiceNumber: number})
		require.NoError(t, err)
		if status != models.StatusInProgress {
			_, err = s.UpdateStatus(ctx, &owner, d.ID, status)
			require.NoError(t, err)
		}
		inv := invoice(d.ID, number, "Acme Corp", total)
		inv.OwnerID = &owner
		inv.Status = models.StatusComplete
		require.NoError(t, s.SaveInvoice(ctx, &inv))
		return inv
	}
	sent := seed("INV-001", models.StatusSent, 220)
	overdue := seed("INV-002", models.StatusOverdue, 90)
	seed("INV-003", models.StatusComplete, 40)

	r := NewReconciler(s)

	open, err := r.OpenInvoices(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, open, 2)

	payments := []Payment{
		payment(2, "INV-001", "Acme Corp", 220),
		payment(3, "INV-002", "Acme Corp", 90),
		payment(4, "INV-003", "Acme Corp", 40),
	}

	dry, err := r.Reconcile(ctx, owner, payments, true)
	require.NoError(t, err)
	assert.False(t, dry.Applied)
	assert.Len(t, dry.Matched, 2)

	d, err := s.FindOne(ctx, &owner, store.Query{ID: sent.ID})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, d.Status, "dry run writes nothing")

	res, err := r.Reconcile(ctx, owner, payments, false)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	require.Len(t, res.Matched, 2)
	assert.Len(t, res.UnmatchedPayments, 1, "COMPLETE invoices are not open")

	for _, id := range []string{sent.ID, overdue.ID} {
		d, err := s.FindOne(ctx, &owner, store.Query{ID: id})
		require.NoError(t, err)
		assert.Equal(t, models.StatusPaid, d.Status)
	}

	invoices, err := s.ListInvoices(ctx, owner)
	require.NoError(t, err)
	paid := 0
	for _, inv := range invoices {
		if inv.Status == models.StatusPaid {
			paid++
		}
	}
	assert.Equal(t, 2, paid)

	// Nothing is open any more.
	res, err = r.Reconcile(ctx, owner, payments, false)
	require.NoError(t, err)
	assert.Empty(t, res.Matched)
}
