package drafting_test

import (
	"fmt"
	"time"

	"invoiceai/internal/drafting"
	"invoiceai/pkg/models"
)

func ExampleComputeTotals() {
	totals, err := drafting.ComputeTotals([]models.LineItem{
		{Description: "Design", Quantity: 2, Rate: 50},
		{Description: "Review", Quantity: 1, Rate: 100},
	}, 10)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(totals.Subtotal, totals.Tax, totals.Total)
	// Output: 200 20 220
}

func ExampleDraftNumber() {
	fmt.Println(drafting.DraftNumber(drafting.DefaultNumberPrefix, []string{"INV-001", "INV-002"}))
	fmt.Println(drafting.InvoiceNumber(time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC), 0))
	// Output:
	// INV-003
	// INV-07-03-2025-001
}

func ExampleNextStatuses() {
	fmt.Println(drafting.NextStatuses(models.StatusComplete))
	// Output: [SENT CANCELLED]
}
