package reconciliation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"invoiceai/pkg/models"
)

// MatchPayments pairs open invoices with payments. Each payment settles at
// most one invoice. A payment whose reference names the invoice number and
// whose amount equals the invoice total always wins; otherwise an invoice is
// matched to a payment from its client for the exact total, but only when
// exactly one such payment exists.
func MatchPayments(invoices []models.Invoice, payments []Payment) Result {
	used := make([]bool, len(payments))
	matched := make([]bool, len(invoices))
	var res Result

	for i, inv := range invoices {
		for j, p := range payments {
			if used[j] || !sameAmount(inv, p) || !mentions(p.Reference, inv.Number) {
				continue
			}
			used[j], matched[i] = true, true
			res.Matched = append(res.Matched, Match{Invoice: inv, Payment: p, Reason: ByReference})
			break
		}
	}

	for i, inv := range invoices {
		if matched[i] {
			continue
		}
		candidate := -1
		for j, p := range payments {
			if used[j] || !sameAmount(inv, p) || !samePayer(inv.BillTo.Name, p.Payer) {
				continue
			}
			if candidate != -1 {
				candidate = -2
				break
			}
			candidate = j
		}
		if candidate < 0 {
			res.UnmatchedInvoices = append(res.UnmatchedInvoices, inv)
			continue
		}
		used[candidate], matched[i] = true, true
		res.Matched = append(res.Matched, Match{Invoice: inv, Payment: payments[candidate], Reason: ByPayer})
	}

	for j, p := range payments {
		if !used[j] {
			res.UnmatchedPayments = append(res.UnmatchedPayments, p)
		}
	}
	return res
}

func sameAmount(inv models.Invoice, p Payment) bool {
	if p.Currency != "" && inv.Currency != "" && !strings.EqualFold(p.Currency, inv.Currency) {
		return false
	}
	return inv.Total.Round(2).Equal(p.Amount.Round(2))
}

// mentions reports whether reference contains number as a whole token: the
// characters either side of it must not be letters or digits, so INV-0012
// does not mention INV-001.
func mentions(reference, number string) bool {
	if number == "" {
		return false
	}
	reference, number = strings.ToUpper(reference), strings.ToUpper(number)
	for from := 0; ; {
		i := strings.Index(reference[from:], number)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(number)
		before, _ := utf8.DecodeLastRuneInString(reference[:start])
		after, _ := utf8.DecodeRuneInString(reference[end:])
		if !isWordRune(before) && !isWordRune(after) {
			return true
		}
		from = start + 1
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func samePayer(client, payer string) bool {
	client = strings.ToLower(strings.TrimSpace(client))
	payer = strings.ToLower(strings.TrimSpace(payer))
	if client == "" || payer == "" {
		return false
	}
	return strings.Contains(payer, client) || strings.Contains(client, payer)
}
