package drafting

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultNumberPrefix is used for drafts until a per-freelancer prefix exists.
const DefaultNumberPrefix = "INV"

// DraftNumber builds the number given to a new draft: the first three letters
// of prefix (upper-cased, padded with X) and one more than the highest
// sequence among taken, zero-padded to three digits. Numbers freed by deleted
// drafts are never handed out again while a higher one exists.
// DraftNumber("INV", nil) is "INV-001".
func DraftNumber(prefix string, taken []string) string {
	letters := []rune(strings.ToUpper(strings.TrimSpace(prefix)))
	if len(letters) > 3 {
		letters = letters[:3]
	}
	p := string(letters) + strings.Repeat("X", 3-len(letters)) + "-"

	var highest int
	for _, number := range taken {
		seq, ok := strings.CutPrefix(number, p)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(seq)
		if err != nil || n < 0 {
			continue
		}
		highest = max(highest, n)
	}
	return fmt.Sprintf("%s%03d", p, highest+1)
}

// InvoiceNumber builds the number of a finalized invoice that carries none:
// INV-DD-MM-YYYY-NNN, NNN being the owner's finalized invoice count plus one.
func InvoiceNumber(now time.Time, existing int64) string {
	return fmt.Sprintf("INV-%s-%03d", now.Format("02-01-2006"), existing+1)
}
