package google

import (
	"fmt"
	"strconv"
	"strings"

	"mywallet/internal/core"
)

// Ledger sheet layout: one transaction per row, columns A..H.
//
//	A id | B date | C user | D type | E category | F payment method | G amount | H note
const lastColumn = "H"

func rowValues(t core.Transaction) []any {
	return []any{
		t.ID,
		t.Date.Format("2006-01-02"),
		t.UserID,
		string(t.Type),
		t.Category,
		t.PaymentMethod,
		core.SignedAmount(t.Type, t.Amount),
		t.Note,
	}
}

// findRow returns the 1-based row whose first cell equals id, or 0.
func findRow(values [][]any, id string) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1
		}
	}
	return 0
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
