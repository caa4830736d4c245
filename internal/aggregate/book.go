package aggregate

import (
	"sort"
	"strings"

	"ledgerbook/internal/core"
)

// BookFilter narrows the account-book list. Zero values disable a filter.
type BookFilter struct {
	Search string    // case-insensitive title substring
	Kind   core.Kind // IN or OUT; empty keeps both
	From   string    // inclusive YYYY-MM-DD lower bound
	To     string    // inclusive YYYY-MM-DD upper bound
}

// Book returns the account-book list: newest date first, ties kept in
// fetch order, then filtered.
func Book(txs []core.Transaction, f BookFilter) []core.Transaction {
	sorted := append([]core.Transaction(nil), txs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date > sorted[j].Date
	})

	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := sorted[:0]
	for _, tx := range sorted {
		if search != "" && !strings.Contains(strings.ToLower(tx.Title), search) {
			continue
		}
		if f.Kind != "" && tx.Kind != f.Kind {
			continue
		}
		if f.From != "" && tx.Date < f.From {
			continue
		}
		if f.To != "" && tx.Date > f.To {
			continue
		}
		out = append(out, tx)
	}
	return out
}
