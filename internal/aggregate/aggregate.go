// Package aggregate merges normalized transactions from every ledger and
// exposes date-keyed and ledger-keyed views restricted to an active set.
//
// A View is recomputed from scratch on every call; it holds no state that
// could go stale when either the transactions or the active set change.
package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"ledgerbook/internal/core"
)

// View is the result of one aggregation pass.
type View struct {
	ByDate   map[string]core.AggregatedDay
	ByLedger map[string][]core.Transaction
}

// Aggregate keeps transactions whose ledger is active and rolls them up by
// date and by ledger. Dates without included transactions are absent.
// It fails only when the active set itself is malformed.
func Aggregate(txs []core.Transaction, active core.ActiveSet) (View, error) {
	if err := active.Validate(); err != nil {
		return View{}, fmt.Errorf("aggregate: %w", err)
	}
	v := View{
		ByDate:   make(map[string]core.AggregatedDay),
		ByLedger: make(map[string][]core.Transaction),
	}
	for _, tx := range txs {
		if !active.Contains(tx.LedgerID) {
			continue
		}
		v.ByLedger[tx.LedgerID] = append(v.ByLedger[tx.LedgerID], tx)

		day := v.ByDate[tx.Date]
		day.Date = tx.Date
		switch tx.Kind {
		case core.KindIn:
			day.IncomeTotal = core.AddUnits(day.IncomeTotal, tx.Amount)
		case core.KindOut:
			day.ExpenseTotal = core.AddUnits(day.ExpenseTotal, tx.Amount)
		}
		day.Transactions = append(day.Transactions, tx)
		v.ByDate[tx.Date] = day
	}
	return v, nil
}

// Day returns the rollup for an exact date string.
func (v View) Day(date string) (core.AggregatedDay, bool) {
	d, ok := v.ByDate[date]
	return d, ok
}

// DayTransactions returns the filtered transactions on date, in fetch order.
func (v View) DayTransactions(date string) []core.Transaction {
	return v.ByDate[date].Transactions
}

// Ledger returns the filtered transactions of one ledger in fetch order.
func (v View) Ledger(id string) []core.Transaction {
	return v.ByLedger[id]
}

// Dates returns every date with activity, ascending.
func (v View) Dates() []string {
	out := make([]string, 0, len(v.ByDate))
	for d := range v.ByDate {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Month returns the days of monthKey (YYYY-MM), ascending.
func (v View) Month(monthKey string) []core.AggregatedDay {
	var out []core.AggregatedDay
	for _, d := range v.Dates() {
		if strings.HasPrefix(d, monthKey) {
			out = append(out, v.ByDate[d])
		}
	}
	return out
}

// Totals sums income and expense across every included day.
func (v View) Totals() (income, expense int64) {
	for _, d := range v.ByDate {
		income = core.AddUnits(income, d.IncomeTotal)
		expense = core.AddUnits(expense, d.ExpenseTotal)
	}
	return income, expense
}
