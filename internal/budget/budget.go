// Package budget extrapolates month-to-date spending of one ledger to a
// month-end total and compares it with a ceiling.
package budget

import (
	"time"

	"ledgerbook/internal/core"
)

// Project computes the projection for monthRef as seen from the wall clock.
func Project(txs []core.Transaction, ledgerID string, monthRef time.Time, ceiling int64) core.BudgetProjection {
	return ProjectAt(txs, ledgerID, monthRef, ceiling, time.Now())
}

// ProjectAt computes the projection for monthRef as seen from today.
//
// Only OUT transactions of ledgerID dated inside the month count. When today
// lies outside the month every day counts as elapsed, so the projection
// equals the actual spend.
func ProjectAt(txs []core.Transaction, ledgerID string, monthRef time.Time, ceiling int64, today time.Time) core.BudgetProjection {
	monthKey := core.MonthKey(monthRef)
	days := core.DaysIn(monthRef)

	var spent int64
	for _, t := range txs {
		if t.Kind != core.KindOut || t.LedgerID != ledgerID || !t.InMonth(monthKey) {
			continue
		}
		spent = core.AddUnits(spent, t.Amount)
	}

	elapsed := DaysElapsed(monthRef, today)
	projected := spent
	if elapsed > 0 {
		projected = core.MulDivRoundHalfUp(spent, int64(days), int64(elapsed))
	}

	var percent int64
	if ceiling > 0 {
		percent = core.MulDivRoundHalfUp(spent, 100, ceiling)
	}

	return core.BudgetProjection{
		MonthKey:        monthKey,
		SpentToDate:     spent,
		DaysElapsed:     elapsed,
		DaysInMonth:     days,
		ProjectedTotal:  projected,
		BudgetCeiling:   ceiling,
		PercentUsed:     percent,
		IsOverProjected: projected > ceiling,
	}
}

// DaysElapsed is today's day of month when today falls in monthRef's month,
// otherwise the length of that month.
func DaysElapsed(monthRef, today time.Time) int {
	if today.Year() == monthRef.Year() && today.Month() == monthRef.Month() {
		return today.Day()
	}
	return core.DaysIn(monthRef)
}
