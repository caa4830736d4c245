package core

import "math"

// AggregatedDay is the per-date rollup restricted to active ledgers.
type AggregatedDay struct {
	Date         string
	IncomeTotal  int64
	ExpenseTotal int64
	Transactions []Transaction
}

// Net returns income minus expense for the day.
func (d AggregatedDay) Net() int64 {
	return d.IncomeTotal - d.ExpenseTotal
}

// BudgetProjection is the month-end spend extrapolation for one ledger.
type BudgetProjection struct {
	MonthKey        string
	SpentToDate     int64
	DaysElapsed     int
	DaysInMonth     int
	ProjectedTotal  int64
	BudgetCeiling   int64
	PercentUsed     int64 // may exceed 100
	IsOverProjected bool
}

// Excess is the projected overshoot of the ceiling, or 0 when not over.
func (p BudgetProjection) Excess() int64 {
	if !p.IsOverProjected {
		return 0
	}
	if e := p.ProjectedTotal - p.BudgetCeiling; e > 0 {
		return e
	}
	// The difference overflowed: a saturated projection over a negative ceiling.
	return math.MaxInt64
}

// Remaining is the unspent part of the ceiling, floored at 0.
func (p BudgetProjection) Remaining() int64 {
	if p.BudgetCeiling <= p.SpentToDate {
		return 0
	}
	return p.BudgetCeiling - p.SpentToDate
}
