package aggregate

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ledgerbook/internal/core"
)

func tx(id, ledger, date string, kind core.Kind, amount int64) core.Transaction {
	return core.Transaction{ID: id, Title: "t" + id, Amount: amount, Date: date, Kind: kind, Category: core.DefaultCategory, LedgerID: ledger}
}

func sample() []core.Transaction {
	return []core.Transaction{
		tx("1", "personal", "2024-03-15", core.KindOut, 12000),
		tx("2", "personal", "2024-03-15", core.KindIn, 50000),
		tx("1", "7", "2024-03-15", core.KindOut, 30000),
		tx("3", "personal", "2024-03-16", core.KindOut, 8000),
		tx("2", "7", "2024-03-17", core.KindOut, 4000),
		tx("1", "9", "2024-04-01", core.KindIn, 1000),
	}
}

func TestAggregateFiltersByActiveSet(t *testing.T) {
	v, err := Aggregate(sample(), core.NewActiveSet("personal"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := v.Dates(); !cmp.Equal(got, []string{"2024-03-15", "2024-03-16"}) {
		t.Fatalf("unexpected dates: %v", got)
	}
	d, ok := v.Day("2024-03-15")
	if !ok || d.IncomeTotal != 50000 || d.ExpenseTotal != 12000 {
		t.Fatalf("unexpected day: %+v", d)
	}
	if _, ok := v.Day("2024-03-17"); ok {
		t.Fatalf("inactive ledger day should be absent")
	}
	if len(v.Ledger("7")) != 0 {
		t.Fatalf("inactive ledger should have no entries")
	}
}

func TestAggregateByLedgerPreservesOrder(t *testing.T) {
	v, err := Aggregate(sample(), core.NewActiveSet("personal", "7", "9"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := func(txs []core.Transaction) []string {
		out := make([]string, len(txs))
		for i, t := range txs {
			out[i] = t.ID
		}
		return out
	}
	if got := ids(v.Ledger("personal")); !cmp.Equal(got, []string{"1", "2", "3"}) {
		t.Fatalf("personal order: %v", got)
	}
	if got := ids(v.Ledger("7")); !cmp.Equal(got, []string{"1", "2"}) {
		t.Fatalf("group order: %v", got)
	}
	d, _ := v.Day("2024-03-15")
	if d.ExpenseTotal != 42000 || len(d.Transactions) != 3 {
		t.Fatalf("merged day: %+v", d)
	}
	income, expense := v.Totals()
	if income != 51000 || expense != 54000 {
		t.Fatalf("totals income=%d expense=%d", income, expense)
	}
}

func TestAggregateDayDetailExactMatch(t *testing.T) {
	v, _ := Aggregate(sample(), core.NewActiveSet("personal", "7"))
	got := v.DayTransactions("2024-03-15")
	want := []core.Transaction{sample()[0], sample()[1], sample()[2]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("detail mismatch (-want +got):\n%s", diff)
	}
	if v.DayTransactions("2024-3-15") != nil {
		t.Fatalf("non-exact date string must not match")
	}
}

func TestAggregateEmptyActiveSet(t *testing.T) {
	v, err := Aggregate(sample(), core.ActiveSet{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.ByDate) != 0 || len(v.ByLedger) != 0 {
		t.Fatalf("expected empty view, got %+v", v)
	}
}

func TestAggregateRejectsBlankLedgerID(t *testing.T) {
	if _, err := Aggregate(sample(), core.NewActiveSet("personal", "")); !errors.Is(err, core.ErrBlankLedgerID) {
		t.Fatalf("expected ErrBlankLedgerID, got %v", err)
	}
}

func TestAggregateMonthlyView(t *testing.T) {
	v, _ := Aggregate(sample(), core.NewActiveSet("personal", "7", "9"))
	march := v.Month("2024-03")
	if len(march) != 3 || march[0].Date != "2024-03-15" || march[2].Date != "2024-03-17" {
		t.Fatalf("unexpected march view: %+v", march)
	}
	if len(v.Month("2024-05")) != 0 {
		t.Fatalf("expected no days in may")
	}
}

func TestAggregateIsMonotonicInActiveSet(t *testing.T) {
	txs := sample()
	sets := [][]string{
		{},
		{"personal"},
		{"personal", "7"},
		{"personal", "7", "9"},
	}
	for i := 0; i+1 < len(sets); i++ {
		small, _ := Aggregate(txs, core.NewActiveSet(sets[i]...))
		large, _ := Aggregate(txs, core.NewActiveSet(sets[i+1]...))
		for date, d := range small.ByDate {
			l, ok := large.ByDate[date]
			if !ok {
				t.Fatalf("%v -> %v: date %s disappeared", sets[i], sets[i+1], date)
			}
			if d.IncomeTotal > l.IncomeTotal || d.ExpenseTotal > l.ExpenseTotal {
				t.Fatalf("%v -> %v: totals shrank on %s", sets[i], sets[i+1], date)
			}
		}
	}
}

func TestAggregateRecomputesOnEveryCall(t *testing.T) {
	txs := sample()
	first, _ := Aggregate(txs, core.NewActiveSet("personal"))
	txs = append(txs, tx("4", "personal", "2024-03-15", core.KindOut, 1000))
	second, _ := Aggregate(txs, core.NewActiveSet("personal"))
	if first.ByDate["2024-03-15"].ExpenseTotal == second.ByDate["2024-03-15"].ExpenseTotal {
		t.Fatalf("expected new transaction to be reflected")
	}
}

func TestBookSortAndFilters(t *testing.T) {
	txs := []core.Transaction{
		{ID: "a", Title: "Coffee", Date: "2024-03-01", Kind: core.KindOut},
		{ID: "b", Title: "Salary", Date: "2024-03-25", Kind: core.KindIn},
		{ID: "c", Title: "coffee beans", Date: "2024-03-10", Kind: core.KindOut},
		{ID: "d", Title: "Lunch", Date: "2024-03-10", Kind: core.KindOut},
	}
	ids := func(txs []core.Transaction) string {
		s := ""
		for _, t := range txs {
			s += t.ID
		}
		return s
	}
	cases := []struct {
		name   string
		filter BookFilter
		want   string
	}{
		{"date desc with stable ties", BookFilter{}, "bcda"},
		{"search is case-insensitive", BookFilter{Search: "COFFEE"}, "ca"},
		{"income only", BookFilter{Kind: core.KindIn}, "b"},
		{"expense only", BookFilter{Kind: core.KindOut}, "cda"},
		{"inclusive range", BookFilter{From: "2024-03-01", To: "2024-03-10"}, "cda"},
		{"from only", BookFilter{From: "2024-03-11"}, "b"},
		{"combined", BookFilter{Search: "l", Kind: core.KindOut, To: "2024-03-10"}, "d"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ids(Book(txs, tc.filter)); got != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
	if txs[0].ID != "a" {
		t.Fatalf("Book must not reorder its input")
	}
}

func BenchmarkAggregate(b *testing.B) {
	txs := make([]core.Transaction, 0, 3000)
	for i := 0; i < 3000; i++ {
		ledger := []string{"personal", "1", "2"}[i%3]
		txs = append(txs, tx(fmt.Sprint(i), ledger, fmt.Sprintf("2024-03-%02d", i%28+1), core.KindOut, int64(i)))
	}
	active := core.NewActiveSet("personal", "1")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Aggregate(txs, active); err != nil {
			b.Fatal(err)
		}
	}
}
