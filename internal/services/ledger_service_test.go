package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ledgerbook/internal/aggregate"
	"ledgerbook/internal/cache"
	"ledgerbook/internal/core"
	"ledgerbook/internal/fetch"
	"ledgerbook/internal/ledger"
	"ledgerbook/internal/sources/memory"
)

var today = time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

func seed() *memory.Store {
	return memory.New([]core.RawRecord{
		{"userId": "1", "transId": 1, "title": "점심", "originalAmount": 500000, "transDate": "2024-04-03", "type": "OUT"},
		{"userId": "1", "transId": 2, "title": "월급", "originalAmount": 3000000, "transDate": "24/04/05", "type": "IN"},
		{"userId": "1", "transId": 3, "title": "지난달", "originalAmount": 7000, "transDate": "2024-03-31", "type": "OUT"},
		{"groupbId": 10, "transId": 1, "title": "장보기", "originalAmount": 84000, "transDate": "2024-04-03", "type": "OUT"},
		{"groupbId": 20, "transId": 1, "title": "숙소", "originalAmount": 240000, "transDate": "2024-04-07", "type": "OUT"},
	}, []core.RawRecord{
		{"userId": "1", "groupbId": 10, "title": "우리집"},
		{"userId": "1", "groupbId": 20, "title": "여행"},
	})
}

// countingGatherer counts Gather calls and can hold them until released.
type countingGatherer struct {
	inner   Gatherer
	calls   int32
	release chan struct{}
}

func (c *countingGatherer) Gather(ctx context.Context, userID string) (fetch.Result, error) {
	atomic.AddInt32(&c.calls, 1)
	if c.release != nil {
		<-c.release
	}
	return c.inner.Gather(ctx, userID)
}

func newService(t *testing.T, src *memory.Store) (*LedgerService, *countingGatherer) {
	t.Helper()
	g := &countingGatherer{inner: fetch.New(src, fetch.WithClock(func() time.Time { return today }))}
	snapshots := cache.NewLRUCache[fetch.Result](10, time.Minute)
	return NewLedgerService(g, snapshots, WithClock(func() time.Time { return today })), g
}

func TestCalendarAllActive(t *testing.T) {
	s, _ := newService(t, seed())
	v, err := s.Calendar(context.Background(), "1", "")
	if err != nil {
		t.Fatalf("Calendar: %v", err)
	}
	if v.Month != "2024-04" || len(v.Days) != 3 {
		t.Fatalf("unexpected calendar: %+v", v)
	}
	if v.IncomeTotal != 3000000 || v.ExpenseTotal != 824000 {
		t.Fatalf("totals income=%d expense=%d", v.IncomeTotal, v.ExpenseTotal)
	}
	if len(v.Ledgers) != 3 || v.Ledgers[0].ID != core.PersonalLedgerID {
		t.Fatalf("unexpected ledgers: %+v", v.Ledgers)
	}

	march, err := s.Calendar(context.Background(), "1", "2024-03")
	if err != nil || len(march.Days) != 1 || march.ExpenseTotal != 7000 {
		t.Fatalf("march=%+v err=%v", march, err)
	}
	if _, err := s.Calendar(context.Background(), "1", "2024-13"); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestToggleChangesAggregation(t *testing.T) {
	s, _ := newService(t, seed())
	ctx := context.Background()

	ledgers, err := s.Toggle(ctx, "1", "20")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	for _, l := range ledgers {
		if l.ID == "20" && l.IsActive {
			t.Fatalf("ledger 20 should be inactive")
		}
	}
	v, _ := s.Calendar(ctx, "1", "2024-04")
	if v.ExpenseTotal != 584000 {
		t.Fatalf("expense total = %d, want 584000", v.ExpenseTotal)
	}

	if _, err := s.Toggle(ctx, "1", "99"); !errors.Is(err, ledger.ErrUnknownLedger) {
		t.Fatalf("expected ErrUnknownLedger, got %v", err)
	}
}

func TestToggleAllTwiceRestoresAllActive(t *testing.T) {
	s, _ := newService(t, seed())
	ctx := context.Background()

	ledgers, _ := s.ToggleAll(ctx, "1")
	for _, l := range ledgers {
		if l.IsActive {
			t.Fatalf("all ledgers should be inactive after first ToggleAll")
		}
	}
	v, _ := s.Calendar(ctx, "1", "2024-04")
	if len(v.Days) != 0 {
		t.Fatalf("empty active set should yield empty calendar")
	}
	ledgers, _ = s.ToggleAll(ctx, "1")
	for _, l := range ledgers {
		if !l.IsActive {
			t.Fatalf("all ledgers should be active again")
		}
	}
}

func TestDayEntriesCarryLedgerDisplay(t *testing.T) {
	s, _ := newService(t, seed())
	d, err := s.Day(context.Background(), "1", "2024-04-03")
	if err != nil {
		t.Fatalf("Day: %v", err)
	}
	if d.ExpenseTotal != 584000 || len(d.Entries) != 2 {
		t.Fatalf("unexpected day: %+v", d)
	}
	if d.Entries[0].LedgerName != core.PersonalLedgerName || d.Entries[1].LedgerColor != ledger.Palette[0] {
		t.Fatalf("unexpected decoration: %+v", d.Entries)
	}

	empty, err := s.Day(context.Background(), "1", "2024-04-04")
	if err != nil || len(empty.Entries) != 0 {
		t.Fatalf("expected empty day, got %+v err=%v", empty, err)
	}
	if _, err := s.Day(context.Background(), "1", "04/03"); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestBudget(t *testing.T) {
	s, _ := newService(t, seed())
	ctx := context.Background()

	v, err := s.Budget(ctx, "1", "", "2024-04", 2000000)
	if err != nil {
		t.Fatalf("Budget: %v", err)
	}
	if v.Ledger.ID != core.PersonalLedgerID || v.SpentToDate != 500000 || v.ProjectedTotal != 1500000 || v.PercentUsed != 25 || v.IsOverProjected {
		t.Fatalf("unexpected projection: %+v", v)
	}

	g, err := s.Budget(ctx, "1", "20", "", 500000)
	if err != nil {
		t.Fatalf("Budget: %v", err)
	}
	if g.ProjectedTotal != 720000 || !g.IsOverProjected || g.Excess() != 220000 {
		t.Fatalf("unexpected group projection: %+v", g)
	}

	if _, err := s.Budget(ctx, "1", "nope", "", 1); !errors.Is(err, ledger.ErrUnknownLedger) {
		t.Fatalf("expected ErrUnknownLedger, got %v", err)
	}
	if _, err := s.Budget(ctx, " ", "", "", 1); !errors.Is(err, core.ErrBlankUserID) {
		t.Fatalf("expected ErrBlankUserID, got %v", err)
	}
}

func TestBook(t *testing.T) {
	s, _ := newService(t, seed())
	ctx := context.Background()

	b, err := s.Book(ctx, "1", aggregate.BookFilter{Kind: core.KindOut, From: "2024-04-01"})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if len(b.Transactions) != 3 || b.Transactions[0].Date != "2024-04-07" {
		t.Fatalf("unexpected book: %+v", b.Transactions)
	}

	s.Toggle(ctx, "1", "20")
	b, _ = s.Book(ctx, "1", aggregate.BookFilter{Search: "숙소"})
	if len(b.Transactions) != 0 {
		t.Fatalf("inactive ledger should be excluded from the book")
	}

	if _, err := s.Book(ctx, "1", aggregate.BookFilter{Kind: "SIDEWAYS"}); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
	if _, err := s.Book(ctx, "1", aggregate.BookFilter{To: "yesterday"}); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestSnapshotIsCachedAndRefreshKeepsSelection(t *testing.T) {
	src := seed()
	s, g := newService(t, src)
	ctx := context.Background()

	s.Toggle(ctx, "1", "10")
	s.Calendar(ctx, "1", "")
	if n := atomic.LoadInt32(&g.calls); n != 1 {
		t.Fatalf("expected one gather, got %d", n)
	}

	src.AddGroup(core.RawRecord{"userId": "1", "groupbId": 30, "title": "새 모임"})
	if _, err := s.Refresh(ctx, "1"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	ledgers, _ := s.Ledgers(ctx, "1")
	if len(ledgers) != 4 {
		t.Fatalf("expected the new group after refresh, got %+v", ledgers)
	}
	state := map[string]bool{}
	for _, l := range ledgers {
		state[l.ID] = l.IsActive
	}
	if state["10"] || !state["30"] || !state[core.PersonalLedgerID] {
		t.Fatalf("unexpected active state after refresh: %v", state)
	}
}

func TestEvictedRegistryIsRebuilt(t *testing.T) {
	registries := cache.NewLRUCache[*ledger.Registry](1, time.Hour)
	g := &countingGatherer{inner: fetch.New(seed(), fetch.WithClock(func() time.Time { return today }))}
	s := NewLedgerService(g, cache.NewLRUCache[fetch.Result](10, time.Minute),
		WithRegistries(registries),
		WithClock(func() time.Time { return today }),
	)
	ctx := context.Background()

	if _, err := s.Toggle(ctx, "1", "20"); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if _, err := s.Ledgers(ctx, "2"); err != nil {
		t.Fatalf("Ledgers for second user: %v", err)
	}
	if n := registries.Size(); n != 1 {
		t.Fatalf("registry cache holds %d entries, want 1", n)
	}
	if _, ok := registries.Get("1"); ok {
		t.Fatalf("least recently used registry should have been evicted")
	}

	ledgers, err := s.Ledgers(ctx, "1")
	if err != nil {
		t.Fatalf("Ledgers after eviction: %v", err)
	}
	if len(ledgers) != 3 {
		t.Fatalf("rebuilt registry should list every ledger, got %+v", ledgers)
	}
	for _, l := range ledgers {
		if !l.IsActive {
			t.Fatalf("rebuilt registry should start all active, got %+v", l)
		}
	}
	if n := atomic.LoadInt32(&g.calls); n != 2 {
		t.Fatalf("rebuild should reuse the cached snapshot, gathers = %d", n)
	}
}

func TestBookFollowsActiveSetNotAggregation(t *testing.T) {
	s, _ := newService(t, seed())
	ctx := context.Background()

	if _, err := s.ToggleAll(ctx, "1"); err != nil {
		t.Fatalf("ToggleAll: %v", err)
	}
	b, err := s.Book(ctx, "1", aggregate.BookFilter{})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if len(b.Transactions) != 0 {
		t.Fatalf("empty active set should yield an empty book, got %+v", b.Transactions)
	}

	if _, err := s.Toggle(ctx, "1", "10"); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	b, _ = s.Book(ctx, "1", aggregate.BookFilter{})
	if len(b.Transactions) != 1 || b.Transactions[0].LedgerID != "10" {
		t.Fatalf("book should hold only ledger 10, got %+v", b.Transactions)
	}
}

func TestConcurrentRefreshIsCollapsed(t *testing.T) {
	s, g := newService(t, seed())
	g.release = make(chan struct{})

	var wg, started sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		started.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			if _, err := s.Refresh(context.Background(), "1"); err != nil {
				t.Errorf("Refresh: %v", err)
			}
		}()
	}
	started.Wait()
	for atomic.LoadInt32(&g.calls) == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	close(g.release)
	wg.Wait()

	if n := atomic.LoadInt32(&g.calls); n != 1 {
		t.Fatalf("expected a single gather, got %d", n)
	}
}

func TestOlderSnapshotDoesNotReplaceNewer(t *testing.T) {
	s, _ := newService(t, seed())
	newer := fetch.Result{UserID: "1", FetchedAt: today, Transactions: []core.Transaction{{ID: "new"}}}
	older := fetch.Result{UserID: "1", FetchedAt: today.Add(-time.Minute)}
	s.store(newer)
	s.store(older)

	got, err := s.Snapshot(context.Background(), "1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(got.Transactions) != 1 || got.Transactions[0].ID != "new" {
		t.Fatalf("older snapshot replaced newer: %+v", got)
	}
}

type failingGatherer struct{}

func (failingGatherer) Gather(context.Context, string) (fetch.Result, error) {
	return fetch.Result{}, context.DeadlineExceeded
}

func TestRefreshError(t *testing.T) {
	s := NewLedgerService(failingGatherer{}, cache.NewLRUCache[fetch.Result](1, time.Minute))
	if _, err := s.Calendar(context.Background(), "1", ""); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected gather error, got %v", err)
	}
}
