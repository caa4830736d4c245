package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"ledgerbook/internal/aggregate"
	"ledgerbook/internal/budget"
	"ledgerbook/internal/cache"
	"ledgerbook/internal/core"
	"ledgerbook/internal/fetch"
	"ledgerbook/internal/ledger"
	"ledgerbook/internal/log"
)

var ErrInvalidKind = errors.New("invalid kind")

// Gatherer loads the joined record set of one user.
type Gatherer interface {
	Gather(ctx context.Context, userID string) (fetch.Result, error)
}

type (
	// CalendarView is the month grid: one entry per date with activity.
	CalendarView struct {
		UserID       string
		Month        string
		Days         []core.AggregatedDay
		IncomeTotal  int64
		ExpenseTotal int64
		Ledgers      []core.Ledger
		Status
	}

	// DayView is the selected-day panel.
	DayView struct {
		Date         string
		IncomeTotal  int64
		ExpenseTotal int64
		Entries      []DayEntry
		Status
	}

	// DayEntry is a transaction decorated with its ledger's display data.
	DayEntry struct {
		core.Transaction
		LedgerName  string
		LedgerColor string
	}

	// BudgetView is the gauge of one ledger for one month.
	BudgetView struct {
		Ledger core.Ledger
		core.BudgetProjection
		Status
	}

	// BookView is the filtered account book, newest first.
	BookView struct {
		Filter       aggregate.BookFilter
		Transactions []core.Transaction
		Status
	}

	// Status reports snapshot freshness and partial failures.
	Status struct {
		Warnings  []string
		Rejected  int
		FetchedAt time.Time
	}
)

// Registry cache defaults used when no WithRegistries option is given.
const (
	DefaultRegistryCacheSize = 1024
	DefaultRegistryTTL       = 24 * time.Hour
)

// LedgerService keeps one ledger registry per user and serves view models
// over cached snapshots. Registries live in a bounded cache; a user whose
// registry was evicted gets a fresh one with every ledger active.
type LedgerService struct {
	gatherer  Gatherer
	snapshots *cache.LRUCache[fetch.Result]
	flight    singleflight.Group
	now       func() time.Time
	logger    *log.Logger

	// mu serializes registry access; Registry itself is not concurrency safe.
	mu         sync.Mutex
	registries *cache.LRUCache[*ledger.Registry]
}

type Option func(*LedgerService)

func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) { s.logger = l.WithComponent(log.ComponentLedger) }
}

// WithRegistries sets the cache holding per-user registries.
func WithRegistries(c *cache.LRUCache[*ledger.Registry]) Option {
	return func(s *LedgerService) { s.registries = c }
}

func NewLedgerService(g Gatherer, snapshots *cache.LRUCache[fetch.Result], opts ...Option) *LedgerService {
	s := &LedgerService{
		gatherer:  g,
		snapshots: snapshots,
		now:       time.Now,
		logger:    log.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.registries == nil {
		s.registries = cache.NewLRUCache[*ledger.Registry](DefaultRegistryCacheSize, DefaultRegistryTTL)
	}
	return s
}

// Refresh gathers a fresh snapshot for userID. Concurrent refreshes of the
// same user share one gather.
func (s *LedgerService) Refresh(ctx context.Context, userID string) (fetch.Result, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fetch.Result{}, core.ErrBlankUserID
	}
	v, err, shared := s.flight.Do(userID, func() (any, error) {
		res, err := s.gatherer.Gather(ctx, userID)
		if err != nil {
			return fetch.Result{}, err
		}
		s.store(res)
		return res, nil
	})
	if err != nil {
		return fetch.Result{}, fmt.Errorf("refresh user %s: %w", userID, err)
	}
	res := v.(fetch.Result)
	s.logger.DebugContext(ctx, "Snapshot refreshed",
		log.NewFields().WithUser(userID).WithOperation(log.OpRefresh).WithCounts(len(res.Transactions), len(res.Rejected)).ToSlice()...,
	)
	if shared {
		s.logger.DebugContext(ctx, "Refresh shared with concurrent caller", log.FieldUserID, userID)
	}
	return res, nil
}

// store caches res unless a newer snapshot is already cached, then brings
// the user's registry in line with the memberships.
func (s *LedgerService) store(res fetch.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.snapshots.Get(res.UserID); ok && cur.FetchedAt.After(res.FetchedAt) {
		return
	}
	s.snapshots.Set(res.UserID, res)

	reg, err := s.registry(res)
	if err != nil {
		s.logger.Error("Build ledger registry", log.FieldUserID, res.UserID, log.FieldError, err)
		return
	}
	reg.Sync(res.Memberships)
}

// registry returns the cached registry of res.UserID, building one from the
// snapshot's memberships when absent. Each access restarts its TTL. Callers
// hold s.mu.
func (s *LedgerService) registry(res fetch.Result) (*ledger.Registry, error) {
	reg, ok := s.registries.Get(res.UserID)
	if !ok {
		var err error
		if reg, err = ledger.Build(res.UserID, res.Memberships); err != nil {
			return nil, fmt.Errorf("build ledger registry for user %s: %w", res.UserID, err)
		}
	}
	s.registries.Set(res.UserID, reg)
	return reg, nil
}

// Snapshot returns the cached snapshot of userID, gathering one if needed.
func (s *LedgerService) Snapshot(ctx context.Context, userID string) (fetch.Result, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fetch.Result{}, core.ErrBlankUserID
	}
	if res, ok := s.snapshots.Get(userID); ok {
		return res, nil
	}
	return s.Refresh(ctx, userID)
}

// withRegistry runs fn with the user's registry locked.
func (s *LedgerService) withRegistry(ctx context.Context, userID string, fn func(*ledger.Registry) error) (fetch.Result, error) {
	res, err := s.Snapshot(ctx, userID)
	if err != nil {
		return fetch.Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, err := s.registry(res)
	if err != nil {
		return fetch.Result{}, err
	}
	return res, fn(reg)
}

// Ledgers lists the user's ledgers, personal first.
func (s *LedgerService) Ledgers(ctx context.Context, userID string) ([]core.Ledger, error) {
	var out []core.Ledger
	_, err := s.withRegistry(ctx, userID, func(r *ledger.Registry) error {
		out = r.Ledgers()
		return nil
	})
	return out, err
}

// Toggle flips one ledger in or out of the active set.
func (s *LedgerService) Toggle(ctx context.Context, userID, ledgerID string) ([]core.Ledger, error) {
	var out []core.Ledger
	_, err := s.withRegistry(ctx, userID, func(r *ledger.Registry) error {
		if err := r.Toggle(ledgerID); err != nil {
			return err
		}
		out = r.Ledgers()
		return nil
	})
	if err == nil {
		s.logger.InfoContext(ctx, "Ledger toggled",
			log.NewFields().WithUser(userID).WithLedger(ledgerID).WithOperation(log.OpToggle).ToSlice()...)
	}
	return out, err
}

// ToggleAll activates every ledger, or clears the set when all are active.
func (s *LedgerService) ToggleAll(ctx context.Context, userID string) ([]core.Ledger, error) {
	var out []core.Ledger
	_, err := s.withRegistry(ctx, userID, func(r *ledger.Registry) error {
		r.ToggleAll()
		out = r.Ledgers()
		return nil
	})
	return out, err
}

// selection captures the snapshot together with the active set and ledger
// list current at the time of the call.
type selection struct {
	res     fetch.Result
	active  core.ActiveSet
	ledgers []core.Ledger
}

func (s *LedgerService) selection(ctx context.Context, userID string) (selection, error) {
	var sel selection
	res, err := s.withRegistry(ctx, userID, func(r *ledger.Registry) error {
		sel.active = r.Active()
		sel.ledgers = r.Ledgers()
		return nil
	})
	if err != nil {
		return selection{}, err
	}
	sel.res = res
	return sel, nil
}

// view aggregates the snapshot over the current active set.
func (s *LedgerService) view(ctx context.Context, userID string) (aggregate.View, selection, error) {
	sel, err := s.selection(ctx, userID)
	if err != nil {
		return aggregate.View{}, selection{}, err
	}
	v, err := aggregate.Aggregate(sel.res.Transactions, sel.active)
	if err != nil {
		return aggregate.View{}, selection{}, err
	}
	return v, sel, nil
}

// Calendar returns the month grid. An empty month means the current one.
func (s *LedgerService) Calendar(ctx context.Context, userID, month string) (CalendarView, error) {
	monthRef, err := s.month(month)
	if err != nil {
		return CalendarView{}, err
	}
	v, sel, err := s.view(ctx, userID)
	if err != nil {
		return CalendarView{}, err
	}
	out := CalendarView{
		UserID:  sel.res.UserID,
		Month:   core.MonthKey(monthRef),
		Days:    v.Month(core.MonthKey(monthRef)),
		Ledgers: sel.ledgers,
		Status:  StatusOf(sel.res),
	}
	for _, d := range out.Days {
		out.IncomeTotal = core.AddUnits(out.IncomeTotal, d.IncomeTotal)
		out.ExpenseTotal = core.AddUnits(out.ExpenseTotal, d.ExpenseTotal)
	}
	return out, nil
}

// Day returns the selected-day panel. Dates with no activity yield an
// empty panel.
func (s *LedgerService) Day(ctx context.Context, userID, date string) (DayView, error) {
	t, err := core.ParseDate(date)
	if err != nil {
		return DayView{}, err
	}
	date = t.Format(core.DateLayout)
	v, sel, err := s.view(ctx, userID)
	if err != nil {
		return DayView{}, err
	}
	byID := make(map[string]core.Ledger, len(sel.ledgers))
	for _, l := range sel.ledgers {
		byID[l.ID] = l
	}
	out := DayView{Date: date, Status: StatusOf(sel.res)}
	if d, ok := v.Day(date); ok {
		out.IncomeTotal, out.ExpenseTotal = d.IncomeTotal, d.ExpenseTotal
		for _, t := range d.Transactions {
			l := byID[t.LedgerID]
			out.Entries = append(out.Entries, DayEntry{Transaction: t, LedgerName: l.DisplayName, LedgerColor: l.Color})
		}
	}
	return out, nil
}

// Budget projects month-end spend of one ledger against ceiling. A blank
// ledger id means the personal ledger; an empty month the current one.
func (s *LedgerService) Budget(ctx context.Context, userID, ledgerID, month string, ceiling int64) (BudgetView, error) {
	monthRef, err := s.month(month)
	if err != nil {
		return BudgetView{}, err
	}
	ledgerID = strings.TrimSpace(ledgerID)
	if ledgerID == "" {
		ledgerID = core.PersonalLedgerID
	}
	var l core.Ledger
	res, err := s.withRegistry(ctx, userID, func(r *ledger.Registry) error {
		var ok bool
		if l, ok = r.Ledger(ledgerID); !ok {
			return fmt.Errorf("%w: %s", ledger.ErrUnknownLedger, ledgerID)
		}
		return nil
	})
	if err != nil {
		return BudgetView{}, err
	}
	p := budget.ProjectAt(res.Transactions, ledgerID, monthRef, ceiling, s.now())
	s.logger.DebugContext(ctx, "Budget projected",
		log.NewFields().WithUser(userID).WithLedger(ledgerID).WithMonth(p.MonthKey).WithOperation(log.OpProject).ToSlice()...)
	return BudgetView{Ledger: l, BudgetProjection: p, Status: StatusOf(res)}, nil
}

// Book lists active-ledger transactions matching f, newest first.
func (s *LedgerService) Book(ctx context.Context, userID string, f aggregate.BookFilter) (BookView, error) {
	if f.Kind != "" && !f.Kind.Valid() {
		return BookView{}, fmt.Errorf("kind %q: %w", f.Kind, ErrInvalidKind)
	}
	for _, d := range []string{f.From, f.To} {
		if d == "" {
			continue
		}
		if _, err := core.ParseDate(d); err != nil {
			return BookView{}, err
		}
	}
	sel, err := s.selection(ctx, userID)
	if err != nil {
		return BookView{}, err
	}
	var txs []core.Transaction
	for _, t := range sel.res.Transactions {
		if sel.active.Contains(t.LedgerID) {
			txs = append(txs, t)
		}
	}
	return BookView{Filter: f, Transactions: aggregate.Book(txs, f), Status: StatusOf(sel.res)}, nil
}

func (s *LedgerService) month(month string) (time.Time, error) {
	if strings.TrimSpace(month) == "" {
		now := s.now()
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	return core.ParseMonth(month)
}

// StatusOf summarizes the freshness and partial failures of res.
func StatusOf(res fetch.Result) Status {
	st := Status{Rejected: len(res.Rejected), FetchedAt: res.FetchedAt}
	for _, w := range res.Warnings {
		st.Warnings = append(st.Warnings, w.Error())
	}
	return st
}
