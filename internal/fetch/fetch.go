// Package fetch gathers every ledger a user can see from the record
// sources and joins the results before aggregation.
//
// The group list is read first, then the personal listing and one listing
// per group run concurrently. A source that fails or times out contributes
// nothing and is reported as a *FetchError; the remaining ledgers are still
// returned.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerbook/internal/core"
	"ledgerbook/internal/log"
	"ledgerbook/internal/normalize"
	"ledgerbook/internal/sources"
)

// Source names used in FetchError.
const (
	SourceTransactions      = "transactions"
	SourceGroups            = "groups"
	SourceGroupTransactions = "group-transactions"
)

// FetchError reports one failed source. The ledger it feeds is treated as
// empty.
type FetchError struct {
	Source   string
	LedgerID string
	Err      error
}

func (e *FetchError) Error() string {
	if e.LedgerID == "" {
		return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("fetch %s for ledger %q: %v", e.Source, e.LedgerID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Result is the joined view of every source for one user.
type Result struct {
	UserID       string
	Memberships  []core.Membership
	Transactions []core.Transaction
	Warnings     []error // *FetchError
	Rejected     []error // *normalize.NormalizationError
	FetchedAt    time.Time
}

type Gatherer struct {
	personal    sources.TransactionLister
	groups      sources.GroupLister
	groupTxs    sources.GroupTransactionLister
	timeout     time.Duration
	concurrency int
	now         func() time.Time
	logger      *log.Logger
}

type Option func(*Gatherer)

// WithTimeout bounds each individual source call. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(g *Gatherer) { g.timeout = d }
}

// WithConcurrency caps parallel source calls.
func WithConcurrency(n int) Option {
	return func(g *Gatherer) {
		if n > 0 {
			g.concurrency = n
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(g *Gatherer) { g.logger = l.WithComponent(log.ComponentFetch) }
}

func WithClock(now func() time.Time) Option {
	return func(g *Gatherer) { g.now = now }
}

// New builds a Gatherer over a backend serving every listing.
func New(src sources.Source, opts ...Option) *Gatherer {
	return NewSplit(src, src, src, opts...)
}

// NewSplit builds a Gatherer whose listings come from distinct backends.
func NewSplit(personal sources.TransactionLister, groups sources.GroupLister, groupTxs sources.GroupTransactionLister, opts ...Option) *Gatherer {
	g := &Gatherer{
		personal:    personal,
		groups:      groups,
		groupTxs:    groupTxs,
		timeout:     10 * time.Second,
		concurrency: 8,
		now:         time.Now,
		logger:      log.Nop(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

type slot struct {
	ledgerID string
	source   string
	raws     []core.RawRecord
	err      error
}

// Gather fetches and normalizes every ledger of userID. It fails only for a
// blank user id or when ctx itself is done; per-source failures end up in
// Result.Warnings.
func (g *Gatherer) Gather(ctx context.Context, userID string) (Result, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Result{}, core.ErrBlankUserID
	}
	res := Result{UserID: userID}
	logger := g.logger.With(log.FieldUserID, userID)

	memberships, rejected, err := g.memberships(ctx, userID)
	if err != nil {
		res.Warnings = append(res.Warnings, &FetchError{Source: SourceGroups, Err: err})
	}
	res.Memberships = memberships
	res.Rejected = append(res.Rejected, rejected...)

	slots := make([]slot, 0, len(memberships)+1)
	slots = append(slots, slot{ledgerID: core.PersonalLedgerID, source: SourceTransactions})
	for _, m := range memberships {
		slots = append(slots, slot{ledgerID: m.GroupID, source: SourceGroupTransactions})
	}

	var eg errgroup.Group
	eg.SetLimit(g.concurrency)
	for i := range slots {
		s := &slots[i]
		eg.Go(func() error {
			s.raws, s.err = g.call(ctx, func(ctx context.Context) ([]core.RawRecord, error) {
				if s.ledgerID == core.PersonalLedgerID {
					return g.personal.ListUserTransactions(ctx, userID)
				}
				return g.groupTxs.ListGroupTransactions(ctx, s.ledgerID)
			})
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	seen := make(map[[2]string]struct{})
	for _, s := range slots {
		if s.err != nil {
			res.Warnings = append(res.Warnings, &FetchError{Source: s.source, LedgerID: s.ledgerID, Err: s.err})
			continue
		}
		txs, errs := normalize.NormalizeAll(s.raws, s.ledgerID)
		res.Rejected = append(res.Rejected, errs...)
		for _, t := range txs {
			key := [2]string{t.LedgerID, t.ID}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			res.Transactions = append(res.Transactions, t)
		}
	}
	res.FetchedAt = g.now()

	for _, w := range res.Warnings {
		var fe *FetchError
		if errors.As(w, &fe) {
			logger.WarnContext(ctx, "Source failed, ledger treated as empty",
				log.NewFields().WithSource(fe.Source).WithLedger(fe.LedgerID).WithError(fe.Err).ToSlice()...)
		}
	}
	if len(res.Rejected) > 0 {
		logger.WithComponent(log.ComponentNormalize).LogFields(ctx, slog.LevelWarn, "Records rejected during normalization",
			log.NewFields().WithUser(userID).WithCounts(len(res.Transactions), len(res.Rejected)).WithError(res.Rejected[0]))
	}
	logger.DebugContext(ctx, "Gather completed",
		log.NewFields().WithCounts(len(res.Transactions), len(res.Rejected)).ToSlice()...)
	return res, nil
}

// memberships lists and normalizes groups, skipping duplicates and the
// reserved personal id.
func (g *Gatherer) memberships(ctx context.Context, userID string) ([]core.Membership, []error, error) {
	raws, err := g.call(ctx, func(ctx context.Context) ([]core.RawRecord, error) {
		return g.groups.ListGroups(ctx, userID)
	})
	if err != nil {
		return nil, nil, err
	}
	var (
		out      []core.Membership
		rejected []error
		seen     = map[string]struct{}{}
	)
	for _, raw := range raws {
		m, err := normalize.NormalizeMembership(raw)
		if err != nil {
			rejected = append(rejected, err)
			continue
		}
		if _, dup := seen[m.GroupID]; dup || m.GroupID == core.PersonalLedgerID {
			continue
		}
		seen[m.GroupID] = struct{}{}
		out = append(out, m)
	}
	return out, rejected, nil
}

func (g *Gatherer) call(ctx context.Context, fn func(context.Context) ([]core.RawRecord, error)) ([]core.RawRecord, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return fn(ctx)
}
