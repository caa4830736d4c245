package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ledgerbook/internal/core"
)

func memberships(n int) []core.Membership {
	out := make([]core.Membership, n)
	for i := range out {
		out[i] = core.Membership{GroupID: fmt.Sprint(i + 1), Title: fmt.Sprintf("group %d", i+1)}
	}
	return out
}

func TestBuildOrderAndPalette(t *testing.T) {
	r, err := Build("u1", memberships(6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ls := r.Ledgers()
	if len(ls) != 7 {
		t.Fatalf("expected 7 ledgers, got %d", len(ls))
	}
	want := core.Ledger{ID: core.PersonalLedgerID, DisplayName: core.PersonalLedgerName, Color: core.PersonalLedgerColor, IsActive: true}
	if diff := cmp.Diff(want, ls[0]); diff != "" {
		t.Fatalf("personal ledger mismatch (-want +got):\n%s", diff)
	}
	wantColors := []string{"#ff9f43", "#ee5253", "#10ac84", "#5f27cd", "#ff9f43", "#ee5253"}
	for i, l := range ls[1:] {
		if l.ID != fmt.Sprint(i+1) {
			t.Fatalf("ledger %d id = %q", i, l.ID)
		}
		if l.Color != wantColors[i] {
			t.Fatalf("ledger %s color = %s, want %s", l.ID, l.Color, wantColors[i])
		}
		if !l.IsActive {
			t.Fatalf("ledger %s should start active", l.ID)
		}
	}
}

func TestBuildRejectsBlankUser(t *testing.T) {
	if _, err := Build(" ", nil); !errors.Is(err, core.ErrBlankUserID) {
		t.Fatalf("expected ErrBlankUserID, got %v", err)
	}
}

func TestBuildSkipsDuplicateAndBlankGroups(t *testing.T) {
	r, _ := Build("u1", []core.Membership{{GroupID: "1"}, {GroupID: ""}, {GroupID: "1"}, {GroupID: "personal"}, {GroupID: "2"}})
	if got := r.GroupIDs(); !cmp.Equal(got, []string{"1", "2"}) {
		t.Fatalf("unexpected group ids: %v", got)
	}
}

func TestToggleIsIndependent(t *testing.T) {
	r, _ := Build("u1", memberships(2))
	if err := r.Toggle("1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.Active().IDs(); !cmp.Equal(got, []string{"2", "personal"}) {
		t.Fatalf("unexpected active set: %v", got)
	}
	if err := r.Toggle("1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.AllActive() {
		t.Fatalf("expected all active after double toggle")
	}
	if err := r.Toggle("nope"); !errors.Is(err, ErrUnknownLedger) {
		t.Fatalf("expected ErrUnknownLedger, got %v", err)
	}
}

func TestToggleAll(t *testing.T) {
	r, _ := Build("u1", memberships(3))

	r.ToggleAll()
	if r.Active().Len() != 0 {
		t.Fatalf("all active should flip to none, got %v", r.Active().IDs())
	}
	r.ToggleAll()
	if !r.AllActive() {
		t.Fatalf("none active should flip to all")
	}

	_ = r.Toggle("2")
	r.ToggleAll()
	if !r.AllActive() {
		t.Fatalf("partial selection should flip to all")
	}
}

func TestToggleAllTwice(t *testing.T) {
	r, _ := Build("u1", memberships(3))
	before := r.Active().IDs()
	r.ToggleAll()
	r.ToggleAll()
	if got := r.Active().IDs(); !cmp.Equal(before, got) {
		t.Fatalf("from all: before %v after %v", before, got)
	}

	r.ToggleAll() // none active
	r.ToggleAll()
	r.ToggleAll()
	if r.Active().Len() != 0 {
		t.Fatalf("from none: expected empty set, got %v", r.Active().IDs())
	}

	// A partial selection is not a fixed point: it goes to all, then none.
	_ = r.Toggle("1")
	r.ToggleAll()
	r.ToggleAll()
	if r.Active().Len() != 0 {
		t.Fatalf("from partial: expected empty set, got %v", r.Active().IDs())
	}
}

func TestSyncRemovesAndKeepsState(t *testing.T) {
	r, _ := Build("u1", memberships(3))
	_ = r.Toggle("2")
	_ = r.Toggle("3")

	r.Sync([]core.Membership{{GroupID: "2", Title: "group 2"}, {GroupID: "4", Title: "new"}})

	ids := make([]string, 0)
	for _, l := range r.Ledgers() {
		ids = append(ids, l.ID)
	}
	if !cmp.Equal(ids, []string{"personal", "2", "4"}) {
		t.Fatalf("unexpected ledgers: %v", ids)
	}
	if got := r.Active().IDs(); !cmp.Equal(got, []string{"4", "personal"}) {
		t.Fatalf("unexpected active set: %v", got)
	}
	l, _ := r.Ledger("4")
	if l.Color != Palette[1] {
		t.Fatalf("color follows new position, got %s", l.Color)
	}
}

func TestActiveSetIsSubsetOfLedgers(t *testing.T) {
	r, _ := Build("u1", memberships(4))
	r.Sync(memberships(1))
	all := make([]string, 0)
	for _, l := range r.Ledgers() {
		all = append(all, l.ID)
	}
	if !r.Active().SubsetOf(core.NewActiveSet(all...)) {
		t.Fatalf("active set %v escapes ledgers %v", r.Active().IDs(), all)
	}
}
