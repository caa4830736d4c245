// Package ledger owns the ledgers visible to one user and which of them are
// currently active in the filter. The active set is the only mutable state
// in the engine; everything downstream receives it as a core.ActiveSet value.
package ledger

import (
	"errors"
	"fmt"
	"strings"

	"ledgerbook/internal/core"
)

// Palette colors group ledgers by position, cycling every four groups.
var Palette = [4]string{"#ff9f43", "#ee5253", "#10ac84", "#5f27cd"}

var ErrUnknownLedger = errors.New("unknown ledger")

// Registry is not safe for concurrent use; callers serialize access.
type Registry struct {
	userID  string
	ledgers []core.Ledger
}

// Build returns a registry with the personal ledger first, then one ledger
// per membership in the order received. Every ledger starts active.
func Build(userID string, memberships []core.Membership) (*Registry, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, core.ErrBlankUserID
	}
	r := &Registry{userID: userID}
	r.ledgers = buildLedgers(memberships, nil)
	return r, nil
}

func buildLedgers(memberships []core.Membership, previous map[string]bool) []core.Ledger {
	out := make([]core.Ledger, 0, len(memberships)+1)
	out = append(out, core.Ledger{
		ID:          core.PersonalLedgerID,
		DisplayName: core.PersonalLedgerName,
		Color:       core.PersonalLedgerColor,
		IsActive:    activeOr(previous, core.PersonalLedgerID),
	})
	seen := map[string]struct{}{core.PersonalLedgerID: {}}
	for i, m := range memberships {
		id := strings.TrimSpace(m.GroupID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, core.Ledger{
			ID:          id,
			DisplayName: m.Title,
			Color:       Palette[i%len(Palette)],
			IsActive:    activeOr(previous, id),
		})
	}
	return out
}

func activeOr(previous map[string]bool, id string) bool {
	if active, ok := previous[id]; ok {
		return active
	}
	return true
}

// UserID returns the owner of the registry.
func (r *Registry) UserID() string {
	return r.userID
}

// Ledgers returns a copy of the ordered ledger list.
func (r *Registry) Ledgers() []core.Ledger {
	return append([]core.Ledger(nil), r.ledgers...)
}

// Ledger looks up one ledger by id.
func (r *Registry) Ledger(id string) (core.Ledger, bool) {
	for _, l := range r.ledgers {
		if l.ID == id {
			return l, true
		}
	}
	return core.Ledger{}, false
}

// Toggle flips a single ledger, leaving the others untouched.
func (r *Registry) Toggle(id string) error {
	for i := range r.ledgers {
		if r.ledgers[i].ID == id {
			r.ledgers[i].IsActive = !r.ledgers[i].IsActive
			return nil
		}
	}
	return fmt.Errorf("toggle %q: %w", id, ErrUnknownLedger)
}

// ToggleAll deactivates everything when all ledgers are active and
// activates everything otherwise.
func (r *Registry) ToggleAll() {
	target := !r.AllActive()
	for i := range r.ledgers {
		r.ledgers[i].IsActive = target
	}
}

// AllActive reports whether every ledger is active.
func (r *Registry) AllActive() bool {
	for _, l := range r.ledgers {
		if !l.IsActive {
			return false
		}
	}
	return true
}

// Active returns the current active set.
func (r *Registry) Active() core.ActiveSet {
	ids := make([]string, 0, len(r.ledgers))
	for _, l := range r.ledgers {
		if l.IsActive {
			ids = append(ids, l.ID)
		}
	}
	return core.NewActiveSet(ids...)
}

// Sync applies a membership change. Ledgers that disappear leave the active
// set with them; surviving ledgers keep their state; new ones start active.
func (r *Registry) Sync(memberships []core.Membership) {
	previous := make(map[string]bool, len(r.ledgers))
	for _, l := range r.ledgers {
		previous[l.ID] = l.IsActive
	}
	r.ledgers = buildLedgers(memberships, previous)
}

// GroupIDs returns the ids of every group ledger in order.
func (r *Registry) GroupIDs() []string {
	out := make([]string, 0, len(r.ledgers))
	for _, l := range r.ledgers {
		if l.ID != core.PersonalLedgerID {
			out = append(out, l.ID)
		}
	}
	return out
}
