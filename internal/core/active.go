package core

import (
	"sort"
	"strings"
)

// ActiveSet is an immutable set of ledger ids included in aggregation.
// The zero value is an empty set.
type ActiveSet struct {
	ids map[string]struct{}
}

// NewActiveSet builds a set from ids. Duplicates collapse.
func NewActiveSet(ids ...string) ActiveSet {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return ActiveSet{ids: m}
}

// Contains reports whether id is active.
func (s ActiveSet) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of active ledgers.
func (s ActiveSet) Len() int {
	return len(s.ids)
}

// IDs returns the active ids sorted.
func (s ActiveSet) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Validate fails when the set holds a blank identifier.
func (s ActiveSet) Validate() error {
	for id := range s.ids {
		if strings.TrimSpace(id) == "" {
			return ErrBlankLedgerID
		}
	}
	return nil
}

// SubsetOf reports whether every id in s is also in other.
func (s ActiveSet) SubsetOf(other ActiveSet) bool {
	for id := range s.ids {
		if !other.Contains(id) {
			return false
		}
	}
	return true
}
