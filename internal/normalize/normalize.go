// Package normalize canonicalizes raw transaction and membership records
// from heterogeneous sources into core types.
//
// Sources disagree on field naming (transId vs TRAN_ID) and date encoding
// (2024-03-15 vs 24/03/15). Resolution is driven by a declarative Mapping
// evaluated once per record, so no adapter needs its own decoder.
package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"

	"ledgerbook/internal/core"
)

var (
	ErrMissingID      = errors.New("missing id")
	ErrMissingDate    = errors.New("missing date")
	ErrMissingGroupID = errors.New("missing group id")
)

// NormalizationError reports a record that cannot be aggregated.
// Callers drop the record and continue with the rest.
type NormalizationError struct {
	LedgerID string
	Field    Field
	Err      error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize record from ledger %q: field %s: %v", e.LedgerID, e.Field, e.Err)
}

func (e *NormalizationError) Unwrap() error {
	return e.Err
}

// Normalize converts raw into a Transaction tagged with sourceLedgerID,
// unless the record names its own group ledger.
func Normalize(raw core.RawRecord, sourceLedgerID string) (core.Transaction, error) {
	id, ok := lookupString(raw, TransactionKeys[FieldID])
	if !ok {
		return core.Transaction{}, &NormalizationError{LedgerID: sourceLedgerID, Field: FieldID, Err: ErrMissingID}
	}
	date, ok := resolveDate(raw)
	if !ok {
		return core.Transaction{}, &NormalizationError{LedgerID: sourceLedgerID, Field: FieldDate, Err: ErrMissingDate}
	}

	title, _ := lookupString(raw, TransactionKeys[FieldTitle])
	category, ok := lookupString(raw, TransactionKeys[FieldCategory])
	if !ok {
		category = core.DefaultCategory
	}
	memo, _ := lookupString(raw, TransactionKeys[FieldMemo])

	return core.Transaction{
		ID:       id,
		Title:    title,
		Amount:   resolveAmount(raw),
		Date:     date,
		Kind:     resolveKind(raw),
		Category: category,
		Memo:     memo,
		LedgerID: resolveLedger(raw, sourceLedgerID),
	}, nil
}

// NormalizeAll normalizes every record, keeping successes in input order.
// Each rejected record contributes one error.
func NormalizeAll(raws []core.RawRecord, sourceLedgerID string) ([]core.Transaction, []error) {
	out := make([]core.Transaction, 0, len(raws))
	var errs []error
	for _, raw := range raws {
		tx, err := Normalize(raw, sourceLedgerID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, tx)
	}
	return out, errs
}

// NormalizeMembership converts a group-listing record.
func NormalizeMembership(raw core.RawRecord) (core.Membership, error) {
	id, ok := lookupString(raw, MembershipKeys[FieldGroupID])
	if !ok {
		return core.Membership{}, &NormalizationError{Field: FieldGroupID, Err: ErrMissingGroupID}
	}
	title, ok := lookupString(raw, MembershipKeys[FieldGroupTitle])
	if !ok {
		title = id
	}
	return core.Membership{GroupID: id, Title: title}, nil
}

// NormalizeDate expands YY/MM/DD into 20YY-MM-DD and passes anything else
// through unchanged.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "/") {
		return s
	}
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return s
	}
	for _, p := range parts {
		if !isTwoDigits(p) {
			return s
		}
	}
	return "20" + parts[0] + "-" + parts[1] + "-" + parts[2]
}

func isTwoDigits(s string) bool {
	return len(s) == 2 && s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}

func resolveDate(raw core.RawRecord) (string, bool) {
	v, ok := lookup(raw, TransactionKeys[FieldDate])
	if !ok {
		return "", false
	}
	if t, isTime := v.(time.Time); isTime {
		if t.IsZero() {
			return "", false
		}
		return t.Format(core.DateLayout), true
	}
	s, err := cast.ToStringE(v)
	if err != nil || strings.TrimSpace(s) == "" {
		return "", false
	}
	return NormalizeDate(s), true
}

// resolveAmount coerces to a number; missing or invalid amounts are 0.
// The sign is dropped, direction comes from the kind alone.
func resolveAmount(raw core.RawRecord) int64 {
	v, ok := lookup(raw, TransactionKeys[FieldAmount])
	if !ok {
		return 0
	}
	if s, isString := v.(string); isString {
		v = strings.TrimSpace(s)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0
	}
	return core.AbsUnits(f)
}

// resolveKind defaults to OUT, the entry form's default direction.
func resolveKind(raw core.RawRecord) core.Kind {
	s, _ := lookupString(raw, TransactionKeys[FieldKind])
	switch strings.ToUpper(s) {
	case "IN", "INCOME":
		return core.KindIn
	default:
		return core.KindOut
	}
}

// resolveLedger honours a group id carried by the record itself. A zero
// group id means the record is personal.
func resolveLedger(raw core.RawRecord, sourceLedgerID string) string {
	s, ok := lookupString(raw, TransactionKeys[FieldLedger])
	if !ok || s == "0" {
		return sourceLedgerID
	}
	return s
}

// lookup returns the first candidate holding a non-nil, non-blank value.
func lookup(raw core.RawRecord, keys []string) (any, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

func lookupString(raw core.RawRecord, keys []string) (string, bool) {
	v, ok := lookup(raw, keys)
	if !ok {
		return "", false
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
