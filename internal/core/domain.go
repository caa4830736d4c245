package core

import (
	"errors"
	"strings"
	"time"
)

const (
	KindIn  Kind = "IN"
	KindOut Kind = "OUT"
)

const (
	// PersonalLedgerID is the fixed id of the implicit personal ledger.
	PersonalLedgerID    = "personal"
	PersonalLedgerName  = "내 가계부"
	PersonalLedgerColor = "#0066ff"

	// DefaultCategory is used when a record carries no category.
	DefaultCategory = "기타"

	// DateLayout is the canonical calendar date format (YYYY-MM-DD).
	DateLayout = "2006-01-02"
	// MonthLayout is the canonical month key format (YYYY-MM).
	MonthLayout = "2006-01"
)

type (
	// Kind is the direction of a transaction.
	Kind string

	// RawRecord is a transaction or group record as decoded from a collaborator.
	RawRecord map[string]any

	Transaction struct {
		ID       string // unique within its ledger
		Title    string
		Amount   int64 // whole currency units, never negative
		Date     string
		Kind     Kind
		Category string
		Memo     string
		LedgerID string
	}

	Ledger struct {
		ID          string
		DisplayName string
		Color       string
		IsActive    bool
	}

	// Membership is one group the user belongs to.
	Membership struct {
		GroupID string
		Title   string
	}
)

var (
	ErrBlankUserID   = errors.New("blank user id")
	ErrBlankLedgerID = errors.New("blank ledger id")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidDate   = errors.New("invalid date")
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindIn || k == KindOut
}

// Raw renders the transaction back into canonical camel-case raw form.
func (t Transaction) Raw() RawRecord {
	return RawRecord{
		"transId":        t.ID,
		"title":          t.Title,
		"originalAmount": t.Amount,
		"transDate":      t.Date,
		"type":           string(t.Kind),
		"category":       t.Category,
		"memo":           t.Memo,
		"ledgerId":       t.LedgerID,
	}
}

// InMonth reports whether the transaction date falls in monthKey (YYYY-MM).
func (t Transaction) InMonth(monthKey string) bool {
	return monthKey != "" && strings.HasPrefix(t.Date, monthKey)
}

// MonthKey formats the year and month of t as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.Format(MonthLayout)
}

// ParseMonth parses a YYYY-MM key into the first day of that month (UTC).
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidMonth
	}
	return t, nil
}

// ParseDate parses a YYYY-MM-DD calendar date (UTC).
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// DaysIn returns the last calendar day of t's month (28-31).
func DaysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
