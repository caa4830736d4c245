// Package sqlite serves raw ledger records from a local SQLite database
// laid out like the legacy backend (upper-snake columns, YY/MM/DD dates).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"ledgerbook/internal/core"
	"ledgerbook/internal/sources"
)

var _ sources.Source = (*Repository)(nil)

// legacyDateLayout is how TRANS_DATE is stored.
const legacyDateLayout = "06/01/02"

const (
	selectPersonal = `SELECT TRAN_ID, TITLE, ORIGINAL_AMOUNT, TRANS_DATE, TYPE, CATEGORY, MEMO, GROUPB_ID, USER_ID
FROM TRANS WHERE USER_ID = ? AND GROUPB_ID = 0 ORDER BY TRAN_ID`

	selectGroup = `SELECT TRAN_ID, TITLE, ORIGINAL_AMOUNT, TRANS_DATE, TYPE, CATEGORY, MEMO, GROUPB_ID, USER_ID
FROM TRANS WHERE GROUPB_ID = ? ORDER BY TRAN_ID`

	selectGroups = `SELECT g.GROUPB_ID, g.TITLE
FROM GROUP_MEMBER m JOIN GROUPB g ON g.GROUPB_ID = m.GROUPB_ID
WHERE m.USER_ID = ? ORDER BY m.rowid`
)

type Repository struct {
	db *sql.DB
}

// Open creates the database directory if needed, opens dbPath and applies
// pending migrations.
func Open(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) ListUserTransactions(ctx context.Context, userID string) ([]core.RawRecord, error) {
	return r.query(ctx, selectPersonal, userID)
}

func (r *Repository) ListGroups(ctx context.Context, userID string) ([]core.RawRecord, error) {
	return r.query(ctx, selectGroups, userID)
}

func (r *Repository) ListGroupTransactions(ctx context.Context, groupID string) ([]core.RawRecord, error) {
	id, err := strconv.ParseInt(groupID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("group id %q: %w", groupID, err)
	}
	return r.query(ctx, selectGroup, id)
}

// query maps every row into a RawRecord keyed by column name.
func (r *Repository) query(ctx context.Context, q string, args ...any) ([]core.RawRecord, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	var out []core.RawRecord
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		rec := make(core.RawRecord, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				vals[i] = string(b)
			}
			rec[c] = vals[i]
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Transaction is a row to insert into TRANS. GroupID 0 means personal.
type Transaction struct {
	UserID   string
	GroupID  int64
	Title    string
	Amount   int64
	Date     time.Time
	Kind     core.Kind
	Category string
	Memo     string
}

// InsertTransaction stores t and returns its TRAN_ID.
func (r *Repository) InsertTransaction(ctx context.Context, t Transaction) (int64, error) {
	if t.UserID == "" {
		return 0, core.ErrBlankUserID
	}
	if t.Date.IsZero() {
		return 0, core.ErrInvalidDate
	}
	kind := t.Kind
	if kind == "" {
		kind = core.KindOut
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO TRANS (USER_ID, GROUPB_ID, TITLE, ORIGINAL_AMOUNT, TRANS_DATE, TYPE, CATEGORY, MEMO)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.GroupID, t.Title, t.Amount, t.Date.Format(legacyDateLayout), string(kind), nullable(t.Category), nullable(t.Memo))
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return res.LastInsertId()
}

// InsertGroup creates or renames a group and adds members to it.
func (r *Repository) InsertGroup(ctx context.Context, groupID int64, title string, members ...string) (err error) {
	if groupID <= 0 {
		return errors.New("group id must be positive")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO GROUPB (GROUPB_ID, TITLE) VALUES (?, ?)
ON CONFLICT (GROUPB_ID) DO UPDATE SET TITLE = excluded.TITLE`, groupID, title); err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	for _, m := range members {
		if _, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO GROUP_MEMBER (GROUPB_ID, USER_ID) VALUES (?, ?)`, groupID, m); err != nil {
			return fmt.Errorf("insert member %s: %w", m, err)
		}
	}
	return tx.Commit()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
