package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ledgerbook/internal/core"
	"ledgerbook/internal/sources"
)

var _ sources.Source = (*Store)(nil)

// Store keeps raw records in memory. Transactions and groups are tagged
// with userId / groupbId the way the remote API shapes them.
type Store struct {
	mu     sync.Mutex
	txs    []core.RawRecord
	groups []core.RawRecord
}

func New(txs, groups []core.RawRecord) *Store {
	s := &Store{}
	for _, r := range txs {
		s.txs = append(s.txs, sources.Clone(r))
	}
	for _, r := range groups {
		s.groups = append(s.groups, sources.Clone(r))
	}
	return s
}

// NewFromFiles seeds the store from seed_transactions.json and
// seed_groups.json under base. Missing files fall back to a small demo set
// for user "1".
func NewFromFiles(base string) (*Store, error) {
	txs, err := readRecords(filepath.Join(base, "seed_transactions.json"))
	if err != nil {
		return nil, err
	}
	groups, err := readRecords(filepath.Join(base, "seed_groups.json"))
	if err != nil {
		return nil, err
	}
	if txs == nil && groups == nil {
		txs, groups = demoTransactions(), demoGroups()
	}
	return New(txs, groups), nil
}

// AddTransaction appends a raw transaction record.
func (s *Store) AddTransaction(r core.RawRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, sources.Clone(r))
}

// AddGroup appends a raw membership record.
func (s *Store) AddGroup(r core.RawRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = append(s.groups, sources.Clone(r))
}

func (s *Store) ListUserTransactions(_ context.Context, userID string) ([]core.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RawRecord
	for _, r := range s.txs {
		if sources.Value(r, sources.UserKeys) == userID && sources.IsPersonal(r) {
			out = append(out, sources.Clone(r))
		}
	}
	return out, nil
}

func (s *Store) ListGroups(_ context.Context, userID string) ([]core.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RawRecord
	for _, r := range s.groups {
		if sources.Value(r, sources.UserKeys) == userID {
			out = append(out, sources.Clone(r))
		}
	}
	return out, nil
}

func (s *Store) ListGroupTransactions(_ context.Context, groupID string) ([]core.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RawRecord
	for _, r := range s.txs {
		if sources.Value(r, sources.GroupKeys) == groupID {
			out = append(out, sources.Clone(r))
		}
	}
	return out, nil
}

// readRecords returns nil without error when path does not exist.
func readRecords(path string) ([]core.RawRecord, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed %s: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var out []core.RawRecord
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode seed %s: %w", path, err)
	}
	return out, nil
}

func demoGroups() []core.RawRecord {
	return []core.RawRecord{
		{"userId": "1", "groupbId": 10, "title": "우리집"},
		{"userId": "1", "groupbId": 20, "title": "여행 모임"},
	}
}

func demoTransactions() []core.RawRecord {
	return []core.RawRecord{
		{"userId": "1", "transId": 1, "title": "월급", "originalAmount": 3200000, "transDate": "2024-03-25", "type": "IN", "category": "급여"},
		{"userId": "1", "transId": 2, "title": "점심", "originalAmount": 12000, "transDate": "2024-03-15", "type": "OUT", "category": "식비"},
		{"userId": "1", "transId": 3, "title": "버스", "originalAmount": 1500, "transDate": "24/03/15", "type": "OUT", "category": "교통"},
		{"groupbId": 10, "transId": 1, "title": "장보기", "originalAmount": 84000, "transDate": "2024-03-16", "type": "OUT", "category": "식비"},
		{"groupbId": 10, "transId": 2, "title": "관리비", "originalAmount": 150000, "transDate": "2024-03-20", "type": "OUT", "category": "주거"},
		{"groupbId": 20, "transId": 1, "title": "숙소", "originalAmount": 240000, "transDate": "2024-03-16", "type": "OUT", "category": "여행"},
	}
}
