package memory

import (
	"context"
	"fmt"
	"sync"

	"salvadanaio/internal/sheets"
)

// Store keeps ledger rows in process, for tests and for running the worker
// without Google credentials.
type Store struct {
	mu    sync.Mutex
	rows  []sheets.Row
	index map[string]int
}

var (
	_ sheets.LedgerWriter = (*Store)(nil)
	_ sheets.LedgerReader = (*Store)(nil)
)

func New() *Store {
	return &Store{index: map[string]int{}}
}

// Append stores the row and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, row sheets.Row) (string, error) {
	if err := row.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[row.TransactionID]; ok {
		return ref(i), nil
	}
	s.rows = append(s.rows, row)
	s.index[row.TransactionID] = len(s.rows) - 1
	return ref(len(s.rows) - 1), nil
}

func (s *Store) ListEntries(_ context.Context, year int, month int) ([]sheets.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sheets.Row
	for _, r := range s.rows {
		if r.Date.Year() == year && int(r.Date.Month()) == month {
			out = append(out, r)
		}
	}
	return out, nil
}

// Len reports how many rows have been appended.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func ref(i int) string {
	return fmt.Sprintf("mem:%d", i+1)
}
