package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	ports "moneta/internal/sheets"
)

var _ ports.TransactionMirror = (*Store)(nil)

// Store is an in-process mirror used when no spreadsheet is configured
// and in tests.
type Store struct {
	mu    sync.Mutex
	order []string
	rows  map[string]ports.Row
}

// New returns an empty in-memory mirror.
func New() *Store {
	return &Store{rows: make(map[string]ports.Row)}
}

// Upsert stores the row and returns a synthetic row reference.
func (s *Store) Upsert(_ context.Context, row ports.Row) (string, error) {
	if strings.TrimSpace(row.TransactionID) == "" {
		return "", errors.New("transaction id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[row.TransactionID]; !ok {
		s.order = append(s.order, row.TransactionID)
	}
	s.rows[row.TransactionID] = row
	for i, id := range s.order {
		if id == row.TransactionID {
			return fmt.Sprintf("mem:%d", i+1), nil
		}
	}
	return "", nil
}

func (s *Store) Remove(_ context.Context, _ int, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[transactionID]; !ok {
		return nil
	}
	delete(s.rows, transactionID)
	for i, id := range s.order {
		if id == transactionID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Rows returns the mirrored rows in insertion order.
func (s *Store) Rows() []ports.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.Row, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rows[id])
	}
	return out
}
