// Package memory is an in-process ledger export target used in development
// and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"mywallet/internal/core"
	ports "mywallet/internal/sheets"
)

type Store struct {
	mu    sync.Mutex
	order []string
	rows  map[string]core.Transaction
	// failures makes the next calls fail, one error each.
	failures []error
}

var _ ports.LedgerExporter = (*Store)(nil)

func New() *Store {
	return &Store{rows: map[string]core.Transaction{}}
}

// FailNext queues errs to be returned by the following Upsert or Delete calls.
func (s *Store) FailNext(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, errs...)
}

func (s *Store) popFailure() error {
	if len(s.failures) == 0 {
		return nil
	}
	err := s.failures[0]
	s.failures = s.failures[1:]
	return err
}

func (s *Store) Upsert(_ context.Context, t core.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.popFailure(); err != nil {
		return "", err
	}
	if _, ok := s.rows[t.ID]; !ok {
		s.order = append(s.order, t.ID)
	}
	s.rows[t.ID] = t
	for i, id := range s.order {
		if id == t.ID {
			return fmt.Sprintf("mem:%d", i+1), nil
		}
	}
	return "", nil
}

func (s *Store) Delete(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.popFailure(); err != nil {
		return err
	}
	if _, ok := s.rows[t.ID]; !ok {
		return nil
	}
	delete(s.rows, t.ID)
	for i, id := range s.order {
		if id == t.ID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Rows returns the exported transactions in first-written order.
func (s *Store) Rows() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rows[id])
	}
	return out
}
