// Package ledger holds the in-memory transaction collection shared by the API
// and the extraction pipeline. Every mutation bumps a version counter so report
// consumers can detect that a snapshot went stale mid-computation.
package ledger

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/bookkeeper/internal/domain"
)

// ErrNotFound is returned when a transaction id is not in the ledger.
var ErrNotFound = fmt.Errorf("ledger: transaction not found")

// Store is the versioned in-memory transaction collection.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]domain.Transaction
	order   []string
	version uint64
}

func NewStore() *Store {
	return &Store{byID: make(map[string]domain.Transaction)}
}

// Snapshot returns a copy of the collection in insertion order together with
// the version it was taken at.
func (s *Store) Snapshot() ([]domain.Transaction, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs := make([]domain.Transaction, 0, len(s.order))
	for _, id := range s.order {
		txs = append(txs, s.byID[id])
	}
	return txs, s.version
}

// Version returns the current collection version.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Append adds transactions to the ledger. A transaction whose id already
// exists replaces the stored copy in place.
func (s *Store) Append(txs ...domain.Transaction) {
	if len(txs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range txs {
		if _, ok := s.byID[tx.ID]; !ok {
			s.order = append(s.order, tx.ID)
		}
		s.byID[tx.ID] = tx
	}
	s.version++
}

// Replace swaps the whole collection.
func (s *Store) Replace(txs []domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID = make(map[string]domain.Transaction, len(txs))
	s.order = s.order[:0]
	for _, tx := range txs {
		if _, ok := s.byID[tx.ID]; !ok {
			s.order = append(s.order, tx.ID)
		}
		s.byID[tx.ID] = tx
	}
	s.version++
}

// Get returns the transaction with the given id.
func (s *Store) Get(id string) (domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.byID[id]
	if !ok {
		return domain.Transaction{}, ErrNotFound
	}
	return tx, nil
}

// Delete removes a transaction. Deleting an unknown id is a no-op and does not
// bump the version.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, stored := range s.order {
		if stored == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.version++
	return true
}

// DeleteBySourceFile removes every transaction that was extracted from the
// given document and returns their ids, so callers can cascade the removal to
// the document link index.
func (s *Store) DeleteBySourceFile(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for _, id := range s.order {
		if s.byID[id].SourceFile == name {
			removed = append(removed, id)
		}
	}
	if len(removed) == 0 {
		return nil
	}
	for _, id := range removed {
		delete(s.byID, id)
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if _, ok := s.byID[id]; ok {
			kept = append(kept, id)
		}
	}
	s.order = kept
	s.version++
	return removed
}

// Len returns the number of stored transactions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// IDs returns the stored transaction ids sorted lexicographically.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.order))
	copy(ids, s.order)
	sort.Strings(ids)
	return ids
}
