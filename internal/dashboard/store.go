// Package dashboard is the operator-facing runtime: it keeps an eventually
// consistent local view of active orders, fed by the notification channel
// with a polling fallback, and issues transition and payment commands.
package dashboard

import (
	"sync"

	"blossom-cafe/internal/domain"
)

// Store holds the local order view. Writes are last-write-wins by order id;
// there is no version reconciliation beyond what the API enforces.
type Store struct {
	mu     sync.RWMutex
	orders map[int64]domain.Order
}

func NewStore() *Store {
	return &Store{orders: make(map[int64]domain.Order)}
}

// ReplaceAll swaps the whole view for a fresh fetch result.
func (s *Store) ReplaceAll(orders []domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = make(map[int64]domain.Order, len(orders))
	for _, o := range orders {
		s.orders[o.ID] = o
	}
}

// Merge upserts one order: unknown orders are appended, known orders are
// replaced wholesale.
func (s *Store) Merge(o domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

// ApplyStatusChange updates the status of a known order. A change for an
// order not held locally is ignored and reported as false; the caller may
// choose to trigger a refresh.
func (s *Store) ApplyStatusChange(ch domain.StatusChange) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[ch.OrderID]
	if !ok {
		return false
	}
	o.Status = ch.Status
	s.orders[ch.OrderID] = o
	return true
}

func (s *Store) Get(id int64) (domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	return o, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// Snapshot returns the current view in display order.
func (s *Store) Snapshot() []domain.Order {
	s.mu.RLock()
	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	s.mu.RUnlock()
	return SortOrders(out)
}
