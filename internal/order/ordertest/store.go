// Package ordertest provides an in-memory order store for tests.
package ordertest

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/pizzeria-api/internal/money"
	"github.com/noah-isme/pizzeria-api/internal/order"
	"github.com/noah-isme/pizzeria-api/internal/pricing"
)

// Store is an order.Store backed by a map. Writes are all-or-nothing.
type Store struct {
	mu     sync.Mutex
	orders map[string]order.Order
	err    error
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{orders: map[string]order.Order{}}
}

// FailWith makes every subsequent write return err.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Put stores o as is.
func (s *Store) Put(o order.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

// Len returns the number of stored orders.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// CreateOrder implements order.Store.
func (s *Store) CreateOrder(_ context.Context, o order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	o.Lines = append([]order.Line(nil), o.Lines...)
	s.orders[o.ID] = o
	return nil
}

// AppendLines implements order.Store.
func (s *Store) AppendLines(_ context.Context, orderID string, lines []order.Line) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	if s.err != nil {
		return order.Order{}, s.err
	}
	last := len(o.Lines)
	merged := append([]order.Line(nil), o.Lines...)
	var subtotal money.Money
	for _, l := range merged {
		subtotal += l.TotalPrice
	}
	for i, l := range lines {
		l.OrderID = orderID
		l.Position = last + i + 1
		merged = append(merged, l)
		subtotal += l.TotalPrice
	}
	summary := pricing.Summarize(subtotal, o.TaxBps, o.Currency)
	o.Lines = merged
	o.Subtotal, o.Tax, o.Total = summary.Subtotal, summary.Tax, summary.Total
	o.UpdatedAt = time.Now().UTC()
	s.orders[orderID] = o
	return o, nil
}

// Get implements order.Store.
func (s *Store) Get(_ context.Context, id string) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	return o, nil
}
