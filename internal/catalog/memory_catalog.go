package catalog

import (
	"context"
	"sync"
)

// MemoryCatalog implements Catalog with in-memory storage, mutex guarded so
// stock mutations keep the same atomicity contract as the Mongo
// implementation. Used in tests and dev mode.
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]*Product
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{products: make(map[string]*Product)}
}

// Put stores or replaces a product.
func (m *MemoryCatalog) Put(p Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = &p
}

func (m *MemoryCatalog) Product(_ context.Context, id string) (*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, exists := m.products[id]
	if !exists {
		return nil, ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *MemoryCatalog) DecrementStock(_ context.Context, id string, qty int) error {
	if qty <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, exists := m.products[id]
	if !exists || !p.TrackQuantity {
		return ErrProductNotFound
	}
	if p.Quantity < qty {
		return ErrInsufficientStock
	}
	p.Quantity -= qty
	return nil
}

func (m *MemoryCatalog) IncrementStock(_ context.Context, id string, qty int) error {
	if qty <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, exists := m.products[id]
	if !exists || !p.TrackQuantity {
		return ErrProductNotFound
	}
	p.Quantity += qty
	return nil
}
