package cart

import (
	"context"
	"sync"
	"time"

	"github.com/bahaaabdelrahman/noon-app-sub000/internal/cache"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/catalog"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/domain"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/pricing"
	"go.uber.org/zap"
)

// memoryRepo implements Repository for testing.
type memoryRepo struct {
	mu    sync.Mutex
	carts map[string]*domain.Cart
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{carts: make(map[string]*domain.Cart)}
}

func copyCart(c *domain.Cart) *domain.Cart {
	copied := *c
	copied.Items = append([]domain.CartItem(nil), c.Items...)
	copied.Discounts = append([]domain.Discount(nil), c.Discounts...)
	return &copied
}

func (r *memoryRepo) Get(_ context.Context, owner domain.Owner) (*domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[owner.Key()]
	if !ok || c.Status != domain.CartStatusActive {
		return nil, ErrCartNotFound
	}
	return copyCart(c), nil
}

func (r *memoryRepo) Upsert(_ context.Context, c *domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	c.OwnerKey = c.Owner.Key()
	c.ExpiresAt = now.Add(c.Owner.TTL())
	r.carts[c.OwnerKey] = copyCart(c)
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, owner domain.Owner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.carts[owner.Key()]; !ok {
		return ErrCartNotFound
	}
	delete(r.carts, owner.Key())
	return nil
}

func (r *memoryRepo) Reassign(_ context.Context, from, to domain.Owner) (*domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[from.Key()]
	if !ok || c.Status != domain.CartStatusActive {
		return nil, ErrCartNotFound
	}
	// One document per owner_key. The Mongo repository clears the target
	// slot before re-keying; a doc left there, active or not, is replaced.
	delete(r.carts, to.Key())
	delete(r.carts, from.Key())
	c.Owner = to
	c.OwnerKey = to.Key()
	c.ExpiresAt = time.Now().Add(to.TTL())
	r.carts[to.Key()] = c
	return copyCart(c), nil
}

// mapCache implements cache.CartCache for testing.
type mapCache struct {
	mu      sync.Mutex
	entries map[string]*domain.Cart
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]*domain.Cart)}
}

func (c *mapCache) Get(_ context.Context, owner domain.Owner) (*domain.Cart, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.entries[owner.Key()]; ok {
		return copyCart(cached), nil
	}
	return nil, cache.ErrCacheMiss
}

func (c *mapCache) Set(_ context.Context, owner domain.Owner, cart *domain.Cart) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[owner.Key()] = copyCart(cart)
	return nil
}

func (c *mapCache) Delete(_ context.Context, owner domain.Owner) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, owner.Key())
	return nil
}

var testDiscounts = map[string]domain.Discount{
	"TEN":     {Code: "TEN", Type: domain.DiscountPercentage, Amount: 10},
	"FIVEOFF": {Code: "FIVEOFF", Type: domain.DiscountFixed, Amount: 5},
}

func sellableProduct(id string, price float64, stock int) catalog.Product {
	return catalog.Product{
		ID:            id,
		Name:          "Product " + id,
		Slug:          "product-" + id,
		SKU:           "SKU-" + id,
		Price:         price,
		Status:        "active",
		Visibility:    "public",
		TrackQuantity: true,
		Quantity:      stock,
	}
}

// newTestService wires a Service against in-memory collaborators.
func newTestService(products ...catalog.Product) (*Service, *memoryRepo, *catalog.MemoryCatalog) {
	repo := newMemoryRepo()
	cat := catalog.NewMemoryCatalog()
	for _, p := range products {
		cat.Put(p)
	}
	svc := NewService(repo, newMapCache(), cat, testDiscounts, pricing.DefaultPolicy(), zap.NewNop())
	return svc, repo, cat
}
