package checkout

import (
	"context"
	"sync"

	"github.com/bahaaabdelrahman/noon-app-sub000/internal/cart"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/catalog"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/domain"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/identity"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/order"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/pricing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// mockDirectory implements identity.Directory for testing.
type mockDirectory struct {
	users map[string]*identity.User
}

func (m *mockDirectory) User(_ context.Context, id string) (*identity.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return u, nil
}

// mockCartStore implements CartStore for testing.
type mockCartStore struct {
	cart      *domain.Cart
	cartErr   error
	retired   bool
	retireErr error
}

func (m *mockCartStore) ActiveCart(_ context.Context, _ domain.Owner) (*domain.Cart, error) {
	if m.cartErr != nil {
		return nil, m.cartErr
	}
	if m.cart == nil {
		return nil, cart.ErrCartNotFound
	}
	return m.cart, nil
}

func (m *mockCartStore) Retire(_ context.Context, _ domain.Owner) error {
	if m.retireErr != nil {
		return m.retireErr
	}
	m.retired = true
	m.cart.Items = nil
	m.cart.Discounts = nil
	m.cart.Totals = domain.Totals{}
	m.cart.Status = domain.CartStatusConverted
	return nil
}

// mockOrderRepo implements order.Repository in memory for testing.
type mockOrderRepo struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*domain.Order
	events    []*order.OutboxEvent
	createErr error
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[uuid.UUID]*domain.Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *domain.Order, event *order.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.orders {
		if o.IdempotencyKey != "" && existing.IdempotencyKey == o.IdempotencyKey {
			return order.ErrDuplicateOrder
		}
	}
	copied := *o
	m.orders[o.ID] = &copied
	if event != nil {
		m.events = append(m.events, event)
	}
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	copied := *o
	return &copied, nil
}

func (m *mockOrderRepo) GetByNumber(_ context.Context, number string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.OrderNumber == number {
			copied := *o
			return &copied, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (m *mockOrderRepo) GetByIdempotencyKey(_ context.Context, key string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.IdempotencyKey == key {
			copied := *o
			return &copied, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			copied := *o
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) Update(_ context.Context, o *domain.Order, event *order.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; !ok {
		return order.ErrOrderNotFound
	}
	copied := *o
	m.orders[o.ID] = &copied
	if event != nil {
		m.events = append(m.events, event)
	}
	return nil
}

func (m *mockOrderRepo) UnprocessedEvents(_ context.Context, limit int) ([]*order.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*order.OutboxEvent
	for _, e := range m.events {
		if !e.Processed && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) MarkEventProcessed(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Processed = true
		}
	}
	return nil
}

func (m *mockOrderRepo) Close() error { return nil }

func testUser() *identity.User {
	return &identity.User{
		ID:    "u1",
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
		Phone: "+1-555-0100",
		Addresses: []domain.Address{
			{ID: "addr-1", FullName: "Ada Lovelace", Line1: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"},
			{ID: "addr-2", FullName: "Ada Lovelace", Line1: "2 Side St", City: "Springfield", PostalCode: "12345", Country: "US"},
		},
	}
}

func testCartWith(items ...domain.CartItem) *domain.Cart {
	owner := domain.UserOwner("u1")
	c := &domain.Cart{
		Owner:    owner,
		OwnerKey: owner.Key(),
		Items:    items,
		Status:   domain.CartStatusActive,
	}
	c.Totals = pricing.Compute(c.Items, c.Discounts, pricing.DefaultPolicy())
	return c
}

func cartLine(productID string, qty int, price float64) domain.CartItem {
	return domain.CartItem{
		ID:        uuid.New().String(),
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: price,
		LineTotal: pricing.LineTotal(price, qty),
		Product:   domain.ProductSnapshot{Name: "Product " + productID, Slug: "product-" + productID, SKU: "SKU-" + productID},
	}
}

// newTestCheckout wires a fully faked checkout service.
func newTestCheckout(carts *mockCartStore, cat catalog.Catalog, repo *mockOrderRepo) *Service {
	users := &mockDirectory{users: map[string]*identity.User{"u1": testUser()}}
	return NewService(users, carts, cat, repo, pricing.DefaultPolicy(), zap.NewNop())
}
