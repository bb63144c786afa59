// Package checkout drives the cart-to-order conversion: address and stock
// validation, snapshotting, order creation, inventory decrement and cart
// retirement. There is no cross-store transaction spanning those steps;
// the gap between order creation and inventory decrement is closed with
// explicit compensation instead.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bahaaabdelrahman/noon-app-sub000/internal/cart"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/catalog"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/domain"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/identity"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/order"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/pricing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartStore is the slice of the cart service checkout needs: read the
// active cart, retire it once converted.
type CartStore interface {
	ActiveCart(ctx context.Context, owner domain.Owner) (*domain.Cart, error)
	Retire(ctx context.Context, owner domain.Owner) error
}

type Request struct {
	UserID               string
	ShippingAddressID    string
	BillingAddressID     string
	UseShippingAsBilling bool
	PaymentMethod        string
	SpecialInstructions  string
	IdempotencyKey       string
}

type Service struct {
	users   identity.Directory
	carts   CartStore
	catalog catalog.Catalog
	orders  order.Repository
	policy  pricing.Policy
	log     *zap.Logger
}

func NewService(
	users identity.Directory,
	carts CartStore,
	cat catalog.Catalog,
	orders order.Repository,
	policy pricing.Policy,
	log *zap.Logger,
) *Service {
	return &Service{
		users:   users,
		carts:   carts,
		catalog: cat,
		orders:  orders,
		policy:  policy,
		log:     log,
	}
}

// Checkout converts the buyer's active cart into an order.
//
// Steps 1-5 (resolve buyer/addresses, load cart, validate stock, snapshot,
// price) are pure reads and roll back trivially. Step 6 persists the order
// together with its order_created outbox row in one transaction. Step 7
// decrements stock per tracked line; on failure the already-decremented
// lines are restored and the order's payment is marked failed. Step 8
// retires the cart, best-effort.
func (s *Service) Checkout(ctx context.Context, req Request) (*domain.Order, error) {
	if req.IdempotencyKey != "" {
		existing, err := s.orders.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		if err == nil {
			s.log.Info("duplicate checkout request",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.String("order_id", existing.ID.String()))
			return existing, nil
		}
		if !errors.Is(err, order.ErrOrderNotFound) {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
	}

	buyer, shipping, billing, err := s.resolveBuyer(ctx, req)
	if err != nil {
		return nil, err
	}

	owner := domain.UserOwner(req.UserID)
	c, err := s.carts.ActiveCart(ctx, owner)
	if errors.Is(err, cart.ErrCartNotFound) {
		return nil, domain.ErrEmptyCart
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(c.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	items, err := s.validateAndSnapshot(ctx, c)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	o := &domain.Order{
		ID:              uuid.New(),
		OrderNumber:     domain.NewOrderNumber(now),
		UserID:          req.UserID,
		Buyer:           *buyer,
		Items:           items,
		Totals:          pricing.Compute(c.Items, c.Discounts, s.policy),
		ShippingAddress: *shipping,
		BillingAddress:  *billing,
		Coupons:         c.Discounts,
		Payment: domain.Payment{
			Method: req.PaymentMethod,
			Status: domain.PaymentStatusPending,
		},
		Status:              domain.OrderStatusPending,
		SpecialInstructions: req.SpecialInstructions,
		IdempotencyKey:      req.IdempotencyKey,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	event, err := createdEvent(o)
	if err != nil {
		return nil, err
	}
	if err := s.orders.Create(ctx, o, event); err != nil {
		if errors.Is(err, order.ErrDuplicateOrder) && req.IdempotencyKey != "" {
			// Lost a race with a concurrent identical request.
			return s.orders.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		}
		return nil, err
	}

	if err := s.decrementInventory(ctx, o); err != nil {
		return nil, err
	}

	if err := s.carts.Retire(ctx, owner); err != nil {
		// The order stands; a stale cart is cleanup debt, not a failure.
		s.log.Warn("failed to retire cart after checkout",
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
	}

	return o, nil
}

func (s *Service) resolveBuyer(ctx context.Context, req Request) (*domain.Buyer, *domain.Address, *domain.Address, error) {
	u, err := s.users.User(ctx, req.UserID)
	if err != nil {
		return nil, nil, nil, err
	}

	shipping, ok := u.Address(req.ShippingAddressID)
	if !ok {
		return nil, nil, nil, domain.ErrAddressNotFound
	}

	billing := shipping
	if !req.UseShippingAsBilling && req.BillingAddressID != "" {
		billing, ok = u.Address(req.BillingAddressID)
		if !ok {
			return nil, nil, nil, domain.ErrAddressNotFound
		}
	}

	buyer := &domain.Buyer{Name: u.Name, Email: u.Email, Phone: u.Phone}
	return buyer, shipping, billing, nil
}

// validateAndSnapshot checks every line exhaustively before anything is
// persisted: first failing line aborts the whole checkout.
func (s *Service) validateAndSnapshot(ctx context.Context, c *domain.Cart) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, 0, len(c.Items))

	for _, line := range c.Items {
		p, err := s.catalog.Product(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return nil, domain.ErrProductGone
			}
			return nil, fmt.Errorf("failed to validate line %s: %w", line.ProductID, err)
		}
		if !p.Sellable() {
			return nil, domain.ErrProductUnavailable
		}
		if p.TrackQuantity && p.Quantity < line.Quantity {
			return nil, domain.ErrInsufficientStock
		}

		items = append(items, domain.OrderItem{
			ProductID: line.ProductID,
			Product: domain.ProductSnapshot{
				Name:     line.Product.Name,
				Slug:     line.Product.Slug,
				SKU:      line.Product.SKU,
				Image:    line.Product.Image,
				Brand:    p.Brand,
				Category: p.Category,
			},
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice,
			LineTotal:     line.LineTotal,
			Variants:      line.Variants,
			TrackQuantity: p.TrackQuantity,
			Status:        domain.FulfillmentPending,
		})
	}

	return items, nil
}

// decrementInventory runs after the order row exists. A failing decrement
// restores the lines already taken and downgrades the order's payment to
// failed so the record is visibly inconsistent instead of silently so.
func (s *Service) decrementInventory(ctx context.Context, o *domain.Order) error {
	for i, item := range o.Items {
		if !item.TrackQuantity {
			continue
		}

		err := s.catalog.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err == nil {
			continue
		}

		s.log.Error("stock decrement failed after order creation",
			zap.String("order_id", o.ID.String()),
			zap.String("product_id", item.ProductID),
			zap.Error(err))

		s.compensate(ctx, o, i)
		return fmt.Errorf("%w: product %s: %v", domain.ErrInventoryConflict, item.ProductID, err)
	}
	return nil
}

func (s *Service) compensate(ctx context.Context, o *domain.Order, failedIndex int) {
	for j := 0; j < failedIndex; j++ {
		item := o.Items[j]
		if !item.TrackQuantity {
			continue
		}
		if err := s.catalog.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.log.Error("compensating stock restore failed",
				zap.String("order_id", o.ID.String()),
				zap.String("product_id", item.ProductID),
				zap.Error(err))
		}
	}

	now := time.Now()
	o.Payment.Status = domain.PaymentStatusFailed
	o.Payment.FailedAt = &now
	if err := s.orders.Update(ctx, o, nil); err != nil {
		s.log.Error("failed to mark order payment failed after inventory conflict",
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
	}
}

func createdEvent(o *domain.Order) (*order.OutboxEvent, error) {
	payload, err := orderEventPayload(o)
	if err != nil {
		return nil, err
	}
	return &order.OutboxEvent{
		AggregateID: o.ID.String(),
		EventType:   order.EventOrderCreated,
		Payload:     payload,
	}, nil
}
