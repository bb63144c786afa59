// Package cart owns the cart lifecycle: lookup-or-create, item and discount
// mutation, guest-to-user merge and retirement at checkout. Totals are
// recomputed through the pricing engine on every mutation; they are never
// settable from outside.
package cart

import (
	"context"
	"errors"
	"time"

	"github.com/bahaaabdelrahman/noon-app-sub000/internal/cache"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/catalog"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/domain"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/pricing"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Service struct {
	repo      Repository
	cache     cache.CartCache
	catalog   catalog.Catalog
	discounts map[string]domain.Discount
	policy    pricing.Policy
	log       *zap.Logger
	sfg       singleflight.Group // Prevents cache stampede
}

// NewService wires the cart store. discounts is the configured coupon code
// table (code -> magnitude/type); there is no external discount service.
func NewService(
	repo Repository,
	cartCache cache.CartCache,
	cat catalog.Catalog,
	discounts map[string]domain.Discount,
	policy pricing.Policy,
	log *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		cache:     cartCache,
		catalog:   cat,
		discounts: discounts,
		policy:    policy,
		log:       log,
	}
}

// GetCart returns the owner's cart, creating an empty one lazily. Lines
// whose product became unavailable are pruned before the cart is returned.
func (s *Service) GetCart(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(owner.Key(), func() (interface{}, error) {
		cached, err := s.cache.Get(ctx, owner)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("cart cache get failed", zap.Error(err))
		}

		c, err := s.findOrCreate(ctx, owner)
		if err != nil {
			return nil, err
		}

		if pruned := s.pruneUnavailable(ctx, c); pruned {
			if err := s.save(ctx, c); err != nil {
				return nil, err
			}
		}

		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if errSet := s.cache.Set(setCtx, owner, c); errSet != nil {
				s.log.Warn("cart cache set failed", zap.Error(errSet))
			}
		}()

		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// ActiveCart returns the persisted active cart without creating one.
func (s *Service) ActiveCart(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	return s.repo.Get(ctx, owner)
}

// AddItem appends a line or increments the matching one. The unit price and
// display snapshot are captured now; later catalog edits do not reprice the
// line.
func (s *Service) AddItem(ctx context.Context, owner domain.Owner, productID string, quantity int, variants []domain.SelectedVariant) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	p, err := s.catalog.Product(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, domain.ErrProductUnavailable
		}
		return nil, err
	}
	if !p.Sellable() {
		return nil, domain.ErrProductUnavailable
	}

	c, err := s.findOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	newQuantity := quantity
	line := c.MatchingLine(productID, variants)
	if line != nil {
		newQuantity += line.Quantity
	}

	if newQuantity > domain.MaxLineQuantity {
		return nil, domain.ErrQuantityLimitExceeded
	}
	if p.TrackQuantity && p.Quantity < newQuantity {
		return nil, domain.ErrInsufficientStock
	}

	if line != nil {
		line.Quantity = newQuantity
		line.LineTotal = pricing.LineTotal(line.UnitPrice, line.Quantity)
	} else {
		c.Items = append(c.Items, domain.CartItem{
			ID:        uuid.New().String(),
			ProductID: productID,
			Quantity:  quantity,
			UnitPrice: p.Price,
			LineTotal: pricing.LineTotal(p.Price, quantity),
			Variants:  variants,
			Product: domain.ProductSnapshot{
				Name:     p.Name,
				Slug:     p.Slug,
				SKU:      p.SKU,
				Image:    p.Image,
				Brand:    p.Brand,
				Category: p.Category,
			},
			AddedAt: time.Now(),
		})
	}

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateItemQuantity sets a line's quantity. Zero or negative removes the
// line; anything else is re-validated against current stock.
func (s *Service) UpdateItemQuantity(ctx context.Context, owner domain.Owner, itemID string, quantity int) (*domain.Cart, error) {
	c, err := s.findOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	line := c.Item(itemID)
	if line == nil {
		return nil, domain.ErrItemNotFound
	}

	if quantity <= 0 {
		c.RemoveLine(itemID)
		if len(c.Items) == 0 {
			c.Discounts = nil
		}
		if err := s.save(ctx, c); err != nil {
			return nil, err
		}
		return c, nil
	}

	if quantity > domain.MaxLineQuantity {
		return nil, domain.ErrQuantityLimitExceeded
	}

	p, err := s.catalog.Product(ctx, line.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, domain.ErrProductUnavailable
		}
		return nil, err
	}
	if p.TrackQuantity && p.Quantity < quantity {
		return nil, domain.ErrInsufficientStock
	}

	line.Quantity = quantity
	line.LineTotal = pricing.LineTotal(line.UnitPrice, quantity)

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) RemoveItem(ctx context.Context, owner domain.Owner, itemID string) (*domain.Cart, error) {
	c, err := s.findOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	if !c.RemoveLine(itemID) {
		return nil, domain.ErrItemNotFound
	}
	if len(c.Items) == 0 {
		c.Discounts = nil
	}

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ClearCart removes all lines and discounts; the cart stays active with
// all-zero totals.
func (s *Service) ClearCart(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	c, err := s.findOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	c.Items = nil
	c.Discounts = nil

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyDiscount resolves code against the configured table and applies it.
func (s *Service) ApplyDiscount(ctx context.Context, owner domain.Owner, code string) (*domain.Cart, error) {
	d, ok := s.discounts[code]
	if !ok {
		return nil, domain.ErrUnknownDiscountCode
	}

	c, err := s.findOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	if len(c.Items) == 0 {
		return nil, domain.ErrEmptyCartDiscount
	}
	if c.HasDiscount(code) {
		return nil, domain.ErrDuplicateDiscount
	}

	c.Discounts = append(c.Discounts, d)

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveDiscount is a no-op when the code is not applied.
func (s *Service) RemoveDiscount(ctx context.Context, owner domain.Owner, code string) (*domain.Cart, error) {
	c, err := s.findOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	for i, d := range c.Discounts {
		if d.Code == code {
			c.Discounts = append(c.Discounts[:i], c.Discounts[i+1:]...)
			break
		}
	}

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Retire converts the cart after a successful checkout: lines and discounts
// emptied, totals zeroed, status converted.
func (s *Service) Retire(ctx context.Context, owner domain.Owner) error {
	c, err := s.repo.Get(ctx, owner)
	if err != nil {
		return err
	}

	c.Items = nil
	c.Discounts = nil
	c.Status = domain.CartStatusConverted

	return s.save(ctx, c)
}

func (s *Service) findOrCreate(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	c, err := s.repo.Get(ctx, owner)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrCartNotFound) {
		return nil, err
	}

	now := time.Now()
	return &domain.Cart{
		Owner:     owner,
		OwnerKey:  owner.Key(),
		Status:    domain.CartStatusActive,
		ExpiresAt: now.Add(owner.TTL()),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// pruneUnavailable drops lines whose product is gone or no longer sellable.
// Catalog infrastructure errors keep the line; pruning is lazy, not load
// bearing.
func (s *Service) pruneUnavailable(ctx context.Context, c *domain.Cart) bool {
	kept := c.Items[:0]
	pruned := false
	for _, it := range c.Items {
		p, err := s.catalog.Product(ctx, it.ProductID)
		switch {
		case errors.Is(err, catalog.ErrProductNotFound):
			pruned = true
			continue
		case err != nil:
			s.log.Warn("catalog lookup failed during prune", zap.String("product_id", it.ProductID), zap.Error(err))
		case !p.Sellable():
			pruned = true
			continue
		}
		kept = append(kept, it)
	}
	c.Items = kept
	if pruned && len(c.Items) == 0 {
		c.Discounts = nil
	}
	return pruned
}

// save recomputes totals, persists and invalidates the cache. Every
// mutating path funnels through here so the totals invariant holds after
// any operation.
func (s *Service) save(ctx context.Context, c *domain.Cart) error {
	c.Totals = pricing.Compute(c.Items, c.Discounts, s.policy)

	if err := s.repo.Upsert(ctx, c); err != nil {
		return err
	}

	s.invalidate(c.Owner)
	return nil
}

func (s *Service) invalidate(owner domain.Owner) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, owner); err != nil {
		s.log.Warn("cart cache invalidate failed", zap.Error(err))
	}
}
