package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/bahaaabdelrahman/noon-app-sub000/internal/catalog"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/domain"
	"go.uber.org/zap"
)

// MergeService reconciles an anonymous cart into a user cart when the
// shopper authenticates.
type MergeService struct {
	svc     *Service
	repo    Repository
	catalog catalog.Catalog
	log     *zap.Logger
}

func NewMergeService(svc *Service, repo Repository, cat catalog.Catalog, log *zap.Logger) *MergeService {
	return &MergeService{svc: svc, repo: repo, catalog: cat, log: log}
}

// Merge folds the session cart into the user cart.
//
//   - No guest cart: the user cart is returned unchanged (created if absent),
//     which also makes a repeated merge of an already-consumed session a
//     no-op.
//   - No user cart: the guest cart is re-owned wholesale, preserving its
//     line snapshots without re-validation.
//   - Both exist: guest lines are added through the regular AddItem path,
//     re-validating stock at merge time. Quantities are clamped to what is
//     still available; the merge itself never fails on a shrunken line.
//
// The guest cart is deleted once its lines are merged.
func (m *MergeService) Merge(ctx context.Context, userID, sessionID string) (*domain.Cart, error) {
	userOwner := domain.UserOwner(userID)
	guestOwner := domain.GuestOwner(sessionID)

	guest, err := m.repo.Get(ctx, guestOwner)
	if errors.Is(err, ErrCartNotFound) {
		return m.svc.GetCart(ctx, userOwner)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load guest cart: %w", err)
	}

	userCart, err := m.repo.Get(ctx, userOwner)
	if errors.Is(err, ErrCartNotFound) {
		reowned, reassignErr := m.repo.Reassign(ctx, guestOwner, userOwner)
		if reassignErr != nil {
			return nil, fmt.Errorf("failed to re-own guest cart: %w", reassignErr)
		}
		m.svc.invalidate(guestOwner)
		m.svc.invalidate(userOwner)
		return reowned, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user cart: %w", err)
	}

	for _, item := range guest.Items {
		quantity := m.addableQuantity(ctx, userCart, item)
		if quantity <= 0 {
			continue
		}

		updated, addErr := m.svc.AddItem(ctx, userOwner, item.ProductID, quantity, item.Variants)
		if addErr != nil {
			m.log.Warn("skipping guest line during merge",
				zap.String("product_id", item.ProductID),
				zap.Error(addErr))
			continue
		}
		userCart = updated
	}

	if delErr := m.repo.Delete(ctx, guestOwner); delErr != nil && !errors.Is(delErr, ErrCartNotFound) {
		m.log.Warn("failed to delete guest cart after merge", zap.Error(delErr))
	}
	m.svc.invalidate(guestOwner)

	return m.svc.GetCart(ctx, userOwner)
}

// addableQuantity clamps a guest line to the stock still available on top
// of what the user cart already holds.
func (m *MergeService) addableQuantity(ctx context.Context, userCart *domain.Cart, item domain.CartItem) int {
	quantity := item.Quantity

	p, err := m.catalog.Product(ctx, item.ProductID)
	if err != nil || !p.Sellable() {
		return 0
	}

	existing := 0
	if line := userCart.MatchingLine(item.ProductID, item.Variants); line != nil {
		existing = line.Quantity
	}

	if p.TrackQuantity {
		available := p.Quantity - existing
		if available <= 0 {
			return 0
		}
		if quantity > available {
			quantity = available
		}
	}

	if existing+quantity > domain.MaxLineQuantity {
		quantity = domain.MaxLineQuantity - existing
	}
	return quantity
}
