package cart

import (
	"context"
	"errors"

	"github.com/bahaaabdelrahman/noon-app-sub000/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// Repository persists carts keyed by owner. A cart document is mutated only
// by its owner's requests; there is no locking, so two concurrent mutations
// of the same cart are last-write-wins.
type Repository interface {
	// Get returns the owner's active cart or ErrCartNotFound.
	Get(ctx context.Context, owner domain.Owner) (*domain.Cart, error)

	// Upsert writes the whole cart document, refreshing timestamps and the
	// owner-dependent expiry window.
	Upsert(ctx context.Context, cart *domain.Cart) error

	// Delete removes the owner's cart. ErrCartNotFound if absent.
	Delete(ctx context.Context, owner domain.Owner) error

	// Reassign re-owns the active cart at from to to (guest promotion at
	// login), preserving line snapshots. Any cart already stored under to,
	// such as a converted cart left by a checkout, is replaced. Returns the
	// re-owned cart.
	Reassign(ctx context.Context, from, to domain.Owner) (*domain.Cart, error)
}
