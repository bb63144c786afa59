package cache

import (
	"context"
	"errors"

	"github.com/bahaaabdelrahman/noon-app-sub000/internal/domain"
)

var ErrCacheMiss = errors.New("cart not in cache")

// CartCache is a read cache keyed by cart owner.
type CartCache interface {
	Get(ctx context.Context, owner domain.Owner) (*domain.Cart, error)
	Set(ctx context.Context, owner domain.Owner, cart *domain.Cart) error
	Delete(ctx context.Context, owner domain.Owner) error
}
