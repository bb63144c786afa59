// Package catalog is the narrow contract this subsystem consumes from the
// product catalog: product lookup and the atomic stock counter. Stock
// decrement/increment is the only operation with a true atomicity
// guarantee; everything layered on top (checkout's read-then-decrement) is
// not atomic end to end.
package catalog

import (
	"context"
	"errors"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock for decrement")
)

type Product struct {
	ID            string  `bson:"_id"`
	Name          string  `bson:"name"`
	Slug          string  `bson:"slug"`
	SKU           string  `bson:"sku"`
	Brand         string  `bson:"brand,omitempty"`
	Category      string  `bson:"category,omitempty"`
	Image         string  `bson:"image,omitempty"`
	Price         float64 `bson:"price"`
	Status        string  `bson:"status"`
	Visibility    string  `bson:"visibility"`
	TrackQuantity bool    `bson:"track_quantity"`
	Quantity      int     `bson:"quantity"`
}

// Sellable reports whether the product may be added to a cart or ordered.
func (p Product) Sellable() bool {
	return p.Status == "active" && p.Visibility == "public"
}

type Catalog interface {
	Product(ctx context.Context, id string) (*Product, error)

	// DecrementStock atomically subtracts qty from the product's tracked
	// quantity, failing with ErrInsufficientStock if fewer than qty remain.
	DecrementStock(ctx context.Context, id string, qty int) error

	// IncrementStock atomically adds qty back, e.g. on order cancellation.
	IncrementStock(ctx context.Context, id string, qty int) error
}
