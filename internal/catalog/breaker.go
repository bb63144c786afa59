package catalog

import (
	"context"
	"errors"

	"github.com/sony/gobreaker/v2"
)

// Breaker decorates a Catalog with a circuit breaker so a struggling
// catalog backend fails fast instead of stalling every cart mutation.
// Domain outcomes (missing product, stock shortfall) are healthy responses
// and do not trip the breaker.
type Breaker struct {
	next Catalog
	cb   *gobreaker.CircuitBreaker[*Product]
	scb  *gobreaker.CircuitBreaker[struct{}]
}

func NewBreaker(next Catalog) *Breaker {
	isSuccessful := func(err error) bool {
		return err == nil ||
			errors.Is(err, ErrProductNotFound) ||
			errors.Is(err, ErrInsufficientStock)
	}

	settings := func(name string) gobreaker.Settings {
		return gobreaker.Settings{
			Name: name,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: isSuccessful,
		}
	}

	return &Breaker{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[*Product](settings("catalog-read")),
		scb:  gobreaker.NewCircuitBreaker[struct{}](settings("catalog-stock")),
	}
}

func (b *Breaker) Product(ctx context.Context, id string) (*Product, error) {
	return b.cb.Execute(func() (*Product, error) {
		return b.next.Product(ctx, id)
	})
}

func (b *Breaker) DecrementStock(ctx context.Context, id string, qty int) error {
	_, err := b.scb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.DecrementStock(ctx, id, qty)
	})
	return err
}

func (b *Breaker) IncrementStock(ctx context.Context, id string, qty int) error {
	_, err := b.scb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.IncrementStock(ctx, id, qty)
	})
	return err
}
