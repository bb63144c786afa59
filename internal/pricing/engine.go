// Package pricing computes cart and order totals. The engine is pure: the
// same line items, discounts and policy always produce the same Totals, so
// it is safe to call on every mutation.
package pricing

import (
	"math"

	"github.com/bahaaabdelrahman/noon-app-sub000/internal/domain"
)

// Policy holds the flat tax/shipping configuration. Values come from the
// environment, not code.
type Policy struct {
	TaxRate               float64
	FreeShippingThreshold float64
	FlatShippingFee       float64
}

// DefaultPolicy matches the storefront's stock configuration.
func DefaultPolicy() Policy {
	return Policy{
		TaxRate:               0.05,
		FreeShippingThreshold: 100,
		FlatShippingFee:       10,
	}
}

// LineTotal is the price of a single line.
func LineTotal(unitPrice float64, quantity int) float64 {
	return round2(unitPrice * float64(quantity))
}

// Compute derives totals for the given lines and applied discounts.
// Percentage discounts apply to the subtotal, fixed discounts apply their
// raw amount, and multiple discounts stack additively. The grand total is
// clamped at zero. An empty cart yields all-zero totals.
func Compute(items []domain.CartItem, discounts []domain.Discount, p Policy) domain.Totals {
	if len(items) == 0 {
		return domain.Totals{}
	}

	var subtotal float64
	for _, it := range items {
		subtotal += it.UnitPrice * float64(it.Quantity)
	}
	subtotal = round2(subtotal)

	tax := round2(subtotal * p.TaxRate)

	shipping := p.FlatShippingFee
	if subtotal >= p.FreeShippingThreshold {
		shipping = 0
	}

	var discount float64
	for _, d := range discounts {
		switch d.Type {
		case domain.DiscountPercentage:
			discount += subtotal * d.Amount / 100
		case domain.DiscountFixed:
			discount += d.Amount
		}
	}
	discount = round2(discount)

	total := round2(subtotal + tax + shipping - discount)
	if total < 0 {
		total = 0
	}

	return domain.Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    total,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
