package pricing

import (
	"testing"

	"github.com/bahaaabdelrahman/noon-app-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
)

func items(lines ...domain.CartItem) []domain.CartItem { return lines }

func line(price float64, qty int) domain.CartItem {
	return domain.CartItem{UnitPrice: price, Quantity: qty}
}

func TestCompute_EmptyCart(t *testing.T) {
	totals := Compute(nil, nil, DefaultPolicy())
	assert.Equal(t, domain.Totals{}, totals)
}

func TestCompute_Subtotal(t *testing.T) {
	totals := Compute(items(line(19.99, 2), line(5, 1)), nil, DefaultPolicy())

	assert.Equal(t, 44.98, totals.Subtotal)
	assert.Equal(t, 2.25, totals.Tax)
	assert.Equal(t, 10.0, totals.Shipping)
	assert.Equal(t, 0.0, totals.Discount)
	assert.Equal(t, 57.23, totals.Total)
}

func TestCompute_FreeShippingAtThreshold(t *testing.T) {
	p := DefaultPolicy()

	below := Compute(items(line(99.99, 1)), nil, p)
	assert.Equal(t, p.FlatShippingFee, below.Shipping)

	atThreshold := Compute(items(line(100, 1)), nil, p)
	assert.Equal(t, 0.0, atThreshold.Shipping)
}

func TestCompute_DiscountsStackAdditively(t *testing.T) {
	discounts := []domain.Discount{
		{Code: "TEN", Type: domain.DiscountPercentage, Amount: 10},
		{Code: "FIVEOFF", Type: domain.DiscountFixed, Amount: 5},
	}

	totals := Compute(items(line(200, 1)), discounts, DefaultPolicy())

	// 10% of 200 plus flat 5
	assert.Equal(t, 25.0, totals.Discount)
	assert.Equal(t, 200.0, totals.Subtotal)
	assert.Equal(t, 185.0, totals.Total) // 200 + 10 tax + 0 shipping - 25
}

func TestCompute_TotalNeverNegative(t *testing.T) {
	discounts := []domain.Discount{
		{Code: "HUGE", Type: domain.DiscountFixed, Amount: 1000},
	}

	totals := Compute(items(line(10, 1)), discounts, DefaultPolicy())

	assert.Equal(t, 0.0, totals.Total)
	assert.Equal(t, 1000.0, totals.Discount)
}

func TestCompute_Invariant(t *testing.T) {
	cases := []struct {
		name      string
		items     []domain.CartItem
		discounts []domain.Discount
	}{
		{"plain", items(line(12.5, 3)), nil},
		{"percentage", items(line(80, 2)), []domain.Discount{{Code: "P", Type: domain.DiscountPercentage, Amount: 15}}},
		{"stacked", items(line(33.33, 3), line(0.01, 100)), []domain.Discount{
			{Code: "A", Type: domain.DiscountPercentage, Amount: 50},
			{Code: "B", Type: domain.DiscountFixed, Amount: 20},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tt := Compute(tc.items, tc.discounts, DefaultPolicy())
			want := tt.Subtotal + tt.Tax + tt.Shipping - tt.Discount
			if want < 0 {
				want = 0
			}
			assert.InDelta(t, want, tt.Total, 0.001)
			assert.GreaterOrEqual(t, tt.Total, 0.0)
		})
	}
}

func TestCompute_Deterministic(t *testing.T) {
	in := items(line(42.42, 2))
	d := []domain.Discount{{Code: "X", Type: domain.DiscountPercentage, Amount: 7}}

	first := Compute(in, d, DefaultPolicy())
	second := Compute(in, d, DefaultPolicy())

	assert.Equal(t, first, second)
}
