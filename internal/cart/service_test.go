package cart

import (
	"context"
	"testing"

	"github.com/bahaaabdelrahman/noon-app-sub000/internal/catalog"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertTotalsInvariant(t *testing.T, c *domain.Cart) {
	t.Helper()
	want := c.Totals.Subtotal + c.Totals.Tax + c.Totals.Shipping - c.Totals.Discount
	if want < 0 {
		want = 0
	}
	assert.InDelta(t, want, c.Totals.Total, 0.001)
	assert.GreaterOrEqual(t, c.Totals.Total, 0.0)
}

func TestAddItem_NewLine(t *testing.T) {
	svc, _, _ := newTestService(sellableProduct("p1", 25, 10))
	owner := domain.UserOwner("u1")

	c, err := svc.AddItem(context.Background(), owner, "p1", 2, nil)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, 25.0, c.Items[0].UnitPrice)
	assert.Equal(t, 50.0, c.Items[0].LineTotal)
	assert.Equal(t, "Product p1", c.Items[0].Product.Name)
	assert.NotEmpty(t, c.Items[0].ID)
	assertTotalsInvariant(t, c)
}

func TestAddItem_SameProductIncrementsLine(t *testing.T) {
	svc, _, _ := newTestService(sellableProduct("p1", 25, 10))
	owner := domain.UserOwner("u1")
	ctx := context.Background()

	_, err := svc.AddItem(ctx, owner, "p1", 2, nil)
	require.NoError(t, err)
	c, err := svc.AddItem(ctx, owner, "p1", 3, nil)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)
}

func TestAddItem_DifferentVariantsSeparateLines(t *testing.T) {
	svc, _, _ := newTestService(sellableProduct("p1", 25, 10))
	owner := domain.UserOwner("u1")
	ctx := context.Background()

	small := []domain.SelectedVariant{{Name: "size", Value: "S"}}
	large := []domain.SelectedVariant{{Name: "size", Value: "L"}}

	_, err := svc.AddItem(ctx, owner, "p1", 1, small)
	require.NoError(t, err)
	c, err := svc.AddItem(ctx, owner, "p1", 1, large)
	require.NoError(t, err)

	assert.Len(t, c.Items, 2)
}

func TestAddItem_VariantOrderInsensitive(t *testing.T) {
	svc, _, _ := newTestService(sellableProduct("p1", 25, 10))
	owner := domain.UserOwner("u1")
	ctx := context.Background()

	_, err := svc.AddItem(ctx, owner, "p1", 1, []domain.SelectedVariant{
		{Name: "size", Value: "L"}, {Name: "color", Value: "red"},
	})
	require.NoError(t, err)
	c, err := svc.AddItem(ctx, owner, "p1", 1, []domain.SelectedVariant{
		{Name: "color", Value: "red"}, {Name: "size", Value: "L"},
	})
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestAddItem_QuantityLimit(t *testing.T) {
	svc, _, _ := newTestService(sellableProduct("p1", 1, 1000))
	owner := domain.UserOwner("u1")
	ctx := context.Background()

	_, err := svc.AddItem(ctx, owner, "p1", 100, nil)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, owner, "p1", 1, nil)
	assert.ErrorIs(t, err, domain.ErrQuantityLimitExceeded)

	// Cart unchanged after the failed attempt.
	c, err := svc.GetCart(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 100, c.Items[0].Quantity)
}

func TestAddItem_InsufficientStock(t *testing.T) {
	svc, _, _ := newTestService(sellableProduct("p1", 10, 3))
	owner := domain.UserOwner("u1")
	ctx := context.Background()

	_, err := svc.AddItem(ctx, owner, "p1", 2, nil)
	require.NoError(t, err)

	// Cumulative quantity 2+2 exceeds stock of 3.
	_, err = svc.AddItem(ctx, owner, "p1", 2, nil)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestAddItem_UnsellableProduct(t *testing.T) {
	p := sellableProduct("p1", 10, 3)
	p.Status = "archived"
	svc, _, _ := newTestService(p)

	_, err := svc.AddItem(context.Background(), domain.UserOwner("u1"), "p1", 1, nil)
	assert.ErrorIs(t, err, domain.ErrProductUnavailable)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.AddItem(context.Background(), domain.UserOwner("u1"), "ghost", 1, nil)
	assert.ErrorIs(t, err, domain.ErrProductUnavailable)
}

func TestUpdateItemQuantity_ZeroRemovesLine(t *testing.T) {
	svc, _, _ := newTestService(sellableProduct("p1", 10, 10))
	owner := domain.UserOwner("u1")
	ctx := context.Background()

	c, err := svc.AddItem(ctx, owner, "p1", 2, nil)
	require.NoError(t, err)
	itemID := c.Items[0].ID

	c, err = svc.UpdateItemQuantity(ctx, owner, itemID, 0)
	require.NoError(t, err)

	assert.Empty(t, c.Items)
	assert.Equal(t, domain.Totals{}, c.Totals)
}

func TestUpdateItemQuantity_RevalidatesStock(t *testing.T) {
	svc, _, cat := newTestService(sellableProduct("p1", 10, 10))
	owner := domain.UserOwner("u1")
	ctx := context.Background()

	c, err := svc.AddItem(ctx, owner, "p1", 2, nil)
	require.NoError(t, err)

	// Stock shrinks after the line was added.
	require.NoError(t, cat.DecrementStock(ctx, "p1", 7))

	_, err = svc.UpdateItemQuantity(ctx, owner, c.Items[0].ID, 5)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestUpdateItemQuantity_UnknownItem(t *testing.T) {
	svc, _, _ := newTestService(sellableProduct("p1", 10, 10))
	owner := domain.UserOwner("u1")
	ctx := context.Background()

	_, err := svc.AddItem(ctx, owner, "p1", 1, nil)
	require.NoError(t, err)

	_, err = svc.UpdateItemQuantity(ctx, owner, "no-such-item", 2)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestClearCart_ZeroTotalsAndNoDiscounts(t *testing.T) {
	svc, _, _ := newTestService(sellableProduct("p1", 50, 10))
	owner := domain.UserOwner("u1")
	ctx := context.Background()

	_, err := svc.AddItem(ctx, owner, "p1", 2, nil)
	require.NoError(t, err)
	_, err = svc.ApplyDiscount(ctx, owner, "TEN")
	require.NoError(t, err)

	c, err := svc.ClearCart(ctx, owner)
	require.NoError(t, err)

	assert.Empty(t, c.Items)
	assert.Empty(t, c.Discounts)
	assert.Equal(t, domain.Totals{}, c.Totals)
	assert.Equal(t, domain.CartStatusActive, c.Status)
}

func TestApplyDiscount_Duplicate(t *testing.T) {
	svc, _, _ := newTestService(sellableProduct("p1", 50, 10))
	owner := domain.UserOwner("u1")
	ctx := context.Background()

	_, err := svc.AddItem(ctx, owner, "p1", 1, nil)
	require.NoError(t, err)
	_, err = svc.ApplyDiscount(ctx, owner, "TEN")
	require.NoError(t, err)

	_, err = svc.ApplyDiscount(ctx, owner, "TEN")
	assert.ErrorIs(t, err, domain.ErrDuplicateDiscount)

	c, err := svc.GetCart(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, c.Discounts, 1)
}

func TestApplyDiscount_EmptyCart(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ApplyDiscount(context.Background(), domain.UserOwner("u1"), "TEN")
	assert.ErrorIs(t, err, domain.ErrEmptyCartDiscount)
}

func TestApplyDiscount_UnknownCode(t *testing.T) {
	svc, _, _ := newTestService(sellableProduct("p1", 50, 10))
	owner := domain.UserOwner("u1")
	ctx := context.Background()

	_, err := svc.AddItem(ctx, owner, "p1", 1, nil)
	require.NoError(t, err)

	_, err = svc.ApplyDiscount(ctx, owner, "NOPE")
	assert.ErrorIs(t, err, domain.ErrUnknownDiscountCode)
}

func TestRemoveDiscount_AbsentCodeIsNoop(t *testing.T) {
	svc, _, _ := newTestService(sellableProduct("p1", 50, 10))
	owner := domain.UserOwner("u1")
	ctx := context.Background()

	_, err := svc.AddItem(ctx, owner, "p1", 1, nil)
	require.NoError(t, err)

	c, err := svc.RemoveDiscount(ctx, owner, "NEVER-APPLIED")
	require.NoError(t, err)
	assert.Empty(t, c.Discounts)
}

func TestGetCart_LazyCreate(t *testing.T) {
	svc, _, _ := newTestService()

	c, err := svc.GetCart(context.Background(), domain.GuestOwner("sess-1"))
	require.NoError(t, err)

	assert.Empty(t, c.Items)
	assert.Equal(t, domain.CartStatusActive, c.Status)
	assert.Equal(t, domain.Totals{}, c.Totals)
}

func TestGetCart_PrunesUnavailableLines(t *testing.T) {
	svc, _, cat := newTestService(
		sellableProduct("p1", 10, 10),
		sellableProduct("p2", 20, 10),
	)
	owner := domain.UserOwner("u1")
	ctx := context.Background()

	_, err := svc.AddItem(ctx, owner, "p1", 1, nil)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, owner, "p2", 1, nil)
	require.NoError(t, err)

	// p2 goes dark after being added.
	hidden := sellableProduct("p2", 20, 10)
	hidden.Visibility = "private"
	cat.Put(hidden)

	c, err := svc.GetCart(ctx, owner)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, "p1", c.Items[0].ProductID)
	assertTotalsInvariant(t, c)
}

func TestRetire_ConvertsCart(t *testing.T) {
	svc, repo, _ := newTestService(sellableProduct("p1", 10, 10))
	owner := domain.UserOwner("u1")
	ctx := context.Background()

	_, err := svc.AddItem(ctx, owner, "p1", 2, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Retire(ctx, owner))

	stored := repo.carts[owner.Key()]
	require.NotNil(t, stored)
	assert.Equal(t, domain.CartStatusConverted, stored.Status)
	assert.Empty(t, stored.Items)
	assert.Equal(t, domain.Totals{}, stored.Totals)
}

func TestTotals_RecomputedOnEveryMutation(t *testing.T) {
	svc, _, _ := newTestService(
		sellableProduct("p1", 30, 10),
		sellableProduct("p2", 45.5, 10),
	)
	owner := domain.UserOwner("u1")
	ctx := context.Background()

	steps := []func() (*domain.Cart, error){
		func() (*domain.Cart, error) { return svc.AddItem(ctx, owner, "p1", 2, nil) },
		func() (*domain.Cart, error) { return svc.AddItem(ctx, owner, "p2", 1, nil) },
		func() (*domain.Cart, error) { return svc.ApplyDiscount(ctx, owner, "FIVEOFF") },
		func() (*domain.Cart, error) { return svc.ApplyDiscount(ctx, owner, "TEN") },
		func() (*domain.Cart, error) { return svc.RemoveDiscount(ctx, owner, "FIVEOFF") },
	}

	for _, step := range steps {
		c, err := step()
		require.NoError(t, err)
		assertTotalsInvariant(t, c)
	}
}

func TestAddItem_UntrackedInventoryIgnoresStock(t *testing.T) {
	p := catalog.Product{
		ID: "digital", Name: "Digital Good", Price: 5,
		Status: "active", Visibility: "public",
		TrackQuantity: false, Quantity: 0,
	}
	svc, _, _ := newTestService(p)

	c, err := svc.AddItem(context.Background(), domain.UserOwner("u1"), "digital", 50, nil)
	require.NoError(t, err)
	assert.Equal(t, 50, c.Items[0].Quantity)
}
