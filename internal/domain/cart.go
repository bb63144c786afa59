package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// MaxLineQuantity caps a single cart line. Quantities above it are rejected,
// never silently clamped.
const MaxLineQuantity = 100

type OwnerKind string

const (
	OwnerUser  OwnerKind = "user"
	OwnerGuest OwnerKind = "guest"
)

// Owner identifies who a cart belongs to: exactly one of an authenticated
// user id or an anonymous session id.
type Owner struct {
	Kind OwnerKind `bson:"kind" json:"kind"`
	ID   string    `bson:"id" json:"id"`
}

func UserOwner(userID string) Owner {
	return Owner{Kind: OwnerUser, ID: userID}
}

func GuestOwner(sessionID string) Owner {
	return Owner{Kind: OwnerGuest, ID: sessionID}
}

// Key is the stable lookup key used by the cart repository and cache.
func (o Owner) Key() string {
	return fmt.Sprintf("%s:%s", o.Kind, o.ID)
}

// TTL is how long a cart may stay untouched before expiring.
func (o Owner) TTL() time.Duration {
	if o.Kind == OwnerGuest {
		return 7 * 24 * time.Hour
	}
	return 30 * 24 * time.Hour
}

type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusAbandoned CartStatus = "abandoned"
	CartStatusConverted CartStatus = "converted"
)

// SelectedVariant is one chosen product option, e.g. {Name: "size", Value: "L"}.
type SelectedVariant struct {
	Name  string `bson:"name" json:"name"`
	Value string `bson:"value" json:"value"`
}

// ProductSnapshot is display data captured when a line is added so later
// catalog edits do not alter carts or placed orders.
type ProductSnapshot struct {
	Name     string `bson:"name" json:"name"`
	Slug     string `bson:"slug" json:"slug"`
	SKU      string `bson:"sku" json:"sku"`
	Image    string `bson:"image" json:"image"`
	Brand    string `bson:"brand,omitempty" json:"brand,omitempty"`
	Category string `bson:"category,omitempty" json:"category,omitempty"`
}

type CartItem struct {
	ID        string            `bson:"id" json:"id"`
	ProductID string            `bson:"product_id" json:"product_id"`
	Quantity  int               `bson:"quantity" json:"quantity"`
	UnitPrice float64           `bson:"unit_price" json:"unit_price"`
	LineTotal float64           `bson:"line_total" json:"line_total"`
	Variants  []SelectedVariant `bson:"variants,omitempty" json:"variants,omitempty"`
	Product   ProductSnapshot   `bson:"product" json:"product"`
	AddedAt   time.Time         `bson:"added_at" json:"added_at"`
}

// MatchKey is the de-duplication identity of a line: product id plus the
// selected variant set, order-insensitive.
func (i CartItem) MatchKey() string {
	return LineKey(i.ProductID, i.Variants)
}

func LineKey(productID string, variants []SelectedVariant) string {
	if len(variants) == 0 {
		return productID
	}
	parts := make([]string, 0, len(variants))
	for _, v := range variants {
		parts = append(parts, v.Name+"="+v.Value)
	}
	sort.Strings(parts)
	return productID + "|" + strings.Join(parts, "|")
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Discount struct {
	Code   string       `bson:"code" json:"code"`
	Type   DiscountType `bson:"type" json:"type"`
	Amount float64      `bson:"amount" json:"amount"`
}

// Totals always satisfies Total == max(0, Subtotal+Tax+Shipping-Discount).
// They are recomputed by the pricing engine on every mutation, never set
// by hand.
type Totals struct {
	Subtotal float64 `bson:"subtotal" json:"subtotal"`
	Tax      float64 `bson:"tax" json:"tax"`
	Shipping float64 `bson:"shipping" json:"shipping"`
	Discount float64 `bson:"discount" json:"discount"`
	Total    float64 `bson:"total" json:"total"`
}

type Cart struct {
	ID        string     `bson:"_id,omitempty" json:"id"`
	Owner     Owner      `bson:"owner" json:"owner"`
	OwnerKey  string     `bson:"owner_key" json:"-"`
	Items     []CartItem `bson:"items" json:"items"`
	Discounts []Discount `bson:"discounts" json:"discounts"`
	Totals    Totals     `bson:"totals" json:"totals"`
	Status    CartStatus `bson:"status" json:"status"`
	ExpiresAt time.Time  `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

// Item returns the line with the given id, or nil.
func (c *Cart) Item(itemID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i]
		}
	}
	return nil
}

// MatchingLine returns the line matching product+variants, or nil.
func (c *Cart) MatchingLine(productID string, variants []SelectedVariant) *CartItem {
	key := LineKey(productID, variants)
	for i := range c.Items {
		if c.Items[i].MatchKey() == key {
			return &c.Items[i]
		}
	}
	return nil
}

// RemoveLine deletes the line with the given id, reporting whether it existed.
func (c *Cart) RemoveLine(itemID string) bool {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// HasDiscount reports whether the code is already applied.
func (c *Cart) HasDiscount(code string) bool {
	for _, d := range c.Discounts {
		if d.Code == code {
			return true
		}
	}
	return false
}
